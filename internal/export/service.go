package export

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/repair-jobsheets/constants"
	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
	"github.com/joseph-ayodele/repair-jobsheets/internal/repository"
	"github.com/joseph-ayodele/repair-jobsheets/internal/utils"
)

// Filter narrows an export. Dates are compared against the entry date.
// If only From is set the window runs to today (inclusive); if only To is
// set it runs from the first job; with neither every job is exported.
type Filter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

// csvHeaders is the column subset the shop's job list downloads.
var csvHeaders = []string{
	"Job ID",
	"Customer Name",
	"Mobile Number",
	"Device Model",
	"Issue",
	"Components",
	"Status",
	"Completed Date",
}

// Service is a tiny façade over the job repository that produces export
// files and invoices.
type Service struct {
	jobRepo repository.JobRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobRepo: repo, logger: logger, now: time.Now}
}

func (s *Service) selectJobs(ctx context.Context, filter Filter) ([]*entity.Job, error) {
	var fromDate, toDate *time.Time
	if filter.From != nil {
		f := dateOnly(*filter.From)
		fromDate = &f
	}
	if filter.To != nil {
		t := dateOnly(*filter.To)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := dateOnly(s.now())
		toDate = &t
	}
	status := constants.NormalizeStatus(strings.TrimSpace(filter.Status))

	all, err := s.jobRepo.ListAll(ctx)
	if err != nil {
		return nil, common.WrapError(err, "list jobs")
	}
	out := make([]*entity.Job, 0, len(all))
	for _, j := range all {
		if status != "" && j.Status != status {
			continue
		}
		if fromDate != nil || toDate != nil {
			entered, ok := utils.ParseDate(j.EntryDate)
			if !ok {
				continue
			}
			entered = dateOnly(entered)
			if fromDate != nil && entered.Before(*fromDate) {
				continue
			}
			if toDate != nil && entered.After(*toDate) {
				continue
			}
		}
		out = append(out, j)
	}
	return out, nil
}

// ExportJobsXLSX returns an XLSX workbook (as bytes) laid out like the job
// tab.
func (s *Service) ExportJobsXLSX(ctx context.Context, filter Filter) ([]byte, error) {
	start := time.Now()
	jobs, err := s.selectJobs(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Jobs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range repository.JobHeaders() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		write := func(col repository.JobColumn, v any) {
			cell, _ := excelize.CoordinatesToCellName(int(col)+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(repository.ColID, j.ID)
		write(repository.ColCustomerName, j.CustomerName)
		write(repository.ColMobileNumber, j.MobileNumber)
		write(repository.ColMobileModel, j.MobileModel)
		write(repository.ColIssue, j.Issue)
		write(repository.ColComponents, j.Components)
		write(repository.ColStatus, j.Status)
		write(repository.ColEntryDate, j.EntryDate)
		write(repository.ColCompletionDate, j.CompletionDate)
		write(repository.ColTotalAmount, j.TotalAmount)
		write(repository.ColNotes, j.Notes)
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 14) // id
	_ = f.SetColWidth(sheet, "B", "B", 24) // customer
	_ = f.SetColWidth(sheet, "C", "D", 16) // mobile, model
	_ = f.SetColWidth(sheet, "E", "E", 40) // issue
	_ = f.SetColWidth(sheet, "F", "F", 28) // components
	_ = f.SetColWidth(sheet, "G", "J", 14) // status, dates, amount
	_ = f.SetColWidth(sheet, "K", "K", 48) // comments

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.WrapError(err, "xlsx write")
	}

	s.logger.Info("export.xlsx.ok",
		"status", filter.Status,
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportJobsCSV writes the job list download to w.
func (s *Service) ExportJobsCSV(ctx context.Context, w io.Writer, filter Filter) error {
	jobs, err := s.selectJobs(ctx, filter)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return common.WrapError(err, "csv write")
	}
	for _, j := range jobs {
		record := []string{
			j.ID,
			j.CustomerName,
			j.MobileNumber,
			j.MobileModel,
			j.Issue,
			j.Components,
			j.Status,
			j.CompletionDate,
		}
		if err := cw.Write(record); err != nil {
			return common.WrapError(err, "csv write")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return common.WrapError(err, "csv flush")
	}
	s.logger.Info("export.csv.ok", "status", filter.Status, "rows", len(jobs))
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
