package repository

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/repair-jobsheets/constants"
	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
	"github.com/joseph-ayodele/repair-jobsheets/internal/utils"
)

const jobIDPrefix = "RB"

// DeletedMessage is the acknowledgment Delete returns for id.
func DeletedMessage(id string) string {
	return fmt.Sprintf("Job %s deleted successfully", id)
}

var sequentialID = regexp.MustCompile(`^RB(\d+)$`)

// JobPatch maps record field names to new values. Keys outside
// PatchFields are ignored.
type JobPatch map[string]string

type JobRepository interface {
	ListAll(ctx context.Context) ([]*entity.Job, error)
	GetByID(ctx context.Context, id string) (*entity.Job, error)
	Search(ctx context.Context, query string) ([]*entity.Job, error)
	Create(ctx context.Context, job *entity.Job) (*entity.Job, error)
	Update(ctx context.Context, id string, patch JobPatch) (*entity.Job, error)
	Delete(ctx context.Context, id string) (string, error)
	NextID(ctx context.Context) (string, error)
	VerifySchema(ctx context.Context) error
}

// Option configures a job repository.
type Option func(*jobRepository)

// WithClock replaces time.Now, used for entry and completion dates and the
// fallback ID.
func WithClock(now func() time.Time) Option {
	return func(r *jobRepository) {
		if now != nil {
			r.now = now
		}
	}
}

type jobRepository struct {
	client sheets.Client
	logger *slog.Logger
	now    func() time.Time

	// writes inside one process are serialised; other writers to the same
	// sheet still race (last write wins)
	mu sync.Mutex
}

func NewJobRepository(client sheets.Client, logger *slog.Logger, opts ...Option) JobRepository {
	r := &jobRepository{
		client: client,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *jobRepository) tab(ctx context.Context) (sheets.Tab, error) {
	tab, err := r.client.Jobs(ctx)
	if err != nil {
		r.logger.Error("jobs.tab.unavailable", "error", err)
		return nil, err
	}
	return tab, nil
}

func (r *jobRepository) rows(ctx context.Context) (sheets.Tab, []sheets.Row, error) {
	tab, err := r.tab(ctx)
	if err != nil {
		return nil, nil, err
	}
	rows, err := tab.Rows(ctx)
	if err != nil {
		r.logger.Error("jobs.rows.fetch_failed", "error", err)
		return nil, nil, err
	}
	return tab, rows, nil
}

func findRow(rows []sheets.Row, id string) (sheets.Row, bool) {
	for _, row := range rows {
		if strings.TrimSpace(row.Cell(int(ColID))) == id {
			return row, true
		}
	}
	return sheets.Row{}, false
}

func (r *jobRepository) ListAll(ctx context.Context) ([]*entity.Job, error) {
	_, rows, err := r.rows(ctx)
	if err != nil {
		return nil, err
	}
	jobs := make([]*entity.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, rowToJob(row))
	}
	return jobs, nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*entity.Job, error) {
	id = strings.TrimSpace(id)
	_, rows, err := r.rows(ctx)
	if err != nil {
		return nil, err
	}
	row, ok := findRow(rows, id)
	if !ok {
		return nil, common.NotFoundf("job %s not found", id)
	}
	return rowToJob(row), nil
}

// Search matches query case-insensitively against the job ID and customer
// name, and as a plain substring against the mobile number.
func (r *jobRepository) Search(ctx context.Context, query string) ([]*entity.Job, error) {
	jobs, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(query)
	q := strings.ToLower(raw)
	matches := make([]*entity.Job, 0)
	for _, j := range jobs {
		if strings.Contains(strings.ToLower(j.ID), q) ||
			strings.Contains(strings.ToLower(j.CustomerName), q) ||
			strings.Contains(j.MobileNumber, raw) {
			matches = append(matches, j)
		}
	}
	return matches, nil
}

// Create appends job as a new row. The returned record is the written row
// read back the way ListAll would see it.
func (r *jobRepository) Create(ctx context.Context, job *entity.Job) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tab, rows, err := r.rows(ctx)
	if err != nil {
		return nil, err
	}

	rec := *job
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		rec.ID, err = generateID(rows)
		if err != nil {
			rec.ID = r.fallbackID()
			r.logger.Warn("jobs.id.fallback", "id", rec.ID, "error", err)
		}
	}
	if _, exists := findRow(rows, rec.ID); exists {
		return nil, common.NewAppError("DUPLICATE_ID", fmt.Sprintf("job %s already exists", rec.ID), common.ErrDuplicateID)
	}

	today := utils.FormatDate(r.now())
	if strings.TrimSpace(rec.EntryDate) == "" {
		rec.EntryDate = today
	} else {
		rec.EntryDate = utils.NormalizeDate(rec.EntryDate)
	}
	rec.CompletionDate = utils.NormalizeDate(rec.CompletionDate)
	if strings.TrimSpace(rec.Status) == "" {
		rec.Status = string(constants.JobStatusPending)
	} else {
		rec.Status = constants.NormalizeStatus(rec.Status)
	}
	if rec.Status == string(constants.JobStatusCompleted) && rec.CompletionDate == "" {
		rec.CompletionDate = today
	}
	rec.Issue = combineIssue(rec.Issue, rec.CustomIssue)
	rec.CustomIssue = ""

	if err := tab.Append(ctx, jobToRow(&rec)); err != nil {
		r.logger.Error("jobs.create.failed", "id", rec.ID, "error", err)
		return nil, err
	}
	r.logger.Info("jobs.create.ok", "id", rec.ID, "status", rec.Status)
	return rowToJob(sheets.Row{Values: jobToRow(&rec)}), nil
}

// Update applies the whitelisted fields of patch to the row holding id and
// returns the record as re-read from the saved row.
func (r *jobRepository) Update(ctx context.Context, id string, patch JobPatch) (*entity.Job, error) {
	id = strings.TrimSpace(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	tab, rows, err := r.rows(ctx)
	if err != nil {
		return nil, err
	}
	row, ok := findRow(rows, id)
	if !ok {
		return nil, common.NotFoundf("job %s not found", id)
	}

	completionSupplied := false
	for _, field := range patchOrder {
		value, present := patch[field]
		if !present {
			continue
		}
		col := patchColumns[field]
		value = strings.TrimSpace(value)
		switch col {
		case ColStatus:
			value = constants.NormalizeStatus(value)
		case ColEntryDate:
			value = utils.NormalizeDate(value)
		case ColCompletionDate:
			value = utils.NormalizeDate(value)
			if value != "" {
				completionSupplied = true
			}
		}
		row.SetCell(int(col), value)
	}

	// stamp only an empty completion date so repeated updates keep the first
	if status, ok := patch["status"]; ok &&
		constants.NormalizeStatus(strings.TrimSpace(status)) == string(constants.JobStatusCompleted) &&
		!completionSupplied &&
		strings.TrimSpace(row.Cell(int(ColCompletionDate))) == "" {
		row.SetCell(int(ColCompletionDate), utils.FormatDate(r.now()))
	}

	if err := tab.Update(ctx, row); err != nil {
		r.logger.Error("jobs.update.failed", "id", id, "row", row.Number, "error", err)
		return nil, err
	}
	updated := rowToJob(row)
	r.logger.Info("jobs.update.ok", "id", id, "status", updated.Status)
	return updated, nil
}

func (r *jobRepository) Delete(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	r.mu.Lock()
	defer r.mu.Unlock()

	tab, rows, err := r.rows(ctx)
	if err != nil {
		return "", err
	}
	row, ok := findRow(rows, id)
	if !ok {
		return "", common.NotFoundf("job %s not found", id)
	}
	if err := tab.Delete(ctx, row); err != nil {
		r.logger.Error("jobs.delete.failed", "id", id, "row", row.Number, "error", err)
		return "", err
	}
	r.logger.Info("jobs.delete.ok", "id", id)
	return DeletedMessage(id), nil
}

// NextID returns the ID Create would assign now. When the sheet cannot be
// scanned it falls back to a timestamp-derived ID.
func (r *jobRepository) NextID(ctx context.Context) (string, error) {
	_, rows, err := r.rows(ctx)
	if err == nil {
		var id string
		if id, err = generateID(rows); err == nil {
			return id, nil
		}
	}
	id := r.fallbackID()
	r.logger.Warn("jobs.id.fallback", "id", id, "error", err)
	return id, nil
}

// VerifySchema checks the header row against the published column list.
func (r *jobRepository) VerifySchema(ctx context.Context) error {
	tab, err := r.tab(ctx)
	if err != nil {
		return err
	}
	got, err := tab.Headers(ctx)
	if err != nil {
		return err
	}
	// trailing empty header cells are ignored
	for len(got) > 0 && got[len(got)-1] == "" {
		got = got[:len(got)-1]
	}
	want := JobHeaders()
	mismatch := len(got) != len(want)
	for i := 0; !mismatch && i < len(want); i++ {
		mismatch = got[i] != want[i]
	}
	if mismatch {
		r.logger.Error("jobs.schema.mismatch", "tab", tab.Title(), "expected", want, "actual", got)
		return common.NewAppError("SCHEMA_MISMATCH",
			fmt.Sprintf("tab %q headers %q do not match %q", tab.Title(), got, want),
			common.ErrSchemaMismatch)
	}
	return nil
}

// generateID takes the highest RB<n> suffix and adds one, zero padded to
// three digits. An empty sheet starts at RB001.
func generateID(rows []sheets.Row) (string, error) {
	highest := 0
	for _, row := range rows {
		m := sequentialID.FindStringSubmatch(strings.TrimSpace(row.Cell(int(ColID))))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return "", fmt.Errorf("parse job id suffix %q: %w", m[1], err)
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", jobIDPrefix, highest+1), nil
}

func (r *jobRepository) fallbackID() string {
	ms := strconv.FormatInt(r.now().UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return jobIDPrefix + ms
}

func combineIssue(issue, custom string) string {
	issue = strings.TrimSpace(issue)
	custom = strings.TrimSpace(custom)
	switch {
	case custom == "":
		return issue
	case issue == "":
		return custom
	default:
		return issue + " - " + custom
	}
}
