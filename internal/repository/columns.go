package repository

import (
	"strings"

	"github.com/joseph-ayodele/repair-jobsheets/constants"
	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
)

// JobColumn is a column of the job tab. The numeric value is the column's
// position; rows are always written in this order.
type JobColumn int

const (
	ColID JobColumn = iota
	ColCustomerName
	ColMobileNumber
	ColMobileModel
	ColIssue
	ColComponents
	ColStatus
	ColEntryDate
	ColCompletionDate
	ColTotalAmount
	ColNotes

	jobColumnCount
)

var jobHeaders = [jobColumnCount]string{
	ColID:             "Job Sheet ID",
	ColCustomerName:   "Customer Name",
	ColMobileNumber:   "Mobile Number",
	ColMobileModel:    "Mobile Model",
	ColIssue:          "Issue Description",
	ColComponents:     "Components",
	ColStatus:         "Status",
	ColEntryDate:      "Entry Date",
	ColCompletionDate: "Completed Date",
	ColTotalAmount:    "Total Amount",
	ColNotes:          "Comments",
}

// Header returns the published header text of the column.
func (c JobColumn) Header() string {
	if c < 0 || c >= jobColumnCount {
		return ""
	}
	return jobHeaders[c]
}

// JobHeaders returns the job tab header row in column order.
func JobHeaders() []string {
	out := make([]string, jobColumnCount)
	copy(out, jobHeaders[:])
	return out
}

// patchColumns is the whitelist of record fields an update may touch.
// expectedDate is the name older forms used for the completion date.
var patchColumns = map[string]JobColumn{
	"customerName":   ColCustomerName,
	"mobileNumber":   ColMobileNumber,
	"mobileModel":    ColMobileModel,
	"issue":          ColIssue,
	"components":     ColComponents,
	"status":         ColStatus,
	"entryDate":      ColEntryDate,
	"expectedDate":   ColCompletionDate,
	"completionDate": ColCompletionDate,
	"totalAmount":    ColTotalAmount,
	"notes":          ColNotes,
}

// patchOrder fixes the order patch fields are applied in, so completionDate
// wins over expectedDate when both are sent.
var patchOrder = []string{
	"customerName",
	"mobileNumber",
	"mobileModel",
	"issue",
	"components",
	"status",
	"entryDate",
	"expectedDate",
	"completionDate",
	"totalAmount",
	"notes",
}

// PatchFields lists the field names Update accepts.
func PatchFields() []string {
	out := make([]string, len(patchOrder))
	copy(out, patchOrder)
	return out
}

// defaultTotalAmount is what a blank Total Amount cell reads as.
const defaultTotalAmount = "0.00"

// rowToJob reads a job row. A blank Status reads as Pending and a blank
// Total Amount as 0.00; the cells themselves are left untouched.
func rowToJob(row sheets.Row) *entity.Job {
	cell := func(c JobColumn) string { return strings.TrimSpace(row.Cell(int(c))) }
	status := cell(ColStatus)
	if status == "" {
		status = string(constants.JobStatusPending)
	}
	amount := cell(ColTotalAmount)
	if amount == "" {
		amount = defaultTotalAmount
	}
	return &entity.Job{
		ID:             cell(ColID),
		CustomerName:   cell(ColCustomerName),
		MobileNumber:   cell(ColMobileNumber),
		MobileModel:    cell(ColMobileModel),
		Issue:          cell(ColIssue),
		Components:     cell(ColComponents),
		Status:         constants.NormalizeStatus(status),
		EntryDate:      cell(ColEntryDate),
		CompletionDate: cell(ColCompletionDate),
		TotalAmount:    amount,
		Notes:          cell(ColNotes),
	}
}

func jobToRow(j *entity.Job) []string {
	values := make([]string, jobColumnCount)
	values[ColID] = j.ID
	values[ColCustomerName] = j.CustomerName
	values[ColMobileNumber] = j.MobileNumber
	values[ColMobileModel] = j.MobileModel
	values[ColIssue] = j.Issue
	values[ColComponents] = j.Components
	values[ColStatus] = j.Status
	values[ColEntryDate] = j.EntryDate
	values[ColCompletionDate] = j.CompletionDate
	values[ColTotalAmount] = j.TotalAmount
	values[ColNotes] = j.Notes
	return values
}
