package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/joseph-ayodele/repair-jobsheets/constants"
	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
)

var ErrInvoiceUnavailable = errors.New("invoice only available for completed jobs")

const invoiceHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Invoice {{.Job.ID}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #222; margin: 40px; }
h1 { font-size: 24px; margin-bottom: 4px; }
table { width: 100%; border-collapse: collapse; margin-top: 24px; }
th, td { text-align: left; padding: 8px; border-bottom: 1px solid #ddd; }
.total { font-weight: bold; font-size: 18px; text-align: right; margin-top: 16px; }
</style>
</head>
<body>
<h1>Invoice</h1>
<p>Job ID: <strong>{{.Job.ID}}</strong><br>Date: {{.IssuedOn}}</p>
<p>Billed to: {{.Job.CustomerName}}<br>Mobile: {{.Job.MobileNumber}}</p>
<table>
<tr><th>Device</th><th>Service</th><th>Components</th><th>Completed</th></tr>
<tr><td>{{.Job.MobileModel}}</td><td>{{.Job.Issue}}</td><td>{{.Job.Components}}</td><td>{{.Job.CompletionDate}}</td></tr>
</table>
<p class="total">Total: INR {{.Amount}}</p>
</body>
</html>
`

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoiceHTML))

// InvoiceFilename is the download name for a job's invoice.
func InvoiceFilename(id string) string {
	return fmt.Sprintf("Invoice_%s.html", id)
}

// RenderInvoice renders the HTML invoice of a completed job. Other statuses
// return ErrInvoiceUnavailable.
func RenderInvoice(job *entity.Job, issuedAt time.Time) ([]byte, error) {
	if job.Status != string(constants.JobStatusCompleted) {
		return nil, common.NewAppError("INVOICE_UNAVAILABLE", "Invoice only available for completed jobs",
			errors.Join(common.ErrInvalidInput, ErrInvoiceUnavailable))
	}
	amount := strings.TrimSpace(job.TotalAmount)
	if amount == "" {
		amount = "0.00"
	}
	var buf bytes.Buffer
	err := invoiceTmpl.Execute(&buf, struct {
		Job      *entity.Job
		IssuedOn string
		Amount   string
	}{
		Job:      job,
		IssuedOn: issuedAt.Format("January 02, 2006"),
		Amount:   amount,
	})
	if err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// Invoice looks the job up and renders its invoice.
func (s *Service) Invoice(ctx context.Context, id string) ([]byte, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := RenderInvoice(job, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.invoice.ok", "id", job.ID)
	return out, nil
}
