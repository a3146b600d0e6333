package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/export"
	"github.com/joseph-ayodele/repair-jobsheets/internal/utils"
	"github.com/joseph-ayodele/repair-jobsheets/internal/validate"
)

func (a *API) readJobPayload(w http.ResponseWriter, r *http.Request) (validate.Record, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "request body too large or unreadable", common.ErrInvalidInput)
	}
	return validate.DecodeJobPayload(body)
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	list, err := a.deps.Jobs.List(r.Context())
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.deps.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

func (a *API) searchJobs(w http.ResponseWriter, r *http.Request) {
	found, err := a.deps.Jobs.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, found)
}

func (a *API) createJob(w http.ResponseWriter, r *http.Request) {
	rec, err := a.readJobPayload(w, r)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	job, err := a.deps.Jobs.Create(r.Context(), rec)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	a.logger.Info("http.jobs.created", "id", job.ID, "admin", common.AdminEmailFromContext(r.Context()))
	writeData(w, http.StatusCreated, job)
}

func (a *API) updateJob(w http.ResponseWriter, r *http.Request) {
	rec, err := a.readJobPayload(w, r)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	job, err := a.deps.Jobs.Update(r.Context(), chi.URLParam(r, "id"), rec)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

func (a *API) updateJobStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		a.errs.write(w, r, err)
		return
	}
	job, err := a.deps.Jobs.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, job)
}

func (a *API) deleteJob(w http.ResponseWriter, r *http.Request) {
	msg, err := a.deps.Jobs.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	a.logger.Info("http.jobs.deleted", "id", chi.URLParam(r, "id"), "admin", common.AdminEmailFromContext(r.Context()))
	writeMessage(w, http.StatusOK, msg)
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := a.deps.Jobs.Stats(r.Context())
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (a *API) invoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	html, err := a.deps.Export.Invoice(r.Context(), id)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.InvoiceFilename(id)+`"`)
	_, _ = w.Write(html)
}

// exportFilter reads status, from and to query parameters. Dates may be
// dd/mm/yyyy or yyyy-mm-dd.
func exportFilter(r *http.Request) (export.Filter, error) {
	q := r.URL.Query()
	f := export.Filter{Status: strings.TrimSpace(q.Get("status"))}
	parse := func(name string) (*time.Time, error) {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			return nil, nil
		}
		t, ok := utils.ParseDate(v)
		if !ok {
			return nil, common.NewAppError("INVALID_INPUT", name+" must be dd/mm/yyyy or yyyy-mm-dd", common.ErrInvalidInput)
		}
		return &t, nil
	}
	var err error
	if f.From, err = parse("from"); err != nil {
		return f, err
	}
	if f.To, err = parse("to"); err != nil {
		return f, err
	}
	return f, nil
}

func (a *API) exportXLSX(w http.ResponseWriter, r *http.Request) {
	filter, err := exportFilter(r)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	data, err := a.deps.Export.ExportJobsXLSX(r.Context(), filter)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="jobs_`+a.now().Format("2006-01-02")+`.xlsx"`)
	_, _ = w.Write(data)
}

func (a *API) exportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := exportFilter(r)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	// buffered so a store failure can still be reported as JSON
	var buf bytes.Buffer
	if err := a.deps.Export.ExportJobsCSV(r.Context(), &buf, filter); err != nil {
		a.errs.write(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="jobs_`+a.now().Format("2006-01-02")+`.csv"`)
	_, _ = w.Write(buf.Bytes())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return common.NewAppError("INVALID_INPUT", "request body is not valid JSON", common.ErrInvalidInput)
	}
	return nil
}
