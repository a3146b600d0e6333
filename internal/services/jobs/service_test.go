package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/repository"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
	"github.com/joseph-ayodele/repair-jobsheets/internal/validate"
)

var today = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := sheets.OpenWorkbook(sheets.WorkbookConfig{
		JobsTab:  "Sheet1",
		AdminTab: "Sheet2",
		Seed: map[string][]string{
			"Sheet1": repository.JobHeaders(),
			"Sheet2": repository.AdminHeaders(),
		},
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	repo := repository.NewJobRepository(c, logger, repository.WithClock(func() time.Time { return today }))
	return NewService(repo, logger)
}

func janeDoe() validate.Record {
	return validate.Record{
		"customerName": "Jane Doe",
		"mobileNumber": "9876543210",
		"mobileModel":  "X1",
		"issue":        "Display Problem",
	}
}

func TestCreateEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	job, err := svc.Create(ctx, janeDoe())
	require.NoError(t, err)
	assert.Regexp(t, `^RB\d{3,}$`, job.ID)
	assert.Equal(t, "Pending", job.Status)
	assert.Equal(t, "16/10/2026", job.EntryDate)
	assert.Empty(t, job.CompletionDate)

	found, err := svc.Search(ctx, "987654")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, job.ID, found[0].ID)
}

func TestCreateSanitizesBeforeValidating(t *testing.T) {
	svc := newTestService(t)
	rec := janeDoe()
	rec["customerName"] = "<b>Jane</b> & Co"
	rec["status"] = "in progress"
	rec["totalAmount"] = json.Number("1200")

	job, err := svc.Create(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "bJane/b  Co", job.CustomerName)
	assert.Equal(t, "In Progress", job.Status)
	assert.Equal(t, "1200", job.TotalAmount)
}

func TestCreateRejectsInvalidRecord(t *testing.T) {
	svc := newTestService(t)
	rec := janeDoe()
	rec["mobileNumber"] = "12345"
	delete(rec, "customerName")

	_, err := svc.Create(context.Background(), rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Equal(t, "Validation failed: customerName is required, mobileNumber format is invalid", err.Error())

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateMergesCustomIssue(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	job, err := svc.Create(ctx, janeDoe())
	require.NoError(t, err)

	got, err := svc.Update(ctx, job.ID, validate.Record{
		"issue":       "Other",
		"customIssue": "hinge loose",
		"notes":       "waiting for part",
	})
	require.NoError(t, err)
	assert.Equal(t, "Other - hinge loose", got.Issue)
	assert.Equal(t, "waiting for part", got.Notes)
}

func TestUpdateValidatesPresentFieldsOnly(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	job, err := svc.Create(ctx, janeDoe())
	require.NoError(t, err)

	_, err = svc.Update(ctx, job.ID, validate.Record{"mobileNumber": "12345"})
	assert.True(t, errors.Is(err, common.ErrValidation))

	_, err = svc.Update(ctx, job.ID, validate.Record{"uid": "RB999"})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = svc.Update(ctx, "RB404", validate.Record{"notes": "x"})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestUpdateStatusCompletedTwice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	job, err := svc.Create(ctx, janeDoe())
	require.NoError(t, err)

	first, err := svc.UpdateStatus(ctx, job.ID, "completed")
	require.NoError(t, err)
	second, err := svc.UpdateStatus(ctx, job.ID, "Completed")
	require.NoError(t, err)
	assert.Equal(t, "Completed", second.Status)
	assert.Equal(t, "16/10/2026", first.CompletionDate)
	assert.Equal(t, first.CompletionDate, second.CompletionDate)

	_, err = svc.UpdateStatus(ctx, job.ID, "Delivered")
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestSearchRequiresQuery(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Search(context.Background(), "  <> ")
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	statuses := []string{"Pending", "In Progress", "Completed", "Pending", "Completed", "Pending", "In Progress"}
	for i, st := range statuses {
		rec := janeDoe()
		rec["customerName"] = fmt.Sprintf("Customer %d", i+1)
		rec["status"] = st
		_, err := svc.Create(ctx, rec)
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 2, stats.InProgress)
	assert.Equal(t, 2, stats.Completed)

	require.Len(t, stats.RecentJobs, 5)
	ids := make([]string, len(stats.RecentJobs))
	for i, j := range stats.RecentJobs {
		ids[i] = j.ID
	}
	assert.Equal(t, []string{"RB007", "RB006", "RB005", "RB004", "RB003"}, ids)
}

func TestDeleteThenGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	job, err := svc.Create(ctx, janeDoe())
	require.NoError(t, err)

	msg, err := svc.Delete(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.DeletedMessage(job.ID), msg)

	_, err = svc.Get(ctx, job.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
