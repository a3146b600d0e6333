package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
)

var fixedNow = time.Date(2026, time.October, 16, 10, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T) *sheets.WorkbookClient {
	t.Helper()
	c, err := sheets.OpenWorkbook(sheets.WorkbookConfig{
		JobsTab:  "Sheet1",
		AdminTab: "Sheet2",
		Seed: map[string][]string{
			"Sheet1": JobHeaders(),
			"Sheet2": AdminHeaders(),
		},
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newTestJobRepo(t *testing.T, clock func() time.Time) (JobRepository, *sheets.WorkbookClient) {
	t.Helper()
	c := newTestClient(t)
	return NewJobRepository(c, discardLogger(), WithClock(clock)), c
}

func appendRaw(t *testing.T, c sheets.Client, values ...string) {
	t.Helper()
	tab, err := c.Jobs(context.Background())
	require.NoError(t, err)
	require.NoError(t, tab.Append(context.Background(), values))
}

func janeDoe() *entity.Job {
	return &entity.Job{
		CustomerName: "Jane Doe",
		MobileNumber: "9876543210",
		MobileModel:  "X1",
		Issue:        "Display Problem",
	}
}

func TestCreateAssignsDefaults(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestJobRepo(t, func() time.Time { return fixedNow })

	job, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)

	assert.Equal(t, "RB001", job.ID)
	assert.Equal(t, "Pending", job.Status)
	assert.Equal(t, "16/10/2026", job.EntryDate)
	assert.Empty(t, job.CompletionDate)
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestJobRepo(t, func() time.Time { return fixedNow })

	in := &entity.Job{
		ID:           "RB100",
		CustomerName: "Asha",
		MobileNumber: "9123456780",
		MobileModel:  "Pixel 7",
		Issue:        "Other",
		CustomIssue:  "rattling sound",
		Components:   "speaker",
		Status:       "in progress",
		EntryDate:    "2026-10-01",
		TotalAmount:  "1500",
		Notes:        "call before 6",
	}
	created, err := repo.Create(ctx, in)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "RB100")
	require.NoError(t, err)

	want := &entity.Job{
		ID:           "RB100",
		CustomerName: "Asha",
		MobileNumber: "9123456780",
		MobileModel:  "Pixel 7",
		Issue:        "Other - rattling sound",
		Components:   "speaker",
		Status:       "In Progress",
		EntryDate:    "01/10/2026",
		TotalAmount:  "1500",
		Notes:        "call before 6",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetByID mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Errorf("Create result mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateCompletedStampsCompletionDate(t *testing.T) {
	repo, _ := newTestJobRepo(t, func() time.Time { return fixedNow })
	job := janeDoe()
	job.Status = "COMPLETED"

	got, err := repo.Create(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "Completed", got.Status)
	assert.Equal(t, "16/10/2026", got.CompletionDate)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	repo, c := newTestJobRepo(t, time.Now)
	appendRaw(t, c, "RB007", "Existing")

	job := janeDoe()
	job.ID = "RB007"
	_, err := repo.Create(ctx, job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDuplicateID))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGeneratedIDExceedsExisting(t *testing.T) {
	ctx := context.Background()
	repo, c := newTestJobRepo(t, time.Now)
	appendRaw(t, c, "RB041", "A")
	appendRaw(t, c, "RB7", "B")
	appendRaw(t, c, "legacy-12", "C")
	appendRaw(t, c, "RB0039", "D")

	next, err := repo.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "RB042", next)

	first, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)
	second, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)
	assert.Equal(t, "RB042", first.ID)
	assert.Equal(t, "RB043", second.ID)
}

func TestGenerateIDWidensPastThreeDigits(t *testing.T) {
	id, err := generateID([]sheets.Row{{Number: 2, Values: []string{"RB999"}}})
	require.NoError(t, err)
	assert.Equal(t, "RB1000", id)
}

func TestGenerateIDOverflowFallsBack(t *testing.T) {
	ctx := context.Background()
	repo, c := newTestJobRepo(t, func() time.Time { return time.UnixMilli(1760610123456) })
	appendRaw(t, c, "RB99999999999999999999999", "huge")

	_, err := generateID([]sheets.Row{{Number: 2, Values: []string{"RB99999999999999999999999"}}})
	require.Error(t, err)

	job, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)
	assert.Equal(t, "RB123456", job.ID)
}

type brokenClient struct{ sheets.Client }

func (brokenClient) Jobs(context.Context) (sheets.Tab, error) {
	return nil, common.StoreError("fetch rows", errors.New("connection reset"))
}

func TestNextIDFallsBackWhenStoreFails(t *testing.T) {
	repo := NewJobRepository(brokenClient{}, discardLogger(), WithClock(func() time.Time { return time.UnixMilli(1760610654321) }))
	id, err := repo.NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RB654321", id)
}

func TestStoreFailuresPropagate(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(brokenClient{}, discardLogger())

	_, err := repo.ListAll(ctx)
	assert.True(t, errors.Is(err, common.ErrStoreUnavailable))
	_, err = repo.Create(ctx, janeDoe())
	assert.True(t, errors.Is(err, common.ErrStoreUnavailable))
	_, err = repo.Update(ctx, "RB001", JobPatch{"status": "Completed"})
	assert.True(t, errors.Is(err, common.ErrStoreUnavailable))
	_, err = repo.Delete(ctx, "RB001")
	assert.True(t, errors.Is(err, common.ErrStoreUnavailable))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestJobRepo(t, time.Now)

	_, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)
	other := janeDoe()
	other.CustomerName = "Rahul Verma"
	other.MobileNumber = "9000011111"
	_, err = repo.Create(ctx, other)
	require.NoError(t, err)

	got, err := repo.Search(ctx, "987654")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jane Doe", got[0].CustomerName)

	got, err = repo.Search(ctx, "rahul")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "RB002", got[0].ID)

	got, err = repo.Search(ctx, "rb00")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.Search(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListAllNormalizesStoredStatus(t *testing.T) {
	repo, c := newTestJobRepo(t, time.Now)
	appendRaw(t, c, "RB001", "A", "1", "m", "i", "", " completed ")
	appendRaw(t, c, "RB002", "B", "2", "m", "i", "", "On Hold")

	jobs, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Completed", jobs[0].Status)
	assert.Equal(t, "On Hold", jobs[1].Status)
}

func TestBlankCellsReadAsDefaults(t *testing.T) {
	repo, c := newTestJobRepo(t, time.Now)
	appendRaw(t, c, "RB001", "Jane", "9876543210", "X1", "Display Problem", "", "", "01/09/2026")

	got, err := repo.GetByID(context.Background(), "RB001")
	require.NoError(t, err)
	assert.Equal(t, "Pending", got.Status)
	assert.Equal(t, "0.00", got.TotalAmount)

	// the sheet itself is not rewritten
	tab, err := c.Jobs(context.Background())
	require.NoError(t, err)
	rows, err := tab.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Cell(int(ColStatus)))
	assert.Empty(t, rows[0].Cell(int(ColTotalAmount)))
}

func TestCreateReturnsRecordAsRead(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestJobRepo(t, func() time.Time { return fixedNow })

	created, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)
	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", created.TotalAmount)
	if diff := cmp.Diff(got, created); diff != "" {
		t.Errorf("Create result differs from stored row (-stored +created):\n%s", diff)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, _ := newTestJobRepo(t, time.Now)
	_, err := repo.GetByID(context.Background(), "RB404")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestUpdateAppliesWhitelistOnly(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestJobRepo(t, func() time.Time { return fixedNow })
	created, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)

	got, err := repo.Update(ctx, created.ID, JobPatch{
		"customerName": "Jane D.",
		"components":   "display panel",
		"totalAmount":  "2500",
		"uid":          "RB999",
		"role":         "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Jane D.", got.CustomerName)
	assert.Equal(t, "display panel", got.Components)
	assert.Equal(t, "2500", got.TotalAmount)
	assert.Equal(t, "Pending", got.Status)

	_, err = repo.GetByID(ctx, "RB999")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestUpdateCompletedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	repo, _ := newTestJobRepo(t, func() time.Time { return now })
	created, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)

	first, err := repo.Update(ctx, created.ID, JobPatch{"status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, "Completed", first.Status)
	assert.Equal(t, "16/10/2026", first.CompletionDate)

	now = now.Add(72 * time.Hour)
	second, err := repo.Update(ctx, created.ID, JobPatch{"status": "Completed"})
	require.NoError(t, err)
	assert.Equal(t, first.CompletionDate, second.CompletionDate)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "16/10/2026", stored.CompletionDate)
}

func TestUpdateExplicitCompletionDateWins(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestJobRepo(t, func() time.Time { return fixedNow })
	created, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)

	got, err := repo.Update(ctx, created.ID, JobPatch{
		"status":         "Completed",
		"expectedDate":   "2026-10-20",
		"completionDate": "2026-10-18",
	})
	require.NoError(t, err)
	assert.Equal(t, "18/10/2026", got.CompletionDate)
}

func TestUpdateNotFound(t *testing.T) {
	repo, _ := newTestJobRepo(t, time.Now)
	_, err := repo.Update(context.Background(), "RB404", JobPatch{"status": "Completed"})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestDeleteTwice(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestJobRepo(t, time.Now)
	a, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)
	b, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)

	msg, err := repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Job "+a.ID+" deleted successfully", msg)

	_, err = repo.Delete(ctx, a.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestDeleteMissingLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestJobRepo(t, time.Now)
	_, err := repo.Create(ctx, janeDoe())
	require.NoError(t, err)

	_, err = repo.Delete(ctx, "RB404")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestVerifySchema(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestJobRepo(t, time.Now)
	require.NoError(t, repo.VerifySchema(ctx))

	c, err := sheets.OpenWorkbook(sheets.WorkbookConfig{
		JobsTab:  "Sheet1",
		AdminTab: "Sheet2",
		Seed: map[string][]string{
			"Sheet1": {"Job Sheet ID", "Customer Name", "Status"},
			"Sheet2": AdminHeaders(),
		},
	}, discardLogger())
	require.NoError(t, err)
	defer c.Close()

	err = NewJobRepository(c, discardLogger()).VerifySchema(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSchemaMismatch))
}

func TestColumnHeaders(t *testing.T) {
	assert.Equal(t, []string{
		"Job Sheet ID", "Customer Name", "Mobile Number", "Mobile Model",
		"Issue Description", "Components", "Status", "Entry Date",
		"Completed Date", "Total Amount", "Comments",
	}, JobHeaders())
	assert.Equal(t, "Comments", ColNotes.Header())
	assert.Equal(t, "", JobColumn(99).Header())
}
