package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/export"
	"github.com/joseph-ayodele/repair-jobsheets/internal/repository"
	"github.com/joseph-ayodele/repair-jobsheets/internal/server"
	"github.com/joseph-ayodele/repair-jobsheets/internal/services/auth"
	"github.com/joseph-ayodele/repair-jobsheets/internal/services/jobs"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
	"github.com/joseph-ayodele/repair-jobsheets/internal/validate"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sheets.OpenWorkbook(sheets.WorkbookConfig{
		JobsTab:  "Sheet1",
		AdminTab: "Sheet2",
		Seed: map[string][]string{
			"Sheet1": repository.JobHeaders(),
			"Sheet2": repository.AdminHeaders(),
		},
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	admins, err := store.Admins(ctx)
	require.NoError(t, err)
	require.NoError(t, admins.Append(ctx, []string{"desk@shop.test", "counter1"}))

	log := discardLogger()
	jobRepo := repository.NewJobRepository(store, log)
	jobSvc := jobs.NewService(jobRepo, log)
	_, err = jobSvc.Create(ctx, validate.Record{
		"customerName": "Ravi Kumar",
		"mobileNumber": "9123456780",
		"mobileModel":  "Note 9",
		"issue":        "Charging Port",
	})
	require.NoError(t, err)

	api := server.NewAPI(server.Deps{
		Jobs:   jobSvc,
		Auth:   auth.NewService(repository.NewAdminRepository(store, log), auth.Config{Secret: []byte("client-test")}, log),
		Export: export.NewService(jobRepo, log),
		Store:  store,
	}, log)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAgainstAPI(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()
	c := New(srv.URL, WithLogger(discardLogger()))

	require.NoError(t, c.Health(ctx))

	_, err := c.ListJobs(ctx)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = c.Login(ctx, "desk@shop.test", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)

	sess, err := c.Login(ctx, "desk@shop.test", "counter1")
	require.NoError(t, err)
	assert.Equal(t, sess.Token, c.Token())

	list, err := c.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "RB001", list[0].ID)

	job, err := c.GetJob(ctx, "RB001")
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", job.CustomerName)

	_, err = c.GetJob(ctx, "RB404")
	assert.ErrorIs(t, err, common.ErrNotFound)

	found, err := c.SearchJobs(ctx, "ravi")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	job, err = c.UpdateStatus(ctx, "RB001", "in progress")
	require.NoError(t, err)
	assert.Equal(t, "In Progress", job.Status)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.InProgress)

	data, err := c.Export(ctx, "xlsx", "", "", "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))

	data, err = c.Export(ctx, "csv", "In Progress", "", "")
	require.NoError(t, err)
	assert.Contains(t, string(data), "RB001")

	_, err = c.Export(ctx, "pdf", "", "", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestLoginFlowOverHTTP(t *testing.T) {
	api := newAPIServer(t)

	// the first request stalls like a backend that is still waking up
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		proxy, err := http.NewRequestWithContext(r.Context(), r.Method, api.URL+r.URL.Path, r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		proxy.Header = r.Header.Clone()
		resp, err := http.DefaultClient.Do(proxy)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithLogger(discardLogger()))
	var seen []Transition
	flow := NewLoginFlow(ClientLogin(c, "desk@shop.test", "counter1"),
		WithAttemptTimeouts(100*time.Millisecond, 2*time.Second, time.Second),
		WithRetryPause(10*time.Millisecond),
		WithObserver(func(tr Transition) { seen = append(seen, tr) }),
		WithFlowLogger(discardLogger()),
	)

	sess, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, sess.Token, c.Token())

	state, attempt := flow.State()
	assert.Equal(t, StateSucceeded, state)
	assert.Equal(t, 2, attempt)
	require.Len(t, seen, 3)
	assert.Equal(t, StateAttempting, seen[0].State)
	assert.Equal(t, StateAttempting, seen[1].State)
	assert.Equal(t, 2, seen[1].Attempt)
	assert.Equal(t, StateSucceeded, seen[2].State)
}
