package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
)

// fakeSheetsAPI answers the handful of Sheets v4 calls the client makes.
type fakeSheetsAPI struct {
	mu        sync.Mutex
	tabs      []string
	values    map[string][][]string // tab title -> rows, header first
	metaLoads int
	failNext  int // status for the next values call, 0 for none
	appended  [][]string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/doc"
	path := r.URL.Path
	switch {
	case path == prefix && r.Method == http.MethodGet:
		f.metaLoads++
		sheets := make([]map[string]any, len(f.tabs))
		for i, title := range f.tabs {
			sheets[i] = map[string]any{"properties": map[string]any{"sheetId": i, "title": title}}
		}
		writeFake(w, map[string]any{"spreadsheetId": "doc", "sheets": sheets})

	case strings.HasPrefix(path, prefix+"/values/"):
		if f.failNext != 0 {
			code := f.failNext
			f.failNext = 0
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
			return
		}
		rng := strings.TrimPrefix(path, prefix+"/values/")
		title := strings.Trim(strings.SplitN(rng, "!", 2)[0], "'")
		if strings.HasSuffix(rng, ":append") {
			var body struct {
				Values [][]string `json:"values"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.appended = append(f.appended, body.Values...)
			writeFake(w, map[string]any{"spreadsheetId": "doc"})
			return
		}
		rows := f.values[title]
		if strings.HasSuffix(rng, "!1:1") && len(rows) > 0 {
			rows = rows[:1]
		}
		writeFake(w, map[string]any{"range": rng, "majorDimension": "ROWS", "values": rows})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeSheetsAPI) loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metaLoads
}

func (f *fakeSheetsAPI) failNextValues(code int) {
	f.mu.Lock()
	f.failNext = code
	f.mu.Unlock()
}

func writeFake(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeGoogle(t *testing.T, api *fakeSheetsAPI) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewGoogleClient(GoogleConfig{
		SpreadsheetID: "doc",
		JobsTab:       "Sheet1",
		AdminTab:      "Sheet2",
		Endpoint:      srv.URL + "/",
		HTTPClient:    srv.Client(),
	}, discardLogger())
}

func jobSheetAPI() *fakeSheetsAPI {
	return &fakeSheetsAPI{
		tabs: []string{"Sheet1", "Sheet2"},
		values: map[string][][]string{
			"Sheet1": {
				{"Job Sheet ID", "Customer Name", "Status"},
				{"RB001", "Jane"},
				{"", "", ""},
				{"RB002", "Ravi", "Completed"},
			},
		},
	}
}

func TestGoogleConnectsOnce(t *testing.T) {
	ctx := context.Background()
	api := jobSheetAPI()
	c := newFakeGoogle(t, api)

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Ping(ctx))
	tab, err := c.Jobs(ctx)
	require.NoError(t, err)

	headers, err := tab.Headers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Job Sheet ID", "Customer Name", "Status"}, headers)

	rows, err := tab.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Number: 2, Values: []string{"RB001", "Jane", ""}}, rows[0])
	assert.Equal(t, 4, rows[1].Number)

	assert.Equal(t, 1, api.loads())
}

func TestGoogleReconnectsAfterFailure(t *testing.T) {
	ctx := context.Background()
	api := jobSheetAPI()
	c := newFakeGoogle(t, api)

	tab, err := c.Jobs(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, api.loads())

	api.failNextValues(http.StatusInternalServerError)
	_, err = tab.Rows(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStoreUnavailable))

	c.mu.Lock()
	dropped := c.handle == nil
	c.mu.Unlock()
	assert.True(t, dropped, "handle kept after a failed call")

	rows, err := tab.Rows(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, api.loads())

	require.NoError(t, tab.Append(ctx, []string{"RB003", "Asha"}))
	assert.Equal(t, 2, api.loads())
	assert.Equal(t, [][]string{{"RB003", "Asha"}}, api.appended)
}

func TestGoogleMissingTab(t *testing.T) {
	ctx := context.Background()
	api := &fakeSheetsAPI{tabs: []string{"Sheet1"}}
	c := newFakeGoogle(t, api)

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConfig))
	assert.Contains(t, err.Error(), `"Sheet2"`)

	// nothing is cached, so the next call looks again
	_, err = c.Admins(ctx)
	assert.True(t, errors.Is(err, common.ErrConfig))
	assert.Equal(t, 2, api.loads())
}
