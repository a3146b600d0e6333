package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
)

// GoogleConfig configures the service-account session to a Google
// spreadsheet.
type GoogleConfig struct {
	SpreadsheetID       string
	ServiceAccountEmail string
	PrivateKey          string // PEM
	JobsTab             string
	AdminTab            string
	Timeout             time.Duration

	// Endpoint overrides the Sheets API base URL. HTTPClient, when set,
	// replaces the service-account transport.
	Endpoint   string
	HTTPClient *http.Client
}

// GoogleClient talks to the Sheets v4 API. The document handle is loaded
// once and dropped after any failed call so the next call reconnects.
type GoogleClient struct {
	cfg    GoogleConfig
	logger *slog.Logger

	mu     sync.Mutex
	handle *docHandle
}

type docHandle struct {
	svc  *gsheets.Service
	tabs map[string]int64 // title -> sheet id
}

func NewGoogleClient(cfg GoogleConfig, logger *slog.Logger) *GoogleClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GoogleClient{cfg: cfg, logger: logger}
}

// Connect loads the document metadata and checks both tabs exist. It is a
// no-op when a handle is already cached.
func (c *GoogleClient) Connect(ctx context.Context) error {
	_, err := c.connect(ctx)
	return err
}

func (c *GoogleClient) connect(ctx context.Context) (*docHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		return c.handle, nil
	}

	start := time.Now()
	opts := []option.ClientOption{option.WithHTTPClient(c.httpClient())}
	if c.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.cfg.Endpoint))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		c.logger.Error("sheets.google.connect_failed", "error", err)
		return nil, common.StoreError("create sheets service", err)
	}
	doc, err := svc.Spreadsheets.Get(c.cfg.SpreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		c.logger.Error("sheets.google.load_info_failed", "spreadsheet_id", c.cfg.SpreadsheetID, "error", err)
		return nil, common.StoreError("load document info", err)
	}

	tabs := make(map[string]int64, len(doc.Sheets))
	for _, sh := range doc.Sheets {
		if sh.Properties == nil {
			continue
		}
		tabs[sh.Properties.Title] = sh.Properties.SheetId
	}
	for _, title := range []string{c.cfg.JobsTab, c.cfg.AdminTab} {
		if _, ok := tabs[title]; !ok {
			return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("tab %q not found", title), common.ErrConfig)
		}
	}

	c.handle = &docHandle{svc: svc, tabs: tabs}
	c.logger.Info("sheets.google.connected",
		"spreadsheet_id", c.cfg.SpreadsheetID,
		"tabs", len(tabs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return c.handle, nil
}

func (c *GoogleClient) httpClient() *http.Client {
	if c.cfg.HTTPClient != nil {
		return c.cfg.HTTPClient
	}
	conf := &jwt.Config{
		Email:      c.cfg.ServiceAccountEmail,
		PrivateKey: []byte(c.cfg.PrivateKey),
		Scopes:     []string{gsheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	// the HTTP client outlives this call, so its token source gets a background context
	hc := conf.Client(context.Background())
	hc.Timeout = c.cfg.Timeout
	return hc
}

func (c *GoogleClient) invalidate(reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		c.logger.Warn("sheets.google.handle_dropped", "error", reason)
	}
	c.handle = nil
}

func (c *GoogleClient) Jobs(ctx context.Context) (Tab, error) {
	return c.tab(ctx, c.cfg.JobsTab)
}

func (c *GoogleClient) Admins(ctx context.Context) (Tab, error) {
	return c.tab(ctx, c.cfg.AdminTab)
}

func (c *GoogleClient) tab(ctx context.Context, title string) (Tab, error) {
	if _, err := c.connect(ctx); err != nil {
		return nil, err
	}
	return &googleTab{client: c, title: title}, nil
}

func (c *GoogleClient) Ping(ctx context.Context) error {
	return c.Connect(ctx)
}

func (c *GoogleClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = nil
	return nil
}

type googleTab struct {
	client *GoogleClient
	title  string
}

func (t *googleTab) Title() string { return t.title }

// a1 quotes the tab title for use in an A1 range.
func (t *googleTab) a1(suffix string) string {
	return "'" + strings.ReplaceAll(t.title, "'", "''") + "'" + suffix
}

// do runs fn against a live handle, dropping the handle when fn fails.
func (t *googleTab) do(ctx context.Context, op string, fn func(h *docHandle) error) error {
	h, err := t.client.connect(ctx)
	if err != nil {
		return err
	}
	if err := fn(h); err != nil {
		t.client.invalidate(err)
		t.client.logger.Error("sheets.google.call_failed", "op", op, "tab", t.title, "error", err)
		return common.StoreError(op, err)
	}
	return nil
}

func (t *googleTab) Headers(ctx context.Context) ([]string, error) {
	var headers []string
	err := t.do(ctx, "load header row", func(h *docHandle) error {
		vr, err := h.svc.Spreadsheets.Values.Get(t.client.cfg.SpreadsheetID, t.a1("!1:1")).Context(ctx).Do()
		if err != nil {
			return err
		}
		headers = []string{}
		if len(vr.Values) > 0 {
			headers = trimAll(toStrings(vr.Values[0]))
		}
		return nil
	})
	return headers, err
}

func (t *googleTab) Rows(ctx context.Context) ([]Row, error) {
	var out []Row
	err := t.do(ctx, "fetch rows", func(h *docHandle) error {
		vr, err := h.svc.Spreadsheets.Values.Get(t.client.cfg.SpreadsheetID, t.a1("")).
			MajorDimension("ROWS").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		out = []Row{}
		if len(vr.Values) <= 1 {
			return nil
		}
		width := len(vr.Values[0])
		for i := 1; i < len(vr.Values); i++ {
			values := toStrings(vr.Values[i])
			if isBlank(values) {
				continue
			}
			out = append(out, Row{Number: i + 1, Values: pad(values, width)})
		}
		return nil
	})
	return out, err
}

func (t *googleTab) Append(ctx context.Context, values []string) error {
	return t.do(ctx, "append row", func(h *docHandle) error {
		vr := &gsheets.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
		_, err := h.svc.Spreadsheets.Values.Append(t.client.cfg.SpreadsheetID, t.a1("!A1"), vr).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
}

func (t *googleTab) Update(ctx context.Context, row Row) error {
	if row.Number < 2 {
		return common.StoreError("save row", fmt.Errorf("invalid row number %d", row.Number))
	}
	return t.do(ctx, "save row", func(h *docHandle) error {
		vr := &gsheets.ValueRange{Values: [][]interface{}{toInterfaces(row.Values)}}
		_, err := h.svc.Spreadsheets.Values.Update(t.client.cfg.SpreadsheetID, t.a1(fmt.Sprintf("!A%d", row.Number)), vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
}

func (t *googleTab) Delete(ctx context.Context, row Row) error {
	if row.Number < 2 {
		return common.StoreError("delete row", fmt.Errorf("invalid row number %d", row.Number))
	}
	return t.do(ctx, "delete row", func(h *docHandle) error {
		sheetID := h.tabs[t.title]
		req := &gsheets.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheets.Request{{
				DeleteDimension: &gsheets.DeleteDimensionRequest{
					Range: &gsheets.DimensionRange{
						SheetId:         sheetID,
						Dimension:       "ROWS",
						StartIndex:      int64(row.Number - 1),
						EndIndex:        int64(row.Number),
						ForceSendFields: []string{"SheetId", "StartIndex"},
					},
				},
			}},
		}
		_, err := h.svc.Spreadsheets.BatchUpdate(t.client.cfg.SpreadsheetID, req).Context(ctx).Do()
		return err
	})
}

func toStrings(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
