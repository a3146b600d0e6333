package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
)

// WorkbookConfig configures a local XLSX-backed client.
type WorkbookConfig struct {
	Path     string // empty keeps the workbook in memory only
	JobsTab  string
	AdminTab string
	// Seed holds header rows written into tabs that are missing or empty.
	Seed map[string][]string
}

// WorkbookClient serves both tabs out of one excelize workbook. It is used
// for local development and as the store behind tests.
type WorkbookClient struct {
	cfg    WorkbookConfig
	logger *slog.Logger

	mu   sync.Mutex
	file *excelize.File
}

// OpenWorkbook opens cfg.Path, or starts a new workbook when the file does
// not exist yet or no path is given.
func OpenWorkbook(cfg WorkbookConfig, logger *slog.Logger) (*WorkbookClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		f   *excelize.File
		err error
	)
	if cfg.Path != "" {
		if _, statErr := os.Stat(cfg.Path); statErr == nil {
			f, err = excelize.OpenFile(cfg.Path)
			if err != nil {
				return nil, common.StoreError("open workbook", err)
			}
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return nil, common.StoreError("stat workbook", statErr)
		}
	}
	if f == nil {
		f = excelize.NewFile()
	}

	c := &WorkbookClient{cfg: cfg, logger: logger, file: f}
	for title, headers := range cfg.Seed {
		if err := c.seed(title, headers); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if err := c.persist(); err != nil {
		_ = f.Close()
		return nil, err
	}
	logger.Info("sheets.workbook.open", "path", cfg.Path, "tabs", f.GetSheetList())
	return c, nil
}

func (c *WorkbookClient) seed(title string, headers []string) error {
	idx, err := c.file.GetSheetIndex(title)
	if err != nil {
		return common.StoreError("lookup tab", err)
	}
	if idx == -1 {
		if _, err := c.file.NewSheet(title); err != nil {
			return common.StoreError("create tab", err)
		}
	}
	rows, err := c.file.GetRows(title)
	if err != nil {
		return common.StoreError("read tab", err)
	}
	if len(rows) > 0 && !isBlank(rows[0]) {
		return nil
	}
	return c.writeRow(title, 1, headers)
}

func (c *WorkbookClient) Jobs(ctx context.Context) (Tab, error) {
	return c.tab(ctx, c.cfg.JobsTab)
}

func (c *WorkbookClient) Admins(ctx context.Context) (Tab, error) {
	return c.tab(ctx, c.cfg.AdminTab)
}

func (c *WorkbookClient) tab(_ context.Context, title string) (Tab, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil, common.StoreError("lookup tab", errors.New("workbook closed"))
	}
	idx, err := c.file.GetSheetIndex(title)
	if err != nil {
		return nil, common.StoreError("lookup tab", err)
	}
	if idx == -1 {
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("tab %q not found", title), common.ErrConfig)
	}
	return &workbookTab{client: c, title: title}, nil
}

func (c *WorkbookClient) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return common.StoreError("ping", errors.New("workbook closed"))
	}
	return nil
}

func (c *WorkbookClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// persist flushes the workbook to disk; in-memory workbooks are left alone.
func (c *WorkbookClient) persist() error {
	if c.cfg.Path == "" {
		return nil
	}
	if err := c.file.SaveAs(c.cfg.Path); err != nil {
		return common.StoreError("save workbook", err)
	}
	return nil
}

func (c *WorkbookClient) writeRow(title string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return common.StoreError("cell name", err)
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := c.file.SetSheetRow(title, cell, &row); err != nil {
		return common.StoreError("write row", err)
	}
	return nil
}

type workbookTab struct {
	client *WorkbookClient
	title  string
}

func (t *workbookTab) Title() string { return t.title }

func (t *workbookTab) readAll() ([][]string, error) {
	if t.client.file == nil {
		return nil, common.StoreError("read tab", errors.New("workbook closed"))
	}
	rows, err := t.client.file.GetRows(t.title)
	if err != nil {
		return nil, common.StoreError("read tab", err)
	}
	return rows, nil
}

func (t *workbookTab) Headers(context.Context) ([]string, error) {
	t.client.mu.Lock()
	defer t.client.mu.Unlock()
	rows, err := t.readAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []string{}, nil
	}
	return trimAll(rows[0]), nil
}

func (t *workbookTab) Rows(context.Context) ([]Row, error) {
	t.client.mu.Lock()
	defer t.client.mu.Unlock()
	rows, err := t.readAll()
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return []Row{}, nil
	}
	width := len(rows[0])
	out := make([]Row, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		out = append(out, Row{Number: i + 1, Values: pad(rows[i], width)})
	}
	return out, nil
}

func (t *workbookTab) Append(_ context.Context, values []string) error {
	t.client.mu.Lock()
	defer t.client.mu.Unlock()
	rows, err := t.readAll()
	if err != nil {
		return err
	}
	next := len(rows) + 1
	if next < 2 {
		next = 2
	}
	if err := t.client.writeRow(t.title, next, values); err != nil {
		return err
	}
	return t.client.persist()
}

func (t *workbookTab) Update(_ context.Context, row Row) error {
	if row.Number < 2 {
		return common.StoreError("update row", fmt.Errorf("invalid row number %d", row.Number))
	}
	t.client.mu.Lock()
	defer t.client.mu.Unlock()
	if t.client.file == nil {
		return common.StoreError("update row", errors.New("workbook closed"))
	}
	if err := t.client.writeRow(t.title, row.Number, row.Values); err != nil {
		return err
	}
	return t.client.persist()
}

func (t *workbookTab) Delete(_ context.Context, row Row) error {
	if row.Number < 2 {
		return common.StoreError("delete row", fmt.Errorf("invalid row number %d", row.Number))
	}
	t.client.mu.Lock()
	defer t.client.mu.Unlock()
	if t.client.file == nil {
		return common.StoreError("delete row", errors.New("workbook closed"))
	}
	if err := t.client.file.RemoveRow(t.title, row.Number); err != nil {
		return common.StoreError("delete row", err)
	}
	return t.client.persist()
}
