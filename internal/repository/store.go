package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
)

// AdminHeaders is the header row written into a fresh admin tab.
func AdminHeaders() []string {
	return []string{AdminEmailColumns[0], AdminPasswordColumns[0]}
}

// Open builds the spreadsheet client for the configured backend. The Google
// backend connects eagerly so bad credentials surface at start-up.
func Open(ctx context.Context, cfg common.SheetsConfig, logger *slog.Logger) (sheets.Client, error) {
	logger.Info("connecting to spreadsheet", "backend", cfg.Backend, "jobs_tab", cfg.JobsTab, "admin_tab", cfg.AdminTab)
	switch cfg.Backend {
	case common.BackendGoogle:
		c := sheets.NewGoogleClient(sheets.GoogleConfig{
			SpreadsheetID:       cfg.SpreadsheetID,
			ServiceAccountEmail: cfg.ServiceAccountEmail,
			PrivateKey:          cfg.PrivateKey,
			Endpoint:            cfg.Endpoint,
			JobsTab:             cfg.JobsTab,
			AdminTab:            cfg.AdminTab,
			Timeout:             cfg.Timeout,
		}, logger)
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}
		if err := c.Connect(ctx); err != nil {
			logger.Error("failed to connect to spreadsheet", "error", err)
			return nil, err
		}
		logger.Info("successfully connected to spreadsheet")
		return c, nil
	case common.BackendWorkbook:
		c, err := sheets.OpenWorkbook(sheets.WorkbookConfig{
			Path:     cfg.WorkbookPath,
			JobsTab:  cfg.JobsTab,
			AdminTab: cfg.AdminTab,
			Seed: map[string][]string{
				cfg.JobsTab:  JobHeaders(),
				cfg.AdminTab: AdminHeaders(),
			},
		}, logger)
		if err != nil {
			logger.Error("failed to open workbook", "path", cfg.WorkbookPath, "error", err)
			return nil, err
		}
		return c, nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown sheets backend %q", cfg.Backend), common.ErrConfig)
	}
}

// Close releases the spreadsheet client.
func Close(client sheets.Client, logger *slog.Logger) {
	if client == nil {
		return
	}
	logger.Info("closing spreadsheet client")
	if err := client.Close(); err != nil {
		logger.Error("failed to close spreadsheet client", "error", err)
	}
}

// HealthCheck pings the spreadsheet within timeout.
func HealthCheck(ctx context.Context, client sheets.Client, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging spreadsheet")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := client.Ping(ctx); err != nil {
		logger.Error("spreadsheet ping failed", "error", err)
		return err
	}
	logger.Debug("spreadsheet ping successful")
	return nil
}
