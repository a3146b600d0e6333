package repository

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
)

// AdminEmailColumns are the header spellings accepted for the admin email,
// most preferred first. The admin tab is edited by hand and has carried each
// of these over time.
var AdminEmailColumns = []string{"Email - ID", "Email-ID", "Email ID", "Email", "email"}

// AdminPasswordColumns are the accepted spellings of the password header.
var AdminPasswordColumns = []string{"Password", "password"}

type AdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.AdminCredential, error)
	SetPassword(ctx context.Context, email, password string) error
}

type adminRepository struct {
	client sheets.Client
	logger *slog.Logger
}

func NewAdminRepository(client sheets.Client, logger *slog.Logger) AdminRepository {
	return &adminRepository{
		client: client,
		logger: logger,
	}
}

type adminLayout struct {
	emailCols   []int
	passwordCol int
}

func resolveAdminLayout(headers []string) adminLayout {
	idx := sheets.HeaderIndex(headers)
	layout := adminLayout{passwordCol: -1}
	for _, name := range AdminEmailColumns {
		if i, ok := idx[name]; ok {
			layout.emailCols = append(layout.emailCols, i)
		}
	}
	for _, name := range AdminPasswordColumns {
		if i, ok := idx[name]; ok {
			layout.passwordCol = i
			break
		}
	}
	return layout
}

// email returns the first non-empty email cell in alias priority order.
func (l adminLayout) email(row sheets.Row) string {
	for _, i := range l.emailCols {
		if v := strings.TrimSpace(row.Cell(i)); v != "" {
			return v
		}
	}
	return ""
}

func (r *adminRepository) find(ctx context.Context, email string) (sheets.Tab, sheets.Row, adminLayout, error) {
	tab, err := r.client.Admins(ctx)
	if err != nil {
		r.logger.Error("admins.tab.unavailable", "error", err)
		return nil, sheets.Row{}, adminLayout{}, err
	}
	headers, err := tab.Headers(ctx)
	if err != nil {
		return nil, sheets.Row{}, adminLayout{}, err
	}
	layout := resolveAdminLayout(headers)
	if len(layout.emailCols) == 0 || layout.passwordCol < 0 {
		r.logger.Warn("admins.tab.columns_missing", "tab", tab.Title(), "headers", headers)
		return nil, sheets.Row{}, adminLayout{}, common.NotFoundf("admin not found")
	}
	rows, err := tab.Rows(ctx)
	if err != nil {
		r.logger.Error("admins.rows.fetch_failed", "error", err)
		return nil, sheets.Row{}, adminLayout{}, err
	}
	want := strings.TrimSpace(email)
	for _, row := range rows {
		if want != "" && strings.EqualFold(layout.email(row), want) {
			return tab, row, layout, nil
		}
	}
	return nil, sheets.Row{}, adminLayout{}, common.NotFoundf("admin not found")
}

// FindByEmail matches email case-insensitively against the admin tab.
func (r *adminRepository) FindByEmail(ctx context.Context, email string) (*entity.AdminCredential, error) {
	_, row, layout, err := r.find(ctx, email)
	if err != nil {
		return nil, err
	}
	return &entity.AdminCredential{
		Email:    layout.email(row),
		Password: row.Cell(layout.passwordCol),
		RowNum:   row.Number,
	}, nil
}

// SetPassword overwrites the password cell of the admin's row in place.
func (r *adminRepository) SetPassword(ctx context.Context, email, password string) error {
	tab, row, layout, err := r.find(ctx, email)
	if err != nil {
		return err
	}
	row.SetCell(layout.passwordCol, password)
	if err := tab.Update(ctx, row); err != nil {
		r.logger.Error("admins.password.save_failed", "row", row.Number, "error", err)
		return err
	}
	r.logger.Info("admins.password.updated", "row", row.Number)
	return nil
}
