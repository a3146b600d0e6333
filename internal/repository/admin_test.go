package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/sheets"
)

func newAdminClient(t *testing.T, headers []string, rows ...[]string) sheets.Client {
	t.Helper()
	c, err := sheets.OpenWorkbook(sheets.WorkbookConfig{
		JobsTab:  "Sheet1",
		AdminTab: "Sheet2",
		Seed: map[string][]string{
			"Sheet1": JobHeaders(),
			"Sheet2": headers,
		},
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	tab, err := c.Admins(context.Background())
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, tab.Append(context.Background(), r))
	}
	return c
}

func TestFindByEmailAliases(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
	}{
		{"dash spaced", []string{"Email - ID", "Password"}},
		{"dash", []string{"Email-ID", "Password"}},
		{"spaced", []string{"Email ID", "Password"}},
		{"plain", []string{"Email", "Password"}},
		{"lower", []string{"email", "password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newAdminClient(t, tt.headers, []string{"Owner@Shop.com", "s3cret"})
			repo := NewAdminRepository(c, discardLogger())

			admin, err := repo.FindByEmail(context.Background(), "owner@shop.com")
			require.NoError(t, err)
			assert.Equal(t, "Owner@Shop.com", admin.Email)
			assert.Equal(t, "s3cret", admin.Password)
			assert.Equal(t, 2, admin.RowNum)
		})
	}
}

func TestFindByEmailPrefersEarlierAlias(t *testing.T) {
	c := newAdminClient(t,
		[]string{"Email", "Email - ID", "Password"},
		[]string{"old@shop.com", "new@shop.com", "pw"},
	)
	repo := NewAdminRepository(c, discardLogger())

	admin, err := repo.FindByEmail(context.Background(), "new@shop.com")
	require.NoError(t, err)
	assert.Equal(t, "new@shop.com", admin.Email)

	_, err = repo.FindByEmail(context.Background(), "old@shop.com")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestFindByEmailUnknown(t *testing.T) {
	c := newAdminClient(t, AdminHeaders(), []string{"x@y.com", "pw"})
	repo := NewAdminRepository(c, discardLogger())

	_, err := repo.FindByEmail(context.Background(), "nobody@y.com")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	_, err = repo.FindByEmail(context.Background(), "")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestFindByEmailWithoutEmailColumn(t *testing.T) {
	c := newAdminClient(t, []string{"User", "Password"}, []string{"x@y.com", "pw"})
	repo := NewAdminRepository(c, discardLogger())

	_, err := repo.FindByEmail(context.Background(), "x@y.com")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestSetPassword(t *testing.T) {
	ctx := context.Background()
	c := newAdminClient(t, AdminHeaders(),
		[]string{"a@shop.com", "one"},
		[]string{"x@y.com", "two"},
	)
	repo := NewAdminRepository(c, discardLogger())

	require.NoError(t, repo.SetPassword(ctx, "X@Y.com", "three"))

	admin, err := repo.FindByEmail(ctx, "x@y.com")
	require.NoError(t, err)
	assert.Equal(t, "three", admin.Password)

	other, err := repo.FindByEmail(ctx, "a@shop.com")
	require.NoError(t, err)
	assert.Equal(t, "one", other.Password)

	err = repo.SetPassword(ctx, "ghost@y.com", "x")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
