package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burugo/ante/common"
	"github.com/burugo/ante/content"
	"github.com/burugo/ante/drivers/db/sqlstore"
)

func openTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ante.db")
	s, err := sqlstore.Open(context.Background(), "sqlite", dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.MigrateUp())
	return s
}

func TestDriverName(t *testing.T) {
	for in, want := range map[string]string{
		"sqlite":     sqlstore.DialectSQLite,
		"sqlite3":    sqlstore.DialectSQLite,
		"postgres":   sqlstore.DialectPostgres,
		"postgresql": sqlstore.DialectPostgres,
	} {
		got, err := sqlstore.DriverName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := sqlstore.DriverName("mysql")
	assert.Error(t, err)
}

func TestMigrations(t *testing.T) {
	s := openTestStore(t)

	version, dirty, ok, err := s.MigrationVersion()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	// Up is idempotent.
	require.NoError(t, s.MigrateUp())

	require.NoError(t, s.MigrateDown())
	_, _, ok, err = s.MigrationVersion()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MigrateUp())
}

func TestContentTypes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ct := &content.ContentType{CompanyID: "16", Slug: "blog", Name: "Blog", Fields: `[{"name":"title"}]`}
	require.NoError(t, s.CreateContentType(ctx, ct))
	assert.NotZero(t, ct.ID)
	assert.False(t, ct.CreatedAt.IsZero())

	err := s.CreateContentType(ctx, &content.ContentType{CompanyID: "16", Slug: "blog", Name: "Again", Fields: "[]"})
	assert.ErrorIs(t, err, content.ErrConflict)

	// Same slug under another company is fine.
	require.NoError(t, s.CreateContentType(ctx, &content.ContentType{CompanyID: "17", Slug: "blog", Name: "Blog", Fields: "[]"}))

	got, err := s.GetContentType(ctx, "16", "blog")
	require.NoError(t, err)
	assert.Equal(t, "Blog", got.Name)
	assert.Equal(t, content.RawJSON(`[{"name":"title"}]`), got.Fields)

	_, err = s.GetContentType(ctx, "18", "blog")
	assert.ErrorIs(t, err, common.ErrNotFound)

	update := &content.ContentType{CompanyID: "16", Slug: "blog", Name: "News", Fields: "[]"}
	require.NoError(t, s.UpdateContentType(ctx, update))
	assert.Equal(t, ct.ID, update.ID)
	assert.True(t, update.CreatedAt.Equal(ct.CreatedAt))

	err = s.UpdateContentType(ctx, &content.ContentType{CompanyID: "16", Slug: "nope", Name: "x", Fields: "[]"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.CreateContentType(ctx, &content.ContentType{CompanyID: "16", Slug: "about", Name: "About", Fields: "[]"}))
	list, err := s.ListContentTypes(ctx, "16")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "about", list[0].Slug)
	assert.Equal(t, "News", list[1].Name)

	empty, err := s.ListContentTypes(ctx, "99")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDeleteContentTypeCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateContentType(ctx, &content.ContentType{CompanyID: "16", Slug: "blog", Name: "Blog", Fields: "[]"}))
	e := &content.Entry{CompanyID: "16", ContentType: "blog", Status: content.StatusDraft, Data: "{}"}
	require.NoError(t, s.CreateEntry(ctx, e))
	other := &content.Entry{CompanyID: "17", ContentType: "blog", Status: content.StatusDraft, Data: "{}"}
	require.NoError(t, s.CreateEntry(ctx, other))

	require.NoError(t, s.DeleteContentType(ctx, "16", "blog"))
	_, err := s.GetEntry(ctx, "16", "blog", e.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.GetEntry(ctx, "17", "blog", other.ID)
	assert.NoError(t, err, "another company's entries survive")

	assert.ErrorIs(t, s.DeleteContentType(ctx, "16", "blog"), common.ErrNotFound)
}

func TestEntries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i, status := range []string{content.StatusDraft, content.StatusPublished, content.StatusPublished} {
		e := &content.Entry{CompanyID: "16", ContentType: "blog", Slug: "post-" + string(rune('a'+i)), Status: status, Data: `{"n":1}`}
		require.NoError(t, s.CreateEntry(ctx, e))
		ids = append(ids, e.ID)
	}

	got, err := s.GetEntry(ctx, "16", "blog", ids[0])
	require.NoError(t, err)
	assert.Equal(t, "post-a", got.Slug)
	assert.Equal(t, content.RawJSON(`{"n":1}`), got.Data)

	_, err = s.GetEntry(ctx, "17", "blog", ids[0])
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.GetEntry(ctx, "16", "page", ids[0])
	assert.ErrorIs(t, err, common.ErrNotFound)

	published, err := s.ListEntries(ctx, "16", "blog", content.EntryQuery{Status: content.StatusPublished, Order: "id"})
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, ids[1], published[0].ID)

	page, err := s.ListEntries(ctx, "16", "blog", content.EntryQuery{Limit: 1, Offset: 1, Order: "-id"})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	_, err = s.ListEntries(ctx, "16", "blog", content.EntryQuery{Order: "data; DROP TABLE entries"})
	assert.ErrorIs(t, err, content.ErrInvalid)

	upd := &content.Entry{ID: ids[0], CompanyID: "16", ContentType: "blog", Slug: "renamed", Status: content.StatusPublished, Data: "{}"}
	require.NoError(t, s.UpdateEntry(ctx, upd))
	assert.False(t, upd.CreatedAt.IsZero())
	got, err = s.GetEntry(ctx, "16", "blog", ids[0])
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Slug)

	upd.CompanyID = "17"
	assert.ErrorIs(t, s.UpdateEntry(ctx, upd), common.ErrNotFound)

	require.NoError(t, s.DeleteEntry(ctx, "16", "blog", ids[0]))
	assert.ErrorIs(t, s.DeleteEntry(ctx, "16", "blog", ids[0]), common.ErrNotFound)
}

func TestMedia(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := &content.Media{ID: "7b0e1a5c-7f43-4f7e-9b5d-0a9e3f2d1c11", CompanyID: "16", Folder: "root", FileName: "logo.png", MimeType: "image/png", Size: 42}
	require.NoError(t, s.CreateMedia(ctx, m))
	assert.ErrorIs(t, s.CreateMedia(ctx, m), content.ErrConflict)

	list, err := s.ListMedia(ctx, "16", "root")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "logo.png", list[0].FileName)
	assert.Equal(t, int64(42), list[0].Size)

	list, err = s.ListMedia(ctx, "17", "root")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, s.DeleteMedia(ctx, "17", m.ID), common.ErrNotFound)

	// Media IDs are scoped per company.
	other := *m
	other.CompanyID = "17"
	other.FileName = "other.png"
	require.NoError(t, s.CreateMedia(ctx, &other))
	list, err = s.ListMedia(ctx, "17", "root")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "other.png", list[0].FileName)

	require.NoError(t, s.DeleteMedia(ctx, "16", m.ID))
	list, err = s.ListMedia(ctx, "17", "root")
	require.NoError(t, err)
	assert.Len(t, list, 1, "deleting one company's media leaves the other's")
}

func TestSettings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetSetting(ctx, "16", "timezone")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.PutSetting(ctx, &content.Setting{CompanyID: "16", Key: "timezone", Value: "UTC"}))
	require.NoError(t, s.PutSetting(ctx, &content.Setting{CompanyID: "16", Key: "timezone", Value: "Asia/Tokyo"}))
	require.NoError(t, s.PutSetting(ctx, &content.Setting{CompanyID: "17", Key: "timezone", Value: "UTC"}))

	got, err := s.GetSetting(ctx, "16", "timezone")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", got.Value)
	assert.False(t, got.UpdatedAt.IsZero())
}
