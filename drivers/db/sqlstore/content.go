package sqlstore

import (
	"context"
	"fmt"

	"github.com/burugo/ante/common"
	"github.com/burugo/ante/content"
)

const (
	contentTypeColumns = `id, company_id, slug, name, description, fields, created_at, updated_at`
	entryColumns       = `id, company_id, content_type, slug, status, data, created_at, updated_at`
	mediaColumns       = `id, company_id, folder, file_name, mime_type, url, size, created_at`
	settingColumns     = `company_id, "key", value, updated_at`
)

// --- Content types ---

func (s *Store) GetContentType(ctx context.Context, companyID, slug string) (*content.ContentType, error) {
	var ct content.ContentType
	err := s.get(ctx, s.db, &ct,
		`SELECT `+contentTypeColumns+` FROM content_types WHERE company_id = ? AND slug = ?`, companyID, slug)
	if err != nil {
		return nil, translate(err, "content type "+slug)
	}
	return &ct, nil
}

func (s *Store) ListContentTypes(ctx context.Context, companyID string) ([]content.ContentType, error) {
	out := []content.ContentType{}
	err := s.selectRows(ctx, &out,
		`SELECT `+contentTypeColumns+` FROM content_types WHERE company_id = ? ORDER BY slug`, companyID)
	if err != nil {
		return nil, translate(err, "list content types")
	}
	return out, nil
}

func (s *Store) CreateContentType(ctx context.Context, ct *content.ContentType) error {
	now := s.now()
	ct.CreatedAt, ct.UpdatedAt = now, now
	err := s.get(ctx, s.db, &ct.ID,
		`INSERT INTO content_types (company_id, slug, name, description, fields, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		ct.CompanyID, ct.Slug, ct.Name, ct.Description, ct.Fields, ct.CreatedAt, ct.UpdatedAt)
	return translate(err, "create content type "+ct.Slug)
}

func (s *Store) UpdateContentType(ctx context.Context, ct *content.ContentType) error {
	ct.UpdatedAt = s.now()
	n, err := s.exec(ctx, s.db,
		`UPDATE content_types SET name = ?, description = ?, fields = ?, updated_at = ?
		 WHERE company_id = ? AND slug = ?`,
		ct.Name, ct.Description, ct.Fields, ct.UpdatedAt, ct.CompanyID, ct.Slug)
	if err != nil {
		return translate(err, "update content type "+ct.Slug)
	}
	if n == 0 {
		return fmt.Errorf("content type %s: %w", ct.Slug, common.ErrNotFound)
	}
	fresh, err := s.GetContentType(ctx, ct.CompanyID, ct.Slug)
	if err != nil {
		return err
	}
	ct.ID, ct.CreatedAt = fresh.ID, fresh.CreatedAt
	return nil
}

func (s *Store) DeleteContentType(ctx context.Context, companyID, slug string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete content type %s: begin: %w", slug, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.exec(ctx, tx, `DELETE FROM entries WHERE company_id = ? AND content_type = ?`, companyID, slug); err != nil {
		return translate(err, "delete entries of "+slug)
	}
	n, err := s.exec(ctx, tx, `DELETE FROM content_types WHERE company_id = ? AND slug = ?`, companyID, slug)
	if err != nil {
		return translate(err, "delete content type "+slug)
	}
	if n == 0 {
		return fmt.Errorf("content type %s: %w", slug, common.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete content type %s: commit: %w", slug, err)
	}
	return nil
}

// --- Entries ---

func (s *Store) GetEntry(ctx context.Context, companyID, typeSlug string, id int64) (*content.Entry, error) {
	var e content.Entry
	err := s.get(ctx, s.db, &e,
		`SELECT `+entryColumns+` FROM entries WHERE company_id = ? AND content_type = ? AND id = ?`,
		companyID, typeSlug, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("entry %s/%d", typeSlug, id))
	}
	return &e, nil
}

func (s *Store) ListEntries(ctx context.Context, companyID, typeSlug string, q content.EntryQuery) ([]content.Entry, error) {
	q, err := content.NormalizeQuery(q)
	if err != nil {
		return nil, err
	}
	column, desc := q.OrderBy()
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	query := `SELECT ` + entryColumns + ` FROM entries WHERE company_id = ? AND content_type = ?`
	args := []any{companyID, typeSlug}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, q.Status)
	}
	// column is checked against a fixed set by NormalizeQuery.
	query += fmt.Sprintf(` ORDER BY %s %s, id %s LIMIT ? OFFSET ?`, column, dir, dir)
	args = append(args, q.Limit, q.Offset)

	out := []content.Entry{}
	if err := s.selectRows(ctx, &out, query, args...); err != nil {
		return nil, translate(err, "list entries of "+typeSlug)
	}
	return out, nil
}

func (s *Store) CreateEntry(ctx context.Context, e *content.Entry) error {
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	err := s.get(ctx, s.db, &e.ID,
		`INSERT INTO entries (company_id, content_type, slug, status, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		e.CompanyID, e.ContentType, e.Slug, e.Status, e.Data, e.CreatedAt, e.UpdatedAt)
	return translate(err, "create entry of "+e.ContentType)
}

func (s *Store) UpdateEntry(ctx context.Context, e *content.Entry) error {
	e.UpdatedAt = s.now()
	n, err := s.exec(ctx, s.db,
		`UPDATE entries SET slug = ?, status = ?, data = ?, updated_at = ?
		 WHERE company_id = ? AND content_type = ? AND id = ?`,
		e.Slug, e.Status, e.Data, e.UpdatedAt, e.CompanyID, e.ContentType, e.ID)
	if err != nil {
		return translate(err, fmt.Sprintf("update entry %s/%d", e.ContentType, e.ID))
	}
	if n == 0 {
		return fmt.Errorf("entry %s/%d: %w", e.ContentType, e.ID, common.ErrNotFound)
	}
	fresh, err := s.GetEntry(ctx, e.CompanyID, e.ContentType, e.ID)
	if err != nil {
		return err
	}
	e.CreatedAt = fresh.CreatedAt
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, companyID, typeSlug string, id int64) error {
	n, err := s.exec(ctx, s.db,
		`DELETE FROM entries WHERE company_id = ? AND content_type = ? AND id = ?`, companyID, typeSlug, id)
	if err != nil {
		return translate(err, fmt.Sprintf("delete entry %s/%d", typeSlug, id))
	}
	if n == 0 {
		return fmt.Errorf("entry %s/%d: %w", typeSlug, id, common.ErrNotFound)
	}
	return nil
}

// --- Media ---

func (s *Store) ListMedia(ctx context.Context, companyID, folder string) ([]content.Media, error) {
	out := []content.Media{}
	err := s.selectRows(ctx, &out,
		`SELECT `+mediaColumns+` FROM media WHERE company_id = ? AND folder = ? ORDER BY created_at, id`,
		companyID, folder)
	if err != nil {
		return nil, translate(err, "list media in "+folder)
	}
	return out, nil
}

func (s *Store) CreateMedia(ctx context.Context, m *content.Media) error {
	m.CreatedAt = s.now()
	_, err := s.exec(ctx, s.db,
		`INSERT INTO media (id, company_id, folder, file_name, mime_type, url, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CompanyID, m.Folder, m.FileName, m.MimeType, m.URL, m.Size, m.CreatedAt)
	return translate(err, "create media "+m.ID)
}

func (s *Store) DeleteMedia(ctx context.Context, companyID, id string) error {
	n, err := s.exec(ctx, s.db, `DELETE FROM media WHERE company_id = ? AND id = ?`, companyID, id)
	if err != nil {
		return translate(err, "delete media "+id)
	}
	if n == 0 {
		return fmt.Errorf("media %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// --- Settings ---

func (s *Store) GetSetting(ctx context.Context, companyID, key string) (*content.Setting, error) {
	var st content.Setting
	err := s.get(ctx, s.db, &st,
		`SELECT `+settingColumns+` FROM settings WHERE company_id = ? AND "key" = ?`, companyID, key)
	if err != nil {
		return nil, translate(err, "setting "+key)
	}
	return &st, nil
}

func (s *Store) PutSetting(ctx context.Context, st *content.Setting) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now()
	}
	_, err := s.exec(ctx, s.db,
		`INSERT INTO settings (company_id, "key", value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (company_id, "key") DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		st.CompanyID, st.Key, st.Value, st.UpdatedAt)
	return translate(err, "put setting "+st.Key)
}
