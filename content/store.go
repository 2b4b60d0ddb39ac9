package content

import "context"

// Store is the source of truth behind Service. Every method is scoped to a
// company; missing rows are reported as common.ErrNotFound.
//
// Create and Update methods fill in generated fields (IDs, timestamps) on
// the value passed in.
type Store interface {
	GetContentType(ctx context.Context, companyID, slug string) (*ContentType, error)
	ListContentTypes(ctx context.Context, companyID string) ([]ContentType, error)
	CreateContentType(ctx context.Context, ct *ContentType) error
	UpdateContentType(ctx context.Context, ct *ContentType) error
	// DeleteContentType removes the type and all of its entries.
	DeleteContentType(ctx context.Context, companyID, slug string) error

	GetEntry(ctx context.Context, companyID, typeSlug string, id int64) (*Entry, error)
	ListEntries(ctx context.Context, companyID, typeSlug string, q EntryQuery) ([]Entry, error)
	CreateEntry(ctx context.Context, e *Entry) error
	UpdateEntry(ctx context.Context, e *Entry) error
	DeleteEntry(ctx context.Context, companyID, typeSlug string, id int64) error

	ListMedia(ctx context.Context, companyID, folder string) ([]Media, error)
	CreateMedia(ctx context.Context, m *Media) error
	DeleteMedia(ctx context.Context, companyID, id string) error

	GetSetting(ctx context.Context, companyID, key string) (*Setting, error)
	// PutSetting inserts or replaces the value for (company, key).
	PutSetting(ctx context.Context, s *Setting) error
}
