// Package content is the back office content service: content types,
// entries, media and tenant settings, read through the tenant cache.
package content

import (
	"errors"
	"time"
)

var (
	// ErrInvalid reports a request the service refuses to store.
	ErrInvalid = errors.New("content: invalid input")
	// ErrConflict reports a create that collides with an existing slug or ID.
	ErrConflict = errors.New("content: already exists")
)

// Entry statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// DefaultFolder holds media uploaded without a folder.
const DefaultFolder = "root"

// RawJSON is a JSON document kept as text in the database and emitted
// verbatim in API responses.
type RawJSON string

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if r == "" {
		return []byte("null"), nil
	}
	return []byte(r), nil
}

func (r *RawJSON) UnmarshalJSON(b []byte) error {
	*r = RawJSON(b)
	return nil
}

// ContentType describes the shape of a family of entries.
// Slugs are unique per company.
type ContentType struct {
	ID          int64     `json:"id" db:"id"`
	CompanyID   string    `json:"companyId" db:"company_id"`
	Slug        string    `json:"slug" db:"slug"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Fields      RawJSON   `json:"fields" db:"fields"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Entry is one document of a content type.
type Entry struct {
	ID          int64     `json:"id" db:"id"`
	CompanyID   string    `json:"companyId" db:"company_id"`
	ContentType string    `json:"contentType" db:"content_type"`
	Slug        string    `json:"slug" db:"slug"`
	Status      string    `json:"status" db:"status"`
	Data        RawJSON   `json:"data" db:"data"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// EntryQuery filters and pages ListEntries.
type EntryQuery struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	// Order is a column name, optionally prefixed with "-" for descending.
	Order string `json:"order"`
}

// Media is an uploaded file's metadata. The bytes live elsewhere (URL).
type Media struct {
	ID        string    `json:"id" db:"id"`
	CompanyID string    `json:"companyId" db:"company_id"`
	Folder    string    `json:"folder" db:"folder"`
	FileName  string    `json:"fileName" db:"file_name"`
	MimeType  string    `json:"mimeType" db:"mime_type"`
	URL       string    `json:"url" db:"url"`
	Size      int64     `json:"size" db:"size"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Setting is one tenant configuration value.
type Setting struct {
	CompanyID string    `json:"companyId" db:"company_id"`
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
