package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/burugo/ante"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	defaultOrder = "-created_at"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	orderColumns = map[string]bool{"id": true, "slug": true, "created_at": true, "updated_at": true}
)

// Invalidation patterns per mutation family.
var (
	contentTypePatterns = []ante.Pattern{
		ante.MustPattern("content-type:{companyId}:{slug}").WithReason("content type changed"),
		ante.MustPattern("content-types:{companyId}").WithReason("content type changed"),
		ante.MustPattern("content-entry:{companyId}:{slug}:*").WithReason("content type changed"),
		ante.MustPattern("query:{companyId}:{slug}:*").WithReason("content type changed"),
	}
	entryPatterns = []ante.Pattern{
		ante.MustPattern("content-entry:{companyId}:{type}:{id}").WithReason("entry changed"),
		ante.MustPattern("query:{companyId}:{type}:*").WithReason("entry changed"),
	}
	mediaPatterns = []ante.Pattern{
		ante.MustPattern("media:{companyId}:*").WithReason("media changed"),
	}
	settingPatterns = []ante.Pattern{
		ante.MustPattern("config:{companyId}:{key}").WithReason("setting changed"),
	}
)

type entryRef struct {
	Type string
	ID   int64
}

type entryList struct {
	Type  string
	Query EntryQuery
}

// Service serves content for the tenant carried in each request context.
// Reads go through the tenant cache; writes invalidate the keys they affect
// once the store has accepted them.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	getType     ante.Handler[string, *ContentType]
	listTypes   ante.Handler[struct{}, []ContentType]
	createType  ante.Handler[*ContentType, *ContentType]
	updateType  ante.Handler[*ContentType, *ContentType]
	deleteType  ante.Handler[string, struct{}]
	getEntry    ante.Handler[entryRef, *Entry]
	listEntries ante.Handler[entryList, []Entry]
	createEntry ante.Handler[*Entry, *Entry]
	updateEntry ante.Handler[*Entry, *Entry]
	deleteEntry ante.Handler[entryRef, struct{}]
	listMedia   ante.Handler[string, []Media]
	createMedia ante.Handler[*Media, *Media]
	deleteMedia ante.Handler[string, struct{}]
	getSetting  ante.Handler[string, *Setting]
	putSetting  ante.Handler[*Setting, *Setting]
}

// NewService wires store behind cache.
func NewService(store Store, cache *ante.TenantCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, logger: logger.With(slog.String("component", "content")), now: time.Now}

	typeParams := func(ct *ContentType) map[string]string { return map[string]string{"slug": ct.Slug} }
	entryParams := func(e *Entry) map[string]string {
		return map[string]string{"type": e.ContentType, "id": strconv.FormatInt(e.ID, 10)}
	}

	s.getType = ante.Chain(s.loadContentType,
		ante.CacheResult[string, *ContentType](cache, ante.PrefixContentType, 0, bySegment))
	s.listTypes = ante.Chain(s.loadContentTypes,
		ante.CacheResult[struct{}, []ContentType](cache, ante.PrefixContentTypes, 0, nil))
	s.createType = ante.Chain(s.storeCreateContentType,
		ante.InvalidateCache[*ContentType, *ContentType](cache, typeParams, contentTypePatterns...))
	s.updateType = ante.Chain(s.storeUpdateContentType,
		ante.InvalidateCache[*ContentType, *ContentType](cache, typeParams, contentTypePatterns...))
	s.deleteType = ante.Chain(s.storeDeleteContentType,
		ante.InvalidateCache[string, struct{}](cache, func(slug string) map[string]string {
			return map[string]string{"slug": slug}
		}, contentTypePatterns...))

	s.getEntry = ante.Chain(s.loadEntry,
		ante.CacheResult[entryRef, *Entry](cache, ante.PrefixContentEntry, 0, func(r entryRef) ante.KeyConfig {
			return ante.NewKey("").OfType(r.Type).ID(strconv.FormatInt(r.ID, 10))
		}))
	s.listEntries = ante.Chain(s.loadEntries,
		ante.CacheResult[entryList, []Entry](cache, ante.PrefixQuery, 0, func(r entryList) ante.KeyConfig {
			return ante.NewKey("").OfType(r.Type).ID(ante.QueryHash(r.Query))
		}))
	// Params are read after the store call, so a created entry's new ID is used.
	s.createEntry = ante.Chain(s.storeCreateEntry,
		ante.InvalidateCache[*Entry, *Entry](cache, entryParams, entryPatterns...))
	s.updateEntry = ante.Chain(s.storeUpdateEntry,
		ante.InvalidateCache[*Entry, *Entry](cache, entryParams, entryPatterns...))
	s.deleteEntry = ante.Chain(s.storeDeleteEntry,
		ante.InvalidateCache[entryRef, struct{}](cache, func(r entryRef) map[string]string {
			return map[string]string{"type": r.Type, "id": strconv.FormatInt(r.ID, 10)}
		}, entryPatterns...))

	s.listMedia = ante.Chain(s.loadMedia,
		ante.CacheResult[string, []Media](cache, ante.PrefixMedia, 0, bySegment))
	s.createMedia = ante.Chain(s.storeCreateMedia,
		ante.InvalidateCache[*Media, *Media](cache, nil, mediaPatterns...))
	s.deleteMedia = ante.Chain(s.storeDeleteMedia,
		ante.InvalidateCache[string, struct{}](cache, nil, mediaPatterns...))

	s.getSetting = ante.Chain(s.loadSetting,
		ante.CacheResult[string, *Setting](cache, ante.PrefixConfig, 0, bySegment))
	s.putSetting = ante.Chain(s.storePutSetting,
		ante.InvalidateCache[*Setting, *Setting](cache, func(st *Setting) map[string]string {
			return map[string]string{"key": st.Key}
		}, settingPatterns...))
	return s
}

func bySegment(s string) ante.KeyConfig { return ante.NewKey("").OfType(s) }

// --- Content types ---

// GetContentType returns the content type with slug.
func (s *Service) GetContentType(ctx context.Context, slug string) (*ContentType, error) {
	return s.getType(ctx, slug)
}

// ListContentTypes returns every content type of the tenant, ordered by slug.
func (s *Service) ListContentTypes(ctx context.Context) ([]ContentType, error) {
	return s.listTypes(ctx, struct{}{})
}

// CreateContentType validates and stores ct for the tenant.
func (s *Service) CreateContentType(ctx context.Context, ct *ContentType) (*ContentType, error) {
	if err := validateContentType(ct); err != nil {
		return nil, err
	}
	return s.createType(ctx, ct)
}

// UpdateContentType replaces the name, description and fields of slug.
func (s *Service) UpdateContentType(ctx context.Context, slug string, ct *ContentType) (*ContentType, error) {
	ct.Slug = slug
	if err := validateContentType(ct); err != nil {
		return nil, err
	}
	return s.updateType(ctx, ct)
}

// DeleteContentType removes slug and its entries.
func (s *Service) DeleteContentType(ctx context.Context, slug string) error {
	_, err := s.deleteType(ctx, slug)
	return err
}

// --- Entries ---

// GetEntry returns entry id of typeSlug.
func (s *Service) GetEntry(ctx context.Context, typeSlug string, id int64) (*Entry, error) {
	return s.getEntry(ctx, entryRef{Type: typeSlug, ID: id})
}

// ListEntries returns a page of typeSlug's entries. Equivalent queries share
// a cache entry: q is normalized before it is hashed.
func (s *Service) ListEntries(ctx context.Context, typeSlug string, q EntryQuery) ([]Entry, error) {
	q, err := NormalizeQuery(q)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetContentType(ctx, typeSlug); err != nil {
		return nil, err
	}
	return s.listEntries(ctx, entryList{Type: typeSlug, Query: q})
}

// CreateEntry stores e under typeSlug, which must exist.
func (s *Service) CreateEntry(ctx context.Context, typeSlug string, e *Entry) (*Entry, error) {
	e.ContentType = typeSlug
	if err := validateEntry(e); err != nil {
		return nil, err
	}
	if _, err := s.GetContentType(ctx, typeSlug); err != nil {
		return nil, err
	}
	return s.createEntry(ctx, e)
}

// UpdateEntry replaces the slug, status and data of entry id.
func (s *Service) UpdateEntry(ctx context.Context, typeSlug string, id int64, e *Entry) (*Entry, error) {
	e.ContentType = typeSlug
	e.ID = id
	if err := validateEntry(e); err != nil {
		return nil, err
	}
	return s.updateEntry(ctx, e)
}

// DeleteEntry removes entry id of typeSlug.
func (s *Service) DeleteEntry(ctx context.Context, typeSlug string, id int64) error {
	_, err := s.deleteEntry(ctx, entryRef{Type: typeSlug, ID: id})
	return err
}

// --- Media ---

// ListMedia returns the files in folder ("" means the default folder).
func (s *Service) ListMedia(ctx context.Context, folder string) ([]Media, error) {
	if folder == "" {
		folder = DefaultFolder
	}
	return s.listMedia(ctx, folder)
}

// CreateMedia records an uploaded file. A missing ID is generated.
func (s *Service) CreateMedia(ctx context.Context, m *Media) (*Media, error) {
	if m.Folder == "" {
		m.Folder = DefaultFolder
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	} else if _, err := uuid.Parse(m.ID); err != nil {
		return nil, fmt.Errorf("%w: media id %q is not a UUID", ErrInvalid, m.ID)
	}
	if strings.TrimSpace(m.FileName) == "" {
		return nil, fmt.Errorf("%w: fileName is required", ErrInvalid)
	}
	if m.Size < 0 {
		return nil, fmt.Errorf("%w: negative size", ErrInvalid)
	}
	return s.createMedia(ctx, m)
}

// DeleteMedia removes media id.
func (s *Service) DeleteMedia(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: media id %q is not a UUID", ErrInvalid, id)
	}
	_, err := s.deleteMedia(ctx, id)
	return err
}

// --- Settings ---

// GetSetting returns the tenant's value for key.
func (s *Service) GetSetting(ctx context.Context, key string) (*Setting, error) {
	return s.getSetting(ctx, key)
}

// PutSetting sets key to value for the tenant.
func (s *Service) PutSetting(ctx context.Context, key, value string) (*Setting, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: setting key is required", ErrInvalid)
	}
	return s.putSetting(ctx, &Setting{Key: key, Value: value})
}

// --- Store-facing handlers ---

func companyFrom(ctx context.Context) (string, error) {
	tenant, ok := ante.TenantFromContext(ctx)
	if !ok {
		return "", ante.ErrTenantRequired
	}
	return string(tenant), nil
}

func (s *Service) loadContentType(ctx context.Context, slug string) (*ContentType, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.GetContentType(ctx, company, slug)
}

func (s *Service) loadContentTypes(ctx context.Context, _ struct{}) ([]ContentType, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListContentTypes(ctx, company)
}

func (s *Service) storeCreateContentType(ctx context.Context, ct *ContentType) (*ContentType, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	ct.CompanyID = company
	if err := s.store.CreateContentType(ctx, ct); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "content type created", slog.String("companyId", company), slog.String("slug", ct.Slug))
	return ct, nil
}

func (s *Service) storeUpdateContentType(ctx context.Context, ct *ContentType) (*ContentType, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	ct.CompanyID = company
	if err := s.store.UpdateContentType(ctx, ct); err != nil {
		return nil, err
	}
	return ct, nil
}

func (s *Service) storeDeleteContentType(ctx context.Context, slug string) (struct{}, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return struct{}{}, err
	}
	if err := s.store.DeleteContentType(ctx, company, slug); err != nil {
		return struct{}{}, err
	}
	s.logger.InfoContext(ctx, "content type deleted", slog.String("companyId", company), slog.String("slug", slug))
	return struct{}{}, nil
}

func (s *Service) loadEntry(ctx context.Context, r entryRef) (*Entry, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.GetEntry(ctx, company, r.Type, r.ID)
}

func (s *Service) loadEntries(ctx context.Context, r entryList) ([]Entry, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, company, r.Type, r.Query)
}

func (s *Service) storeCreateEntry(ctx context.Context, e *Entry) (*Entry, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	e.CompanyID = company
	if err := s.store.CreateEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) storeUpdateEntry(ctx context.Context, e *Entry) (*Entry, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	e.CompanyID = company
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) storeDeleteEntry(ctx context.Context, r entryRef) (struct{}, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, s.store.DeleteEntry(ctx, company, r.Type, r.ID)
}

func (s *Service) loadMedia(ctx context.Context, folder string) ([]Media, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListMedia(ctx, company, folder)
}

func (s *Service) storeCreateMedia(ctx context.Context, m *Media) (*Media, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	m.CompanyID = company
	if err := s.store.CreateMedia(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) storeDeleteMedia(ctx context.Context, id string) (struct{}, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, s.store.DeleteMedia(ctx, company, id)
}

func (s *Service) loadSetting(ctx context.Context, key string) (*Setting, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.GetSetting(ctx, company, key)
}

func (s *Service) storePutSetting(ctx context.Context, st *Setting) (*Setting, error) {
	company, err := companyFrom(ctx)
	if err != nil {
		return nil, err
	}
	st.CompanyID = company
	st.UpdatedAt = s.now().UTC()
	if err := s.store.PutSetting(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// --- Validation ---

// NormalizeQuery applies defaults and bounds to q and rejects unknown
// statuses and order columns.
func NormalizeQuery(q EntryQuery) (EntryQuery, error) {
	switch q.Status {
	case "", StatusDraft, StatusPublished:
	default:
		return q, fmt.Errorf("%w: unknown status %q", ErrInvalid, q.Status)
	}
	if q.Offset < 0 {
		return q, fmt.Errorf("%w: negative offset", ErrInvalid)
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Order == "" {
		q.Order = defaultOrder
	}
	if !orderColumns[strings.TrimPrefix(q.Order, "-")] {
		return q, fmt.Errorf("%w: cannot order by %q", ErrInvalid, q.Order)
	}
	return q, nil
}

// OrderBy splits a normalized Order into column and direction.
func (q EntryQuery) OrderBy() (column string, desc bool) {
	if strings.HasPrefix(q.Order, "-") {
		return q.Order[1:], true
	}
	return q.Order, false
}

func validSlug(slug string) bool {
	return len(slug) <= 64 && slugPattern.MatchString(slug)
}

func validateContentType(ct *ContentType) error {
	if !validSlug(ct.Slug) {
		return fmt.Errorf("%w: bad slug %q", ErrInvalid, ct.Slug)
	}
	if strings.TrimSpace(ct.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if ct.Fields == "" || ct.Fields == "null" {
		ct.Fields = "[]"
	}
	if !json.Valid([]byte(ct.Fields)) {
		return fmt.Errorf("%w: fields must be JSON", ErrInvalid)
	}
	return nil
}

func validateEntry(e *Entry) error {
	if !validSlug(e.ContentType) {
		return fmt.Errorf("%w: bad content type %q", ErrInvalid, e.ContentType)
	}
	if e.Slug != "" && !validSlug(e.Slug) {
		return fmt.Errorf("%w: bad slug %q", ErrInvalid, e.Slug)
	}
	switch e.Status {
	case "":
		e.Status = StatusDraft
	case StatusDraft, StatusPublished:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, e.Status)
	}
	if e.Data == "" || e.Data == "null" {
		e.Data = "{}"
	}
	if !json.Valid([]byte(e.Data)) {
		return fmt.Errorf("%w: data must be JSON", ErrInvalid)
	}
	return nil
}
