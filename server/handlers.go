package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/burugo/ante/content"
)

// --- Content types ---

func (s *Server) handleListContentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.ListContentTypes(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"contentTypes": types})
}

func (s *Server) handleCreateContentType(w http.ResponseWriter, r *http.Request) {
	var ct content.ContentType
	if !decode(w, r, &ct) {
		return
	}
	created, err := s.svc.CreateContentType(r.Context(), &ct)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetContentType(w http.ResponseWriter, r *http.Request) {
	ct, err := s.svc.GetContentType(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ct)
}

func (s *Server) handleUpdateContentType(w http.ResponseWriter, r *http.Request) {
	var ct content.ContentType
	if !decode(w, r, &ct) {
		return
	}
	updated, err := s.svc.UpdateContentType(r.Context(), chi.URLParam(r, "slug"), &ct)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteContentType(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteContentType(r.Context(), chi.URLParam(r, "slug")); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Entries ---

func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid entry id", err)
		return 0, false
	}
	return id, true
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := content.EntryQuery{
		Status: r.URL.Query().Get("status"),
		Order:  r.URL.Query().Get("order"),
	}
	for name, dest := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid "+name, err)
			return
		}
		*dest = n
	}

	entries, err := s.svc.ListEntries(r.Context(), chi.URLParam(r, "slug"), q)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var e content.Entry
	if !decode(w, r, &e) {
		return
	}
	created, err := s.svc.CreateEntry(r.Context(), chi.URLParam(r, "slug"), &e)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	e, err := s.svc.GetEntry(r.Context(), chi.URLParam(r, "slug"), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	var e content.Entry
	if !decode(w, r, &e) {
		return
	}
	updated, err := s.svc.UpdateEntry(r.Context(), chi.URLParam(r, "slug"), id, &e)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteEntry(r.Context(), chi.URLParam(r, "slug"), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Media ---

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	media, err := s.svc.ListMedia(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"media": media})
}

func (s *Server) handleCreateMedia(w http.ResponseWriter, r *http.Request) {
	var m content.Media
	if !decode(w, r, &m) {
		return
	}
	created, err := s.svc.CreateMedia(r.Context(), &m)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteMedia(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Settings ---

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
	}
	if !decode(w, r, &body) {
		return
	}
	st, err := s.svc.PutSetting(r.Context(), chi.URLParam(r, "key"), body.Value)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}
