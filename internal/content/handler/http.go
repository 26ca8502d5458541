// Package handler serves learning paths, lessons and the sample data over HTTP.
package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"jsacademy/backend/internal/content"
	"jsacademy/backend/internal/httputil"
)

// Handler serves the content catalog held by a Store.
type Handler struct {
	store *content.Store
}

// New returns a content handler reading from store.
func New(store *content.Store) *Handler {
	return &Handler{store: store}
}

// Register mounts the content routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/paths", h.ListPaths).Methods(http.MethodGet)
	r.HandleFunc("/api/paths/{key}", h.GetPath).Methods(http.MethodGet)
	r.HandleFunc("/api/lessons/{id}", h.GetLesson).Methods(http.MethodGet)
	r.HandleFunc("/api/data", h.GetData).Methods(http.MethodGet)
}

// ModuleSummary is a path module with its title when authored.
type ModuleSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Available bool   `json:"available"`
}

// PathSummary is the list view of a learning path.
type PathSummary struct {
	Key           string          `json:"key"`
	Title         string          `json:"title"`
	Icon          string          `json:"icon,omitempty"`
	Description   string          `json:"description,omitempty"`
	EstimatedTime string          `json:"estimatedTime,omitempty"`
	Modules       []ModuleSummary `json:"modules"`
}

// PathDetail is a path together with its authored lessons.
type PathDetail struct {
	PathSummary
	Lessons []*content.Lesson `json:"lessons"`
}

func summarize(cat *content.Catalog, p *content.Path) PathSummary {
	mods := make([]ModuleSummary, 0, len(p.Modules))
	for _, id := range p.Modules {
		m := ModuleSummary{ID: id}
		if l, ok := cat.Lesson(id); ok {
			m.Title, m.Duration, m.Available = l.Title, l.Duration, true
		}
		mods = append(mods, m)
	}
	return PathSummary{
		Key:           p.Key,
		Title:         p.Title,
		Icon:          p.Icon,
		Description:   p.Description,
		EstimatedTime: p.EstimatedTime,
		Modules:       mods,
	}
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) *content.Catalog {
	cat := h.store.Catalog()
	if cat == nil {
		httputil.WriteError(w, r, http.StatusServiceUnavailable, "content not loaded")
	}
	return cat
}

// ListPaths handles GET /api/paths.
func (h *Handler) ListPaths(w http.ResponseWriter, r *http.Request) {
	cat := h.catalog(w, r)
	if cat == nil {
		return
	}
	out := make([]PathSummary, 0, len(cat.Paths))
	for i := range cat.Paths {
		out = append(out, summarize(cat, &cat.Paths[i]))
	}
	httputil.WriteJSON(w, r, http.StatusOK, out)
}

// GetPath handles GET /api/paths/{key}.
func (h *Handler) GetPath(w http.ResponseWriter, r *http.Request) {
	cat := h.catalog(w, r)
	if cat == nil {
		return
	}
	p, ok := cat.Path(mux.Vars(r)["key"])
	if !ok {
		httputil.WriteError(w, r, http.StatusNotFound, "path not found")
		return
	}
	detail := PathDetail{PathSummary: summarize(cat, p), Lessons: []*content.Lesson{}}
	for _, id := range p.Modules {
		if l, ok := cat.Lesson(id); ok {
			detail.Lessons = append(detail.Lessons, l)
		}
	}
	httputil.WriteJSON(w, r, http.StatusOK, detail)
}

// GetLesson handles GET /api/lessons/{id}.
func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	cat := h.catalog(w, r)
	if cat == nil {
		return
	}
	l, ok := cat.Lesson(mux.Vars(r)["id"])
	if !ok {
		httputil.WriteError(w, r, http.StatusNotFound, "lesson not found")
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, l)
}

// GetData handles GET /api/data, the sample payload the playground examples fetch.
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	cat := h.catalog(w, r)
	if cat == nil {
		return
	}
	if cat.Data == nil {
		httputil.WriteError(w, r, http.StatusNotFound, "no sample data")
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, cat.Data)
}
