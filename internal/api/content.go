package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/parish-api/internal/database"
)

// =============================================================================
// News
// =============================================================================

// NewsPage is one page of a news listing.
type NewsPage struct {
	Items []database.News `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ListNews handles GET /api/news?page=&limit=
// Staff also see drafts.
func (h *Handlers) ListNews(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1, 10000)
	limit := queryInt(r, "limit", 10, 100)

	items, total, err := h.db.ListNews(r.Context(), database.NewsFilter{
		IncludeDrafts: isStaff(r),
		Limit:         limit,
		Offset:        (page - 1) * limit,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, NewsPage{Items: items, Total: total, Page: page, Limit: limit})
}

// GetNews handles GET /api/news/{id}
func (h *Handlers) GetNews(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	n, err := h.db.GetNews(r.Context(), id)
	h.writeNews(w, r, n, err)
}

// GetNewsBySlug handles GET /api/news/slug/{slug}
func (h *Handlers) GetNewsBySlug(w http.ResponseWriter, r *http.Request) {
	n, err := h.db.GetNewsBySlug(r.Context(), chi.URLParam(r, "slug"))
	h.writeNews(w, r, n, err)
}

// writeNews hides drafts from anonymous callers.
func (h *Handlers) writeNews(w http.ResponseWriter, r *http.Request, n *database.News, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !n.Published && !isStaff(r) {
		WriteNotFound(w, "Not found")
		return
	}
	WriteOK(w, n)
}

// newsRequest is the body of news create and update.
type newsRequest struct {
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Excerpt   *string `json:"excerpt"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"imageUrl"`
	Published bool    `json:"published"`
}

// CreateNews handles POST /api/news
func (h *Handlers) CreateNews(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		WriteBadRequest(w, "Title is required")
		return
	}

	slug, err := uniqueSlug(r.Context(), Slugify(firstNonEmpty(req.Slug, req.Title)), "news", newsSlugTaken(h.db, 0))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	n := &database.News{
		Title:     strings.TrimSpace(req.Title),
		Slug:      slug,
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		Published: req.Published,
	}
	if u, ok := CurrentUser(r); ok {
		n.AuthorID = &u.ID
	}
	if err := h.db.CreateNews(r.Context(), n); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, n)
}

// UpdateNews handles PUT /api/news/{id}
func (h *Handlers) UpdateNews(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req newsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		WriteBadRequest(w, "Title is required")
		return
	}

	n, err := h.db.GetNews(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	slug, err := uniqueSlug(r.Context(), Slugify(firstNonEmpty(req.Slug, req.Title)), "news", newsSlugTaken(h.db, id))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if !req.Published {
		n.PublishedAt = nil
	}
	n.Title = strings.TrimSpace(req.Title)
	n.Slug = slug
	n.Excerpt = req.Excerpt
	n.Content = req.Content
	n.ImageURL = req.ImageURL
	n.Published = req.Published
	if err := h.db.UpdateNews(r.Context(), n); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, n)
}

// DeleteNews handles DELETE /api/news/{id}
func (h *Handlers) DeleteNews(w http.ResponseWriter, r *http.Request) {
	h.deleteAction(w, r, "id", h.db.DeleteNews)
}

// =============================================================================
// Pages
// =============================================================================

// ListPages handles GET /api/pages
func (h *Handlers) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.db.ListPages(r.Context(), isStaff(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, pages)
}

// GetPageBySlug handles GET /api/pages/{slug}
func (h *Handlers) GetPageBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.db.GetPageBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !p.Published && !isStaff(r) {
		WriteNotFound(w, "Not found")
		return
	}
	WriteOK(w, p)
}

// pageRequest is the body of page create and update.
type pageRequest struct {
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	Content         string  `json:"content"`
	MetaDescription *string `json:"metaDescription"`
	Published       bool    `json:"published"`
}

// CreatePage handles POST /api/pages
func (h *Handlers) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		WriteBadRequest(w, "Title is required")
		return
	}

	slug, err := uniqueSlug(r.Context(), Slugify(firstNonEmpty(req.Slug, req.Title)), "page", pageSlugTaken(h.db, 0))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p := &database.Page{
		Title:           strings.TrimSpace(req.Title),
		Slug:            slug,
		Content:         req.Content,
		MetaDescription: req.MetaDescription,
		Published:       req.Published,
	}
	if err := h.db.CreatePage(r.Context(), p); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, p)
}

// UpdatePage handles PUT /api/pages/id/{id}
func (h *Handlers) UpdatePage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req pageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		WriteBadRequest(w, "Title is required")
		return
	}

	slug, err := uniqueSlug(r.Context(), Slugify(firstNonEmpty(req.Slug, req.Title)), "page", pageSlugTaken(h.db, id))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p := &database.Page{
		ID:              id,
		Title:           strings.TrimSpace(req.Title),
		Slug:            slug,
		Content:         req.Content,
		MetaDescription: req.MetaDescription,
		Published:       req.Published,
	}
	if err := h.db.UpdatePage(r.Context(), p); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, p)
}

// DeletePage handles DELETE /api/pages/id/{id}
func (h *Handlers) DeletePage(w http.ResponseWriter, r *http.Request) {
	h.deleteAction(w, r, "id", h.db.DeletePage)
}

// Sitemap handles GET /api/sitemap
func (h *Handlers) Sitemap(w http.ResponseWriter, r *http.Request) {
	entries, err := h.db.ListSitemap(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, entries)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
