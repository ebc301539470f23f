package api

import (
	"net/http"
	"strings"

	"github.com/zapponejosh/parish-api/internal/database"
)

// GetMenu handles GET /api/menu
// Returns the visible items nested under their parents.
func (h *Handlers) GetMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.ListMenuItems(r.Context(), false)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, database.BuildMenuTree(items))
}

// ListAllMenuItems handles GET /api/menu/all
func (h *Handlers) ListAllMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.ListMenuItems(r.Context(), true)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, items)
}

type menuItemRequest struct {
	Title     string  `json:"title"`
	URL       *string `json:"url"`
	PageID    *int64  `json:"pageId"`
	ParentID  *int64  `json:"parentId"`
	Order     int     `json:"order"`
	IsVisible *bool   `json:"isVisible"`
}

func (req menuItemRequest) item(id int64) (*database.MenuItem, string) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, "Title is required"
	}
	if req.ParentID != nil && *req.ParentID == id && id != 0 {
		return nil, "Menu item cannot be its own parent"
	}
	visible := true
	if req.IsVisible != nil {
		visible = *req.IsVisible
	}
	return &database.MenuItem{
		ID:        id,
		Title:     strings.TrimSpace(req.Title),
		URL:       req.URL,
		PageID:    req.PageID,
		ParentID:  req.ParentID,
		Order:     req.Order,
		IsVisible: visible,
	}, ""
}

// CreateMenuItem handles POST /api/menu
func (h *Handlers) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	item, msg := req.item(0)
	if msg != "" {
		WriteBadRequest(w, msg)
		return
	}
	if err := h.db.CreateMenuItem(r.Context(), item); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, item)
}

// UpdateMenuItem handles PUT /api/menu/{id}
func (h *Handlers) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req menuItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	item, msg := req.item(id)
	if msg != "" {
		WriteBadRequest(w, msg)
		return
	}
	if err := h.db.UpdateMenuItem(r.Context(), item); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, item)
}

// DeleteMenuItem handles DELETE /api/menu/{id}
func (h *Handlers) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	h.deleteAction(w, r, "id", h.db.DeleteMenuItem)
}

// ReorderMenu handles PUT /api/menu/reorder
// Body: {"items":[{"id":1,"order":0,"parentId":null}, ...]}
func (h *Handlers) ReorderMenu(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []database.MenuPosition `json:"items"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	for _, pos := range req.Items {
		if pos.ParentID != nil && *pos.ParentID == pos.ID {
			WriteBadRequest(w, "Menu item cannot be its own parent")
			return
		}
	}
	if err := h.db.ReorderMenu(r.Context(), req.Items); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w)
}

// =============================================================================
// Carousel
// =============================================================================

// ListSlides handles GET /api/carousel
func (h *Handlers) ListSlides(w http.ResponseWriter, r *http.Request) {
	slides, err := h.db.ListSlides(r.Context(), true)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, slides)
}

// ListAllSlides handles GET /api/carousel/all
func (h *Handlers) ListAllSlides(w http.ResponseWriter, r *http.Request) {
	slides, err := h.db.ListSlides(r.Context(), false)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, slides)
}

type slideRequest struct {
	Title    *string `json:"title"`
	Subtitle *string `json:"subtitle"`
	ImageURL string  `json:"imageUrl"`
	Link     *string `json:"link"`
	Order    int     `json:"order"`
	IsActive *bool   `json:"isActive"`
}

func (req slideRequest) slide(id int64) *database.CarouselSlide {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &database.CarouselSlide{
		ID:       id,
		Title:    req.Title,
		Subtitle: req.Subtitle,
		ImageURL: strings.TrimSpace(req.ImageURL),
		Link:     req.Link,
		Order:    req.Order,
		IsActive: active,
	}
}

// CreateSlide handles POST /api/carousel
func (h *Handlers) CreateSlide(w http.ResponseWriter, r *http.Request) {
	var req slideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	s := req.slide(0)
	if s.ImageURL == "" {
		WriteBadRequest(w, "Image URL is required")
		return
	}
	if err := h.db.CreateSlide(r.Context(), s); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, s)
}

// UpdateSlide handles PUT /api/carousel/{id}
func (h *Handlers) UpdateSlide(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req slideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	s := req.slide(id)
	if s.ImageURL == "" {
		WriteBadRequest(w, "Image URL is required")
		return
	}
	if err := h.db.UpdateSlide(r.Context(), s); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, s)
}

// DeleteSlide handles DELETE /api/carousel/{id}
func (h *Handlers) DeleteSlide(w http.ResponseWriter, r *http.Request) {
	h.deleteAction(w, r, "id", h.db.DeleteSlide)
}
