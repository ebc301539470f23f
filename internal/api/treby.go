package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/parish-api/internal/database"
	"github.com/zapponejosh/parish-api/internal/treba"
)

// TrebaPrice handles GET /api/treby/price?type=&period=&names=
func (h *Handlers) TrebaPrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count := 1
	if raw := q.Get("names"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			WriteBadRequest(w, "names must be a number")
			return
		}
		count = n
	}

	price, err := treba.Price(database.TrebaType(q.Get("type")), database.TrebaPeriod(q.Get("period")), count)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, map[string]int64{"price": price})
}

// CreateTreba handles POST /api/treby
func (h *Handlers) CreateTreba(w http.ResponseWriter, r *http.Request) {
	var order treba.Order
	if err := decodeJSON(w, r, &order); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	t, err := h.treby.Create(r.Context(), order)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, t)
}

// GetTrebaByOrderNumber handles GET /api/treby/order/{number}
func (h *Handlers) GetTrebaByOrderNumber(w http.ResponseWriter, r *http.Request) {
	t, err := h.treby.GetByOrderNumber(r.Context(), strings.ToUpper(chi.URLParam(r, "number")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, t)
}

// ListTreby handles GET /api/treby?status=
func (h *Handlers) ListTreby(w http.ResponseWriter, r *http.Request) {
	status := database.TrebaStatus(strings.ToUpper(r.URL.Query().Get("status")))
	list, err := h.treby.List(r.Context(), status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, list)
}

// GetTreba handles GET /api/treby/{id}
func (h *Handlers) GetTreba(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	t, err := h.treby.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, t)
}

// ChangeTrebaStatus handles PATCH /api/treby/{id}/status
// Body: {"status":"IN_PROGRESS"}
func (h *Handlers) ChangeTrebaStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req struct {
		Status database.TrebaStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	t, err := h.treby.ChangeStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, t)
}

// RecordTrebaPayment handles POST /api/treby/{id}/payment
// Body: {"paymentId":"..."}
func (h *Handlers) RecordTrebaPayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var req struct {
		PaymentID string `json:"paymentId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	t, err := h.treby.RecordPayment(r.Context(), id, req.PaymentID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, t)
}
