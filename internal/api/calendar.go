package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/parish-api/internal/calendar"
	"github.com/zapponejosh/parish-api/internal/database"
)

// GetDay handles GET /api/calendar/{date}
func (h *Handlers) GetDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.calendar.GetDay(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, day)
}

// GetMonth handles GET /api/calendar/month/{year}/{month}
func (h *Handlers) GetMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonthParams(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	days, err := h.calendar.ListMonth(r.Context(), year, month)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, days)
}

// dayRequest is the body of PUT /api/calendar/{date}.
type dayRequest struct {
	Priority    database.DayPriority `json:"priority"`
	FastingType database.FastingType `json:"fastingType"`
	IsHoliday   bool                 `json:"isHoliday"`
	Color       *string              `json:"color"`
	Note        *string              `json:"note"`
}

// UpsertDay handles PUT /api/calendar/{date}
func (h *Handlers) UpsertDay(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	day, err := h.calendar.UpsertDay(r.Context(), chi.URLParam(r, "date"), database.DayFields{
		Priority:    req.Priority,
		FastingType: req.FastingType,
		IsHoliday:   req.IsHoliday,
		Color:       req.Color,
		Note:        req.Note,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, day)
}

// AddSaint handles POST /api/calendar/{date}/saints
func (h *Handlers) AddSaint(w http.ResponseWriter, r *http.Request) {
	var saint database.Saint
	if err := decodeJSON(w, r, &saint); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	saint.ID = 0

	if err := h.calendar.AddSaint(r.Context(), chi.URLParam(r, "date"), &saint); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, saint)
}

// AddReading handles POST /api/calendar/{date}/readings
func (h *Handlers) AddReading(w http.ResponseWriter, r *http.Request) {
	var reading database.Reading
	if err := decodeJSON(w, r, &reading); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	reading.ID = 0

	if err := h.calendar.AddReading(r.Context(), chi.URLParam(r, "date"), &reading); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, reading)
}

// AttachSaint handles POST /api/calendar/{date}/saints/{saintId}
func (h *Handlers) AttachSaint(w http.ResponseWriter, r *http.Request) {
	h.linkAction(w, r, "saintId", h.calendar.AttachSaint)
}

// DetachSaint handles DELETE /api/calendar/{date}/saints/{saintId}
func (h *Handlers) DetachSaint(w http.ResponseWriter, r *http.Request) {
	h.linkAction(w, r, "saintId", h.calendar.DetachSaint)
}

// AttachReading handles POST /api/calendar/{date}/readings/{readingId}
func (h *Handlers) AttachReading(w http.ResponseWriter, r *http.Request) {
	h.linkAction(w, r, "readingId", h.calendar.AttachReading)
}

// DetachReading handles DELETE /api/calendar/{date}/readings/{readingId}
func (h *Handlers) DetachReading(w http.ResponseWriter, r *http.Request) {
	h.linkAction(w, r, "readingId", h.calendar.DetachReading)
}

// DeleteSaint handles DELETE /api/calendar/saints/{saintId}
func (h *Handlers) DeleteSaint(w http.ResponseWriter, r *http.Request) {
	h.deleteAction(w, r, "saintId", h.calendar.DeleteSaint)
}

// DeleteReading handles DELETE /api/calendar/readings/{readingId}
func (h *Handlers) DeleteReading(w http.ResponseWriter, r *http.Request) {
	h.deleteAction(w, r, "readingId", h.calendar.DeleteReading)
}

// ListSaints handles GET /api/calendar/admin/saints
func (h *Handlers) ListSaints(w http.ResponseWriter, r *http.Request) {
	saints, err := h.calendar.ListSaints(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, saints)
}

// ListReadings handles GET /api/calendar/admin/readings
func (h *Handlers) ListReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := h.calendar.ListReadings(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, readings)
}

// GetPaschalion handles GET /api/calendar/paschalion/{year}
func (h *Handlers) GetPaschalion(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		WriteBadRequest(w, "Invalid year")
		return
	}
	p, err := calendar.PaschalionFor(year)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	WriteOK(w, p)
}

// linkAction runs a date + id operation and answers {success:true}.
func (h *Handlers) linkAction(w http.ResponseWriter, r *http.Request, param string,
	fn func(ctx context.Context, date string, id int64) error) {
	id, err := idParam(r, param)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := fn(r.Context(), chi.URLParam(r, "date"), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w)
}

// deleteAction runs an id operation and answers {success:true}.
func (h *Handlers) deleteAction(w http.ResponseWriter, r *http.Request, param string,
	fn func(ctx context.Context, id int64) error) {
	id, err := idParam(r, param)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w)
}
