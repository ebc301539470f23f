package api

import (
	"net/http"
	"time"

	"github.com/zapponejosh/parish-api/internal/calendar"
)

// ListSchedule handles GET /api/schedule?date=YYYY-MM-DD
// Staff also see hidden entries.
func (h *Handlers) ListSchedule(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = calendar.FormatLocalDate(time.Now(), h.calendar.Location())
	}

	entries, err := h.calendar.SchedulesForDate(r.Context(), date, isStaff(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, entries)
}

// ListScheduleMonth handles GET /api/schedule/month/{year}/{month}
func (h *Handlers) ListScheduleMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonthParams(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	entries, err := h.calendar.SchedulesForMonth(r.Context(), year, month, isStaff(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, entries)
}

// GetSchedule handles GET /api/schedule/{id}
func (h *Handlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	entry, err := h.calendar.GetSchedule(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !entry.IsVisible && !isStaff(r) {
		WriteNotFound(w, "Not found")
		return
	}
	WriteOK(w, entry)
}

// CreateSchedule handles POST /api/schedule
func (h *Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in calendar.ScheduleInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	entry, err := h.calendar.CreateSchedule(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, entry)
}

// UpdateSchedule handles PUT /api/schedule/{id}
func (h *Handlers) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	var in calendar.ScheduleInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	entry, err := h.calendar.UpdateSchedule(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, entry)
}

// DeleteSchedule handles DELETE /api/schedule/{id}
func (h *Handlers) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	h.deleteAction(w, r, "id", h.calendar.DeleteSchedule)
}

// maxICalRange bounds the span of one feed request.
const maxICalRange = 366 * 24 * time.Hour

// ScheduleICal handles GET /api/schedule/ical?from=YYYY-MM-DD&to=YYYY-MM-DD
// Without parameters the feed covers today and the next 30 days.
func (h *Handlers) ScheduleICal(w http.ResponseWriter, r *http.Request) {
	loc := h.calendar.Location()
	now := time.Now()

	from := r.URL.Query().Get("from")
	if from == "" {
		from = calendar.FormatLocalDate(now, loc)
	}
	to := r.URL.Query().Get("to")
	if to == "" {
		start, err := calendar.ParseLocalDate(from, loc)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		to = calendar.FormatLocalDate(start.AddDate(0, 0, 30), loc)
	}

	start, err1 := calendar.ParseLocalDate(from, loc)
	end, err2 := calendar.ParseLocalDate(to, loc)
	if err1 == nil && err2 == nil && end.Sub(start) > maxICalRange {
		WriteBadRequest(w, "Range must not exceed one year")
		return
	}

	entries, err := h.calendar.SchedulesBetween(r.Context(), from, to, false)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	feed, err := calendar.ICalFeed("Parish schedule", entries, loc, now)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="schedule.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(feed))
}
