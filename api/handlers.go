/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes time computation and the approval workflow via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  worktime (computation) and approval (state machine, persistence).

ENDPOINTS:
  Computation:
    POST   /api/compute                                   Derived times for one entry
    GET    /api/rules                                     Effective work rules

  Subjects:
    GET    /api/subjects                                  List employees and rooms
    POST   /api/subjects                                  Register a subject
    GET    /api/subjects/{id}                             Get a subject
    DELETE /api/subjects/{id}                             Delete (cascades)

  Entries & periods:
    PUT    /api/subjects/{id}/entries/{date}              Save one day's entry
    GET    /api/subjects/{id}/periods/{period}/times      Rows and totals
    GET    /api/subjects/{id}/periods/{period}/approval   Approval record
    POST   /api/subjects/{id}/periods/{period}/approval/{category}
                                                          Single transition
    GET    /api/subjects/{id}/periods/{period}/history    Audit trail

  Bulk:
    POST   /api/approvals/bulk                            Bulk transition

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unknown category or status code
  - 404: Subject not found
  - 409: Transition not allowed from the current status, period frozen
  - 500: Storage failures (safe to retry) and internal errors

SECURITY NOTE:
  No authentication or authorization; put the API behind a gateway that
  provides them.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/approval"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *approval.Service
	Subjects generic.SubjectStore
	Settings factory.Settings

	log zerolog.Logger
}

// NewHandler creates a new handler. Settings.Location is the zone every
// posted date is interpreted in.
func NewHandler(service *approval.Service, subjects generic.SubjectStore, settings factory.Settings, log zerolog.Logger) *Handler {
	return &Handler{
		Service:  service,
		Subjects: subjects,
		Settings: settings,
		log:      log.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// COMPUTATION
// =============================================================================

// Compute returns the derived times of one posted entry.
// POST /api/compute
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", errors.New(formatBindingError(err)))
		return
	}

	entry, err := req.EntryDTO.toEntry(req.Date, h.Settings.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry", err)
		return
	}

	writeJSON(w, http.StatusOK, RowDTO{
		EntryDTO:     toEntryDTO(entry),
		DerivedTimes: h.Service.Engine().Compute(entry),
	})
}

// GetRules returns the effective work rules.
// GET /api/rules
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings.Document())
}

// =============================================================================
// SUBJECTS
// =============================================================================

// ListSubjects returns all subjects.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.Subjects.ListSubjects(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dtos := make([]SubjectDTO, len(subjects))
	for i, s := range subjects {
		dtos[i] = toSubjectDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSubject registers an employee or a room.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req CreateSubjectRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", errors.New(formatBindingError(err)))
		return
	}

	subject := generic.Subject{
		ID:     generic.SubjectID(req.ID),
		Kind:   generic.SubjectKind(req.Kind),
		Name:   req.Name,
		ChatID: req.ChatID,
	}
	if err := h.Subjects.SaveSubject(r.Context(), subject); err != nil {
		h.writeServiceError(w, err)
		return
	}

	saved, err := h.Subjects.GetSubject(r.Context(), subject.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubjectDTO(saved))
}

// GetSubject returns a single subject.
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	subject, err := h.Subjects.GetSubject(r.Context(), generic.SubjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubjectDTO(subject))
}

// DeleteSubject removes a subject with its entries, records and history.
func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := h.Subjects.DeleteSubject(r.Context(), generic.SubjectID(chi.URLParam(r, "id"))); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ENTRIES & PERIODS
// =============================================================================

// SaveEntry stores one day's raw entry.
// PUT /api/subjects/{id}/entries/{date}
func (h *Handler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryDTO
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", errors.New(formatBindingError(err)))
		return
	}

	entry, err := req.toEntry(chi.URLParam(r, "date"), h.Settings.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry", err)
		return
	}

	if err := h.Service.SaveEntry(r.Context(), generic.SubjectID(chi.URLParam(r, "id")), entry); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RowDTO{
		EntryDTO:     toEntryDTO(entry),
		DerivedTimes: h.Service.Engine().Compute(entry),
	})
}

// GetPeriodTimes returns every entry of the period with derived times and totals.
// GET /api/subjects/{id}/periods/{period}/times
func (h *Handler) GetPeriodTimes(w http.ResponseWriter, r *http.Request) {
	key, ok := recordKey(w, r)
	if !ok {
		return
	}

	pt, err := h.Service.PeriodTimes(r.Context(), key.SubjectID, key.Period)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodTimesDTO(pt))
}

// GetApproval returns the approval record, creating the default on first access.
// GET /api/subjects/{id}/periods/{period}/approval
func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	key, ok := recordKey(w, r)
	if !ok {
		return
	}

	record, err := h.Service.Record(r.Context(), key.SubjectID, key.Period)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalRecordDTO(record))
}

// Transition applies one status change.
// POST /api/subjects/{id}/periods/{period}/approval/{category}
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	key, ok := recordKey(w, r)
	if !ok {
		return
	}

	category, err := generic.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown category", err)
		return
	}

	var req TransitionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", errors.New(formatBindingError(err)))
		return
	}

	record, err := h.Service.Transition(r.Context(), approval.TransitionRequest{
		SubjectID: key.SubjectID,
		Period:    key.Period,
		Category:  category,
		Target:    generic.Status(req.Status),
		ActorID:   req.ActorID,
		Notify:    req.Notify,
		Message:   req.Message,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalRecordDTO(record))
}

// GetHistory returns the audit trail of a record.
// GET /api/subjects/{id}/periods/{period}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := recordKey(w, r)
	if !ok {
		return
	}

	events, err := h.Service.History(r.Context(), key)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransitionEventDTOs(events))
}

// =============================================================================
// BULK
// =============================================================================

// BulkTransition moves every eligible record in the range to the target status.
// POST /api/approvals/bulk
func (h *Handler) BulkTransition(w http.ResponseWriter, r *http.Request) {
	var req BulkTransitionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", errors.New(formatBindingError(err)))
		return
	}

	category, err := generic.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown category", err)
		return
	}
	dateRange, err := parseRange(req.From, req.To, h.Settings)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	subjectIDs := make([]generic.SubjectID, len(req.SubjectIDs))
	for i, id := range req.SubjectIDs {
		subjectIDs[i] = generic.SubjectID(id)
	}

	result, err := h.Service.BulkTransition(r.Context(), approval.BulkRequest{
		Category:   category,
		Range:      dateRange,
		Target:     generic.Status(req.Status),
		ActorID:    req.ActorID,
		SubjectIDs: subjectIDs,
		Notify:     req.Notify,
		Recipients: req.Recipients,
		Message:    req.Message,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	updated := make([]string, len(result.Updated))
	for i, k := range result.Updated {
		updated[i] = k.String()
	}
	writeJSON(w, http.StatusOK, BulkTransitionResponse{
		UpdatedCount: result.UpdatedCount,
		Updated:      updated,
		Notification: toNotificationDTO(result.Notification),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// recordKey parses {id} and {period}; on failure it writes a 400.
func recordKey(w http.ResponseWriter, r *http.Request) (generic.RecordKey, bool) {
	period, err := generic.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return generic.RecordKey{}, false
	}
	return generic.RecordKey{SubjectID: generic.SubjectID(chi.URLParam(r, "id")), Period: period}, true
}

func parseRange(from, to string, settings factory.Settings) (generic.DateRange, error) {
	f, err := generic.ParseDate(from, settings.Location)
	if err != nil {
		return generic.DateRange{}, err
	}
	t, err := generic.ParseDate(to, settings.Location)
	if err != nil {
		return generic.DateRange{}, err
	}
	return generic.NewDateRange(f, t)
}

// writeServiceError maps domain errors to HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Subject not found", err)
	case errors.Is(err, generic.ErrPeriodLocked):
		writeError(w, http.StatusConflict, "Period is frozen", err)
	case errors.Is(err, generic.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Transition not allowed", err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case generic.IsRetryable(err):
		h.log.Error().Err(err).Msg("Storage failure")
		writeError(w, http.StatusInternalServerError, "Storage failure, please retry", err)
	default:
		h.log.Error().Err(err).Msg("Unhandled error")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
