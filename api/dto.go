/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Entries:     EntryDTO, ComputeRequest, RowDTO, PeriodTimesDTO
  Subjects:    SubjectDTO, CreateSubjectRequest
  Approval:    ApprovalRecordDTO, TransitionRequest, TransitionEventDTO
  Bulk:        BulkTransitionRequest, BulkTransitionResponse, NotificationDTO

VALIDATION:
  Request types carry validator/v10 struct tags; field names in messages
  are the JSON names. Domain parsing (dates, clock times, status codes)
  still happens in the handlers, since only the domain knows each
  category's vocabulary.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/warp/attendance-engine/approval"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/notify"
	"github.com/warp/attendance-engine/worktime"
)

// =============================================================================
// ENTRIES
// =============================================================================

// EntryDTO is one day's raw clock values.
type EntryDTO struct {
	Date        string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Start       *string `json:"start,omitempty"`
	End         *string `json:"end,omitempty"`
	RestMinutes int     `json:"rest_minutes" validate:"min=0,max=1440"`
	AbsenceCode string  `json:"absence_code,omitempty" validate:"max=64"`
	WorkStyle   string  `json:"work_style,omitempty" validate:"max=64"`
	Note        string  `json:"note,omitempty" validate:"max=1000"`
}

// ComputeRequest computes derived times for a single posted entry.
type ComputeRequest struct {
	EntryDTO
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// toEntry converts the DTO into a RawEntry dated in loc.
func (d EntryDTO) toEntry(date string, loc *time.Location) (generic.RawEntry, error) {
	day, err := generic.ParseDate(date, loc)
	if err != nil {
		return generic.RawEntry{}, err
	}
	entry := generic.RawEntry{
		Date:        day,
		RestMinutes: d.RestMinutes,
		AbsenceCode: d.AbsenceCode,
		WorkStyle:   d.WorkStyle,
		Note:        d.Note,
	}
	if entry.Start, err = parseOptionalClock("start", d.Start); err != nil {
		return generic.RawEntry{}, err
	}
	if entry.End, err = parseOptionalClock("end", d.End); err != nil {
		return generic.RawEntry{}, err
	}
	return entry, nil
}

func parseOptionalClock(field string, s *string) (*generic.ClockTime, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	c, err := generic.ParseClockTime(*s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &c, nil
}

func toEntryDTO(e generic.RawEntry) EntryDTO {
	dto := EntryDTO{
		Date:        e.Date.String(),
		RestMinutes: e.RestMinutes,
		AbsenceCode: e.AbsenceCode,
		WorkStyle:   e.WorkStyle,
		Note:        e.Note,
	}
	if e.Start != nil {
		s := e.Start.String()
		dto.Start = &s
	}
	if e.End != nil {
		s := e.End.String()
		dto.End = &s
	}
	return dto
}

// RowDTO is an entry with its derived figures.
type RowDTO struct {
	EntryDTO
	worktime.DerivedTimes
}

// PeriodTimesDTO is the computed view of one subject's period.
type PeriodTimesDTO struct {
	SubjectID string          `json:"subject_id"`
	Period    string          `json:"period"`
	Frozen    bool            `json:"frozen"`
	Rows      []RowDTO        `json:"rows"`
	Totals    worktime.Totals `json:"totals"`
}

func toPeriodTimesDTO(pt approval.PeriodTimes) PeriodTimesDTO {
	rows := make([]RowDTO, len(pt.Rows))
	for i, r := range pt.Rows {
		rows[i] = RowDTO{EntryDTO: toEntryDTO(r.Entry), DerivedTimes: r.DerivedTimes}
	}
	return PeriodTimesDTO{
		SubjectID: string(pt.SubjectID),
		Period:    pt.Period.String(),
		Frozen:    pt.Frozen,
		Rows:      rows,
		Totals:    pt.Totals,
	}
}

// =============================================================================
// SUBJECTS
// =============================================================================

type SubjectDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	ChatID    string `json:"chat_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateSubjectRequest struct {
	ID     string `json:"id" validate:"required,max=64"`
	Kind   string `json:"kind" validate:"required,oneof=employee room"`
	Name   string `json:"name" validate:"required,max=200"`
	ChatID string `json:"chat_id" validate:"max=64"`
}

func toSubjectDTO(s generic.Subject) SubjectDTO {
	dto := SubjectDTO{
		ID:     string(s.ID),
		Kind:   string(s.Kind),
		Name:   s.Name,
		ChatID: s.ChatID,
	}
	if !s.CreatedAt.IsZero() {
		dto.CreatedAt = s.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// APPROVAL
// =============================================================================

// ApprovalRecordDTO is one subject's approval state for one period.
type ApprovalRecordDTO struct {
	SubjectID   string            `json:"subject_id"`
	Period      string            `json:"period"`
	Statuses    map[string]string `json:"statuses"`
	TotalActive generic.Hours     `json:"total_active"`
	Frozen      bool              `json:"frozen"`
	UpdatedAt   string            `json:"updated_at,omitempty"`
}

func toApprovalRecordDTO(r generic.ApprovalRecord) ApprovalRecordDTO {
	statuses := make(map[string]string, len(r.Statuses))
	for _, c := range generic.Categories() {
		statuses[string(c)] = string(r.Status(c))
	}
	dto := ApprovalRecordDTO{
		SubjectID:   string(r.SubjectID),
		Period:      r.Period.String(),
		Statuses:    statuses,
		TotalActive: r.TotalActive,
		Frozen:      approval.IsFrozen(r),
	}
	if !r.UpdatedAt.IsZero() {
		dto.UpdatedAt = r.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

// TransitionRequest moves one category of one record.
type TransitionRequest struct {
	Status  string `json:"status" validate:"required"`
	ActorID string `json:"actor_id" validate:"max=64"`
	Notify  bool   `json:"notify"`
	Message string `json:"message" validate:"max=2000"`
}

type TransitionEventDTO struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	From     string `json:"from"`
	To       string `json:"to"`
	ActorID  string `json:"actor_id,omitempty"`
	Bulk     bool   `json:"bulk"`
	At       string `json:"at"`
}

func toTransitionEventDTOs(events []generic.TransitionEvent) []TransitionEventDTO {
	dtos := make([]TransitionEventDTO, len(events))
	for i, e := range events {
		dtos[i] = TransitionEventDTO{
			ID:       e.ID,
			Category: string(e.Category),
			From:     string(e.From),
			To:       string(e.To),
			ActorID:  e.ActorID,
			Bulk:     e.Bulk,
			At:       e.At.Format(time.RFC3339),
		}
	}
	return dtos
}

// =============================================================================
// BULK
// =============================================================================

// BulkTransitionRequest moves every eligible record in a date range.
type BulkTransitionRequest struct {
	Category   string   `json:"category" validate:"required"`
	From       string   `json:"from" validate:"required,datetime=2006-01-02"`
	To         string   `json:"to" validate:"required,datetime=2006-01-02"`
	Status     string   `json:"status" validate:"required"`
	ActorID    string   `json:"actor_id" validate:"max=64"`
	SubjectIDs []string `json:"subject_ids" validate:"dive,required"`
	Notify     bool     `json:"notify"`
	Recipients []string `json:"recipients" validate:"dive,required"`
	Message    string   `json:"message" validate:"max=2000"`
}

type BulkTransitionResponse struct {
	UpdatedCount int              `json:"updated_count"`
	Updated      []string         `json:"updated"`
	Notification *NotificationDTO `json:"notification,omitempty"`
}

// NotificationDTO summarizes a best-effort dispatch.
type NotificationDTO struct {
	Recipients int      `json:"recipients"`
	Sent       int      `json:"sent"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

func toNotificationDTO(r *notify.Report) *NotificationDTO {
	if r == nil {
		return nil
	}
	dto := &NotificationDTO{Recipients: r.Recipients, Sent: r.Sent, Failed: len(r.Failed)}
	if r.ResolveErr != nil {
		dto.Errors = append(dto.Errors, r.ResolveErr.Error())
	}
	for _, f := range r.Failed {
		dto.Errors = append(dto.Errors, f.Err.Error())
	}
	return dto
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DECODING & VALIDATION
// =============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON decodes and validates a request body.
func decodeJSON(r io.Reader, dst any) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// formatBindingError turns decode and validation errors into a message
// a client can act on.
func formatBindingError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, io.EOF) {
		return "Request body is empty"
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("Invalid JSON at byte offset %d", syntaxErr.Offset)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("Field '%s' should be of type %s", typeErr.Field, typeErr.Type.String())
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]string, 0, len(ve))
		for _, fe := range ve {
			out = append(out, formatFieldError(fe))
		}
		return strings.Join(out, ", ")
	}
	return err.Error()
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of: %s", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("Field '%s' must be a date (YYYY-MM-DD)", fe.Field())
	case "min":
		return fmt.Sprintf("Field '%s' must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("Field '%s' must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("Field '%s' failed validation for '%s'", fe.Field(), fe.Tag())
}
