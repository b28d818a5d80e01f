package service

import (
	"fmt"
	"sort"

	"github.com/timecard-io/timecard-api/internal/models"
)

// ActorKind selects which message set a validation error renders with. The
// self-service correction form and the admin edit form attribute the same
// underlying inconsistency to different fields in their UIs, so the wording
// differs per actor for several codes.
type ActorKind string

const (
	ActorSelfService ActorKind = "self"
	ActorAdminEdit   ActorKind = "admin"
)

// ValidationCode identifies a single correction rule violation.
type ValidationCode string

const (
	CodeClockInFormat         ValidationCode = "clock_in_format"
	CodeClockOutFormat        ValidationCode = "clock_out_format"
	CodeBreakStartFormat      ValidationCode = "break_start_format"
	CodeBreakEndFormat        ValidationCode = "break_end_format"
	CodeClockOrderInvalid     ValidationCode = "clock_order_invalid"
	CodeBreakStartRequired    ValidationCode = "break_start_required"
	CodeBreakEndRequired      ValidationCode = "break_end_required"
	CodeBreakEndNotAfterStart ValidationCode = "break_end_not_after_start"
	CodeBreakBeforeClockIn    ValidationCode = "break_start_before_clock_in"
	CodeBreakAfterClockOut    ValidationCode = "break_start_after_clock_out"
	CodeBreakEndAfterClockOut ValidationCode = "break_end_after_clock_out"
	CodeBreakEndBeforeClockIn ValidationCode = "break_end_before_clock_in"
	CodeBreakOverlap          ValidationCode = "break_overlap"
	CodeBreakExceedsWork      ValidationCode = "break_exceeds_work_time"
	CodeNoteRequired          ValidationCode = "note_required"
)

// FieldError is one validation failure bound to an input field. Break fields
// use the form "break_times.N.break_start" where N is the submitted index.
type FieldError struct {
	Field string         `json:"field"`
	Code  ValidationCode `json:"code"`
	Actor ActorKind      `json:"-"`

	// rendered overrides the code-keyed wording when the message carries
	// the offending values, as the overlap check does.
	rendered string
}

// Message renders the human-readable text for this error under the actor
// kind the validation ran with.
func (e FieldError) Message() string {
	if e.rendered != "" {
		return e.rendered
	}
	if byActor, ok := actorMessages[e.Actor]; ok {
		if msg, ok := byActor[e.Code]; ok {
			return msg
		}
	}
	return sharedMessages[e.Code]
}

// sharedMessages hold wording that does not depend on who is editing.
var sharedMessages = map[ValidationCode]string{
	CodeClockInFormat:         "enter the clock-in time in a valid time format",
	CodeClockOutFormat:        "enter the clock-out time in a valid time format",
	CodeBreakStartFormat:      "enter the break start time in a valid time format",
	CodeBreakEndFormat:        "enter the break end time in a valid time format",
	CodeBreakStartRequired:    "please enter a break start time",
	CodeBreakEndRequired:      "please enter a break end time",
	CodeBreakEndNotAfterStart: "break end time must be after the break start time",
	CodeBreakOverlap:          "break end time must come before the next break start time",
	CodeBreakExceedsWork:      "total break time cannot exceed the time worked",
	CodeNoteRequired:          "please enter a note",
}

// actorMessages override sharedMessages where the two forms word the same
// violation differently.
var actorMessages = map[ActorKind]map[ValidationCode]string{
	ActorSelfService: {
		CodeClockOrderInvalid:     "clock-in time is invalid",
		CodeBreakBeforeClockIn:    "break time is invalid",
		CodeBreakAfterClockOut:    "break time or clock-out time is invalid",
		CodeBreakEndAfterClockOut: "break time or clock-out time is invalid",
		CodeBreakEndBeforeClockIn: "break end time is invalid",
	},
	ActorAdminEdit: {
		CodeClockOrderInvalid:     "clock-in or clock-out time is invalid",
		CodeBreakBeforeClockIn:    "break time or clock-in time is invalid",
		CodeBreakAfterClockOut:    "break time is invalid",
		CodeBreakEndAfterClockOut: "break time or clock-out time is invalid",
		CodeBreakEndBeforeClockIn: "break time or clock-in time is invalid",
	},
}

// ProposedBreak is one break interval as submitted on a correction form,
// after field-level time parsing. Index is the position in the submitted
// list and drives error field names.
type ProposedBreak struct {
	Index       int
	BreakTimeID string
	Start       *models.ClockTime
	End         *models.ClockTime
}

func (b ProposedBreak) startField() string {
	return fmt.Sprintf("break_times.%d.break_start", b.Index)
}

func (b ProposedBreak) endField() string {
	return fmt.Sprintf("break_times.%d.break_end", b.Index)
}

// CorrectionValidator checks a proposed set of clock and break values for
// internal consistency. It is pure: no storage access, no clock reads.
type CorrectionValidator struct{}

// NewCorrectionValidator constructs the validator.
func NewCorrectionValidator() *CorrectionValidator {
	return &CorrectionValidator{}
}

// Validate runs the full rule sequence against the effective clock values
// and the submitted break list. It returns every violation found, in rule
// order; an empty slice means the proposal is consistent.
//
// A clock ordering failure short-circuits: no break rules run, since every
// break comparison would be against a window that does not exist.
func (v *CorrectionValidator) Validate(clockIn, clockOut *models.ClockTime, breaks []ProposedBreak, actor ActorKind) []FieldError {
	var errs []FieldError
	add := func(field string, code ValidationCode) {
		errs = append(errs, FieldError{Field: field, Code: code, Actor: actor})
	}
	addOverlap := func(br, next ProposedBreak) {
		errs = append(errs, FieldError{
			Field:    br.endField(),
			Code:     CodeBreakOverlap,
			Actor:    actor,
			rendered: fmt.Sprintf("break end time (%s) must come before the next break start time (%s)", br.End.Short(), next.Start.Short()),
		})
	}

	if clockIn != nil && clockOut != nil && *clockIn >= *clockOut {
		add("corrected_clock_in", CodeClockOrderInvalid)
		return errs
	}

	valid := make([]ProposedBreak, 0, len(breaks))
	for _, br := range breaks {
		switch {
		case br.Start == nil && br.End == nil:
			// Blank row, ignored.
		case br.Start == nil:
			if actor == ActorSelfService {
				add(br.startField(), CodeBreakStartRequired)
			}
		case br.End == nil:
			if actor == ActorSelfService {
				add(br.endField(), CodeBreakEndRequired)
			}
		case *br.End <= *br.Start:
			add(br.endField(), CodeBreakEndNotAfterStart)
		default:
			valid = append(valid, br)
		}
	}

	if clockIn != nil {
		for _, br := range valid {
			if *br.Start < *clockIn {
				add(br.startField(), CodeBreakBeforeClockIn)
			}
		}
	}
	if clockOut != nil {
		for _, br := range valid {
			if *br.End > *clockOut {
				add(br.endField(), CodeBreakEndAfterClockOut)
			}
		}
	}

	// With both clocks set, the window checks run a second time per break in
	// sorted order. A break outside the window is therefore reported twice,
	// matching the attribution the correction and admin forms render.
	if clockIn != nil && clockOut != nil {
		ordered := make([]ProposedBreak, len(valid))
		copy(ordered, valid)
		sort.SliceStable(ordered, func(i, j int) bool {
			return *ordered[i].Start < *ordered[j].Start
		})

		totalBreak := 0
		for _, br := range ordered {
			if *br.Start < *clockIn {
				add(br.startField(), CodeBreakBeforeClockIn)
			}
			if *br.Start > *clockOut {
				add(br.startField(), CodeBreakAfterClockOut)
			}
			if *br.End > *clockOut {
				add(br.endField(), CodeBreakEndAfterClockOut)
			}
			if *br.End < *clockIn {
				add(br.endField(), CodeBreakEndBeforeClockIn)
			}
			totalBreak += br.Start.MinutesUntil(*br.End)
		}
		for i := 0; i < len(ordered)-1; i++ {
			if *ordered[i].End > *ordered[i+1].Start {
				addOverlap(ordered[i], ordered[i+1])
			}
		}
		if span := clockIn.MinutesUntil(*clockOut); totalBreak > span {
			add("break_times", CodeBreakExceedsWork)
		}
	} else if len(valid) > 1 {
		ordered := make([]ProposedBreak, len(valid))
		copy(ordered, valid)
		sort.SliceStable(ordered, func(i, j int) bool {
			return *ordered[i].Start < *ordered[j].Start
		})
		for i := 0; i < len(ordered)-1; i++ {
			if *ordered[i].End > *ordered[i+1].Start {
				addOverlap(ordered[i], ordered[i+1])
			}
		}
	}

	return errs
}
