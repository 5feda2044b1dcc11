package model

import (
	"time"
)

// Status is the lifecycle state of a session occurrence.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// RecurrenceType selects the step between generated occurrences.
type RecurrenceType string

const (
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceBiweekly RecurrenceType = "biweekly"
	RecurrenceMonthly  RecurrenceType = "monthly"
)

// Session is one bookable occurrence. A recurring request produces a parent
// session (itself the first occurrence) plus generated children linked back
// through ParentSessionID. Children copy the parent's title, description and
// recurrence metadata at creation but evolve status and payment on their own.
type Session struct {
	ID                string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Title             string         `json:"title" bson:"title" validate:"required,min=1,max=100"`
	Description       string         `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
	StartTime         time.Time      `json:"start_time" bson:"start_time" validate:"required"`
	EndTime           time.Time      `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	UserID            string         `json:"user_id" bson:"user_id" validate:"required"`
	Status            Status         `json:"status" bson:"status" validate:"required,oneof=pending approved rejected cancelled"`
	IsPaid            bool           `json:"is_paid" bson:"is_paid"`
	CreatedAt         time.Time      `json:"created_at" bson:"created_at" validate:"omitempty"`
	StatusUpdatedAt   *time.Time     `json:"status_updated_at,omitempty" bson:"status_updated_at,omitempty"`
	StatusUpdatedBy   string         `json:"status_updated_by,omitempty" bson:"status_updated_by,omitempty"`
	IsRecurring       bool           `json:"is_recurring" bson:"is_recurring"`
	RecurrenceType    RecurrenceType `json:"recurrence_type,omitempty" bson:"recurrence_type,omitempty" validate:"omitempty,oneof=weekly biweekly monthly"`
	RecurrenceEndDate *time.Time     `json:"recurrence_end_date,omitempty" bson:"recurrence_end_date,omitempty"`
	ParentSessionID   string         `json:"parent_session_id,omitempty" bson:"parent_session_id,omitempty" validate:"omitempty,mongodb"`
}

// IsParent reports whether this session heads a recurring series.
func (s *Session) IsParent() bool {
	return s.IsRecurring && s.ParentSessionID == ""
}

// Duration is the occurrence length, held constant across a series.
func (s *Session) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
