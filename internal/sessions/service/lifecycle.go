package service

import (
	"time"

	"studiobook/internal/sessions/repository"
	"studiobook/pkg/auth"
	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/model"
)

// Effect is a side effect owed once a transition has been committed. The
// transition function only describes effects; running them is the service's
// job, after the write succeeds.
type Effect struct {
	NotifyOwner bool
	Status      model.Status
	Reason      string
}

// transition decides whether principal may move session to target and, if
// so, returns the fields to persist plus the effects to run afterwards.
// It is pure: no I/O, no clock reads beyond the now argument.
func transition(session *model.Session, target model.Status, principal auth.Principal, reason string, now time.Time) (repository.StatusChange, []Effect, error) {
	if !target.Valid() {
		return repository.StatusChange{}, nil, apperrors.InvalidInput("status must be one of: pending, approved, rejected, cancelled")
	}

	switch target {
	case model.StatusApproved, model.StatusRejected, model.StatusPending:
		if !principal.IsAdmin {
			return repository.StatusChange{}, nil, apperrors.Forbidden("only administrators can change approval status")
		}
	case model.StatusCancelled:
		if !principal.IsAdmin && session.UserID != principal.ID {
			return repository.StatusChange{}, nil, apperrors.Forbidden("only the session owner or an administrator can cancel")
		}
	}

	change := repository.StatusChange{
		Status:    target,
		UpdatedBy: principal.ID,
		UpdatedAt: now,
	}

	var effects []Effect
	if target != model.StatusPending {
		effects = append(effects, Effect{NotifyOwner: true, Status: target, Reason: reason})
	}

	return change, effects, nil
}

// canReschedule reports whether session may still be moved. The owner can
// reschedule pending or approved sessions up to the cutoff before the
// current start time.
func canReschedule(session *model.Session, cutoff time.Duration, now time.Time) error {
	if session.Status != model.StatusPending && session.Status != model.StatusApproved {
		return apperrors.NotEditable("only pending or approved sessions can be rescheduled")
	}
	if now.After(session.StartTime.Add(-cutoff)) {
		return apperrors.NotEditable("sessions can no longer be rescheduled this close to their start time")
	}
	return nil
}
