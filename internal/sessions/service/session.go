package service

import (
	"context"
	"errors"
	"time"

	"studiobook/internal/notify"
	"studiobook/internal/sessions/recurrence"
	"studiobook/internal/sessions/repository"
	sessionvalidator "studiobook/internal/sessions/validator"
	"studiobook/pkg/auth"
	"studiobook/pkg/config"
	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
	"studiobook/pkg/sanitizer"

	sessionserrors "studiobook/internal/sessions/errors"
)

// deletedByAdminReason is the notification fallback when an administrator
// removes a session without giving a reason.
const deletedByAdminReason = "your session was removed by an administrator"

type SessionService interface {
	Create(ctx context.Context, principal auth.Principal, session *model.Session) (*model.Session, error)
	GetByID(ctx context.Context, principal auth.Principal, id string) (*model.Session, error)
	List(ctx context.Context, principal auth.Principal, limit int, offset int64) ([]*model.Session, int64, error)
	UpdateStatus(ctx context.Context, principal auth.Principal, id string, status model.Status, reason string) (*model.Session, error)
	Cancel(ctx context.Context, principal auth.Principal, id string, cascadeFuture bool, reason string) (*model.Session, error)
	Reschedule(ctx context.Context, principal auth.Principal, id string, newStart, newEnd time.Time) (*model.Session, error)
	UpdatePayment(ctx context.Context, principal auth.Principal, id string) (*model.Session, error)
	Delete(ctx context.Context, principal auth.Principal, id string, cascadeAllRelated bool, reason string) error
	CalendarMonth(ctx context.Context, principal auth.Principal, year int, month time.Month) ([]*model.Session, error)
	CalendarWeek(ctx context.Context, principal auth.Principal, year, week int) ([]*model.Session, error)
	CalendarDay(ctx context.Context, principal auth.Principal, year int, month time.Month, day int) ([]*model.Session, error)
}

type sessionService struct {
	repo      repository.SessionRepository
	users     repository.UserRepository
	validator *sessionvalidator.SessionValidator
	notifier  notify.Notifier
	cfg       *config.Config
	logger    *logger.Logger
	now       func() time.Time
}

func NewSessionService(
	repo repository.SessionRepository,
	users repository.UserRepository,
	v *sessionvalidator.SessionValidator,
	notifier notify.Notifier,
	cfg *config.Config,
	log *logger.Logger,
) SessionService {
	return &sessionService{
		repo:      repo,
		users:     users,
		validator: v,
		notifier:  notifier,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// Create persists a session request as pending. For a recurring request the
// parent is the first occurrence; the remaining occurrences are expanded up
// front and batch-inserted as children linked through ParentSessionID.
// No notification is sent on creation.
func (s *sessionService) Create(ctx context.Context, principal auth.Principal, session *model.Session) (*model.Session, error) {
	session.Title = sanitizer.NormalizeTitle(session.Title)
	session.Description = sanitizer.NormalizeDescription(session.Description)
	session.UserID = principal.ID
	session.Status = model.StatusPending
	session.IsPaid = false
	session.ParentSessionID = ""
	session.StatusUpdatedAt = nil
	session.StatusUpdatedBy = ""

	if err := s.validator.Validate(session); err != nil {
		return nil, asValidationError(err)
	}
	if err := s.validator.ValidateWindow(session, s.now()); err != nil {
		return nil, err
	}

	var windows []recurrence.Window
	if session.IsRecurring {
		var err error
		windows, err = recurrence.Expand(session.StartTime, session.EndTime, session.RecurrenceType, *session.RecurrenceEndDate)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, apperrors.Internal("failed to create session", err)
	}

	if len(windows) > 0 {
		children := make([]*model.Session, 0, len(windows))
		for _, w := range windows {
			child := *session
			child.ID = ""
			child.StartTime = w.Start
			child.EndTime = w.End
			child.ParentSessionID = session.ID
			children = append(children, &child)
		}
		if err := s.repo.CreateMany(ctx, children); err != nil {
			return nil, apperrors.Internal("failed to create recurring sessions", err)
		}
		s.logger.Info("recurring series created",
			"session_id", session.ID,
			"occurrences", len(children)+1,
			"recurrence_type", session.RecurrenceType,
		)
	}

	return session, nil
}

func (s *sessionService) GetByID(ctx context.Context, principal auth.Principal, id string) (*model.Session, error) {
	session, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin && session.UserID != principal.ID {
		return nil, apperrors.Forbidden("you can only view your own sessions")
	}
	return session, nil
}

// List returns the caller's sessions; administrators see everyone's.
func (s *sessionService) List(ctx context.Context, principal auth.Principal, limit int, offset int64) ([]*model.Session, int64, error) {
	if principal.IsAdmin {
		sessions, err := s.repo.FindAll(ctx, limit, offset)
		if err != nil {
			return nil, 0, apperrors.Internal("failed to list sessions", err)
		}
		total, err := s.repo.Count(ctx)
		if err != nil {
			return nil, 0, apperrors.Internal("failed to count sessions", err)
		}
		return sessions, total, nil
	}

	sessions, err := s.repo.FindByUser(ctx, principal.ID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to list sessions", err)
	}
	total, err := s.repo.CountByUser(ctx, principal.ID)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to count sessions", err)
	}
	return sessions, total, nil
}

// UpdateStatus applies an approval decision. Approve, reject and a reset to
// pending require an administrator; a cancelled target goes through Cancel's
// ownership rules. The reason is forwarded to the notification only, never
// persisted.
func (s *sessionService) UpdateStatus(ctx context.Context, principal auth.Principal, id string, status model.Status, reason string) (*model.Session, error) {
	session, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	change, effects, err := transition(session, status, principal, reason, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, change); err != nil {
		return nil, s.mapRepoError(err, id)
	}

	applyChange(session, change)
	s.runEffects(ctx, session, effects)

	return session, nil
}

// Cancel sets one occurrence to cancelled. With cascadeFuture on a recurring
// session, cancelling a child also cancels every sibling starting at or after
// it; cancelling the parent cancels every child. One notification is sent,
// for the directly targeted occurrence only.
func (s *sessionService) Cancel(ctx context.Context, principal auth.Principal, id string, cascadeFuture bool, reason string) (*model.Session, error) {
	session, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	change, effects, err := transition(session, model.StatusCancelled, principal, reason, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, change); err != nil {
		return nil, s.mapRepoError(err, id)
	}

	if session.IsRecurring && cascadeFuture {
		var cancelled int64
		if session.ParentSessionID != "" {
			cancelled, err = s.repo.UpdateStatusByParent(ctx, session.ParentSessionID, &session.StartTime, change)
		} else {
			cancelled, err = s.repo.UpdateStatusByParent(ctx, session.ID, nil, change)
		}
		if err != nil {
			return nil, apperrors.Internal("failed to cancel recurring sessions", err)
		}
		s.logger.Info("cascade cancel applied",
			"session_id", id,
			"cancelled_count", cancelled,
			"cancelled_by", principal.ID,
		)
	}

	applyChange(session, change)
	s.runEffects(ctx, session, effects)

	return session, nil
}

// Reschedule moves one occurrence. Only the owner may reschedule, only while
// the session is pending or approved, and only up to the configured cutoff
// before its current start time. The new slot is not checked against the
// scheduling window.
func (s *sessionService) Reschedule(ctx context.Context, principal auth.Principal, id string, newStart, newEnd time.Time) (*model.Session, error) {
	session, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.UserID != principal.ID {
		return nil, apperrors.Forbidden("only the session owner can reschedule")
	}
	if !newEnd.After(newStart) {
		return nil, apperrors.Validation("end_time must be after start_time", nil)
	}
	if err := canReschedule(session, s.cfg.RescheduleCutoff, s.now()); err != nil {
		return nil, err
	}

	session.StartTime = newStart
	session.EndTime = newEnd
	if err := s.repo.Update(ctx, id, session); err != nil {
		return nil, s.mapRepoError(err, id)
	}

	return session, nil
}

// UpdatePayment toggles the paid flag. Only administrators may record
// payments, and only approved sessions are payment-eligible.
func (s *sessionService) UpdatePayment(ctx context.Context, principal auth.Principal, id string) (*model.Session, error) {
	if !principal.IsAdmin {
		return nil, apperrors.Forbidden("only administrators can update payment")
	}

	session, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != model.StatusApproved {
		return nil, apperrors.Conflict("only approved sessions are payment-eligible")
	}

	session.IsPaid = !session.IsPaid
	if err := s.repo.UpdatePayment(ctx, id, session.IsPaid); err != nil {
		return nil, s.mapRepoError(err, id)
	}

	return session, nil
}

// Delete hard-removes a session record. With cascadeAllRelated, deleting a
// child removes the whole series including the parent; deleting the parent
// removes every child. The owner of the targeted session is notified with
// cancellation semantics.
func (s *sessionService) Delete(ctx context.Context, principal auth.Principal, id string, cascadeAllRelated bool, reason string) error {
	if !principal.IsAdmin {
		return apperrors.Forbidden("only administrators can delete sessions")
	}

	session, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}

	if cascadeAllRelated && session.IsRecurring {
		seriesRoot := session.ParentSessionID
		if seriesRoot == "" {
			seriesRoot = session.ID
		}
		deleted, err := s.repo.DeleteSeries(ctx, seriesRoot)
		if err != nil {
			return apperrors.Internal("failed to delete session series", err)
		}
		s.logger.Info("session series deleted",
			"session_id", id,
			"deleted_count", deleted,
			"deleted_by", principal.ID,
		)
	} else {
		if err := s.repo.Delete(ctx, id); err != nil {
			return s.mapRepoError(err, id)
		}
	}

	if reason == "" {
		reason = deletedByAdminReason
	}
	session.Status = model.StatusCancelled
	s.runEffects(ctx, session, []Effect{{NotifyOwner: true, Status: model.StatusCancelled, Reason: reason}})

	return nil
}

// CalendarMonth returns sessions starting within the given calendar month.
// Non-admin callers see approved sessions only.
func (s *sessionService) CalendarMonth(ctx context.Context, principal auth.Principal, year int, month time.Month) ([]*model.Session, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, month+1, 0, 23, 59, 59, 0, time.UTC)
	return s.findRange(ctx, principal, from, to)
}

// CalendarWeek returns sessions in the given week of the year, where week 1
// is the week containing January 1 and weeks start on Sunday.
func (s *sessionService) CalendarWeek(ctx context.Context, principal auth.Principal, year, week int) ([]*model.Session, error) {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	from := jan1.AddDate(0, 0, (week-1)*7-int(jan1.Weekday()))
	to := from.AddDate(0, 0, 6)
	to = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
	return s.findRange(ctx, principal, from, to)
}

func (s *sessionService) CalendarDay(ctx context.Context, principal auth.Principal, year int, month time.Month, day int) ([]*model.Session, error) {
	from := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, month, day, 23, 59, 59, 0, time.UTC)
	return s.findRange(ctx, principal, from, to)
}

func (s *sessionService) findRange(ctx context.Context, principal auth.Principal, from, to time.Time) ([]*model.Session, error) {
	sessions, err := s.repo.FindByStartRange(ctx, from, to, !principal.IsAdmin)
	if err != nil {
		return nil, apperrors.Internal("failed to query calendar range", err)
	}
	return sessions, nil
}

func (s *sessionService) fetch(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}
	return session, nil
}

func (s *sessionService) mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, sessionserrors.ErrNotFound):
		return apperrors.NotFoundWithID("session", id)
	case errors.Is(err, sessionserrors.ErrInvalidID):
		return apperrors.InvalidInput("session id must be a valid ObjectID")
	default:
		return apperrors.Internal("session store operation failed", err)
	}
}

// runEffects dispatches the notifications owed by a committed transition.
// Dispatch is fire-and-forget: failures are logged and never surfaced, the
// lifecycle change is already committed.
func (s *sessionService) runEffects(ctx context.Context, session *model.Session, effects []Effect) {
	for _, effect := range effects {
		if !effect.NotifyOwner {
			continue
		}

		owner, err := s.users.FindByID(ctx, session.UserID)
		if err != nil {
			s.logger.Warn("skipping notification, owner lookup failed",
				"session_id", session.ID,
				"user_id", session.UserID,
				"error", err,
			)
			continue
		}

		notification := notify.Notification{
			RecipientEmail: owner.Email,
			RecipientName:  owner.Name,
			SessionID:      session.ID,
			SessionTitle:   session.Title,
			Status:         effect.Status,
			SessionStart:   session.StartTime,
			Reason:         effect.Reason,
		}
		if err := s.notifier.Notify(ctx, notification); err != nil {
			s.logger.Error("notification dispatch failed",
				"session_id", session.ID,
				"recipient", owner.Email,
				"status", effect.Status,
				"error", err,
			)
		}
	}
}

func applyChange(session *model.Session, change repository.StatusChange) {
	session.Status = change.Status
	session.StatusUpdatedAt = &change.UpdatedAt
	session.StatusUpdatedBy = change.UpdatedBy
}

func asValidationError(err error) error {
	var verrs sessionvalidator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]any, len(verrs))
		for _, ve := range verrs {
			fields[ve.Field] = ve.Message
		}
		return apperrors.Validation("session validation failed", fields)
	}
	return apperrors.Internal("validation failed", err)
}
