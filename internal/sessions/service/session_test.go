package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"studiobook/internal/notify"
	"studiobook/internal/sessions/repository"
	sessionvalidator "studiobook/internal/sessions/validator"
	"studiobook/pkg/auth"
	"studiobook/pkg/config"
	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"

	sessionserrors "studiobook/internal/sessions/errors"
)

type mockSessionRepo struct {
	sessions map[string]*model.Session
	nextID   int

	createManyCalls [][]*model.Session
	cascadeCalls    []cascadeCall
	deletedSeries   []string
	deletedIDs      []string
}

type cascadeCall struct {
	parentID  string
	notBefore *time.Time
	change    repository.StatusChange
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) put(session *model.Session) *model.Session {
	m.sessions[session.ID] = session
	return session
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.Session) error {
	m.nextID++
	session.ID = fmt.Sprintf("65a000000000000000000%03d", m.nextID)
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) CreateMany(_ context.Context, sessions []*model.Session) error {
	for _, s := range sessions {
		m.nextID++
		s.ID = fmt.Sprintf("65a000000000000000000%03d", m.nextID)
		m.sessions[s.ID] = s
	}
	m.createManyCalls = append(m.createManyCalls, sessions)
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, sessionserrors.ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (m *mockSessionRepo) FindAll(_ context.Context, _ int, _ int64) ([]*model.Session, error) {
	var out []*model.Session
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSessionRepo) FindByUser(_ context.Context, userID string, _ int, _ int64) ([]*model.Session, error) {
	var out []*model.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.sessions)), nil
}

func (m *mockSessionRepo) CountByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) FindByStartRange(_ context.Context, from, to time.Time, approvedOnly bool) ([]*model.Session, error) {
	var out []*model.Session
	for _, s := range m.sessions {
		if s.StartTime.Before(from) || s.StartTime.After(to) {
			continue
		}
		if approvedOnly && s.Status != model.StatusApproved {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSessionRepo) Update(_ context.Context, id string, session *model.Session) error {
	existing, ok := m.sessions[id]
	if !ok {
		return sessionserrors.ErrNotFound
	}
	existing.Title = session.Title
	existing.Description = session.Description
	existing.StartTime = session.StartTime
	existing.EndTime = session.EndTime
	existing.Status = session.Status
	existing.IsPaid = session.IsPaid
	return nil
}

func (m *mockSessionRepo) UpdateStatus(_ context.Context, id string, change repository.StatusChange) error {
	session, ok := m.sessions[id]
	if !ok {
		return sessionserrors.ErrNotFound
	}
	session.Status = change.Status
	at := change.UpdatedAt
	session.StatusUpdatedAt = &at
	session.StatusUpdatedBy = change.UpdatedBy
	return nil
}

func (m *mockSessionRepo) UpdateStatusByParent(_ context.Context, parentID string, notBefore *time.Time, change repository.StatusChange) (int64, error) {
	m.cascadeCalls = append(m.cascadeCalls, cascadeCall{parentID: parentID, notBefore: notBefore, change: change})
	var modified int64
	for _, s := range m.sessions {
		if s.ParentSessionID != parentID {
			continue
		}
		if notBefore != nil && s.StartTime.Before(*notBefore) {
			continue
		}
		s.Status = change.Status
		at := change.UpdatedAt
		s.StatusUpdatedAt = &at
		s.StatusUpdatedBy = change.UpdatedBy
		modified++
	}
	return modified, nil
}

func (m *mockSessionRepo) UpdatePayment(_ context.Context, id string, isPaid bool) error {
	session, ok := m.sessions[id]
	if !ok {
		return sessionserrors.ErrNotFound
	}
	session.IsPaid = isPaid
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return sessionserrors.ErrNotFound
	}
	delete(m.sessions, id)
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockSessionRepo) DeleteByParent(_ context.Context, parentID string) (int64, error) {
	var deleted int64
	for id, s := range m.sessions {
		if s.ParentSessionID == parentID {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockSessionRepo) DeleteSeries(_ context.Context, parentID string) (int64, error) {
	m.deletedSeries = append(m.deletedSeries, parentID)
	var deleted int64
	for id, s := range m.sessions {
		if id == parentID || s.ParentSessionID == parentID {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

type mockUserRepo struct {
	users map[string]*model.User
	err   error
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[id]
	if !ok {
		return nil, sessionserrors.ErrUserNotFound
	}
	return user, nil
}

type mockNotifier struct {
	sent []notify.Notification
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, n notify.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) Close() error { return nil }

type fixture struct {
	svc      *sessionService
	repo     *mockSessionRepo
	notifier *mockNotifier
	users    *mockUserRepo
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	log := logger.New(logger.Config{Output: io.Discard})
	repo := newMockSessionRepo()
	users := &mockUserRepo{users: map[string]*model.User{
		"user-1":  {ID: "user-1", Name: "Dana", Email: "dana@example.com"},
		"admin-1": {ID: "admin-1", Name: "Admin", Email: "admin@example.com", IsAdmin: true},
	}}
	notifier := &mockNotifier{}
	cfg := &config.Config{RescheduleCutoff: 12 * time.Hour}

	svc := NewSessionService(repo, users, sessionvalidator.NewSessionValidator(log), notifier, cfg, log).(*sessionService)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, notifier: notifier, users: users}
}

var (
	owner = auth.Principal{ID: "user-1", Name: "Dana", Email: "dana@example.com"}
	admin = auth.Principal{ID: "admin-1", Name: "Admin", Email: "admin@example.com", IsAdmin: true}
	other = auth.Principal{ID: "user-2", Name: "Sam", Email: "sam@example.com"}
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return parsed
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected error code %s, got: %v", code, err)
	}
}

func TestCreateRecurringWeeklySeries(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)

	end := mustDate(t, "2024-03-28T00:00:00Z")
	parent, err := f.svc.Create(context.Background(), owner, &model.Session{
		Title:             "Rehearsal",
		StartTime:         mustDate(t, "2024-03-01T10:00:00Z"),
		EndTime:           mustDate(t, "2024-03-01T11:00:00Z"),
		IsRecurring:       true,
		RecurrenceType:    model.RecurrenceWeekly,
		RecurrenceEndDate: &end,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if parent.Status != model.StatusPending {
		t.Errorf("parent status = %s, want pending", parent.Status)
	}
	if parent.ParentSessionID != "" {
		t.Errorf("parent must not reference a parent, got %q", parent.ParentSessionID)
	}

	if len(f.repo.createManyCalls) != 1 {
		t.Fatalf("expected one batch insert, got %d", len(f.repo.createManyCalls))
	}
	children := f.repo.createManyCalls[0]
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}

	wantStarts := []string{
		"2024-03-08T10:00:00Z",
		"2024-03-15T10:00:00Z",
		"2024-03-22T10:00:00Z",
	}
	for i, child := range children {
		if got := child.StartTime.Format(time.RFC3339); got != wantStarts[i] {
			t.Errorf("child %d start = %s, want %s", i, got, wantStarts[i])
		}
		if child.ParentSessionID != parent.ID {
			t.Errorf("child %d parent = %q, want %q", i, child.ParentSessionID, parent.ID)
		}
		if child.Status != model.StatusPending {
			t.Errorf("child %d status = %s, want pending", i, child.Status)
		}
		if child.RecurrenceType != model.RecurrenceWeekly || !child.IsRecurring {
			t.Errorf("child %d lost recurrence metadata", i)
		}
	}

	if len(f.notifier.sent) != 0 {
		t.Errorf("creation must not notify, sent %d", len(f.notifier.sent))
	}
}

func TestCreateNonRecurringOutOfWindow(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)

	_, err := f.svc.Create(context.Background(), owner, &model.Session{
		Title:     "Too far out",
		StartTime: mustDate(t, "2024-04-01T10:00:00Z"),
		EndTime:   mustDate(t, "2024-04-01T11:00:00Z"),
	})
	assertCode(t, err, apperrors.CodeOutOfWindow)
}

func TestCancelParentCascadesToAllChildren(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)

	end := mustDate(t, "2024-03-28T00:00:00Z")
	parent, err := f.svc.Create(context.Background(), owner, &model.Session{
		Title:             "Rehearsal",
		StartTime:         mustDate(t, "2024-03-01T10:00:00Z"),
		EndTime:           mustDate(t, "2024-03-01T11:00:00Z"),
		IsRecurring:       true,
		RecurrenceType:    model.RecurrenceWeekly,
		RecurrenceEndDate: &end,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	cancelled, err := f.svc.Cancel(context.Background(), owner, parent.ID, true, "schedule change")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Errorf("parent status = %s, want cancelled", cancelled.Status)
	}

	for id, s := range f.repo.sessions {
		if s.Status != model.StatusCancelled {
			t.Errorf("session %s status = %s, want cancelled", id, s.Status)
		}
	}

	if len(f.repo.cascadeCalls) != 1 {
		t.Fatalf("expected one cascade call, got %d", len(f.repo.cascadeCalls))
	}
	call := f.repo.cascadeCalls[0]
	if call.parentID != parent.ID {
		t.Errorf("cascade parent = %q, want %q", call.parentID, parent.ID)
	}
	if call.notBefore != nil {
		t.Errorf("cancelling the parent must cascade unconditionally, got bound %v", call.notBefore)
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(f.notifier.sent))
	}
	n := f.notifier.sent[0]
	if n.Status != model.StatusCancelled || n.RecipientEmail != "dana@example.com" || n.Reason != "schedule change" {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestCancelChildCascadesOnlyForward(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)

	end := mustDate(t, "2024-03-28T00:00:00Z")
	parent, err := f.svc.Create(context.Background(), owner, &model.Session{
		Title:             "Rehearsal",
		StartTime:         mustDate(t, "2024-03-01T10:00:00Z"),
		EndTime:           mustDate(t, "2024-03-01T11:00:00Z"),
		IsRecurring:       true,
		RecurrenceType:    model.RecurrenceWeekly,
		RecurrenceEndDate: &end,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var middle *model.Session
	for _, s := range f.repo.sessions {
		if s.ParentSessionID == parent.ID && s.StartTime.Equal(mustDate(t, "2024-03-15T10:00:00Z")) {
			middle = s
		}
	}
	if middle == nil {
		t.Fatal("middle child not found")
	}

	if _, err := f.svc.Cancel(context.Background(), owner, middle.ID, true, ""); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	for _, s := range f.repo.sessions {
		wantCancelled := s.ParentSessionID == parent.ID && !s.StartTime.Before(middle.StartTime)
		if s.ID == middle.ID {
			wantCancelled = true
		}
		gotCancelled := s.Status == model.StatusCancelled
		if gotCancelled != wantCancelled {
			t.Errorf("session starting %s: cancelled=%v, want %v", s.StartTime.Format(time.RFC3339), gotCancelled, wantCancelled)
		}
	}
}

func TestCancelForbiddenForStranger(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)

	session := f.repo.put(&model.Session{
		ID:        "65a0000000000000000000ff",
		Title:     "Private",
		UserID:    "user-1",
		Status:    model.StatusPending,
		StartTime: mustDate(t, "2024-03-01T10:00:00Z"),
		EndTime:   mustDate(t, "2024-03-01T11:00:00Z"),
	})

	_, err := f.svc.Cancel(context.Background(), other, session.ID, false, "")
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestRescheduleCutoff(t *testing.T) {
	start := mustDate(t, "2024-03-01T10:00:00Z")

	tests := []struct {
		name     string
		now      time.Time
		status   model.Status
		wantCode string
	}{
		{
			name:   "13 hours before start succeeds",
			now:    start.Add(-13 * time.Hour),
			status: model.StatusApproved,
		},
		{
			name:     "10 hours before start fails",
			now:      start.Add(-10 * time.Hour),
			status:   model.StatusApproved,
			wantCode: apperrors.CodeNotEditable,
		},
		{
			name:     "cancelled session fails regardless of time",
			now:      start.Add(-48 * time.Hour),
			status:   model.StatusCancelled,
			wantCode: apperrors.CodeNotEditable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.now)
			session := f.repo.put(&model.Session{
				ID:        "65a0000000000000000000aa",
				Title:     "Movable",
				UserID:    "user-1",
				Status:    tt.status,
				StartTime: start,
				EndTime:   start.Add(time.Hour),
			})

			newStart := start.Add(24 * time.Hour)
			updated, err := f.svc.Reschedule(context.Background(), owner, session.ID, newStart, newStart.Add(time.Hour))

			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("Reschedule failed: %v", err)
			}
			if !updated.StartTime.Equal(newStart) {
				t.Errorf("start = %v, want %v", updated.StartTime, newStart)
			}
			if updated.Status != tt.status {
				t.Errorf("reschedule must not change status, got %s", updated.Status)
			}
		})
	}
}

func TestRescheduleOwnerOnly(t *testing.T) {
	start := mustDate(t, "2024-03-01T10:00:00Z")
	f := newFixture(t, start.Add(-48*time.Hour))

	session := f.repo.put(&model.Session{
		ID:        "65a0000000000000000000ab",
		Title:     "Movable",
		UserID:    "user-1",
		Status:    model.StatusPending,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})

	_, err := f.svc.Reschedule(context.Background(), admin, session.ID, start.Add(time.Hour), start.Add(2*time.Hour))
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestUpdateStatusAdminGate(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)

	session := f.repo.put(&model.Session{
		ID:        "65a0000000000000000000bb",
		Title:     "Awaiting review",
		UserID:    "user-1",
		Status:    model.StatusPending,
		StartTime: mustDate(t, "2024-03-01T10:00:00Z"),
		EndTime:   mustDate(t, "2024-03-01T11:00:00Z"),
	})

	_, err := f.svc.UpdateStatus(context.Background(), owner, session.ID, model.StatusApproved, "")
	assertCode(t, err, apperrors.CodeForbidden)

	updated, err := f.svc.UpdateStatus(context.Background(), admin, session.ID, model.StatusApproved, "see you there")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != model.StatusApproved {
		t.Errorf("status = %s, want approved", updated.Status)
	}
	if updated.StatusUpdatedBy != admin.ID {
		t.Errorf("status_updated_by = %q, want %q", updated.StatusUpdatedBy, admin.ID)
	}
	if updated.StatusUpdatedAt == nil || !updated.StatusUpdatedAt.Equal(now) {
		t.Errorf("status_updated_at = %v, want %v", updated.StatusUpdatedAt, now)
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifier.sent))
	}
	n := f.notifier.sent[0]
	if n.Status != model.StatusApproved || n.Reason != "see you there" {
		t.Errorf("unexpected notification: %+v", n)
	}

	stored := f.repo.sessions[session.ID]
	if stored.Description != "" && stored.Description == "see you there" {
		t.Error("reason must not be persisted on the session")
	}
}

func TestUpdatePaymentGating(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")

	t.Run("pending session is rejected", func(t *testing.T) {
		f := newFixture(t, now)
		session := f.repo.put(&model.Session{
			ID:        "65a0000000000000000000cc",
			Title:     "Unreviewed",
			UserID:    "user-1",
			Status:    model.StatusPending,
			StartTime: mustDate(t, "2024-03-01T10:00:00Z"),
			EndTime:   mustDate(t, "2024-03-01T11:00:00Z"),
		})

		_, err := f.svc.UpdatePayment(context.Background(), admin, session.ID)
		assertCode(t, err, apperrors.CodeConflict)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		f := newFixture(t, now)
		session := f.repo.put(&model.Session{
			ID:        "65a0000000000000000000cd",
			Title:     "Approved",
			UserID:    "user-1",
			Status:    model.StatusApproved,
			StartTime: mustDate(t, "2024-03-01T10:00:00Z"),
			EndTime:   mustDate(t, "2024-03-01T11:00:00Z"),
		})

		_, err := f.svc.UpdatePayment(context.Background(), owner, session.ID)
		assertCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("approved session toggles both ways", func(t *testing.T) {
		f := newFixture(t, now)
		session := f.repo.put(&model.Session{
			ID:        "65a0000000000000000000ce",
			Title:     "Approved",
			UserID:    "user-1",
			Status:    model.StatusApproved,
			StartTime: mustDate(t, "2024-03-01T10:00:00Z"),
			EndTime:   mustDate(t, "2024-03-01T11:00:00Z"),
		})

		updated, err := f.svc.UpdatePayment(context.Background(), admin, session.ID)
		if err != nil {
			t.Fatalf("UpdatePayment failed: %v", err)
		}
		if !updated.IsPaid {
			t.Error("first toggle: is_paid = false, want true")
		}

		updated, err = f.svc.UpdatePayment(context.Background(), admin, session.ID)
		if err != nil {
			t.Fatalf("UpdatePayment failed: %v", err)
		}
		if updated.IsPaid {
			t.Error("second toggle: is_paid = true, want false")
		}
	})
}

func TestDeleteCascade(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")

	t.Run("non-admin is forbidden", func(t *testing.T) {
		f := newFixture(t, now)
		err := f.svc.Delete(context.Background(), owner, "65a0000000000000000000dd", true, "")
		assertCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("deleting a child with cascade removes the whole series", func(t *testing.T) {
		f := newFixture(t, now)
		end := mustDate(t, "2024-03-28T00:00:00Z")
		parent, err := f.svc.Create(context.Background(), owner, &model.Session{
			Title:             "Rehearsal",
			StartTime:         mustDate(t, "2024-03-01T10:00:00Z"),
			EndTime:           mustDate(t, "2024-03-01T11:00:00Z"),
			IsRecurring:       true,
			RecurrenceType:    model.RecurrenceWeekly,
			RecurrenceEndDate: &end,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		var childID string
		for _, s := range f.repo.sessions {
			if s.ParentSessionID == parent.ID {
				childID = s.ID
				break
			}
		}

		if err := f.svc.Delete(context.Background(), admin, childID, true, ""); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		if len(f.repo.sessions) != 0 {
			t.Errorf("expected empty store after cascade delete, %d remain", len(f.repo.sessions))
		}
		if len(f.notifier.sent) != 1 {
			t.Fatalf("expected one notification, got %d", len(f.notifier.sent))
		}
		n := f.notifier.sent[0]
		if n.Status != model.StatusCancelled {
			t.Errorf("delete notification status = %s, want cancelled", n.Status)
		}
		if n.Reason == "" {
			t.Error("delete without a reason must fall back to the administrative default")
		}
	})
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)
	f.notifier.err = fmt.Errorf("broker unreachable")

	session := f.repo.put(&model.Session{
		ID:        "65a0000000000000000000ee",
		Title:     "Flaky broker",
		UserID:    "user-1",
		Status:    model.StatusPending,
		StartTime: mustDate(t, "2024-03-01T10:00:00Z"),
		EndTime:   mustDate(t, "2024-03-01T11:00:00Z"),
	})

	updated, err := f.svc.UpdateStatus(context.Background(), admin, session.ID, model.StatusRejected, "")
	if err != nil {
		t.Fatalf("UpdateStatus must not surface notification failures: %v", err)
	}
	if updated.Status != model.StatusRejected {
		t.Errorf("status = %s, want rejected", updated.Status)
	}
}

func TestListScoping(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)

	f.repo.put(&model.Session{ID: "65a0000000000000000000a1", UserID: "user-1", Title: "Mine"})
	f.repo.put(&model.Session{ID: "65a0000000000000000000a2", UserID: "user-2", Title: "Theirs"})

	sessions, total, err := f.svc.List(context.Background(), owner, 100, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(sessions) != 1 || sessions[0].UserID != "user-1" {
		t.Errorf("owner list = %d/%d, want own session only", len(sessions), total)
	}

	_, total, err = f.svc.List(context.Background(), admin, 100, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 {
		t.Errorf("admin total = %d, want 2", total)
	}
}

func TestCalendarRanges(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)

	f.repo.put(&model.Session{
		ID: "65a0000000000000000000b1", UserID: "user-1", Title: "March approved",
		Status:    model.StatusApproved,
		StartTime: mustDate(t, "2024-03-15T10:00:00Z"),
		EndTime:   mustDate(t, "2024-03-15T11:00:00Z"),
	})
	f.repo.put(&model.Session{
		ID: "65a0000000000000000000b2", UserID: "user-1", Title: "March pending",
		Status:    model.StatusPending,
		StartTime: mustDate(t, "2024-03-20T10:00:00Z"),
		EndTime:   mustDate(t, "2024-03-20T11:00:00Z"),
	})
	f.repo.put(&model.Session{
		ID: "65a0000000000000000000b3", UserID: "user-1", Title: "April",
		Status:    model.StatusApproved,
		StartTime: mustDate(t, "2024-04-02T10:00:00Z"),
		EndTime:   mustDate(t, "2024-04-02T11:00:00Z"),
	})

	t.Run("month view filters by range and status for non-admins", func(t *testing.T) {
		sessions, err := f.svc.CalendarMonth(context.Background(), owner, 2024, time.March)
		if err != nil {
			t.Fatalf("CalendarMonth failed: %v", err)
		}
		if len(sessions) != 1 || sessions[0].Title != "March approved" {
			t.Errorf("non-admin month view = %d sessions, want the approved March one", len(sessions))
		}
	})

	t.Run("admins see all statuses", func(t *testing.T) {
		sessions, err := f.svc.CalendarMonth(context.Background(), admin, 2024, time.March)
		if err != nil {
			t.Fatalf("CalendarMonth failed: %v", err)
		}
		if len(sessions) != 2 {
			t.Errorf("admin month view = %d sessions, want 2", len(sessions))
		}
	})

	t.Run("day view", func(t *testing.T) {
		sessions, err := f.svc.CalendarDay(context.Background(), admin, 2024, time.March, 20)
		if err != nil {
			t.Fatalf("CalendarDay failed: %v", err)
		}
		if len(sessions) != 1 || sessions[0].Title != "March pending" {
			t.Errorf("day view = %d sessions, want the March 20 one", len(sessions))
		}
	})

	t.Run("week view covers the week containing the start", func(t *testing.T) {
		// 2024-03-15 falls in week 11 (week 1 contains Jan 1, Sunday start).
		sessions, err := f.svc.CalendarWeek(context.Background(), admin, 2024, 11)
		if err != nil {
			t.Fatalf("CalendarWeek failed: %v", err)
		}
		if len(sessions) != 1 || sessions[0].Title != "March approved" {
			t.Errorf("week view = %d sessions, want the March 15 one", len(sessions))
		}
	})
}

func TestGetByIDAuthorization(t *testing.T) {
	now := mustDate(t, "2024-02-20T09:00:00Z")
	f := newFixture(t, now)

	session := f.repo.put(&model.Session{
		ID: "65a0000000000000000000c1", UserID: "user-1", Title: "Mine",
	})

	if _, err := f.svc.GetByID(context.Background(), owner, session.ID); err != nil {
		t.Errorf("owner read failed: %v", err)
	}
	if _, err := f.svc.GetByID(context.Background(), admin, session.ID); err != nil {
		t.Errorf("admin read failed: %v", err)
	}
	_, err := f.svc.GetByID(context.Background(), other, session.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.GetByID(context.Background(), owner, "65a0000000000000000000c2")
	assertCode(t, err, apperrors.CodeNotFound)
}
