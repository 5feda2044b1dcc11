// Package notify publishes session status change notifications for the
// email worker to deliver. Dispatch is fire-and-forget: callers log
// failures and never surface them to the requester.
package notify

import (
	"context"
	"time"

	"studiobook/pkg/model"
)

// Notification describes a single status change to tell a user about.
type Notification struct {
	RecipientEmail string       `json:"recipient_email"`
	RecipientName  string       `json:"recipient_name"`
	SessionID      string       `json:"session_id"`
	SessionTitle   string       `json:"session_title"`
	Status         model.Status `json:"status"`
	SessionStart   time.Time    `json:"session_start"`
	Reason         string       `json:"reason,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
	Close() error
}
