package events

import (
	"time"

	"github.com/rentdesk/rentdesk/internal/messaging"
	"github.com/rentdesk/rentdesk/internal/notifier"
)

const (
	TwoFactorEnabledName  = "TwoFactorEnabled"
	TwoFactorDisabledName = "TwoFactorDisabled"
)

const notificationDateLayout = "2 January 2006 15:04 MST"

type TwoFactorPayload struct {
	To       string    `json:"to"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
	ByAdmin  bool      `json:"byAdmin"`
}

type TwoFactorEnabled struct {
	Publisher messaging.IPublisher
	Type      string
	Payload   TwoFactorPayload
}

func NewTwoFactorEnabled(publisher messaging.IPublisher, to string, username string) *TwoFactorEnabled {
	return &TwoFactorEnabled{
		Publisher: publisher,
		Type:      TwoFactorEnabledName,
		Payload:   TwoFactorPayload{To: to, Username: username, At: time.Now().UTC()},
	}
}

func (e *TwoFactorEnabled) Trigger() {
	publish(e.Publisher, e.Type, e.Payload)
}

func (e *TwoFactorEnabled) callback(params *EventParams) error {
	return params.Notifier.NotifyFromTemplate(
		e.Payload.To,
		"Two-factor authentication enabled",
		notifier.TemplateTwoFactorEnabled,
		map[string]any{
			"Username": e.Payload.Username,
			"Date":     e.Payload.At.Format(notificationDateLayout),
			"WebURL":   params.WebURL,
		},
	)
}

// TwoFactorDisabled covers both a user turning 2FA off and an administrator reset.
type TwoFactorDisabled struct {
	Publisher messaging.IPublisher
	Type      string
	Payload   TwoFactorPayload
}

func NewTwoFactorDisabled(publisher messaging.IPublisher, to string, username string, byAdmin bool) *TwoFactorDisabled {
	return &TwoFactorDisabled{
		Publisher: publisher,
		Type:      TwoFactorDisabledName,
		Payload:   TwoFactorPayload{To: to, Username: username, At: time.Now().UTC(), ByAdmin: byAdmin},
	}
}

func (e *TwoFactorDisabled) Trigger() {
	publish(e.Publisher, e.Type, e.Payload)
}

func (e *TwoFactorDisabled) callback(params *EventParams) error {
	return params.Notifier.NotifyFromTemplate(
		e.Payload.To,
		"Two-factor authentication disabled",
		notifier.TemplateTwoFactorDisabled,
		map[string]any{
			"Username": e.Payload.Username,
			"Date":     e.Payload.At.Format(notificationDateLayout),
			"ByAdmin":  e.Payload.ByAdmin,
			"WebURL":   params.WebURL,
		},
	)
}
