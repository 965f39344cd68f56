package events

import (
	"github.com/rentdesk/rentdesk/internal/messaging"
	"github.com/rentdesk/rentdesk/internal/notifier"

	"go.uber.org/zap"
)

const LeadCreatedName = "LeadCreated"

type LeadCreatedPayload struct {
	To        string `json:"to"`
	RequestID uint   `json:"requestId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Vehicle   string `json:"vehicle"`
	Message   string `json:"message"`
}

// LeadCreated e-mails the configured lead address about a new information request.
type LeadCreated struct {
	Publisher messaging.IPublisher
	Type      string
	Payload   LeadCreatedPayload
}

func NewLeadCreated(publisher messaging.IPublisher, to string, payload LeadCreatedPayload) *LeadCreated {
	payload.To = to
	return &LeadCreated{Publisher: publisher, Type: LeadCreatedName, Payload: payload}
}

func (e *LeadCreated) Trigger() {
	publish(e.Publisher, e.Type, e.Payload)
}

func (e *LeadCreated) callback(params *EventParams) error {
	zap.L().Info("Sending lead notification", zap.Uint("request_id", e.Payload.RequestID))

	return params.Notifier.NotifyFromTemplate(
		e.Payload.To,
		"New information request",
		notifier.TemplateLeadCreated,
		map[string]string{
			"FirstName": e.Payload.FirstName,
			"LastName":  e.Payload.LastName,
			"Email":     e.Payload.Email,
			"Phone":     e.Payload.Phone,
			"Vehicle":   e.Payload.Vehicle,
			"Message":   e.Payload.Message,
			"WebURL":    params.WebURL,
		},
	)
}
