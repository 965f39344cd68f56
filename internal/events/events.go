package events

import (
	"encoding/json"
	"fmt"

	"github.com/rentdesk/rentdesk/internal/messaging"
	"github.com/rentdesk/rentdesk/internal/notifier"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// EventParams are the dependencies handed to event callbacks on the consumer side.
type EventParams struct {
	WebURL   string
	Notifier notifier.INotifier
}

// Event is published by the API and executed by the notifications worker.
type Event interface {
	Trigger()
	callback(params *EventParams) error
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// publish wraps the payload in an envelope and sends it. Failures are logged only: an
// undelivered notification never fails the request that caused it.
func publish(publisher messaging.IPublisher, eventType string, payload any) {
	if publisher == nil {
		zap.L().Warn("No publisher configured, dropping event", zap.String("type", eventType))
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("Failed to marshal event payload", zap.String("type", eventType), zap.Error(err))
		return
	}

	body, err := json.Marshal(envelope{Type: eventType, Payload: raw})
	if err != nil {
		zap.L().Error("Failed to marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set("type", eventType)

	if err = publisher.Publish(msg); err != nil {
		zap.L().Error("Failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

// decoders rebuilds an event from its envelope on the consumer side.
var decoders = map[string]func(json.RawMessage) (Event, error){
	LeadCreatedName: func(raw json.RawMessage) (Event, error) {
		event := &LeadCreated{Type: LeadCreatedName}
		return event, json.Unmarshal(raw, &event.Payload)
	},
	TwoFactorEnabledName: func(raw json.RawMessage) (Event, error) {
		event := &TwoFactorEnabled{Type: TwoFactorEnabledName}
		return event, json.Unmarshal(raw, &event.Payload)
	},
	TwoFactorDisabledName: func(raw json.RawMessage) (Event, error) {
		event := &TwoFactorDisabled{Type: TwoFactorDisabledName}
		return event, json.Unmarshal(raw, &event.Payload)
	},
}

func parseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid event envelope: %w", err)
	}

	decode, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}

	event, err := decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
	}
	return event, nil
}

// HandleEvents runs until msgs is closed. Malformed messages are acked and dropped;
// callback failures are nacked so the broker redelivers them.
func HandleEvents(params *EventParams, msgs <-chan *message.Message) {
	for msg := range msgs {
		event, err := parseEvent(msg.Payload)
		if err != nil {
			zap.L().Error("Dropping malformed event", zap.String("message_id", msg.UUID), zap.Error(err))
			msg.Ack()
			continue
		}

		if err = event.callback(params); err != nil {
			zap.L().Error("Event callback failed",
				zap.String("message_id", msg.UUID),
				zap.String("type", msg.Metadata.Get("type")),
				zap.Error(err))
			msg.Nack()
			continue
		}

		msg.Ack()
	}
}
