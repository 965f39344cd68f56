package tests

import (
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Notification is one call recorded by MockNotifier.
type Notification struct {
	To           string
	Subject      string
	TemplateName string
	Data         any
}

type MockNotifier struct {
	mu            sync.Mutex
	Err           error
	Notifications []Notification
}

func (n *MockNotifier) NotifyFromTemplate(to string, subject string, templateName string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Notifications = append(n.Notifications, Notification{To: to, Subject: subject, TemplateName: templateName, Data: data})
	return nil
}

func (n *MockNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.Notifications...)
}

// MockPublisher keeps published messages in memory.
type MockPublisher struct {
	mu       sync.Mutex
	Err      error
	Messages []*message.Message
}

func (p *MockPublisher) Publish(messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Messages = append(p.Messages, messages...)
	return nil
}

func (p *MockPublisher) Close() error {
	return nil
}

// EventTypes lists the envelope type of every published message, in order.
func (p *MockPublisher) EventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.Messages))
	for _, msg := range p.Messages {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(msg.Payload, &env)
		types = append(types, env.Type)
	}
	return types
}
