package core

import (
	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/messaging"
	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
)

// EventsManager owns one publisher and one subscriber per configured queue.
type EventsManager struct {
	publishers  map[string]messaging.IPublisher
	subscribers map[string]messaging.ISubscriber
	config      models.EventsConfiguration
}

func NewEventsManager(config models.EventsConfiguration) *EventsManager {
	manager := &EventsManager{
		publishers:  make(map[string]messaging.IPublisher),
		subscribers: make(map[string]messaging.ISubscriber),
		config:      config,
	}

	manager.initializePublishers()
	manager.initializeSubscribers()

	return manager
}

func (em *EventsManager) initializePublishers() {
	for topicKey, topicConfig := range em.config.Queues {
		var publisher messaging.IPublisher
		var err error

		switch em.config.Type {
		case configuration.ProviderJetstream:
			publisher, err = messaging.NewJetStreamPublisher(em.config.Jetstream, topicConfig.Name)
		case configuration.ProviderGCP:
			publisher, err = messaging.NewGCPPublisher(em.config.PubSub, topicConfig.Name)
		case configuration.ProviderAWS:
			publisher, err = messaging.NewAWSPublisher(em.config.AWS, topicConfig.Name)
		case configuration.ProviderMemory:
			// publisher and subscriber must share the GoChannel, so both are created here
			ch := messaging.NewMemoryChannel()
			publisher = messaging.NewMemoryPublisher(ch, topicConfig.Name)
			em.subscribers[topicKey] = messaging.NewMemorySubscriber(ch, topicConfig.Name)
		}

		if err != nil {
			zap.L().Fatal("Failed to initialize publisher",
				zap.String("topic_key", topicKey),
				zap.String("provider", em.config.Type),
				zap.Error(err))
		}

		em.publishers[topicKey] = publisher

		zap.L().Info("Initialized publisher",
			zap.String("topic_key", topicKey),
			zap.String("topic_name", topicConfig.Name),
			zap.String("provider", em.config.Type))
	}
}

func (em *EventsManager) initializeSubscribers() {
	for topicKey, topicConfig := range em.config.Queues {
		var subscriber messaging.ISubscriber
		var err error

		switch em.config.Type {
		case configuration.ProviderJetstream:
			subscriber, err = messaging.NewJetStreamSubscriber(em.config.Jetstream, topicConfig.Name)
		case configuration.ProviderGCP:
			subscriber, err = messaging.NewGCPSubscriber(em.config.PubSub, topicConfig.Name)
		case configuration.ProviderAWS:
			subscriber, err = messaging.NewAWSSubscriber(em.config.AWS, topicConfig.Name)
		case configuration.ProviderMemory:
			continue
		}

		if err != nil {
			zap.L().Fatal("Failed to initialize subscriber",
				zap.String("topic_key", topicKey),
				zap.String("provider", em.config.Type),
				zap.Error(err))
		}

		if subscriber != nil {
			em.subscribers[topicKey] = subscriber
			zap.L().Info("Initialized subscriber",
				zap.String("topic_key", topicKey),
				zap.String("topic_name", topicConfig.Name),
				zap.String("provider", em.config.Type))
		}
	}
}

func (em *EventsManager) GetPublisher(topicKey string) messaging.IPublisher {
	publisher, exists := em.publishers[topicKey]
	if !exists {
		zap.L().Warn("Publisher not found", zap.String("topic_key", topicKey))
		return nil
	}
	return publisher
}

func (em *EventsManager) GetSubscriber(topicKey string) messaging.ISubscriber {
	subscriber, exists := em.subscribers[topicKey]
	if !exists {
		zap.L().Warn("Subscriber not found", zap.String("topic_key", topicKey))
		return nil
	}
	return subscriber
}

func (em *EventsManager) Close() {
	for topicKey, publisher := range em.publishers {
		if err := publisher.Close(); err != nil {
			zap.L().Error("Failed to close publisher",
				zap.String("topic_key", topicKey),
				zap.Error(err))
		}
	}

	for topicKey, subscriber := range em.subscribers {
		if err := subscriber.Close(); err != nil {
			zap.L().Error("Failed to close subscriber",
				zap.String("topic_key", topicKey),
				zap.Error(err))
		}
	}
}
