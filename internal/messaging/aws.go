package messaging

import (
	"context"
	"fmt"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
)

type AWSPublisher struct {
	TopicName string
	publisher *sqs.Publisher
}

func loadAWSConfig(config *models.AWSEventsConfig) (aws.Config, error) {
	var options []func(*awsConfig.LoadOptions) error
	if config != nil && config.Region != "" {
		options = append(options, awsConfig.WithRegion(config.Region))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(), options...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return awsCfg, nil
}

func NewAWSPublisher(config *models.AWSEventsConfig, queueName string) (*AWSPublisher, error) {
	awsCfg, err := loadAWSConfig(config)
	if err != nil {
		return nil, err
	}

	publisher, err := sqs.NewPublisher(sqs.PublisherConfig{
		AWSConfig:                   awsCfg,
		DoNotCreateQueueIfNotExists: true,
		Marshaler:                   sqs.DefaultMarshalerUnmarshaler{},
	}, watermill.NopLogger{})
	if err != nil {
		return nil, fmt.Errorf("unable to create SQS publisher: %w", err)
	}

	return &AWSPublisher{TopicName: queueName, publisher: publisher}, nil
}

func (p *AWSPublisher) Publish(messages ...*message.Message) error {
	return p.publisher.Publish(p.TopicName, messages...)
}

func (p *AWSPublisher) Close() error {
	return p.publisher.Close()
}

type AWSSubscriber struct {
	TopicName  string
	subscriber *sqs.Subscriber
}

func NewAWSSubscriber(config *models.AWSEventsConfig, queueName string) (*AWSSubscriber, error) {
	awsCfg, err := loadAWSConfig(config)
	if err != nil {
		return nil, err
	}

	subscriber, err := sqs.NewSubscriber(sqs.SubscriberConfig{
		AWSConfig:                   awsCfg,
		DoNotCreateQueueIfNotExists: true,
	}, watermill.NopLogger{})
	if err != nil {
		return nil, fmt.Errorf("unable to create SQS subscriber: %w", err)
	}

	return &AWSSubscriber{TopicName: queueName, subscriber: subscriber}, nil
}

func (s *AWSSubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, s.TopicName)
}

func (s *AWSSubscriber) Close() error {
	return s.subscriber.Close()
}
