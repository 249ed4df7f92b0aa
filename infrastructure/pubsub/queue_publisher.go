package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// NewPubSub creates a Pub/Sub client for projectID.
func NewPubSub(ctx context.Context, projectID string, opts ...option.ClientOption) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub project id is not configured")
	}
	return pubsub.NewClient(ctx, projectID, opts...)
}

// QueuePublisher publishes queue events to a Pub/Sub topic.
type QueuePublisher struct {
	client    *pubsub.Client
	topicName string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

func NewQueuePublisher(client *pubsub.Client, topicName string) repository.IQueueEvents {
	return &QueuePublisher{client: client, topicName: topicName}
}

// ensureTopic creates the topic on first use if it doesn't exist.
func (p *QueuePublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.client.Topic(p.topicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
			if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
				p.err = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.err
}

func (p *QueuePublisher) Publish(ctx context.Context, event *model.QueueEvent) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return fmt.Errorf("pubsub topic %s: %w", p.topicName, err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	serverID, err := topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": event.Type, "playlistId": event.PlaylistID},
	}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("type", event.Type).Info("Message published")
	return nil
}

// Stop flushes pending messages.
func (p *QueuePublisher) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
