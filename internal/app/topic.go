package app

import (
	"context"

	"github.com/angelmondragon/packdrop-backend/internal/lifecycle"
	"github.com/angelmondragon/packdrop-backend/pkg/config"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/angelmondragon/packdrop-backend/pkg/pubsub"
)

// LifecycleTopic connects to the analytics topic when one is configured.
// Messages are ordered per order. The returned close func flushes pending
// publishes and is never nil.
func LifecycleTopic(ctx context.Context, cfg *config.Config, logg *logger.Logger) (lifecycle.TopicPublisher, func(), error) {
	if cfg == nil || cfg.PubSub.LifecycleTopic == "" {
		return nil, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, logg)
	if err != nil {
		return nil, func() {}, err
	}
	topic, err := client.Topic(ctx, cfg.PubSub.LifecycleTopic, lifecycle.AttrOrderID)
	if err != nil {
		_ = client.Close()
		return nil, func() {}, err
	}
	return topic, func() {
		topic.Stop()
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}, nil
}
