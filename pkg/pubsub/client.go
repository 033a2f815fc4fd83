// Package pubsub publishes service events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/packdrop-backend/pkg/config"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns the Pub/Sub connection for one GCP project.
type Client struct {
	client    *pubsub.Client
	projectID string
}

// NewClient connects using inline JSON credentials, a credentials file, or
// ambient application default credentials, in that order.
func NewClient(ctx context.Context, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	psClient, err := pubsub.NewClient(ctx, projectID, credentials(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project", projectID), "pubsub client initialized")
	}
	return &Client{client: psClient, projectID: projectID}, nil
}

func credentials(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// Topic opens a publisher on an existing topic. When orderingAttr is set,
// messages sharing that attribute's value are delivered in publish order.
func (c *Client) Topic(ctx context.Context, name, orderingAttr string) (*Topic, error) {
	if c == nil || c.client == nil {
		return nil, errNotInitialized
	}
	fullName := topicResourceName(c.projectID, name)
	if fullName == "" {
		return nil, fmt.Errorf("topic %q not configured", name)
	}
	if err := c.checkTopic(ctx, fullName); err != nil {
		return nil, err
	}
	publisher := c.client.Publisher(fullName)
	publisher.EnableMessageOrdering = orderingAttr != ""
	return &Topic{publisher: publisher, orderingAttr: orderingAttr}, nil
}

func (c *Client) checkTopic(ctx context.Context, fullName string) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: fullName})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist", fullName)
	default:
		return fmt.Errorf("checking topic %q: %w", fullName, err)
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Topic publishes to one topic and waits for the server ack.
type Topic struct {
	publisher    *pubsub.Publisher
	orderingAttr string
}

func (t *Topic) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	if t == nil || t.publisher == nil {
		return errNotInitialized
	}
	msg := &pubsub.Message{Data: data, Attributes: attributes}
	if t.orderingAttr != "" {
		msg.OrderingKey = attributes[t.orderingAttr]
	}
	if _, err := t.publisher.Publish(ctx, msg).Get(ctx); err != nil {
		// An ordered key stays paused after a failure until resumed.
		if msg.OrderingKey != "" {
			t.publisher.ResumePublish(msg.OrderingKey)
		}
		return err
	}
	return nil
}

// Stop flushes outstanding messages.
func (t *Topic) Stop() {
	if t != nil && t.publisher != nil {
		t.publisher.Stop()
	}
}

func topicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return "projects/" + p + "/topics/" + n
}
