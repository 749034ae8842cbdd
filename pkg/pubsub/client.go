// Package pubsub wraps the Pub/Sub v2 client. Each process opens it for one
// role and only the resources of that role are verified at start and on Ping.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

// Role selects which resources a process depends on.
type Role int

const (
	// RolePublisher needs the event topics (outbox publisher).
	RolePublisher Role = iota
	// RoleSubscriber needs the notification subscriptions (worker).
	RoleSubscriber
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

var errProjectIDRequired = errors.New("gcp project id is required")

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	role      Role

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and fails when a resource the role depends on is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     psClient,
		projectID:  projectID,
		cfg:        cfg,
		role:       role,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.verify(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", projectID), "pubsub client initialized")
	}
	return c, nil
}

// required lists the resource ids the role depends on, skipping blanks.
func required(cfg config.PubSubConfig, role Role) (resourceKind, []string) {
	kind, candidates := kindTopic, []string{cfg.RequestsTopic, cfg.ChatTopic}
	if role == RoleSubscriber {
		kind, candidates = kindSubscription, []string{cfg.NotificationSubscription, cfg.ChatNotificationSub}
	}
	names := []string{}
	for _, name := range candidates {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return kind, names
}

func (c *Client) verify(ctx context.Context) error {
	kind, names := required(c.cfg, c.role)
	if len(names) == 0 {
		return fmt.Errorf("no pubsub %s configured", kind)
	}
	for _, name := range names {
		full := resourceName(c.projectID, kind, name)
		var err error
		if kind == kindTopic {
			_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		} else {
			_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
		}
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("pubsub %s %q does not exist", kind, name)
		case err != nil:
			return fmt.Errorf("checking pubsub %s %q: %w", kind, name, err)
		}
	}
	return nil
}

// resourceName qualifies a bare id; full resource names pass through.
func resourceName(projectID string, kind resourceKind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || projectID == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+string(kind)+"/") {
		return name
	}
	return "projects/" + projectID + "/" + string(kind) + "/" + name
}

// Subscription returns nil when name is blank.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, kindSubscription, name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// NotificationSubscription receives request lifecycle events.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.NotificationSubscription)
}

// ChatNotificationSubscription receives message_sent events.
func (c *Client) ChatNotificationSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.ChatNotificationSub)
}

// Publisher returns one cached publisher per topic with message ordering on,
// so events sharing an ordering key arrive in publish order.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, kindTopic, topic)
	if full == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[full]; ok {
		return pub
	}
	pub := c.client.Publisher(full)
	pub.EnableMessageOrdering = true
	c.publishers[full] = pub
	return pub
}

// Ping re-checks the role's resources.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.verify(ctx)
}

// Close flushes cached publishers before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}
