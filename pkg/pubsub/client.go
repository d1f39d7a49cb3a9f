package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub orders topic is required")
	errClosed            = errors.New("pubsub client not initialized")
)

// publishDelay bounds how long a message waits to be batched. The outbox
// already batches, so this stays short.
const publishDelay = 5 * time.Millisecond

// Client publishes domain events. Topics must already exist; the service
// never creates them.
type Client struct {
	client *pubsub.Client
	topics []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	project    string
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topics := make([]string, 0, 1)
	for _, name := range topicNames(cfg) {
		topics = append(topics, resourceName(project, "topics", name))
	}
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	raw, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	c := &Client{client: raw, topics: topics, project: project, publishers: map[string]*pubsub.Publisher{}}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"project_id": project, "topics": topics}), "pubsub ready")
	}
	return c, nil
}

func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	if name := strings.TrimSpace(cfg.OrdersTopic); name != "" {
		names = append(names, name)
	}
	return names
}

// Ping confirms every configured topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errClosed
	}
	for _, topic := range c.topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("topic %s does not exist", topic)
		case err != nil:
			return fmt.Errorf("get topic %s: %w", topic, err)
		}
	}
	return nil
}

// Publisher returns the shared publisher for a topic id or full resource name,
// or nil when the name is blank.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.project, "topics", name)
	if full == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.publishers[full]
	if !ok {
		p = c.client.Publisher(full)
		p.PublishSettings.DelayThreshold = publishDelay
		c.publishers[full] = p
	}
	return p
}

// Close flushes outstanding messages before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a short id into projects/<p>/<kind>/<id>. Full names
// pass through unchanged.
func resourceName(project, kind, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/"):
		return name
	case strings.TrimSpace(project) == "":
		return ""
	}
	return "projects/" + strings.TrimSpace(project) + "/" + kind + "/" + name
}
