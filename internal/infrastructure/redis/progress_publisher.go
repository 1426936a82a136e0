package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
)

// DefaultPublishTimeout bounds a single publish so a slow broker cannot stall
// the queue worker that reports progress.
const DefaultPublishTimeout = 500 * time.Millisecond

// Publisher is the subset of the go-redis client used here
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// NewClient connects to redis and verifies the connection
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// ProgressMessage is the JSON document published for every snapshot
type ProgressMessage struct {
	MallID      string                  `json:"mall_id"`
	Progress    domain.ProgressSnapshot `json:"progress"`
	PublishedAt time.Time               `json:"published_at"`
}

// ProgressPublisher broadcasts price queue progress on a redis channel so
// every admin instance can follow a running update. It implements
// domain.ProgressObserver.
type ProgressPublisher struct {
	client  Publisher
	channel string
	mallID  string
	timeout time.Duration
	logger  *logging.Logger
}

func NewProgressPublisher(client Publisher, channel, mallID string, logger *logging.Logger) *ProgressPublisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ProgressPublisher{
		client:  client,
		channel: channel,
		mallID:  mallID,
		timeout: DefaultPublishTimeout,
		logger:  logger.WithComponent("progress-publisher"),
	}
}

// OnProgress publishes the snapshot. Failures are logged and dropped.
func (p *ProgressPublisher) OnProgress(snapshot domain.ProgressSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.Publish(ctx, snapshot); err != nil {
		p.logger.Warn("Failed to publish progress", "channel", p.channel, "error", err)
	}
}

// Publish sends one snapshot and reports the outcome
func (p *ProgressPublisher) Publish(ctx context.Context, snapshot domain.ProgressSnapshot) error {
	payload, err := json.Marshal(ProgressMessage{
		MallID:      p.mallID,
		Progress:    snapshot,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish progress: %w", err)
	}
	return nil
}
