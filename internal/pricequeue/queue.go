// Package pricequeue applies product price edits through a single
// rate-limited worker with head-of-queue retries.
package pricequeue

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"golang.org/x/time/rate"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/metrics"
	"github.com/shopops/backoffice/pkg/resilience"
)

// Config holds queue tuning
type Config struct {
	OpsPerSecond float64
	MaxRetries   int
	BackoffUnit  time.Duration
}

// DefaultConfig returns the marketplace-safe defaults: two calls per second,
// three retries, backoff of 2^n seconds.
func DefaultConfig() Config {
	return Config{
		OpsPerSecond: 2,
		MaxRetries:   3,
		BackoffUnit:  time.Second,
	}
}

// Option configures a Queue
type Option func(*Queue)

// WithClock replaces the clock used for backoff sleeps and elapsed time.
func WithClock(clock clockz.Clock) Option {
	return func(q *Queue) {
		q.clock = clock
	}
}

// Queue is a pausable FIFO of product update steps drained by one worker.
// All methods are safe for concurrent use.
type Queue struct {
	updater  domain.ProductUpdater
	handlers map[domain.Step]stepHandler
	config   Config
	limiter  *rate.Limiter
	clock    clockz.Clock
	logger   *logging.Logger
	metrics  *metrics.Metrics

	mu            sync.Mutex
	pending       []*domain.WorkItem
	items         []*domain.WorkItem
	total         int
	completed     int
	failed        int
	errors        []domain.ItemError
	currentEntity string
	currentStep   string
	running       bool
	stopRequested bool
	startedAt     time.Time
	elapsed       time.Duration
	done          chan struct{}
	observers     []domain.ProgressObserver
}

// New creates an idle Queue
func New(updater domain.ProductUpdater, cfg Config, logger *logging.Logger, m *metrics.Metrics, opts ...Option) *Queue {
	defaults := DefaultConfig()
	if cfg.OpsPerSecond <= 0 {
		cfg.OpsPerSecond = defaults.OpsPerSecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = defaults.BackoffUnit
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	done := make(chan struct{})
	close(done)

	q := &Queue{
		updater:  updater,
		handlers: stepHandlers,
		config:   cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.OpsPerSecond), 1),
		clock:    clockz.RealClock,
		logger:   logger.WithComponent("price-queue"),
		metrics:  m,
		done:     done,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Subscribe registers an observer notified after every processing attempt
// and when a run ends. Observers are called from the worker goroutine and
// must not block.
func (q *Queue) Subscribe(observer domain.ProgressObserver) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.observers = append(q.observers, observer)
}

// Enqueue replaces the queue contents with four work items per product.
// It fails with ErrQueueBusy while a run is active or a paused run still
// holds items; call Reset first to discard them.
func (q *Queue) Enqueue(changes []domain.ProductPriceChange) error {
	if len(changes) == 0 {
		return &domain.ValidationError{Field: "products", Message: "at least one product is required"}
	}
	for i, c := range changes {
		if err := validateChange(i, c); err != nil {
			return err
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running || len(q.pending) > 0 {
		return domain.ErrQueueBusy
	}

	q.resetLocked()
	for _, c := range changes {
		q.items = append(q.items, buildItems(c)...)
	}
	q.pending = append(q.pending, q.items...)
	q.total = len(q.items)
	q.metrics.SetPriceQueuePending(len(q.pending))

	q.logger.Info("Price updates enqueued",
		"products", len(changes),
		"workItems", q.total,
	)
	return nil
}

// validateChange rejects products whose option or variant steps would send
// empty values upstream.
func validateChange(i int, c domain.ProductPriceChange) error {
	if c.ProductNo <= 0 {
		return &domain.ValidationError{Field: fmt.Sprintf("products[%d].product_no", i), Message: "must be positive"}
	}
	if strings.TrimSpace(c.OptionName) == "" {
		return &domain.ValidationError{Field: fmt.Sprintf("products[%d].option_name", i), Message: "is required"}
	}
	for j, v := range c.Variants {
		if strings.TrimSpace(v.VariantCode) == "" {
			return &domain.ValidationError{Field: fmt.Sprintf("products[%d].variants[%d].variant_code", i, j), Message: "is required"}
		}
	}
	return nil
}

// Start begins draining the queue in a background goroutine. ctx bounds the
// whole run; use Stop for a resumable pause.
func (q *Queue) Start(ctx context.Context) error {
	return q.start(ctx, false)
}

// Resume continues a stopped run over the remaining items.
func (q *Queue) Resume(ctx context.Context) error {
	return q.start(ctx, true)
}

func (q *Queue) start(ctx context.Context, resumed bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return domain.ErrQueueBusy
	}
	if len(q.pending) == 0 {
		return domain.ErrQueueEmpty
	}

	q.running = true
	q.stopRequested = false
	q.startedAt = q.clock.Now()
	q.done = make(chan struct{})

	q.logger.WithContext(ctx).Info("Price queue started",
		"resumed", resumed,
		"pending", len(q.pending),
		"total", q.total,
	)

	go q.run(ctx, q.done)
	return nil
}

// Stop asks the worker to exit after the item in flight. Progress and the
// remaining items are kept for Resume.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		q.stopRequested = true
	}
}

// Reset discards all items and progress. It fails with ErrQueueBusy while
// a run is active.
func (q *Queue) Reset() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return domain.ErrQueueBusy
	}
	q.resetLocked()
	q.metrics.SetPriceQueuePending(0)
	return nil
}

func (q *Queue) resetLocked() {
	q.pending = nil
	q.items = nil
	q.total = 0
	q.completed = 0
	q.failed = 0
	q.errors = nil
	q.currentEntity = ""
	q.currentStep = ""
	q.elapsed = 0
}

// Done returns a channel closed when the current (or last) run ends.
func (q *Queue) Done() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}

// Running reports whether the worker is active
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Progress returns the current snapshot
func (q *Queue) Progress() domain.ProgressSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Items returns copies of all work items in enqueue order.
func (q *Queue) Items() []domain.WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.WorkItem, len(q.items))
	for i, item := range q.items {
		out[i] = *item
	}
	return out
}

func (q *Queue) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for q.processNext(ctx) {
	}

	q.mu.Lock()
	q.running = false
	stopped := len(q.pending) > 0
	q.elapsed += q.clock.Since(q.startedAt)
	q.currentEntity = ""
	q.currentStep = ""
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snapshot)

	log := q.logger.WithContext(ctx)
	if stopped {
		log.Info("Price queue stopped",
			"completed", snapshot.Completed,
			"failed", snapshot.Failed,
			"pending", snapshot.Pending,
		)
		return
	}
	log.Info("Price queue finished",
		"total", snapshot.Total,
		"completed", snapshot.Completed,
		"failed", snapshot.Failed,
		"elapsedMs", q.elapsedMs(),
	)
}

// processNext handles one work item and reports whether the loop should
// continue.
func (q *Queue) processNext(ctx context.Context) bool {
	if !q.shouldContinue() {
		return false
	}
	if err := q.limiter.Wait(ctx); err != nil {
		return false
	}

	q.mu.Lock()
	if q.stopRequested || len(q.pending) == 0 {
		q.mu.Unlock()
		return false
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	item.Status = domain.WorkItemProcessing
	q.currentEntity = item.EntityLabel
	q.currentStep = item.StepLabel
	q.mu.Unlock()

	err := q.execute(ctx, item)

	q.mu.Lock()
	retry := false
	switch {
	case err == nil:
		item.Status = domain.WorkItemCompleted
		item.LastError = ""
		q.completed++
	case item.RetryCount < q.config.MaxRetries:
		item.RetryCount++
		item.Status = domain.WorkItemRetrying
		item.LastError = err.Error()
		q.pending = append([]*domain.WorkItem{item}, q.pending...)
		retry = true
	default:
		item.Status = domain.WorkItemFailed
		item.LastError = err.Error()
		q.failed++
		q.errors = append(q.errors, domain.ItemError{
			EntityLabel:  item.EntityLabel,
			StepLabel:    item.StepLabel,
			ErrorMessage: err.Error(),
			Timestamp:    q.clock.Now(),
		})
	}
	attempt := *item
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.metrics.SetPriceQueuePending(snapshot.Pending)
	q.notify(snapshot)

	log := q.logger.WithContext(ctx).WithFields(map[string]any{
		"itemId":    attempt.ID,
		"productNo": attempt.ProductNo,
		"step":      attempt.Step,
	})
	switch attempt.Status {
	case domain.WorkItemCompleted:
		q.metrics.RecordPriceQueueItem(string(attempt.Step), string(attempt.Status))
		log.Debug("Price queue item completed", "retries", attempt.RetryCount)
	case domain.WorkItemFailed:
		q.metrics.RecordPriceQueueItem(string(attempt.Step), string(attempt.Status))
		log.WithError(err).Error("Price queue item failed", "retries", attempt.RetryCount)
	}

	if !retry {
		return true
	}

	delay := resilience.ExponentialDelay(q.config.BackoffUnit, attempt.RetryCount)
	q.metrics.RecordPriceQueueRetry(string(attempt.Step))
	log.WithError(err).Warn("Price queue item will be retried",
		"retry", attempt.RetryCount,
		"maxRetries", q.config.MaxRetries,
		"delayMs", delay.Milliseconds(),
	)

	select {
	case <-q.clock.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *Queue) shouldContinue() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.stopRequested && len(q.pending) > 0
}

func (q *Queue) execute(ctx context.Context, item *domain.WorkItem) error {
	handler, ok := q.handlers[item.Step]
	if !ok {
		return fmt.Errorf("no handler for step %q", item.Step)
	}
	return handler(ctx, q.updater, item)
}

func (q *Queue) notify(snapshot domain.ProgressSnapshot) {
	q.mu.Lock()
	observers := append([]domain.ProgressObserver(nil), q.observers...)
	q.mu.Unlock()

	for _, o := range observers {
		o.OnProgress(snapshot)
	}
}

func (q *Queue) elapsedMs() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.elapsed.Milliseconds()
}

// activeElapsedLocked is the processing time across all runs so far.
func (q *Queue) activeElapsedLocked() time.Duration {
	if q.running {
		return q.elapsed + q.clock.Since(q.startedAt)
	}
	return q.elapsed
}

func (q *Queue) snapshotLocked() domain.ProgressSnapshot {
	snapshot := domain.ProgressSnapshot{
		Total:         q.total,
		Completed:     q.completed,
		Failed:        q.failed,
		CurrentEntity: q.currentEntity,
		CurrentStep:   q.currentStep,
		Errors:        append([]domain.ItemError{}, q.errors...),
		Running:       q.running,
		Pending:       len(q.pending),
	}

	if q.total > 0 {
		snapshot.Percentage = int(math.Round(float64(q.completed) / float64(q.total) * 100))
	}

	if q.completed > 0 {
		perItem := q.activeElapsedLocked().Minutes() / float64(q.completed)
		remaining := math.Round(float64(q.total-q.completed)*perItem*10) / 10
		snapshot.EstimatedRemainingMinutes = &remaining
	}

	return snapshot
}
