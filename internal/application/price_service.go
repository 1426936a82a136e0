package application

import (
	"context"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
)

// PriceQueue is the price update queue as seen by the service
type PriceQueue interface {
	Enqueue(changes []domain.ProductPriceChange) error
	Start(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop()
	Reset() error
	Done() <-chan struct{}
	Progress() domain.ProgressSnapshot
	Items() []domain.WorkItem
}

// PriceService controls bulk price update runs
type PriceService struct {
	queue  PriceQueue
	events domain.EventPublisher
	logger *logging.Logger
}

func NewPriceService(queue PriceQueue, events domain.EventPublisher, logger *logging.Logger) *PriceService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PriceService{
		queue:  queue,
		events: events,
		logger: logger.WithComponent("price-service"),
	}
}

// StartUpdate queues the products and starts the worker. The run outlives
// the request that started it.
func (s *PriceService) StartUpdate(ctx context.Context, cmd StartPriceUpdateCommand) (*PriceUpdateDTO, error) {
	if err := s.queue.Enqueue(cmd.Products); err != nil {
		return nil, err
	}

	runCtx := context.WithoutCancel(ctx)
	if err := s.queue.Start(runCtx); err != nil {
		return nil, err
	}
	s.watch(runCtx)

	progress := s.queue.Progress()
	productNos := make([]int, len(cmd.Products))
	for i, p := range cmd.Products {
		productNos[i] = p.ProductNo
	}
	op := s.logger.WithOperation("start_update")
	if err := s.events.PublishPriceUpdateStarted(ctx, productNos, progress.Total); err != nil {
		op.WithContext(ctx).WithError(err).Warn("Failed to publish price update start")
	}
	op.Event(ctx, "prices.update_started", map[string]any{
		"products":  len(cmd.Products),
		"workItems": progress.Total,
	})

	return &PriceUpdateDTO{
		Products:  len(cmd.Products),
		WorkItems: progress.Total,
		Progress:  progress,
	}, nil
}

// Stop pauses the run after the item in flight
func (s *PriceService) Stop() domain.ProgressSnapshot {
	s.queue.Stop()
	return s.queue.Progress()
}

// Resume continues a stopped run
func (s *PriceService) Resume(ctx context.Context) (domain.ProgressSnapshot, error) {
	runCtx := context.WithoutCancel(ctx)
	if err := s.queue.Resume(runCtx); err != nil {
		return domain.ProgressSnapshot{}, err
	}
	s.watch(runCtx)
	return s.queue.Progress(), nil
}

// Reset clears a finished or stopped run
func (s *PriceService) Reset() error {
	return s.queue.Reset()
}

func (s *PriceService) Progress() domain.ProgressSnapshot {
	return s.queue.Progress()
}

func (s *PriceService) Items() []domain.WorkItem {
	return s.queue.Items()
}

// watch publishes the finished event once the current run ends
func (s *PriceService) watch(ctx context.Context) {
	done := s.queue.Done()
	go func() {
		<-done
		snapshot := s.queue.Progress()
		stopped := snapshot.Pending > 0
		op := s.logger.WithOperation("price_run")
		if err := s.events.PublishPriceUpdateFinished(ctx, snapshot, stopped); err != nil {
			op.WithContext(ctx).WithError(err).Warn("Failed to publish price update finish")
		}
		op.Event(ctx, "prices.update_finished", map[string]any{
			"completed": snapshot.Completed,
			"failed":    snapshot.Failed,
			"pending":   snapshot.Pending,
			"stopped":   stopped,
		})
	}()
}
