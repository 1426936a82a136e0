package events

import (
	"context"
	"fmt"
	"time"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/cloudevents"
	"github.com/shopops/backoffice/pkg/kafka"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/metrics"
)

// EventProducer is the part of the kafka producer the publisher uses
type EventProducer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.BackofficeEvent) error
}

// KafkaPublisher publishes business events as CloudEvents. It implements
// domain.EventPublisher.
type KafkaPublisher struct {
	producer EventProducer
	shipping *cloudevents.EventFactory
	catalog  *cloudevents.EventFactory
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

func NewKafkaPublisher(producer EventProducer, mallID string, logger *logging.Logger, m *metrics.Metrics) *KafkaPublisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &KafkaPublisher{
		producer: producer,
		shipping: cloudevents.NewEventFactory(cloudevents.SourceShipping, mallID),
		catalog:  cloudevents.NewEventFactory(cloudevents.SourceCatalog, mallID),
		logger:   logger.WithComponent("event-publisher"),
		metrics:  m,
	}
}

func (p *KafkaPublisher) PublishShipmentsMatched(ctx context.Context, fileName string, result *domain.MatchResult) error {
	byMethod := make(map[string]int, len(result.Stats.ByMethod))
	for method, n := range result.Stats.ByMethod {
		byMethod[string(method)] = n
	}

	event := p.shipping.CreateEventWithCorrelation(ctx, cloudevents.ShipmentsMatched, "upload/"+fileName, cloudevents.ShipmentsMatchedData{
		FileName:  fileName,
		Rows:      result.Stats.Total,
		Matched:   result.Stats.Matched,
		Failed:    result.Stats.Failed,
		ByMethod:  byMethod,
		MatchedAt: time.Now().UTC(),
	}, logging.CorrelationIDFrom(ctx))
	return p.publish(ctx, kafka.Topics.ShippingEvents, event)
}

func (p *KafkaPublisher) PublishShipmentsRegistered(ctx context.Context, summary domain.RegistrationSummary) error {
	event := p.shipping.CreateEventWithCorrelation(ctx, cloudevents.ShipmentsRegistered, "shipments", cloudevents.ShipmentsRegisteredData{
		Total:           summary.Total,
		Succeeded:       summary.Succeeded,
		Failed:          len(summary.FailedOrderIDs),
		FailedOrderIDs:  summary.FailedOrderIDs,
		ShippingCompany: summary.ShippingCompanyCode,
		RegisteredAt:    time.Now().UTC(),
	}, logging.CorrelationIDFrom(ctx))
	return p.publish(ctx, kafka.Topics.ShippingEvents, event)
}

func (p *KafkaPublisher) PublishPriceUpdateStarted(ctx context.Context, productNos []int, workItems int) error {
	event := p.catalog.CreateEventWithCorrelation(ctx, cloudevents.PriceUpdateStarted, "price-update", cloudevents.PriceUpdateStartedData{
		Products:   len(productNos),
		WorkItems:  workItems,
		StartedAt:  time.Now().UTC(),
		ProductNos: productNos,
	}, logging.CorrelationIDFrom(ctx))
	return p.publish(ctx, kafka.Topics.CatalogEvents, event)
}

func (p *KafkaPublisher) PublishPriceUpdateFinished(ctx context.Context, snapshot domain.ProgressSnapshot, stopped bool) error {
	event := p.catalog.CreateEventWithCorrelation(ctx, cloudevents.PriceUpdateFinished, "price-update", cloudevents.PriceUpdateFinishedData{
		Total:      snapshot.Total,
		Completed:  snapshot.Completed,
		Failed:     snapshot.Failed,
		Stopped:    stopped,
		FinishedAt: time.Now().UTC(),
	}, logging.CorrelationIDFrom(ctx))
	return p.publish(ctx, kafka.Topics.CatalogEvents, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic string, event *cloudevents.BackofficeEvent) error {
	start := time.Now()
	err := p.producer.PublishEvent(ctx, topic, event)
	duration := time.Since(start)

	p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, duration)
	p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, duration)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// NoopPublisher drops every event. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishShipmentsMatched(context.Context, string, *domain.MatchResult) error {
	return nil
}

func (NoopPublisher) PublishShipmentsRegistered(context.Context, domain.RegistrationSummary) error {
	return nil
}

func (NoopPublisher) PublishPriceUpdateStarted(context.Context, []int, int) error {
	return nil
}

func (NoopPublisher) PublishPriceUpdateFinished(context.Context, domain.ProgressSnapshot, bool) error {
	return nil
}
