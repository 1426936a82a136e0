package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/cloudevents"
	"github.com/shopops/backoffice/pkg/kafka"
	"github.com/shopops/backoffice/pkg/logging"
)

type recordingWriter struct {
	mu       sync.Mutex
	topic    string
	messages []kafkago.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type writers struct {
	mu     sync.Mutex
	topics map[string]*recordingWriter
	err    error
}

func (w *writers) factory(topic string) kafka.MessageWriter {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.topics == nil {
		w.topics = map[string]*recordingWriter{}
	}
	writer := &recordingWriter{topic: topic, err: w.err}
	w.topics[topic] = writer
	return writer
}

func decode(t *testing.T, msg kafkago.Message) (cloudevents.BackofficeEvent, map[string]any) {
	t.Helper()
	var event cloudevents.BackofficeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	data, ok := event.Data.(map[string]any)
	require.True(t, ok)
	return event, data
}

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_ShipmentEvents(t *testing.T) {
	w := &writers{}
	producer := kafka.NewProducerWithWriter(kafka.DefaultConfig(), w.factory)
	publisher := NewKafkaPublisher(producer, "teashop", nil, nil)
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")

	err := publisher.PublishShipmentsMatched(ctx, "cj-0301.xlsx", &domain.MatchResult{
		Stats: domain.MatchStats{Total: 10, Matched: 8, Failed: 2, ByMethod: map[domain.MatchMethod]int{domain.MethodName: 6, domain.MethodPhone: 2}},
	})
	require.NoError(t, err)

	err = publisher.PublishShipmentsRegistered(ctx, domain.RegistrationSummary{
		Total:               8,
		Succeeded:           7,
		FailedOrderIDs:      []string{"O-3"},
		ShippingCompanyCode: "0006",
	})
	require.NoError(t, err)

	writer := w.topics[kafka.Topics.ShippingEvents]
	require.NotNil(t, writer)
	require.Len(t, writer.messages, 2)

	matched, data := decode(t, writer.messages[0])
	assert.Equal(t, cloudevents.ShipmentsMatched, matched.Type)
	assert.Equal(t, cloudevents.SourceShipping, matched.Source)
	assert.Equal(t, "teashop", matched.MallID)
	assert.Equal(t, "corr-1", matched.CorrelationID)
	assert.Equal(t, "upload/cj-0301.xlsx", matched.Subject)
	assert.Equal(t, float64(8), data["matched"])
	assert.Equal(t, map[string]any{"name": float64(6), "phone": float64(2)}, data["byMethod"])
	assert.Equal(t, cloudevents.ShipmentsMatched, header(writer.messages[0], "ce-type"))

	registered, data := decode(t, writer.messages[1])
	assert.Equal(t, cloudevents.ShipmentsRegistered, registered.Type)
	assert.Equal(t, float64(1), data["failed"])
	assert.Equal(t, []any{"O-3"}, data["failedOrderIds"])
	assert.Equal(t, "0006", data["shippingCompanyCode"])
}

func TestKafkaPublisher_PriceEvents(t *testing.T) {
	w := &writers{}
	producer := kafka.NewProducerWithWriter(kafka.DefaultConfig(), w.factory)
	publisher := NewKafkaPublisher(producer, "teashop", nil, nil)
	ctx := context.Background()

	require.NoError(t, publisher.PublishPriceUpdateStarted(ctx, []int{42, 43}, 8))
	require.NoError(t, publisher.PublishPriceUpdateFinished(ctx, domain.ProgressSnapshot{Total: 8, Completed: 7, Failed: 1}, false))

	writer := w.topics[kafka.Topics.CatalogEvents]
	require.NotNil(t, writer)
	require.Len(t, writer.messages, 2)

	started, data := decode(t, writer.messages[0])
	assert.Equal(t, cloudevents.PriceUpdateStarted, started.Type)
	assert.Equal(t, cloudevents.SourceCatalog, started.Source)
	assert.Equal(t, float64(2), data["products"])
	assert.Equal(t, float64(8), data["workItems"])

	finished, data := decode(t, writer.messages[1])
	assert.Equal(t, cloudevents.PriceUpdateFinished, finished.Type)
	assert.Equal(t, float64(7), data["completed"])
	assert.Equal(t, false, data["stopped"])
	assert.Empty(t, finished.CorrelationID)
}

func TestKafkaPublisher_WrapsWriteFailure(t *testing.T) {
	cause := errors.New("broker unreachable")
	w := &writers{err: cause}
	producer := kafka.NewProducerWithWriter(kafka.DefaultConfig(), w.factory)
	publisher := NewKafkaPublisher(producer, "teashop", nil, nil)

	err := publisher.PublishPriceUpdateStarted(context.Background(), []int{1}, 4)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), cloudevents.PriceUpdateStarted)
}

func TestNoopPublisher(t *testing.T) {
	var publisher domain.EventPublisher = NoopPublisher{}
	ctx := context.Background()

	assert.NoError(t, publisher.PublishShipmentsMatched(ctx, "f.csv", &domain.MatchResult{}))
	assert.NoError(t, publisher.PublishShipmentsRegistered(ctx, domain.RegistrationSummary{}))
	assert.NoError(t, publisher.PublishPriceUpdateStarted(ctx, nil, 0))
	assert.NoError(t, publisher.PublishPriceUpdateFinished(ctx, domain.ProgressSnapshot{}, true))
}
