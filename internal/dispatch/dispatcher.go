// Package dispatch registers matched tracking numbers with the marketplace in
// bulk.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/metrics"
)

// MaxBatchSize is the provider's limit on shipments per registration call.
const MaxBatchSize = 100

const operationRegister = "shipments.register"

// Config holds registration defaults
type Config struct {
	ShopNo             int
	DefaultCarrierCode string
	DefaultStatus      string
}

// FailedShipment is one item the provider did not accept
type FailedShipment struct {
	OrderID      string `json:"order_id"`
	TrackingNo   string `json:"tracking_no"`
	ErrorMessage string `json:"error_message"`
}

// Summary counts the outcome of one or more registration calls
type Summary struct {
	Total         int              `json:"total"`
	Succeeded     int              `json:"succeeded"`
	Failed        []FailedShipment `json:"failed"`
	Batches       int              `json:"batches"`
	FailedBatches int              `json:"failed_batches"`
}

// FailedCount returns the number of failed shipments
func (s *Summary) FailedCount() int {
	return len(s.Failed)
}

// Dispatcher submits assignments through a ShipmentRegistrar
type Dispatcher struct {
	registrar domain.ShipmentRegistrar
	config    Config
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(registrar domain.ShipmentRegistrar, cfg Config, logger *logging.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		registrar: registrar,
		config:    cfg,
		logger:    logger.WithComponent("dispatcher"),
		metrics:   m,
	}
}

// Dispatch registers one batch of at most MaxBatchSize assignments in a
// single call. It is not retried; a rejected call is returned as a
// *domain.RemoteCallError with the provider's details intact.
func (d *Dispatcher) Dispatch(ctx context.Context, batch []domain.MatchAssignment) (*Summary, error) {
	if len(batch) == 0 {
		return nil, &domain.ValidationError{Field: "assignments", Message: "at least one assignment is required"}
	}
	if len(batch) > MaxBatchSize {
		return nil, &domain.ValidationError{
			Field:   "assignments",
			Message: fmt.Sprintf("at most %d assignments per batch, got %d", MaxBatchSize, len(batch)),
		}
	}

	req := d.buildRequest(batch)
	start := time.Now()

	resp, err := d.registrar.RegisterShipments(ctx, req)
	if err != nil {
		d.metrics.RecordDispatchBatch(0, len(batch), time.Since(start))
		return nil, asRemoteCallError(err)
	}

	summary := &Summary{
		Total:     len(batch),
		Succeeded: len(resp.Shipments),
		Failed:    make([]FailedShipment, 0, len(resp.FailedOrders)),
		Batches:   1,
	}
	for _, rejected := range resp.FailedOrders {
		summary.Failed = append(summary.Failed, FailedShipment{
			OrderID:      rejected.OrderID,
			TrackingNo:   rejected.TrackingNo,
			ErrorMessage: rejected.ErrorMessage,
		})
	}

	d.metrics.RecordDispatchBatch(summary.Succeeded, summary.FailedCount(), time.Since(start))
	d.logger.WithContext(ctx).Info("Shipment batch registered",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.FailedCount(),
		"durationMs", time.Since(start).Milliseconds(),
	)

	return summary, nil
}

// DispatchAll splits assignments into batches of MaxBatchSize and dispatches
// them in order. A failed batch marks each of its items failed with the
// batch error and the remaining batches still run.
func (d *Dispatcher) DispatchAll(ctx context.Context, assignments []domain.MatchAssignment) (*Summary, error) {
	if len(assignments) == 0 {
		return nil, &domain.ValidationError{Field: "assignments", Message: "at least one assignment is required"}
	}

	total := &Summary{
		Total:  len(assignments),
		Failed: make([]FailedShipment, 0),
	}
	start := time.Now()
	defer func() {
		d.logger.Performance(ctx, "shipments.dispatch_all", time.Since(start), ctx.Err() == nil && total.FailedBatches == 0, map[string]any{
			"total":     total.Total,
			"succeeded": total.Succeeded,
			"failed":    total.FailedCount(),
			"batches":   total.Batches,
		})
	}()

	for start := 0; start < len(assignments); start += MaxBatchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		end := start + MaxBatchSize
		if end > len(assignments) {
			end = len(assignments)
		}
		batch := assignments[start:end]
		total.Batches++

		summary, err := d.Dispatch(ctx, batch)
		if err != nil {
			total.FailedBatches++
			d.logger.WithContext(ctx).WithError(err).Error("Shipment batch failed",
				"batch", total.Batches,
				"size", len(batch),
			)
			for _, a := range batch {
				total.Failed = append(total.Failed, FailedShipment{
					OrderID:      a.OrderID,
					TrackingNo:   a.TrackingNo,
					ErrorMessage: err.Error(),
				})
			}
			continue
		}

		total.Succeeded += summary.Succeeded
		total.Failed = append(total.Failed, summary.Failed...)
	}

	return total, nil
}

func (d *Dispatcher) buildRequest(batch []domain.MatchAssignment) domain.BulkShipmentRequest {
	shipments := make([]domain.ShipmentRegistration, 0, len(batch))
	for _, a := range batch {
		carrier := a.ShippingCompanyCode
		if carrier == "" {
			carrier = d.config.DefaultCarrierCode
		}
		status := a.Status
		if status == "" {
			status = d.config.DefaultStatus
		}
		shipments = append(shipments, domain.ShipmentRegistration{
			OrderID:             a.OrderID,
			TrackingNo:          a.TrackingNo,
			ShippingCompanyCode: carrier,
			Status:              status,
		})
	}
	return domain.BulkShipmentRequest{ShopNo: d.config.ShopNo, Shipments: shipments}
}

func asRemoteCallError(err error) error {
	var remote *domain.RemoteCallError
	if errors.As(err, &remote) {
		return err
	}
	return &domain.RemoteCallError{Operation: operationRegister, Err: err}
}
