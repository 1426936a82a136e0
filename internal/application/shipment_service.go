package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/shopops/backoffice/internal/dispatch"
	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/internal/ingestion"
	"github.com/shopops/backoffice/internal/matching"
	"github.com/shopops/backoffice/pkg/logging"
)

// ShipmentServiceConfig holds the defaults of the shipment use cases
type ShipmentServiceConfig struct {
	OrderStatuses []domain.OrderStatus
	CarrierCode   string
}

// ShipmentService handles the upload, match and registration use cases
type ShipmentService struct {
	parser     *ingestion.Parser
	orders     domain.OrderSource
	matcher    *matching.Matcher
	dispatcher *dispatch.Dispatcher
	events     domain.EventPublisher
	config     ShipmentServiceConfig
	logger     *logging.Logger
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(
	parser *ingestion.Parser,
	orders domain.OrderSource,
	matcher *matching.Matcher,
	dispatcher *dispatch.Dispatcher,
	events domain.EventPublisher,
	config ShipmentServiceConfig,
	logger *logging.Logger,
) *ShipmentService {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(config.OrderStatuses) == 0 {
		config.OrderStatuses = domain.DefaultShippableStatuses
	}
	return &ShipmentService{
		parser:     parser,
		orders:     orders,
		matcher:    matcher,
		dispatcher: dispatcher,
		events:     events,
		config:     config,
		logger:     logger.WithComponent("shipment-service"),
	}
}

// MatchUpload reads a carrier spreadsheet, loads every order of the window
// and matches the two. Rows that cannot be matched are reported, not failed.
func (s *ShipmentService) MatchUpload(ctx context.Context, cmd MatchUploadCommand) (*MatchReportDTO, error) {
	if cmd.StartDate.IsZero() || cmd.EndDate.IsZero() {
		return nil, &domain.ValidationError{Field: "startDate", Message: "start and end dates are required"}
	}
	if cmd.EndDate.Before(cmd.StartDate) {
		return nil, &domain.ValidationError{Field: "endDate", Message: "end date is before start date"}
	}

	sessionID := uuid.NewString()
	op := s.logger.WithOperation("match_upload").WithFields(map[string]any{"sessionId": sessionID, "fileName": cmd.FileName})
	logger := op.WithContext(ctx)

	parsed, err := s.parser.Parse(ctx, cmd.FileName, cmd.File)
	if err != nil {
		logger.WithError(err).Warn("Failed to read upload")
		return nil, fmt.Errorf("failed to read %s: %w", cmd.FileName, err)
	}

	statuses := cmd.Statuses
	if len(statuses) == 0 {
		statuses = s.config.OrderStatuses
	}

	orders, err := s.orders.FetchAllOrders(ctx, domain.OrderQuery{
		StartDate: cmd.StartDate,
		EndDate:   cmd.EndDate,
		Statuses:  statuses,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to fetch orders")
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}

	matchStart := time.Now()
	result := s.matcher.Match(orders, parsed.Rows)
	op.Performance(ctx, "shipments.match", time.Since(matchStart), true, map[string]any{
		"rows":   len(parsed.Rows),
		"orders": len(orders),
	})

	if err := s.events.PublishShipmentsMatched(ctx, cmd.FileName, result); err != nil {
		logger.WithError(err).Warn("Failed to publish match event")
	}

	logger.Info("Matched upload",
		"rows", len(parsed.Rows),
		"orders", len(orders),
		"matched", result.Stats.Matched,
		"failed", result.Stats.Failed,
	)
	return ToMatchReportDTO(sessionID, parsed, len(orders), result), nil
}

// RegisterTracking registers assignments in batches. A failed batch does not
// stop the run; its items come back in Failed. When ctx ends midway the
// batches already registered are returned along with the error.
func (s *ShipmentService) RegisterTracking(ctx context.Context, cmd RegisterTrackingCommand) (*DispatchSummaryDTO, error) {
	op := s.logger.WithOperation("register_tracking")
	logger := op.WithContext(ctx)

	summary, err := s.dispatcher.DispatchAll(ctx, cmd.Assignments)
	if summary == nil {
		return nil, err
	}
	if err != nil {
		logger.WithError(err).Warn("Registration interrupted",
			"total", summary.Total,
			"succeeded", summary.Succeeded,
			"failed", summary.FailedCount(),
			"batches", summary.Batches,
		)
		// The registered part still happened upstream.
		ctx = context.WithoutCancel(ctx)
	}

	registration := toRegistrationSummary(summary, s.config.CarrierCode)
	if pubErr := s.events.PublishShipmentsRegistered(ctx, registration); pubErr != nil {
		logger.WithError(pubErr).Warn("Failed to publish registration event")
	}
	op.Event(ctx, "shipments.registered", map[string]any{
		"total":     registration.Total,
		"succeeded": registration.Succeeded,
		"failed":    len(registration.FailedOrderIDs),
	})
	return ToDispatchSummaryDTO(summary), err
}

// ExportFailures writes failed registrations as CSV
func (s *ShipmentService) ExportFailures(w io.Writer, failed []dispatch.FailedShipment) error {
	return dispatch.WriteFailuresCSV(w, failed)
}
