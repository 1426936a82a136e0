package application

import (
	"github.com/shopops/backoffice/internal/dispatch"
	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/internal/ingestion"
)

// ToMatchReportDTO combines the parse result and the matcher output
func ToMatchReportDTO(sessionID string, parsed *ingestion.Result, ordersFetched int, result *domain.MatchResult) *MatchReportDTO {
	return &MatchReportDTO{
		SessionID:     sessionID,
		FileName:      parsed.FileName,
		Columns:       parsed.Columns,
		TotalRows:     parsed.TotalRows,
		SkippedEmpty:  parsed.SkippedEmpty,
		Duplicates:    parsed.Duplicates,
		OrdersFetched: ordersFetched,
		Assignments:   result.Assignments,
		Failures:      result.Failures,
		Stats:         result.Stats,
	}
}

func ToDispatchSummaryDTO(summary *dispatch.Summary) *DispatchSummaryDTO {
	failed := summary.Failed
	if failed == nil {
		failed = []dispatch.FailedShipment{}
	}
	return &DispatchSummaryDTO{
		Total:         summary.Total,
		Succeeded:     summary.Succeeded,
		Failed:        failed,
		Batches:       summary.Batches,
		FailedBatches: summary.FailedBatches,
	}
}

func toRegistrationSummary(summary *dispatch.Summary, carrierCode string) domain.RegistrationSummary {
	ids := make([]string, 0, len(summary.Failed))
	for _, f := range summary.Failed {
		ids = append(ids, f.OrderID)
	}
	return domain.RegistrationSummary{
		Total:               summary.Total,
		Succeeded:           summary.Succeeded,
		FailedOrderIDs:      ids,
		ShippingCompanyCode: carrierCode,
	}
}
