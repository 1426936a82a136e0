package application

import (
	"github.com/shopops/backoffice/internal/dispatch"
	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/internal/ingestion"
)

// MatchReportDTO is the outcome of one upload: what was read from the file,
// how many orders were considered and how every row was resolved
type MatchReportDTO struct {
	SessionID     string                   `json:"session_id"`
	FileName      string                   `json:"file_name"`
	Columns       ingestion.ColumnMap      `json:"columns"`
	TotalRows     int                      `json:"total_rows"`
	SkippedEmpty  int                      `json:"skipped_empty"`
	Duplicates    int                      `json:"duplicates"`
	OrdersFetched int                      `json:"orders_fetched"`
	Assignments   []domain.MatchAssignment `json:"assignments"`
	Failures      []domain.MatchFailure    `json:"failures"`
	Stats         domain.MatchStats        `json:"stats"`
}

// DispatchSummaryDTO reports a registration run
type DispatchSummaryDTO struct {
	Total         int                       `json:"total"`
	Succeeded     int                       `json:"succeeded"`
	Failed        []dispatch.FailedShipment `json:"failed"`
	Batches       int                       `json:"batches"`
	FailedBatches int                       `json:"failed_batches"`
}

// PriceUpdateDTO is returned when a price update run starts
type PriceUpdateDTO struct {
	Products  int                     `json:"products"`
	WorkItems int                     `json:"work_items"`
	Progress  domain.ProgressSnapshot `json:"progress"`
}
