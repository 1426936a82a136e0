package application

import (
	"io"
	"time"

	"github.com/shopops/backoffice/internal/domain"
)

// MatchUploadCommand carries one uploaded carrier spreadsheet and the order
// window to match it against
type MatchUploadCommand struct {
	FileName  string
	File      io.Reader
	StartDate time.Time
	EndDate   time.Time
	// Statuses overrides the configured order status filter when set
	Statuses []domain.OrderStatus
}

// RegisterTrackingCommand submits reviewed assignments to the marketplace
type RegisterTrackingCommand struct {
	Assignments []domain.MatchAssignment
}

// StartPriceUpdateCommand queues the price edits of several products
type StartPriceUpdateCommand struct {
	Products []domain.ProductPriceChange
}
