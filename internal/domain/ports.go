package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderSource lists marketplace orders
type OrderSource interface {
	ListOrders(ctx context.Context, query OrderQuery) (*OrderPage, error)
	// FetchAllOrders exhausts pagination for query.
	FetchAllOrders(ctx context.Context, query OrderQuery) ([]OrderRecord, error)
}

// ShipmentRegistrar submits tracking numbers in bulk
type ShipmentRegistrar interface {
	RegisterShipments(ctx context.Context, req BulkShipmentRequest) (*BulkShipmentResponse, error)
}

// ProductUpdater performs the remote product edits driven by the price queue
type ProductUpdater interface {
	UpdateProductPrice(ctx context.Context, productNo int, price decimal.Decimal) error
	UpdateProductOptions(ctx context.Context, productNo int, optionName string, values []string) error
	UpdateVariantAdditionalAmount(ctx context.Context, productNo int, variantCode string, amount decimal.Decimal) error
}

// TokenStore persists OAuth tokens
type TokenStore interface {
	Save(ctx context.Context, token *OAuthToken) error
	FindByMallID(ctx context.Context, mallID string) (*OAuthToken, error)
	Delete(ctx context.Context, mallID string) error
}

// TokenProvider hands out a valid access token
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// EventPublisher publishes business events. Publishing is best effort:
// callers log failures and carry on.
type EventPublisher interface {
	PublishShipmentsMatched(ctx context.Context, fileName string, result *MatchResult) error
	PublishShipmentsRegistered(ctx context.Context, summary RegistrationSummary) error
	PublishPriceUpdateStarted(ctx context.Context, productNos []int, workItems int) error
	PublishPriceUpdateFinished(ctx context.Context, snapshot ProgressSnapshot, stopped bool) error
}

// RegistrationSummary is the event-facing outcome of a registration run
type RegistrationSummary struct {
	Total               int
	Succeeded           int
	FailedOrderIDs      []string
	ShippingCompanyCode string
}
