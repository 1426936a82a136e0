package cloudevents

import (
	"time"
)

// Event types published by the back-office
const (
	ShipmentsRegistered = "backoffice.shipments.registered"
	ShipmentsMatched    = "backoffice.shipments.matched"
	PriceUpdateStarted  = "backoffice.prices.update-started"
	PriceUpdateFinished = "backoffice.prices.update-finished"
)

// Event sources
const (
	SourceShipping = "/backoffice/shipping"
	SourceCatalog  = "/backoffice/catalog"
)

// BackofficeEvent represents a CloudEvents v1.0 compliant event
type BackofficeEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Extensions
	MallID        string `json:"mallid,omitempty"`
	CorrelationID string `json:"correlationid,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
	TraceState    string `json:"tracestate,omitempty"`
}

// ShipmentsMatchedData is the payload of ShipmentsMatched
type ShipmentsMatchedData struct {
	FileName  string         `json:"fileName"`
	Rows      int            `json:"rows"`
	Matched   int            `json:"matched"`
	Failed    int            `json:"failed"`
	ByMethod  map[string]int `json:"byMethod"`
	MatchedAt time.Time      `json:"matchedAt"`
}

// ShipmentsRegisteredData is the payload of ShipmentsRegistered
type ShipmentsRegisteredData struct {
	Total           int       `json:"total"`
	Succeeded       int       `json:"succeeded"`
	Failed          int       `json:"failed"`
	FailedOrderIDs  []string  `json:"failedOrderIds,omitempty"`
	ShippingCompany string    `json:"shippingCompanyCode"`
	RegisteredAt    time.Time `json:"registeredAt"`
}

// PriceUpdateStartedData is the payload of PriceUpdateStarted
type PriceUpdateStartedData struct {
	Products   int       `json:"products"`
	WorkItems  int       `json:"workItems"`
	StartedAt  time.Time `json:"startedAt"`
	ProductNos []int     `json:"productNos"`
}

// PriceUpdateFinishedData is the payload of PriceUpdateFinished
type PriceUpdateFinishedData struct {
	Total      int       `json:"total"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Stopped    bool      `json:"stopped"`
	FinishedAt time.Time `json:"finishedAt"`
}
