package domain

// ShipmentRow is one carrier spreadsheet row after header detection
type ShipmentRow struct {
	TrackingNo      string `json:"tracking_no"`
	ReceiverName    string `json:"receiver_name"`
	ReceiverPhone   string `json:"receiver_phone"`
	ReceiverZipcode string `json:"receiver_zipcode"`
	ReceiverAddress string `json:"receiver_address"`
	SourceRow       int    `json:"source_row"`
}

// MatchType grades how strongly a row was tied to its order
type MatchType string

const (
	MatchTypeExact   MatchType = "exact"
	MatchTypePartial MatchType = "partial"
)

// MatchMethod names the tier that produced an assignment
type MatchMethod string

const (
	MethodName                MatchMethod = "name"
	MethodNameAddress         MatchMethod = "name+address"
	MethodPhone               MatchMethod = "phone"
	MethodAddress             MatchMethod = "address"
	MethodEnhancedName        MatchMethod = "enhanced-name"
	MethodEnhancedNameAddress MatchMethod = "enhanced-name+address"
)

// MatchAssignment ties one tracking number to one order
type MatchAssignment struct {
	OrderID         string      `json:"order_id" binding:"required"`
	ReceiverName    string      `json:"receiver_name"`
	ReceiverAddress string      `json:"receiver_address"`
	TrackingNo      string      `json:"tracking_no" binding:"required,tracking_no"`
	MatchType       MatchType   `json:"match_type"`
	Method          MatchMethod `json:"method,omitempty"`
	SourceRow       int         `json:"source_row,omitempty"`

	// Optional per-item overrides of the dispatcher defaults.
	ShippingCompanyCode string `json:"shipping_company_code,omitempty"`
	Status              string `json:"status,omitempty"`
}

// FailureKind classifies an unresolved row
type FailureKind string

const (
	// FailureNoMatch means no tier found any candidate.
	FailureNoMatch FailureKind = "no_match"
	// FailureAmbiguous means some tier found several candidates it could not narrow.
	FailureAmbiguous FailureKind = "ambiguous"
)

// MatchFailure records a shipment row the matcher left unassigned
type MatchFailure struct {
	SourceRow             int         `json:"source_row"`
	TrackingNo            string      `json:"tracking_no"`
	ShipmentName          string      `json:"shipment_name"`
	ShipmentPhone         string      `json:"shipment_phone"`
	ShipmentAddress       string      `json:"shipment_address"`
	Kind                  FailureKind `json:"kind"`
	Reason                string      `json:"reason"`
	PossibleSplitOrderIDs []string    `json:"possible_split_order_ids"`
}

// MatchStats summarises one matcher run
type MatchStats struct {
	Total    int                 `json:"total"`
	Matched  int                 `json:"matched"`
	Failed   int                 `json:"failed"`
	ByMethod map[MatchMethod]int `json:"by_method"`
}

// MatchResult is the outcome of one matcher run
type MatchResult struct {
	Assignments []MatchAssignment `json:"assignments"`
	Failures    []MatchFailure    `json:"failures"`
	Stats       MatchStats        `json:"stats"`
}

// ShipmentRegistration is one entry of a bulk registration payload
type ShipmentRegistration struct {
	OrderID             string `json:"order_id"`
	TrackingNo          string `json:"tracking_no"`
	ShippingCompanyCode string `json:"shipping_company_code"`
	Status              string `json:"status"`
}

// BulkShipmentRequest is the bulk shipment registration payload
type BulkShipmentRequest struct {
	ShopNo    int                    `json:"shop_no"`
	Shipments []ShipmentRegistration `json:"shipments"`
}

// RegisteredShipment is a shipment the provider accepted
type RegisteredShipment struct {
	OrderID      string `json:"order_id"`
	TrackingNo   string `json:"tracking_no"`
	ShippingCode string `json:"shipping_code,omitempty"`
}

// RejectedShipment is a per-item failure reported inside a 2xx response
type RejectedShipment struct {
	OrderID      string `json:"order_id"`
	TrackingNo   string `json:"tracking_no"`
	ErrorMessage string `json:"error_message"`
}

// BulkShipmentResponse is the provider's reply to a bulk registration
type BulkShipmentResponse struct {
	Shipments    []RegisteredShipment `json:"shipments"`
	FailedOrders []RejectedShipment   `json:"failed_orders,omitempty"`
}
