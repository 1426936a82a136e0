package domain

import "time"

// OrderStatus is a Cafe24 order status code
type OrderStatus string

const (
	OrderStatusAwaitingPayment   OrderStatus = "N00"
	OrderStatusPreparing         OrderStatus = "N10"
	OrderStatusReadyToShip       OrderStatus = "N20"
	OrderStatusAwaitingDispatch  OrderStatus = "N21"
	OrderStatusShippingOnHold    OrderStatus = "N22"
	OrderStatusShipping          OrderStatus = "N30"
	OrderStatusDelivered         OrderStatus = "N40"
	OrderStatusCancelRequested   OrderStatus = "C00"
	OrderStatusCancelled         OrderStatus = "C40"
	OrderStatusReturnRequested   OrderStatus = "R00"
	OrderStatusReturned          OrderStatus = "R40"
	OrderStatusExchangeRequested OrderStatus = "E00"
	OrderStatusExchanged         OrderStatus = "E40"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusAwaitingPayment:   "입금전",
	OrderStatusPreparing:         "상품준비중",
	OrderStatusReadyToShip:       "배송준비중",
	OrderStatusAwaitingDispatch:  "배송대기",
	OrderStatusShippingOnHold:    "배송보류",
	OrderStatusShipping:          "배송중",
	OrderStatusDelivered:         "배송완료",
	OrderStatusCancelRequested:   "취소신청",
	OrderStatusCancelled:         "취소완료",
	OrderStatusReturnRequested:   "반품신청",
	OrderStatusReturned:          "반품완료",
	OrderStatusExchangeRequested: "교환신청",
	OrderStatusExchanged:         "교환완료",
}

// Label returns the Korean display label, or the raw code when unknown
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// DefaultShippableStatuses are the statuses an order can have while it is
// still waiting for a tracking number.
var DefaultShippableStatuses = []OrderStatus{
	OrderStatusPreparing,
	OrderStatusReadyToShip,
	OrderStatusAwaitingDispatch,
}

// OrderRecord is a read-only snapshot of a marketplace order and its receiver
type OrderRecord struct {
	OrderID         string      `json:"order_id"`
	ReceiverName    string      `json:"receiver_name"`
	ReceiverPhone   string      `json:"receiver_phone"`
	ReceiverAddress string      `json:"receiver_address"`
	OrderStatus     OrderStatus `json:"order_status"`
}

// OrderQuery selects orders for one matching session
type OrderQuery struct {
	StartDate time.Time
	EndDate   time.Time
	Statuses  []OrderStatus
	Limit     int
	Offset    int
}

// OrderPage is one page of an order listing
type OrderPage struct {
	Orders  []OrderRecord
	HasNext bool
}
