package cafe24

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/resilience"
)

const (
	operationListOrders = "orders.list"

	// DefaultOrderPageSize is the page size used when the query sets none
	DefaultOrderPageSize = 500
	dateLayout           = "2006-01-02"
)

type ordersResponse struct {
	Orders []orderPayload `json:"orders"`
}

type orderPayload struct {
	OrderID     string            `json:"order_id"`
	OrderStatus string            `json:"order_status"`
	Items       []itemPayload     `json:"items"`
	Receivers   []receiverPayload `json:"receivers"`
}

type itemPayload struct {
	OrderStatus string `json:"order_status"`
}

type receiverPayload struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Cellphone   string `json:"cellphone"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	AddressFull string `json:"address_full"`
}

// ListOrders returns one page of orders with their receivers embedded
func (c *Client) ListOrders(ctx context.Context, query domain.OrderQuery) (*domain.OrderPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultOrderPageSize
	}

	params := url.Values{}
	params.Set("shop_no", strconv.Itoa(c.cfg.ShopNo))
	params.Set("embed", "receivers")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(query.Offset))
	if !query.StartDate.IsZero() {
		params.Set("start_date", query.StartDate.Format(dateLayout))
	}
	if !query.EndDate.IsZero() {
		params.Set("end_date", query.EndDate.Format(dateLayout))
	}
	if len(query.Statuses) > 0 {
		codes := make([]string, len(query.Statuses))
		for i, s := range query.Statuses {
			codes[i] = string(s)
		}
		params.Set("order_status", strings.Join(codes, ","))
	}

	var resp ordersResponse
	if err := c.call(ctx, operationListOrders, http.MethodGet, "/admin/orders", params, nil, &resp); err != nil {
		return nil, err
	}

	page := &domain.OrderPage{
		Orders:  make([]domain.OrderRecord, 0, len(resp.Orders)),
		HasNext: len(resp.Orders) >= limit,
	}
	for _, o := range resp.Orders {
		page.Orders = append(page.Orders, toOrderRecord(o))
	}
	return page, nil
}

// FetchAllOrders walks every page of query. Each page is retried on
// temporary failures since listing is idempotent.
func (c *Client) FetchAllOrders(ctx context.Context, query domain.OrderQuery) ([]domain.OrderRecord, error) {
	if query.Limit <= 0 {
		query.Limit = DefaultOrderPageSize
	}
	query.Offset = 0

	var orders []domain.OrderRecord
	for {
		page, err := resilience.RetryWithResult(ctx, c.retry, func() (*domain.OrderPage, error) {
			return c.ListOrders(ctx, query)
		})
		if err != nil {
			return nil, err
		}

		orders = append(orders, page.Orders...)
		if !page.HasNext || len(page.Orders) == 0 {
			break
		}
		query.Offset += query.Limit
	}

	c.logger.Info("Fetched orders",
		"count", len(orders),
		"start_date", query.StartDate.Format(dateLayout),
		"end_date", query.EndDate.Format(dateLayout),
	)
	return orders, nil
}

func toOrderRecord(o orderPayload) domain.OrderRecord {
	record := domain.OrderRecord{
		OrderID:     o.OrderID,
		OrderStatus: domain.OrderStatus(o.OrderStatus),
	}
	if record.OrderStatus == "" && len(o.Items) > 0 {
		record.OrderStatus = domain.OrderStatus(o.Items[0].OrderStatus)
	}

	if len(o.Receivers) == 0 {
		return record
	}
	r := o.Receivers[0]
	record.ReceiverName = r.Name
	record.ReceiverPhone = r.Cellphone
	if record.ReceiverPhone == "" {
		record.ReceiverPhone = r.Phone
	}
	record.ReceiverAddress = r.AddressFull
	if record.ReceiverAddress == "" {
		record.ReceiverAddress = strings.TrimSpace(r.Address1 + " " + r.Address2)
	}
	return record
}
