package cafe24

import (
	"context"
	"net/http"

	"github.com/shopops/backoffice/internal/domain"
)

const operationRegisterShipments = "shipments.register"

// RegisterShipments submits one bulk shipment registration
func (c *Client) RegisterShipments(ctx context.Context, req domain.BulkShipmentRequest) (*domain.BulkShipmentResponse, error) {
	if req.ShopNo == 0 {
		req.ShopNo = c.cfg.ShopNo
	}

	var resp domain.BulkShipmentResponse
	if err := c.call(ctx, operationRegisterShipments, http.MethodPost, "/admin/shipments", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
