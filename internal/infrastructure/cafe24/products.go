package cafe24

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

const (
	operationUpdatePrice   = "products.update_price"
	operationUpdateOptions = "products.update_options"
	operationUpdateVariant = "products.update_variant"
)

// envelope is the {shop_no, request} body the product endpoints expect
type envelope struct {
	ShopNo  int `json:"shop_no"`
	Request any `json:"request"`
}

type optionValue struct {
	OptionText string `json:"option_text"`
}

type productOption struct {
	OptionName  string        `json:"option_name"`
	OptionValue []optionValue `json:"option_value"`
}

// UpdateProductPrice sets the base selling price
func (c *Client) UpdateProductPrice(ctx context.Context, productNo int, price decimal.Decimal) error {
	body := envelope{
		ShopNo:  c.cfg.ShopNo,
		Request: map[string]string{"price": price.StringFixed(2)},
	}
	return c.call(ctx, operationUpdatePrice, http.MethodPut, fmt.Sprintf("/admin/products/%d", productNo), nil, body, nil)
}

// UpdateProductOptions replaces the option name and its value labels
func (c *Client) UpdateProductOptions(ctx context.Context, productNo int, optionName string, values []string) error {
	option := productOption{OptionName: optionName, OptionValue: make([]optionValue, len(values))}
	for i, v := range values {
		option.OptionValue[i] = optionValue{OptionText: v}
	}

	body := envelope{
		ShopNo:  c.cfg.ShopNo,
		Request: map[string]any{"options": []productOption{option}},
	}
	return c.call(ctx, operationUpdateOptions, http.MethodPut, fmt.Sprintf("/admin/products/%d/options", productNo), nil, body, nil)
}

// UpdateVariantAdditionalAmount sets the surcharge of one variant
func (c *Client) UpdateVariantAdditionalAmount(ctx context.Context, productNo int, variantCode string, amount decimal.Decimal) error {
	body := envelope{
		ShopNo:  c.cfg.ShopNo,
		Request: map[string]string{"additional_amount": amount.StringFixed(2)},
	}
	path := fmt.Sprintf("/admin/products/%d/variants/%s", productNo, url.PathEscape(variantCode))
	return c.call(ctx, operationUpdateVariant, http.MethodPut, path, nil, body, nil)
}
