package pricequeue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopops/backoffice/internal/domain"
)

var errMissingPayload = errors.New("work item payload is incomplete")

// stepHandler performs the remote call for one work item.
type stepHandler func(ctx context.Context, updater domain.ProductUpdater, item *domain.WorkItem) error

var stepHandlers = map[domain.Step]stepHandler{
	domain.StepBasePrice: func(ctx context.Context, u domain.ProductUpdater, item *domain.WorkItem) error {
		if item.Payload.Price == nil {
			return errMissingPayload
		}
		return u.UpdateProductPrice(ctx, item.ProductNo, *item.Payload.Price)
	},
	domain.StepOptionLabels: func(ctx context.Context, u domain.ProductUpdater, item *domain.WorkItem) error {
		return u.UpdateProductOptions(ctx, item.ProductNo, item.Payload.OptionName, item.Payload.OptionValues)
	},
	domain.StepVariantAmount1: updateVariantAmount,
	domain.StepVariantAmount2: updateVariantAmount,
}

func updateVariantAmount(ctx context.Context, u domain.ProductUpdater, item *domain.WorkItem) error {
	if item.Payload.VariantCode == "" || item.Payload.AdditionalAmount == nil {
		return errMissingPayload
	}
	return u.UpdateVariantAdditionalAmount(ctx, item.ProductNo, item.Payload.VariantCode, *item.Payload.AdditionalAmount)
}

// buildItems expands one product into its four work items in execution order.
func buildItems(change domain.ProductPriceChange) []*domain.WorkItem {
	entity := entityLabel(change)
	price := change.Price
	amount1 := change.Variants[0].AdditionalAmount
	amount2 := change.Variants[1].AdditionalAmount

	payloads := map[domain.Step]domain.StepPayload{
		domain.StepBasePrice: {Price: &price},
		domain.StepOptionLabels: {
			OptionName:   change.OptionName,
			OptionValues: append([]string(nil), change.OptionValues...),
		},
		domain.StepVariantAmount1: {VariantCode: change.Variants[0].VariantCode, AdditionalAmount: &amount1},
		domain.StepVariantAmount2: {VariantCode: change.Variants[1].VariantCode, AdditionalAmount: &amount2},
	}

	items := make([]*domain.WorkItem, 0, len(domain.ProductSteps))
	for _, step := range domain.ProductSteps {
		items = append(items, &domain.WorkItem{
			ID:          uuid.NewString(),
			Step:        step,
			ProductNo:   change.ProductNo,
			EntityLabel: entity,
			StepLabel:   step.Label(),
			Payload:     payloads[step],
			Status:      domain.WorkItemPending,
		})
	}
	return items
}

func entityLabel(change domain.ProductPriceChange) string {
	if change.ProductName == "" {
		return fmt.Sprintf("상품 #%d", change.ProductNo)
	}
	return fmt.Sprintf("%s (#%d)", change.ProductName, change.ProductNo)
}
