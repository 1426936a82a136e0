package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantAmount is the additional amount charged for one option variant
type VariantAmount struct {
	VariantCode      string          `json:"variant_code" binding:"required"`
	Label            string          `json:"label"`
	AdditionalAmount decimal.Decimal `json:"additional_amount"`
}

// ProductPriceChange is the full set of price edits for one product: the base
// price, the relabelled weight option and its two variant surcharges.
type ProductPriceChange struct {
	ProductNo    int              `json:"product_no" binding:"required,gt=0"`
	ProductName  string           `json:"product_name"`
	Price        decimal.Decimal  `json:"price"`
	OptionName   string           `json:"option_name" binding:"required"`
	OptionValues []string         `json:"option_values"`
	Variants     [2]VariantAmount `json:"variants" binding:"dive"`
}

// Step identifies one remote update of a product
type Step string

const (
	StepBasePrice      Step = "base_price"
	StepOptionLabels   Step = "option_labels"
	StepVariantAmount1 Step = "variant_amount_1"
	StepVariantAmount2 Step = "variant_amount_2"
)

// ProductSteps is the fixed order in which a product's steps run
var ProductSteps = []Step{StepBasePrice, StepOptionLabels, StepVariantAmount1, StepVariantAmount2}

var stepLabels = map[Step]string{
	StepBasePrice:      "판매가 수정",
	StepOptionLabels:   "옵션명 수정",
	StepVariantAmount1: "옵션1 추가금액 수정",
	StepVariantAmount2: "옵션2 추가금액 수정",
}

// Label returns the operator-facing name of the step
func (s Step) Label() string {
	if label, ok := stepLabels[s]; ok {
		return label
	}
	return string(s)
}

// StepPayload is the serialisable input of one step. Only the fields the
// step needs are set.
type StepPayload struct {
	Price            *decimal.Decimal `json:"price,omitempty"`
	OptionName       string           `json:"option_name,omitempty"`
	OptionValues     []string         `json:"option_values,omitempty"`
	VariantCode      string           `json:"variant_code,omitempty"`
	AdditionalAmount *decimal.Decimal `json:"additional_amount,omitempty"`
}

// WorkItemStatus is the lifecycle state of a work item
type WorkItemStatus string

const (
	WorkItemPending    WorkItemStatus = "pending"
	WorkItemProcessing WorkItemStatus = "processing"
	WorkItemRetrying   WorkItemStatus = "retrying"
	WorkItemCompleted  WorkItemStatus = "completed"
	WorkItemFailed     WorkItemStatus = "failed"
)

// IsTerminal reports whether the status is final
func (s WorkItemStatus) IsTerminal() bool {
	return s == WorkItemCompleted || s == WorkItemFailed
}

// WorkItem is one queued remote step for one product
type WorkItem struct {
	ID          string         `json:"id"`
	Step        Step           `json:"step"`
	ProductNo   int            `json:"product_no"`
	EntityLabel string         `json:"entity_label"`
	StepLabel   string         `json:"step_label"`
	Payload     StepPayload    `json:"payload"`
	RetryCount  int            `json:"retry_count"`
	Status      WorkItemStatus `json:"status"`
	LastError   string         `json:"last_error,omitempty"`
}

// ItemError records a terminally failed work item
type ItemError struct {
	EntityLabel  string    `json:"entity_label"`
	StepLabel    string    `json:"step_label"`
	ErrorMessage string    `json:"error_message"`
	Timestamp    time.Time `json:"timestamp"`
}

// ProgressSnapshot is an immutable view of queue progress
type ProgressSnapshot struct {
	Total                     int         `json:"total"`
	Completed                 int         `json:"completed"`
	Failed                    int         `json:"failed"`
	CurrentEntity             string      `json:"current_entity"`
	CurrentStep               string      `json:"current_step"`
	Percentage                int         `json:"percentage"`
	Errors                    []ItemError `json:"errors"`
	EstimatedRemainingMinutes *float64    `json:"estimated_remaining_minutes,omitempty"`
	Running                   bool        `json:"running"`
	Pending                   int         `json:"pending"`
}

// ProgressObserver receives a snapshot after every processing attempt
type ProgressObserver interface {
	OnProgress(snapshot ProgressSnapshot)
}

// ProgressObserverFunc adapts a function to ProgressObserver
type ProgressObserverFunc func(snapshot ProgressSnapshot)

// OnProgress implements ProgressObserver
func (f ProgressObserverFunc) OnProgress(snapshot ProgressSnapshot) {
	f(snapshot)
}
