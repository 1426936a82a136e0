package pricequeue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/shopops/backoffice/internal/domain"
	sharedtesting "github.com/shopops/backoffice/pkg/testing"
)

type call struct {
	ProductNo int
	Step      domain.Step
	Price     string
	Option    string
	Values    []string
	Variant   string
	Amount    string
}

// fakeUpdater records calls and fails a (product, step) pair a configured
// number of times before succeeding.
type fakeUpdater struct {
	mu       sync.Mutex
	calls    []call
	failures map[string]int
	hook     func(c call)
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{failures: make(map[string]int)}
}

func (f *fakeUpdater) failTimes(productNo int, step domain.Step, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[fmt.Sprintf("%d/%s", productNo, step)] = n
}

func (f *fakeUpdater) record(c call) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	key := fmt.Sprintf("%d/%s", c.ProductNo, c.Step)
	fail := f.failures[key] > 0
	if fail {
		f.failures[key]--
	}
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(c)
	}
	if fail {
		return &domain.RemoteCallError{Operation: string(c.Step), StatusCode: 503, Body: "service unavailable"}
	}
	return nil
}

func (f *fakeUpdater) UpdateProductPrice(_ context.Context, productNo int, price decimal.Decimal) error {
	return f.record(call{ProductNo: productNo, Step: domain.StepBasePrice, Price: price.String()})
}

func (f *fakeUpdater) UpdateProductOptions(_ context.Context, productNo int, optionName string, values []string) error {
	return f.record(call{ProductNo: productNo, Step: domain.StepOptionLabels, Option: optionName, Values: values})
}

func (f *fakeUpdater) UpdateVariantAdditionalAmount(_ context.Context, productNo int, variantCode string, amount decimal.Decimal) error {
	step := domain.StepVariantAmount1
	if variantCode == fmt.Sprintf("P%d-B", productNo) {
		step = domain.StepVariantAmount2
	}
	return f.record(call{ProductNo: productNo, Step: step, Variant: variantCode, Amount: amount.String()})
}

func (f *fakeUpdater) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func product(no int) domain.ProductPriceChange {
	return domain.ProductPriceChange{
		ProductNo:    no,
		ProductName:  fmt.Sprintf("원두 %d", no),
		Price:        decimal.NewFromInt(int64(10000 + no)),
		OptionName:   "중량",
		OptionValues: []string{"200g", "500g"},
		Variants: [2]domain.VariantAmount{
			{VariantCode: fmt.Sprintf("P%d-A", no), Label: "200g", AdditionalAmount: decimal.Zero},
			{VariantCode: fmt.Sprintf("P%d-B", no), Label: "500g", AdditionalAmount: decimal.NewFromInt(8000)},
		},
	}
}

func fastConfig() Config {
	return Config{OpsPerSecond: 1000, MaxRetries: 3, BackoffUnit: time.Millisecond}
}

func waitDone(t *testing.T, q *Queue) {
	t.Helper()
	select {
	case <-q.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("queue did not finish in time")
	}
}

func TestEnqueue_FourItemsPerProduct(t *testing.T) {
	q := New(newFakeUpdater(), fastConfig(), nil, nil)

	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1), product(2)}))

	items := q.Items()
	require.Len(t, items, 8)
	for i, item := range items {
		assert.Equal(t, domain.ProductSteps[i%4], item.Step)
		assert.Equal(t, domain.WorkItemPending, item.Status)
		assert.NotEmpty(t, item.ID)
	}
	assert.Equal(t, 1, items[0].ProductNo)
	assert.Equal(t, 2, items[4].ProductNo)
	assert.Equal(t, "원두 1 (#1)", items[0].EntityLabel)
	assert.Equal(t, domain.StepBasePrice.Label(), items[0].StepLabel)

	progress := q.Progress()
	assert.Equal(t, 8, progress.Total)
	assert.Equal(t, 8, progress.Pending)
	assert.False(t, progress.Running)
	assert.Nil(t, progress.EstimatedRemainingMinutes)
}

func TestEnqueue_Validation(t *testing.T) {
	q := New(newFakeUpdater(), fastConfig(), nil, nil)

	var validation *domain.ValidationError
	require.ErrorAs(t, q.Enqueue(nil), &validation)

	tests := []struct {
		name   string
		mutate func(c *domain.ProductPriceChange)
		field  string
	}{
		{"product number", func(c *domain.ProductPriceChange) { c.ProductNo = 0 }, "products[1].product_no"},
		{"option name", func(c *domain.ProductPriceChange) { c.OptionName = " " }, "products[1].option_name"},
		{"first variant", func(c *domain.ProductPriceChange) { c.Variants[0].VariantCode = "" }, "products[1].variants[0].variant_code"},
		{"missing variants", func(c *domain.ProductPriceChange) { c.Variants = [2]domain.VariantAmount{} }, "products[1].variants[0].variant_code"},
		{"second variant", func(c *domain.ProductPriceChange) { c.Variants[1].VariantCode = "" }, "products[1].variants[1].variant_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := product(2)
			tt.mutate(&bad)

			var validation *domain.ValidationError
			require.ErrorAs(t, q.Enqueue([]domain.ProductPriceChange{product(1), bad}), &validation)
			assert.Equal(t, tt.field, validation.Field)
			assert.Empty(t, q.Items(), "nothing is enqueued when any product is invalid")
		})
	}
}

func TestQueue_ProcessesAllStepsInOrder(t *testing.T) {
	updater := newFakeUpdater()
	q := New(updater, fastConfig(), nil, nil)
	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1), product(2)}))

	require.NoError(t, q.Start(context.Background()))
	waitDone(t, q)

	calls := updater.Calls()
	require.Len(t, calls, 8)
	assert.Equal(t, call{ProductNo: 1, Step: domain.StepBasePrice, Price: "10001"}, calls[0])
	assert.Equal(t, call{ProductNo: 1, Step: domain.StepOptionLabels, Option: "중량", Values: []string{"200g", "500g"}}, calls[1])
	assert.Equal(t, call{ProductNo: 1, Step: domain.StepVariantAmount1, Variant: "P1-A", Amount: "0"}, calls[2])
	assert.Equal(t, call{ProductNo: 1, Step: domain.StepVariantAmount2, Variant: "P1-B", Amount: "8000"}, calls[3])
	assert.Equal(t, 2, calls[4].ProductNo)

	progress := q.Progress()
	assert.Equal(t, 8, progress.Completed)
	assert.Equal(t, 0, progress.Failed)
	assert.Equal(t, 100, progress.Percentage)
	assert.Equal(t, 0, progress.Pending)
	assert.False(t, progress.Running)
	assert.Empty(t, progress.Errors)

	for _, item := range q.Items() {
		assert.Equal(t, domain.WorkItemCompleted, item.Status)
	}
}

func TestQueue_ThreeFailuresThenSuccessCompletes(t *testing.T) {
	updater := newFakeUpdater()
	updater.failTimes(1, domain.StepOptionLabels, 3)
	q := New(updater, fastConfig(), nil, nil)
	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1)}))

	require.NoError(t, q.Start(context.Background()))
	waitDone(t, q)

	items := q.Items()
	assert.Equal(t, domain.WorkItemCompleted, items[1].Status)
	assert.Equal(t, 3, items[1].RetryCount)
	assert.Empty(t, items[1].LastError)

	progress := q.Progress()
	assert.Equal(t, 4, progress.Completed)
	assert.Equal(t, 0, progress.Failed)
	assert.Empty(t, progress.Errors)
}

func TestQueue_FourFailuresIsTerminal(t *testing.T) {
	updater := newFakeUpdater()
	updater.failTimes(1, domain.StepOptionLabels, 4)
	q := New(updater, fastConfig(), nil, nil)
	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1)}))

	require.NoError(t, q.Start(context.Background()))
	waitDone(t, q)

	items := q.Items()
	assert.Equal(t, domain.WorkItemFailed, items[1].Status)
	assert.Equal(t, 3, items[1].RetryCount)
	assert.Contains(t, items[1].LastError, "service unavailable")

	progress := q.Progress()
	assert.Equal(t, 3, progress.Completed)
	assert.Equal(t, 1, progress.Failed)
	assert.Equal(t, 75, progress.Percentage)
	require.Len(t, progress.Errors, 1)
	assert.Equal(t, "원두 1 (#1)", progress.Errors[0].EntityLabel)
	assert.Equal(t, domain.StepOptionLabels.Label(), progress.Errors[0].StepLabel)
	assert.Contains(t, progress.Errors[0].ErrorMessage, "503")
	assert.False(t, progress.Errors[0].Timestamp.IsZero())

	optionCalls := 0
	for _, c := range updater.Calls() {
		if c.Step == domain.StepOptionLabels {
			optionCalls++
		}
	}
	assert.Equal(t, 4, optionCalls)
}

func TestQueue_RetriesBeforeLaterItems(t *testing.T) {
	updater := newFakeUpdater()
	updater.failTimes(1, domain.StepBasePrice, 2)
	q := New(updater, fastConfig(), nil, nil)
	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1), product(2)}))

	require.NoError(t, q.Start(context.Background()))
	waitDone(t, q)

	var steps []string
	for _, c := range updater.Calls()[:5] {
		steps = append(steps, fmt.Sprintf("%d/%s", c.ProductNo, c.Step))
	}
	assert.Equal(t, []string{
		"1/base_price", "1/base_price", "1/base_price", "1/option_labels", "1/variant_amount_1",
	}, steps)
}

func TestQueue_StopAndResume(t *testing.T) {
	updater := newFakeUpdater()
	q := New(updater, fastConfig(), nil, nil)
	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1), product(2)}))

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	updater.hook = func(call) {
		once.Do(func() {
			close(started)
			<-release
		})
	}

	require.NoError(t, q.Start(context.Background()))
	<-started
	q.Stop()
	close(release)
	waitDone(t, q)

	paused := q.Progress()
	assert.Equal(t, 1, paused.Completed)
	assert.Equal(t, 7, paused.Pending)
	assert.False(t, paused.Running)
	assert.Len(t, updater.Calls(), 1)

	assert.ErrorIs(t, q.Enqueue([]domain.ProductPriceChange{product(3)}), domain.ErrQueueBusy)

	require.NoError(t, q.Resume(context.Background()))
	waitDone(t, q)

	final := q.Progress()
	assert.Equal(t, 8, final.Completed)
	assert.Equal(t, 0, final.Pending)
	assert.Len(t, updater.Calls(), 8)
}

func TestQueue_StartPreconditions(t *testing.T) {
	updater := newFakeUpdater()
	q := New(updater, fastConfig(), nil, nil)

	assert.ErrorIs(t, q.Start(context.Background()), domain.ErrQueueEmpty)
	assert.ErrorIs(t, q.Resume(context.Background()), domain.ErrQueueEmpty)

	release := make(chan struct{})
	var once sync.Once
	updater.hook = func(call) { once.Do(func() { <-release }) }

	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1)}))
	require.NoError(t, q.Start(context.Background()))

	assert.ErrorIs(t, q.Start(context.Background()), domain.ErrQueueBusy)
	assert.ErrorIs(t, q.Enqueue([]domain.ProductPriceChange{product(2)}), domain.ErrQueueBusy)
	assert.ErrorIs(t, q.Reset(), domain.ErrQueueBusy)
	assert.True(t, q.Running())

	close(release)
	waitDone(t, q)

	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(2)}))
	assert.Equal(t, 4, q.Progress().Total)
	assert.Equal(t, 0, q.Progress().Completed)
}

func TestQueue_ResetDiscardsPausedItems(t *testing.T) {
	q := New(newFakeUpdater(), fastConfig(), nil, nil)
	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1)}))

	require.NoError(t, q.Reset())

	assert.Empty(t, q.Items())
	assert.Equal(t, 0, q.Progress().Total)
	assert.ErrorIs(t, q.Start(context.Background()), domain.ErrQueueEmpty)
}

func TestQueue_NotifiesObservers(t *testing.T) {
	q := New(newFakeUpdater(), fastConfig(), nil, nil)

	var mu sync.Mutex
	var snapshots []domain.ProgressSnapshot
	q.Subscribe(domain.ProgressObserverFunc(func(s domain.ProgressSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, s)
	}))

	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1)}))
	require.NoError(t, q.Start(context.Background()))
	waitDone(t, q)

	mu.Lock()
	defer mu.Unlock()

	// One per attempt plus the end-of-run snapshot.
	require.Len(t, snapshots, 5)
	assert.Equal(t, 1, snapshots[0].Completed)
	assert.Equal(t, 25, snapshots[0].Percentage)
	assert.True(t, snapshots[0].Running)
	assert.NotNil(t, snapshots[0].EstimatedRemainingMinutes)

	last := snapshots[4]
	assert.Equal(t, 4, last.Completed)
	assert.Equal(t, 100, last.Percentage)
	assert.False(t, last.Running)
	require.NotNil(t, last.EstimatedRemainingMinutes)
	assert.Zero(t, *last.EstimatedRemainingMinutes)
}

func TestQueue_BackoffUsesClock(t *testing.T) {
	updater := newFakeUpdater()
	updater.failTimes(1, domain.StepBasePrice, 1)
	clock := clockz.NewFakeClock()
	cfg := Config{OpsPerSecond: 1000, MaxRetries: 3, BackoffUnit: time.Second}
	q := New(updater, cfg, nil, nil, WithClock(clock))
	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1)}))

	require.NoError(t, q.Start(context.Background()))

	sharedtesting.AssertEventually(t, func() bool {
		return q.Items()[0].Status == domain.WorkItemRetrying
	}, time.Second, "first attempt should fail and wait for retry")

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, updater.Calls(), 1, "retry must wait for the backoff delay")

	ctx, cancel := sharedtesting.CreateTestContext(time.Second)
	defer cancel()
	require.NoError(t, sharedtesting.WaitForCondition(ctx, clock.HasWaiters, time.Millisecond),
		"worker should be sleeping on the clock")

	// First retry waits unit * 2^1.
	clock.Advance(time.Second)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)
	assert.Len(t, updater.Calls(), 1, "half the backoff is not enough")

	clock.Advance(time.Second)
	clock.BlockUntilReady()

	sharedtesting.AssertEventually(t, func() bool {
		return q.Progress().Completed == 4
	}, 2*time.Second, "queue should finish once the clock advances")

	waitDone(t, q)
	assert.Equal(t, 1, q.Items()[0].RetryCount)
}

func TestQueue_CancelledContextPauses(t *testing.T) {
	q := New(newFakeUpdater(), fastConfig(), nil, nil)
	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1)}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, q.Start(ctx))
	waitDone(t, q)

	progress := q.Progress()
	assert.Equal(t, 4, progress.Pending)
	assert.False(t, progress.Running)
}

func TestQueue_MissingPayloadFails(t *testing.T) {
	updater := newFakeUpdater()
	q := New(updater, Config{OpsPerSecond: 1000, MaxRetries: 0, BackoffUnit: time.Millisecond}, nil, nil)
	require.NoError(t, q.Enqueue([]domain.ProductPriceChange{product(1)}))

	q.mu.Lock()
	q.items[2].Payload.VariantCode = ""
	q.mu.Unlock()

	require.NoError(t, q.Start(context.Background()))
	waitDone(t, q)

	progress := q.Progress()
	assert.Equal(t, 3, progress.Completed)
	require.Len(t, progress.Errors, 1)
	assert.Equal(t, errMissingPayload.Error(), progress.Errors[0].ErrorMessage)
}

func TestSnapshot_PercentageAndEstimate(t *testing.T) {
	q := New(newFakeUpdater(), fastConfig(), nil, nil)

	q.mu.Lock()
	q.total = 8
	q.completed = 2
	q.elapsed = 2 * time.Minute
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	assert.Equal(t, 25, snapshot.Percentage)
	require.NotNil(t, snapshot.EstimatedRemainingMinutes)
	assert.InDelta(t, 6.0, *snapshot.EstimatedRemainingMinutes, 0.001)
}
