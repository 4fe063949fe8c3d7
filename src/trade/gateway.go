package trade

import "context"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderStatus string

const (
	StatusFilled   OrderStatus = "FILLED"
	StatusRejected OrderStatus = "REJECTED"
)

type OrderResult struct {
	Status       OrderStatus
	AvgFillPrice float64
}

func (r OrderResult) Filled() bool {
	return r.Status == StatusFilled
}

// Gateway places market orders. Any status other than FILLED means nothing
// happened and the caller retries on a later cycle.
type Gateway interface {
	SubmitOrder(ctx context.Context, symbol string, side Side, qty, refPrice float64) (OrderResult, error)
}
