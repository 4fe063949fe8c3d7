package connectors

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"intradaybot/src/trade"
)

// ErrLiveTradingDisabled is returned by RejectingGateway.
var ErrLiveTradingDisabled = errors.New("live order submission not implemented")

// SimGateway fills every order immediately at the reference price moved
// against the trader by SlippagePct percent.
type SimGateway struct {
	slippage decimal.Decimal
	log      *logger.Entry
}

var _ trade.Gateway = (*SimGateway)(nil)

func NewSimGateway(slippagePct float64, log *logger.Entry) *SimGateway {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &SimGateway{
		slippage: decimal.NewFromFloat(slippagePct).Div(decimal.NewFromInt(100)),
		log:      log.WithField("component", "sim_gateway"),
	}
}

func (g *SimGateway) SubmitOrder(ctx context.Context, symbol string, side trade.Side, qty, refPrice float64) (trade.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return trade.OrderResult{}, err
	}
	if qty <= 0 || refPrice <= 0 {
		g.log.WithFields(logger.Fields{"symbol": symbol, "side": side, "qty": qty, "ref": refPrice}).
			Warn("rejecting order with non-positive qty or price")
		return trade.OrderResult{Status: trade.StatusRejected}, nil
	}

	factor := decimal.NewFromInt(1).Add(g.slippage)
	if side == trade.SideSell {
		factor = decimal.NewFromInt(1).Sub(g.slippage)
	}
	fill := decimal.NewFromFloat(refPrice).Mul(factor).InexactFloat64()

	g.log.WithFields(logger.Fields{
		"symbol": symbol,
		"side":   side,
		"qty":    qty,
		"ref":    refPrice,
		"fill":   fill,
	}).Info("simulated fill")

	return trade.OrderResult{Status: trade.StatusFilled, AvgFillPrice: fill}, nil
}

// RejectingGateway stands in for a live broker and refuses every order.
type RejectingGateway struct{}

func (RejectingGateway) SubmitOrder(context.Context, string, trade.Side, float64, float64) (trade.OrderResult, error) {
	return trade.OrderResult{Status: trade.StatusRejected}, ErrLiveTradingDisabled
}
