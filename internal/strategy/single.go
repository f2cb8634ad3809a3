package strategy

import (
	"context"

	"go.uber.org/zap"

	"futures-bot/internal/exchange"
	"futures-bot/internal/order"
)

// Market 市价单策略：校验后向交易所提交单笔 MARKET 订单。
type Market struct {
	client    orderClient
	validator *order.Validator
	logger    *zap.Logger
}

// NewMarket 创建市价单策略。
func NewMarket(client orderClient, v *order.Validator, logger *zap.Logger) *Market {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Market{client: client, validator: v, logger: logger}
}

// Place 提交一笔市价单。
func (s *Market) Place(ctx context.Context, in order.Intent) (exchange.OrderReceipt, error) {
	in.Kind = order.KindMarket
	sc := fetchConstraints(ctx, s.client, s.logger, "market_order", in.Symbol)
	return s.place(ctx, in, sc)
}

func (s *Market) place(ctx context.Context, in order.Intent, sc *exchange.SymbolConstraints) (exchange.OrderReceipt, error) {
	in.Kind = order.KindMarket
	return placeSingle(ctx, s.client, s.validator, s.logger, "market_order", in, sc)
}

// Limit 限价单策略：校验后向交易所提交单笔 LIMIT 订单。
type Limit struct {
	client    orderClient
	validator *order.Validator
	logger    *zap.Logger
}

// NewLimit 创建限价单策略。
func NewLimit(client orderClient, v *order.Validator, logger *zap.Logger) *Limit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limit{client: client, validator: v, logger: logger}
}

// Place 提交一笔限价单。
func (s *Limit) Place(ctx context.Context, in order.Intent) (exchange.OrderReceipt, error) {
	in.Kind = order.KindLimit
	sc := fetchConstraints(ctx, s.client, s.logger, "limit_order", in.Symbol)
	return s.place(ctx, in, sc)
}

func (s *Limit) place(ctx context.Context, in order.Intent, sc *exchange.SymbolConstraints) (exchange.OrderReceipt, error) {
	in.Kind = order.KindLimit
	return placeSingle(ctx, s.client, s.validator, s.logger, "limit_order", in, sc)
}

// StopLimit 止损限价单策略，按方向分派到 buy/sell 两条等价路径。
type StopLimit struct {
	client    orderClient
	validator *order.Validator
	logger    *zap.Logger
}

// NewStopLimit 创建止损限价单策略。
func NewStopLimit(client orderClient, v *order.Validator, logger *zap.Logger) *StopLimit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StopLimit{client: client, validator: v, logger: logger}
}

// Place 按意图中的方向提交止损限价单。
func (s *StopLimit) Place(ctx context.Context, in order.Intent) (exchange.OrderReceipt, error) {
	switch in.Side {
	case order.SideSell:
		return s.PlaceSell(ctx, in)
	default:
		return s.PlaceBuy(ctx, in)
	}
}

// PlaceBuy 提交买入方向的止损限价单。
func (s *StopLimit) PlaceBuy(ctx context.Context, in order.Intent) (exchange.OrderReceipt, error) {
	in.Side = order.SideBuy
	return s.submit(ctx, in)
}

// PlaceSell 提交卖出方向的止损限价单。
func (s *StopLimit) PlaceSell(ctx context.Context, in order.Intent) (exchange.OrderReceipt, error) {
	in.Side = order.SideSell
	return s.submit(ctx, in)
}

func (s *StopLimit) submit(ctx context.Context, in order.Intent) (exchange.OrderReceipt, error) {
	in.Kind = order.KindStopLimit
	sc := fetchConstraints(ctx, s.client, s.logger, "stop_limit_order", in.Symbol)
	return placeSingle(ctx, s.client, s.validator, s.logger, "stop_limit_order", in, sc)
}
