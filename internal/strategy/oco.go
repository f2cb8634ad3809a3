package strategy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"futures-bot/internal/exchange"
	"futures-bot/internal/order"
)

// OCOReceipt 为合成 OCO 的回执：主记录取自止盈腿，两腿完整回执随附。
type OCOReceipt struct {
	OrderListID string
	Primary     exchange.OrderReceipt
	TakeProfit  exchange.OrderReceipt
	StopLoss    exchange.OrderReceipt
}

// OCO 以两笔独立订单模拟 one-cancels-the-other：
// 止盈腿为原方向 LIMIT 单(price)，止损腿为反方向 STOP_MARKET 单(stop_price)。
// 合约接口没有原生 OCO，两腿之间不存在交易所侧联动：一腿成交不会撤销另一腿，
// 两腿之间行情变动也可能导致两腿同时在场。这是已知近似，不是保证的不变量。
type OCO struct {
	client    orderClient
	validator *order.Validator
	logger    *zap.Logger
}

// NewOCO 创建合成 OCO 策略。
func NewOCO(client orderClient, v *order.Validator, logger *zap.Logger) *OCO {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OCO{client: client, validator: v, logger: logger}
}

// Place 依次提交止盈腿与止损腿。
// 止盈腿失败时整体失败、无任何订单在场；
// 止损腿失败时止盈腿已经在场，错误中会注明其订单号。
func (s *OCO) Place(ctx context.Context, in order.Intent) (OCOReceipt, error) {
	in.Kind = order.KindOCO
	sc := fetchConstraints(ctx, s.client, s.logger, "oco_order", in.Symbol)

	validated, err := s.validator.Intent(in, sc)
	if err != nil {
		s.logger.Error("OCO 参数校验失败",
			zap.String("component", "oco_order"),
			zap.String("event", "validation_failed"),
			zap.String("symbol", in.Symbol),
			zap.Error(err),
		)
		return OCOReceipt{}, err
	}

	base := validated.ClientOrderID

	takeProfit := validated
	takeProfit.Kind = order.KindLimit
	takeProfit.StopPrice = 0
	takeProfit.ClientOrderID = suffixID(base, "_limit")

	tpReq, err := order.Normalize(takeProfit)
	if err != nil {
		return OCOReceipt{}, err
	}

	tpReceipt, err := s.client.CreateOrder(ctx, tpReq)
	if err != nil {
		s.logger.Error("止盈腿提交失败",
			zap.String("component", "oco_order"),
			zap.String("event", "take_profit_leg_failed"),
			zap.String("symbol", validated.Symbol),
			zap.Error(err),
		)
		return OCOReceipt{}, err
	}

	// 止损腿是反方向的市价触发单，没有抽象类型对应，直接构造原生请求。
	slReq := exchange.OrderRequest{
		Symbol:        validated.Symbol,
		Side:          string(validated.Side.Opposite()),
		Type:          string(order.NativeStopMarket),
		Quantity:      validated.Quantity,
		StopPrice:     validated.StopPrice,
		ClientOrderID: suffixID(base, "_stop"),
	}

	slReceipt, err := s.client.CreateOrder(ctx, slReq)
	if err != nil {
		s.logger.Error("止损腿提交失败，止盈腿仍单独在场",
			zap.String("component", "oco_order"),
			zap.String("event", "stop_loss_leg_failed"),
			zap.String("symbol", validated.Symbol),
			zap.String("take_profit_order_id", tpReceipt.OrderID),
			zap.Error(err),
		)
		return OCOReceipt{}, fmt.Errorf("止损腿提交失败(止盈腿 %s 已在场): %w", tpReceipt.OrderID, err)
	}

	primary := tpReceipt
	primary.Kind = string(order.KindOCO)
	primary.StopPrice = validated.StopPrice
	primary.ClientOrderID = base

	receipt := OCOReceipt{
		OrderListID: fmt.Sprintf("oco_%s_%s", tpReceipt.OrderID, slReceipt.OrderID),
		Primary:     primary,
		TakeProfit:  tpReceipt,
		StopLoss:    slReceipt,
	}

	s.logger.Info("OCO 两腿均已提交",
		zap.String("component", "oco_order"),
		zap.String("event", "oco_order_placed"),
		zap.String("order_list_id", receipt.OrderListID),
		zap.String("take_profit_order_id", tpReceipt.OrderID),
		zap.String("stop_loss_order_id", slReceipt.OrderID),
	)
	return receipt, nil
}

func suffixID(base, suffix string) string {
	if base == "" {
		return ""
	}
	return base + suffix
}
