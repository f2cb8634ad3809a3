// Package strategy 把抽象下单意图落成一笔或多笔交易所原生订单。
// 单笔策略(Market/Limit/StopLimit)走 校验→归一化→提交 的直线路径，
// 多笔策略(OCO/TWAP/Grid)先生成执行计划再逐笔提交。
package strategy

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"futures-bot/internal/exchange"
	"futures-bot/internal/order"
)

// orderClient 抽象策略运行所需的交易所能力，便于测试替换。
type orderClient interface {
	CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderReceipt, error)
	SymbolConstraints(ctx context.Context, symbol string) (*exchange.SymbolConstraints, error)
}

// fetchConstraints 按需拉取交易对约束。拉取失败不阻断下单，
// 仅跳过交易所精度校验并记录告警，与本地规则校验互不影响。
func fetchConstraints(ctx context.Context, client orderClient, logger *zap.Logger, component, symbol string) *exchange.SymbolConstraints {
	sc, err := client.SymbolConstraints(ctx, symbol)
	if err != nil {
		logger.Warn("获取交易对约束失败，跳过交易所精度校验",
			zap.String("component", component),
			zap.String("event", "constraints_fetch_failed"),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return nil
	}
	return sc
}

// placeSingle 为所有单笔提交的公共路径：校验、归一化、经重试门面提交。
func placeSingle(ctx context.Context, client orderClient, v *order.Validator, logger *zap.Logger,
	component string, in order.Intent, sc *exchange.SymbolConstraints) (exchange.OrderReceipt, error) {

	validated, err := v.Intent(in, sc)
	if err != nil {
		logger.Error("下单参数校验失败",
			zap.String("component", component),
			zap.String("event", "validation_failed"),
			zap.String("symbol", in.Symbol),
			zap.Error(err),
		)
		return exchange.OrderReceipt{}, err
	}

	req, err := order.Normalize(validated)
	if err != nil {
		return exchange.OrderReceipt{}, err
	}

	receipt, err := client.CreateOrder(ctx, req)
	if err != nil {
		logger.Error("订单提交失败",
			zap.String("component", component),
			zap.String("event", "placement_failed"),
			zap.String("symbol", validated.Symbol),
			zap.String("client_order_id", validated.ClientOrderID),
			zap.Error(err),
		)
		return exchange.OrderReceipt{}, err
	}

	logger.Info("订单已提交",
		zap.String("component", component),
		zap.String("event", "order_placed"),
		zap.String("order_id", receipt.OrderID),
		zap.String("symbol", receipt.Symbol),
		zap.String("status", receipt.Status),
	)
	return receipt, nil
}

// abortable 判断子单失败是否应终止整个多笔计划。
// 只有上下文取消会终止计划，其余失败逐笔容忍。
func abortable(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
