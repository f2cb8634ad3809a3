package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"futures-bot/internal/exchange"
	"futures-bot/internal/order"
)

// mockClient 记录所有下单请求并返回合成回执，按调用序号注入失败。
type mockClient struct {
	requests       []exchange.OrderRequest
	failOn         map[int]error
	constraints    *exchange.SymbolConstraints
	constraintsErr error
	nextID         int
}

func (m *mockClient) CreateOrder(_ context.Context, req exchange.OrderRequest) (exchange.OrderReceipt, error) {
	idx := len(m.requests)
	m.requests = append(m.requests, req)
	if err, ok := m.failOn[idx]; ok {
		return exchange.OrderReceipt{}, err
	}
	m.nextID++
	return exchange.OrderReceipt{
		OrderID:          fmt.Sprintf("%d", 1000+m.nextID),
		ClientOrderID:    req.ClientOrderID,
		Symbol:           req.Symbol,
		Status:           "NEW",
		Side:             req.Side,
		Kind:             req.Type,
		Quantity:         req.Quantity,
		Price:            req.Price,
		StopPrice:        req.StopPrice,
		ExecutedQuantity: req.Quantity,
		UpdateTime:       time.Unix(1700000000, 0).UTC(),
	}, nil
}

func (m *mockClient) SymbolConstraints(_ context.Context, symbol string) (*exchange.SymbolConstraints, error) {
	if m.constraintsErr != nil {
		return nil, m.constraintsErr
	}
	if m.constraints != nil {
		return m.constraints, nil
	}
	return &exchange.SymbolConstraints{Symbol: symbol}, nil
}

func testValidator() *order.Validator {
	return order.NewValidator(0.000001, "GTC")
}

var errExchangeDown = errors.New("exchange unavailable")
