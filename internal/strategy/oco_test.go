package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"futures-bot/internal/order"
)

func TestOCOPlaceSubmitsBothLegs(t *testing.T) {
	client := &mockClient{}
	s := NewOCO(client, testValidator(), nil)

	receipt, err := s.Place(context.Background(), order.Intent{
		Symbol:        "BTCUSDT",
		Side:          order.SideSell,
		Quantity:      0.1,
		Price:         52000,
		StopPrice:     48000,
		ClientOrderID: "exit-plan-1",
	})
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}

	if len(client.requests) != 2 {
		t.Fatalf("request count = %d, want 2", len(client.requests))
	}

	tp := client.requests[0]
	if tp.Type != "LIMIT" {
		t.Errorf("take profit leg type = %s, want LIMIT", tp.Type)
	}
	if tp.Side != "SELL" {
		t.Errorf("take profit side = %s, want SELL", tp.Side)
	}
	if tp.Price != 52000 {
		t.Errorf("take profit price = %v, want 52000", tp.Price)
	}
	if tp.StopPrice != 0 {
		t.Errorf("take profit leg must not carry stop price, got %v", tp.StopPrice)
	}
	if tp.ClientOrderID != "exit-plan-1_limit" {
		t.Errorf("take profit client id = %s", tp.ClientOrderID)
	}

	sl := client.requests[1]
	if sl.Type != "STOP_MARKET" {
		t.Errorf("stop loss leg type = %s, want STOP_MARKET", sl.Type)
	}
	if sl.Side != "BUY" {
		t.Errorf("stop loss leg must take the opposite side, got %s", sl.Side)
	}
	if sl.StopPrice != 48000 {
		t.Errorf("stop loss trigger = %v, want 48000", sl.StopPrice)
	}
	if sl.ClientOrderID != "exit-plan-1_stop" {
		t.Errorf("stop loss client id = %s", sl.ClientOrderID)
	}

	wantListID := "oco_" + receipt.TakeProfit.OrderID + "_" + receipt.StopLoss.OrderID
	if receipt.OrderListID != wantListID {
		t.Errorf("order list id = %s, want %s", receipt.OrderListID, wantListID)
	}
	if receipt.Primary.Kind != "OCO" {
		t.Errorf("primary kind = %s, want OCO", receipt.Primary.Kind)
	}
	if receipt.Primary.ClientOrderID != "exit-plan-1" {
		t.Errorf("primary client id = %s, want the base id", receipt.Primary.ClientOrderID)
	}
	if receipt.Primary.StopPrice != 48000 {
		t.Errorf("primary stop price = %v, want 48000", receipt.Primary.StopPrice)
	}
}

func TestOCOPlaceWithoutClientIDLeavesLegIDsEmpty(t *testing.T) {
	client := &mockClient{}
	s := NewOCO(client, testValidator(), nil)

	_, err := s.Place(context.Background(), order.Intent{
		Symbol:    "BTCUSDT",
		Side:      order.SideSell,
		Quantity:  0.1,
		Price:     52000,
		StopPrice: 48000,
	})
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	if client.requests[0].ClientOrderID != "" || client.requests[1].ClientOrderID != "" {
		t.Errorf("legs must not invent client ids: %q / %q",
			client.requests[0].ClientOrderID, client.requests[1].ClientOrderID)
	}
}

func TestOCOPlaceValidationFailure(t *testing.T) {
	client := &mockClient{}
	s := NewOCO(client, testValidator(), nil)

	// OCO 缺少触发价
	_, err := s.Place(context.Background(), order.Intent{
		Symbol:   "BTCUSDT",
		Side:     order.SideSell,
		Quantity: 0.1,
		Price:    52000,
	})
	var ve *order.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(client.requests) != 0 {
		t.Errorf("no leg must be submitted on validation failure")
	}
}

func TestOCOPlaceTakeProfitLegFailure(t *testing.T) {
	client := &mockClient{failOn: map[int]error{0: errExchangeDown}}
	s := NewOCO(client, testValidator(), nil)

	_, err := s.Place(context.Background(), order.Intent{
		Symbol:    "BTCUSDT",
		Side:      order.SideSell,
		Quantity:  0.1,
		Price:     52000,
		StopPrice: 48000,
	})
	if !errors.Is(err, errExchangeDown) {
		t.Fatalf("expected exchange error, got %v", err)
	}
	if len(client.requests) != 1 {
		t.Errorf("stop loss leg must not be attempted after take profit failure, got %d requests", len(client.requests))
	}
}

func TestOCOPlaceStopLossLegFailureReportsLiveLeg(t *testing.T) {
	client := &mockClient{failOn: map[int]error{1: errExchangeDown}}
	s := NewOCO(client, testValidator(), nil)

	_, err := s.Place(context.Background(), order.Intent{
		Symbol:    "BTCUSDT",
		Side:      order.SideSell,
		Quantity:  0.1,
		Price:     52000,
		StopPrice: 48000,
	})
	if !errors.Is(err, errExchangeDown) {
		t.Fatalf("expected exchange error, got %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("request count = %d, want 2", len(client.requests))
	}
	// 错误信息必须点名仍在场的止盈腿订单号
	if !strings.Contains(err.Error(), "1001") {
		t.Errorf("error should name the live take profit order id, got %q", err.Error())
	}
}
