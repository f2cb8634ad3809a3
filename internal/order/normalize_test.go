package order

import (
	"errors"
	"testing"
)

func TestMapNative(t *testing.T) {
	cases := []struct {
		kind   Kind
		native NativeKind
		ok     bool
	}{
		{KindMarket, NativeMarket, true},
		{KindLimit, NativeLimit, true},
		{KindStopLimit, NativeStop, true},
		{KindOCO, "", false},
		{KindTWAP, "", false},
		{KindGrid, "", false},
	}

	for _, c := range cases {
		native, ok := MapNative(c.kind)
		if ok != c.ok || native != c.native {
			t.Errorf("MapNative(%s) = (%s, %v), want (%s, %v)", c.kind, native, ok, c.native, c.ok)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	req, err := Normalize(Intent{
		Symbol:      "BTCUSDT",
		Side:        SideBuy,
		Kind:        KindLimit,
		Quantity:    0.01,
		Price:       50000.5,
		TimeInForce: TIFImmediateOrCancel,
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if req.Type != "LIMIT" {
		t.Errorf("type = %s, want LIMIT", req.Type)
	}
	if req.Side != "BUY" {
		t.Errorf("side = %s, want BUY", req.Side)
	}
	if req.Quantity != 0.01 || req.Price != 50000.5 {
		t.Errorf("quantity/price altered: %v / %v", req.Quantity, req.Price)
	}
	if req.TimeInForce != "IOC" {
		t.Errorf("tif = %s, want IOC", req.TimeInForce)
	}
}

func TestNormalizeStopLimit(t *testing.T) {
	req, err := Normalize(Intent{
		Symbol:    "ETHUSDT",
		Side:      SideSell,
		Kind:      KindStopLimit,
		Quantity:  1,
		Price:     2900,
		StopPrice: 2950,
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if req.Type != "STOP" {
		t.Errorf("type = %s, want STOP", req.Type)
	}
	if req.StopPrice != 2950 {
		t.Errorf("stop price = %v, want 2950", req.StopPrice)
	}
	if req.TimeInForce != "GTC" {
		t.Errorf("missing tif should default to GTC, got %q", req.TimeInForce)
	}
}

func TestNormalizeMarketOmitsTimeInForce(t *testing.T) {
	req, err := Normalize(Intent{
		Symbol:      "BTCUSDT",
		Side:        SideBuy,
		Kind:        KindMarket,
		Quantity:    0.5,
		TimeInForce: TIFGoodTillCancel,
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if req.Type != "MARKET" {
		t.Errorf("type = %s, want MARKET", req.Type)
	}
	if req.TimeInForce != "" {
		t.Errorf("market order must not carry timeInForce, got %q", req.TimeInForce)
	}
	if req.Price != 0 {
		t.Errorf("market order must not carry price, got %v", req.Price)
	}
}

func TestNormalizeUnsupportedKinds(t *testing.T) {
	for _, kind := range []Kind{KindOCO, KindTWAP, KindGrid} {
		_, err := Normalize(Intent{Symbol: "BTCUSDT", Side: SideBuy, Kind: kind, Quantity: 1})
		var uk *UnsupportedKindError
		if !errors.As(err, &uk) {
			t.Errorf("Normalize(%s) expected UnsupportedKindError, got %v", kind, err)
			continue
		}
		if uk.Kind != kind {
			t.Errorf("error kind = %s, want %s", uk.Kind, kind)
		}
	}
}
