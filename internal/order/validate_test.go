package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"futures-bot/internal/exchange"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func btcConstraints() *exchange.SymbolConstraints {
	return &exchange.SymbolConstraints{
		Symbol: "BTCUSDT",
		Filters: []exchange.Filter{
			{Kind: exchange.FilterLotSize, Min: dec("0.001"), Max: dec("1000"), Step: dec("0.001")},
			{Kind: exchange.FilterPriceFilter, Min: dec("0.1"), Max: dec("1000000"), Step: dec("0.1")},
		},
	}
}

func TestValidatorSymbol(t *testing.T) {
	v := NewValidator(0, "")

	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"BTCUSDT", "BTCUSDT", true},
		{"btcusdt", "BTCUSDT", true},
		{" ethusdt ", "ETHUSDT", true},
		{"1000PEPEUSDT", "1000PEPEUSDT", true},
		{"", "", false},
		{"BTC", "", false},
		{"BTC-USDT", "", false},
		{"VERYLONGSYMBOLUSDT", "", false},
	}

	for _, c := range cases {
		got, err := v.Symbol(c.input)
		if c.ok {
			if err != nil {
				t.Errorf("Symbol(%q) unexpected error: %v", c.input, err)
			}
			if got != c.want {
				t.Errorf("Symbol(%q) = %q, want %q", c.input, got, c.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("Symbol(%q) expected error, got %q", c.input, got)
		}
		var ve *ValidationError
		if err != nil && !errors.As(err, &ve) {
			t.Errorf("Symbol(%q) error is not ValidationError: %v", c.input, err)
		}
	}
}

func TestValidatorSide(t *testing.T) {
	v := NewValidator(0, "")

	if side, err := v.Side("buy"); err != nil || side != SideBuy {
		t.Errorf("Side(buy) = %v, %v", side, err)
	}
	if side, err := v.Side(" SELL "); err != nil || side != SideSell {
		t.Errorf("Side(SELL) = %v, %v", side, err)
	}
	if _, err := v.Side(""); err == nil {
		t.Errorf("expected error for empty side")
	}
	if _, err := v.Side("HOLD"); err == nil {
		t.Errorf("expected error for invalid side")
	}
}

func TestValidatorTimeInForce(t *testing.T) {
	v := NewValidator(0, "IOC")

	if tif, err := v.TimeInForce(""); err != nil || tif != TIFImmediateOrCancel {
		t.Errorf("empty tif should fall back to configured default, got %v, %v", tif, err)
	}
	if tif, err := v.TimeInForce("fok"); err != nil || tif != TIFFillOrKill {
		t.Errorf("TimeInForce(fok) = %v, %v", tif, err)
	}
	if _, err := v.TimeInForce("GTX"); err == nil {
		t.Errorf("expected error for unsupported tif")
	}

	// 配置里给了非法默认值时回落到 GTC
	v = NewValidator(0, "bogus")
	if tif, _ := v.TimeInForce(""); tif != TIFGoodTillCancel {
		t.Errorf("invalid default should fall back to GTC, got %v", tif)
	}
}

func TestValidatorQuantity(t *testing.T) {
	v := NewValidator(0.000001, "GTC")
	sc := btcConstraints()

	if err := v.Quantity(0.01, sc); err != nil {
		t.Errorf("aligned quantity rejected: %v", err)
	}
	if err := v.Quantity(0, sc); err == nil {
		t.Errorf("zero quantity accepted")
	}
	if err := v.Quantity(-1, sc); err == nil {
		t.Errorf("negative quantity accepted")
	}
	if err := v.Quantity(0.0000001, nil); err == nil {
		t.Errorf("quantity below global minimum accepted")
	}
	if err := v.Quantity(0.0005, sc); err == nil {
		t.Errorf("quantity below LOT_SIZE minQty accepted")
	}
	if err := v.Quantity(2000, sc); err == nil {
		t.Errorf("quantity above LOT_SIZE maxQty accepted")
	}

	// 无约束时只做本地规则校验
	if err := v.Quantity(0.0005, nil); err != nil {
		t.Errorf("quantity without constraints rejected: %v", err)
	}
}

func TestValidatorQuantityStepSuggestion(t *testing.T) {
	v := NewValidator(0.000001, "GTC")

	// 建议值必须是精确十进制向下对齐的结果，二进制浮点截断会在这里露馅
	cases := []struct {
		quantity  float64
		step      string
		suggested string
	}{
		{0.0015, "0.001", "0.001"},
		{1.23456, "0.01", "1.23"},
		{0.30000000000000004, "0.1", "0.3"},
		{5.000001, "0.5", "5"},
	}

	for _, c := range cases {
		sc := &exchange.SymbolConstraints{
			Symbol: "BTCUSDT",
			Filters: []exchange.Filter{
				{Kind: exchange.FilterLotSize, Step: dec(c.step)},
			},
		}
		err := v.Quantity(c.quantity, sc)
		if c.suggested == "" {
			if err != nil {
				t.Errorf("Quantity(%v, step=%s) unexpected error: %v", c.quantity, c.step, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Quantity(%v, step=%s) expected ValidationError, got %v", c.quantity, c.step, err)
		}
		if ve.Suggestion != c.suggested {
			t.Errorf("Quantity(%v, step=%s) suggestion = %s, want %s", c.quantity, c.step, ve.Suggestion, c.suggested)
		}
	}
}

func TestValidatorPrice(t *testing.T) {
	v := NewValidator(0, "GTC")
	sc := btcConstraints()

	if err := v.Price("price", 50000.5, sc); err != nil {
		t.Errorf("aligned price rejected: %v", err)
	}
	if err := v.Price("price", 0, sc); err != nil {
		t.Errorf("zero price should be treated as absent: %v", err)
	}
	if err := v.Price("price", -5, sc); err == nil {
		t.Errorf("negative price accepted")
	}
	if err := v.Price("price", 0.05, sc); err == nil {
		t.Errorf("price below minPrice accepted")
	}

	err := v.Price("price", 50000.55, sc)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("misaligned price expected ValidationError, got %v", err)
	}
	if ve.Field != "price" {
		t.Errorf("field = %s, want price", ve.Field)
	}
	if ve.Suggestion != "50000.5" {
		t.Errorf("suggestion = %s, want 50000.5", ve.Suggestion)
	}
}

func TestValidatorIntentNormalizesFields(t *testing.T) {
	v := NewValidator(0.000001, "GTC")

	in := Intent{
		Symbol:   " btcusdt ",
		Side:     "buy",
		Kind:     "limit",
		Quantity: 0.01,
		Price:    50000.5,
	}
	validated, err := v.Intent(in, btcConstraints())
	if err != nil {
		t.Fatalf("Intent returned error: %v", err)
	}
	if validated.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s", validated.Symbol)
	}
	if validated.Side != SideBuy {
		t.Errorf("side = %s", validated.Side)
	}
	if validated.Kind != KindLimit {
		t.Errorf("kind = %s", validated.Kind)
	}
	if validated.TimeInForce != TIFGoodTillCancel {
		t.Errorf("tif = %s", validated.TimeInForce)
	}
}

func TestValidatorIntentCrossFieldRules(t *testing.T) {
	v := NewValidator(0.000001, "GTC")

	cases := []struct {
		name string
		in   Intent
		ok   bool
	}{
		{"market ok", Intent{Symbol: "BTCUSDT", Side: SideBuy, Kind: KindMarket, Quantity: 0.01}, true},
		{"market with price", Intent{Symbol: "BTCUSDT", Side: SideBuy, Kind: KindMarket, Quantity: 0.01, Price: 50000}, false},
		{"limit ok", Intent{Symbol: "BTCUSDT", Side: SideBuy, Kind: KindLimit, Quantity: 0.01, Price: 50000}, true},
		{"limit without price", Intent{Symbol: "BTCUSDT", Side: SideBuy, Kind: KindLimit, Quantity: 0.01}, false},
		{"stop limit ok", Intent{Symbol: "BTCUSDT", Side: SideSell, Kind: KindStopLimit, Quantity: 0.01, Price: 48000, StopPrice: 48500}, true},
		{"stop limit without stop", Intent{Symbol: "BTCUSDT", Side: SideSell, Kind: KindStopLimit, Quantity: 0.01, Price: 48000}, false},
		{"oco ok", Intent{Symbol: "BTCUSDT", Side: SideSell, Kind: KindOCO, Quantity: 0.01, Price: 52000, StopPrice: 48000}, true},
		{"oco without stop", Intent{Symbol: "BTCUSDT", Side: SideSell, Kind: KindOCO, Quantity: 0.01, Price: 52000}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := v.Intent(c.in, nil)
			if c.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !c.ok && err == nil {
				t.Errorf("expected error")
			}
		})
	}
}
