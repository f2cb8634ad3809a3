package order

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"futures-bot/internal/exchange"
)

// 交易对为 6-12 位大写字母数字，例如 BTCUSDT。
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{6,12}$`)

// Validator 按本地规则与交易所约束校验下单参数。
// 步进对齐检查使用精确十进制运算，避免二进制浮点表示误差造成误判。
type Validator struct {
	minQuantity decimal.Decimal
	defaultTIF  TimeInForce
}

// NewValidator 创建校验器。minQuantity 为全局数量下限，
// defaultTIF 在未提供有效期策略时生效，空串回落到 GTC。
func NewValidator(minQuantity float64, defaultTIF string) *Validator {
	tif := TimeInForce(strings.ToUpper(strings.TrimSpace(defaultTIF)))
	switch tif {
	case TIFGoodTillCancel, TIFImmediateOrCancel, TIFFillOrKill:
	default:
		tif = TIFGoodTillCancel
	}
	if minQuantity <= 0 {
		minQuantity = 0.000001
	}
	return &Validator{
		minQuantity: decimal.NewFromFloat(minQuantity),
		defaultTIF:  tif,
	}
}

// Symbol 校验交易对格式，返回去除空白并转大写后的结果。
func (v *Validator) Symbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", validationErrorf("symbol", "交易对不能为空")
	}
	if !symbolPattern.MatchString(symbol) {
		return "", validationErrorf("symbol", "交易对格式非法: %s，应为6-12位大写字母数字(如 BTCUSDT)", symbol)
	}
	return symbol, nil
}

// Side 校验下单方向，输入大小写不敏感。
func (v *Validator) Side(side string) (Side, error) {
	normalized := Side(strings.ToUpper(strings.TrimSpace(side)))
	switch normalized {
	case SideBuy, SideSell:
		return normalized, nil
	case "":
		return "", validationErrorf("side", "下单方向不能为空")
	default:
		return "", validationErrorf("side", "非法下单方向: %s，应为 BUY 或 SELL", side)
	}
}

// Kind 校验抽象订单类型，输入大小写不敏感。
func (v *Validator) Kind(kind string) (Kind, error) {
	normalized := Kind(strings.ToUpper(strings.TrimSpace(kind)))
	if normalized == "" {
		return "", validationErrorf("type", "订单类型不能为空")
	}
	for _, k := range Kinds() {
		if normalized == k {
			return normalized, nil
		}
	}
	return "", validationErrorf("type", "非法订单类型: %s", kind)
}

// TimeInForce 校验有效期策略，未提供时返回默认值。
func (v *Validator) TimeInForce(tif string) (TimeInForce, error) {
	tif = strings.ToUpper(strings.TrimSpace(tif))
	if tif == "" {
		return v.defaultTIF, nil
	}
	switch TimeInForce(tif) {
	case TIFGoodTillCancel, TIFImmediateOrCancel, TIFFillOrKill:
		return TimeInForce(tif), nil
	default:
		return "", validationErrorf("time_in_force", "非法有效期策略: %s，应为 GTC/IOC/FOK 之一", tif)
	}
}

// Quantity 校验数量：严格为正、不低于全局下限，
// 存在 LOT_SIZE 约束时还需落在 [minQty, maxQty] 且为 stepSize 的整数倍。
func (v *Validator) Quantity(quantity float64, sc *exchange.SymbolConstraints) error {
	if quantity <= 0 {
		return validationErrorf("quantity", "数量必须为正: %v", quantity)
	}

	qty := decimal.NewFromFloat(quantity)
	if qty.LessThan(v.minQuantity) {
		return validationErrorf("quantity", "数量过小: %s，最小值: %s", qty.String(), v.minQuantity.String())
	}

	if lot, ok := sc.Filter(exchange.FilterLotSize); ok {
		return checkFilter("quantity", qty, lot)
	}
	return nil
}

// Price 校验价格。price 为 0 视为未提供，直接跳过。
// 存在 PRICE_FILTER 约束时需落在 [minPrice, maxPrice] 且为 tickSize 的整数倍。
func (v *Validator) Price(field string, price float64, sc *exchange.SymbolConstraints) error {
	if price == 0 {
		return nil
	}
	if price < 0 {
		return validationErrorf(field, "价格必须为正: %v", price)
	}

	if pf, ok := sc.Filter(exchange.FilterPriceFilter); ok {
		return checkFilter(field, decimal.NewFromFloat(price), pf)
	}
	return nil
}

// Intent 对完整下单意图做逐字段与跨字段校验，返回字段归一化后的副本。
func (v *Validator) Intent(in Intent, sc *exchange.SymbolConstraints) (Intent, error) {
	symbol, err := v.Symbol(in.Symbol)
	if err != nil {
		return Intent{}, err
	}
	side, err := v.Side(string(in.Side))
	if err != nil {
		return Intent{}, err
	}
	kind, err := v.Kind(string(in.Kind))
	if err != nil {
		return Intent{}, err
	}
	if err := v.Quantity(in.Quantity, sc); err != nil {
		return Intent{}, err
	}
	if err := v.Price("price", in.Price, sc); err != nil {
		return Intent{}, err
	}
	if err := v.Price("stop_price", in.StopPrice, sc); err != nil {
		return Intent{}, err
	}
	tif, err := v.TimeInForce(string(in.TimeInForce))
	if err != nil {
		return Intent{}, err
	}

	validated := in
	validated.Symbol = symbol
	validated.Side = side
	validated.Kind = kind
	validated.TimeInForce = tif

	if err := crossFieldCheck(validated); err != nil {
		return Intent{}, err
	}
	return validated, nil
}

// crossFieldCheck 在逐字段校验之后执行：
// LIMIT 必须携带 price；STOP_LIMIT/OCO 必须同时携带 price 与 stop_price；
// MARKET 不得携带 price。
func crossFieldCheck(in Intent) error {
	hasPrice := in.Price > 0
	hasStop := in.StopPrice > 0

	switch in.Kind {
	case KindLimit:
		if !hasPrice {
			return validationErrorf("price", "LIMIT 订单必须携带价格")
		}
	case KindStopLimit:
		if !hasPrice {
			return validationErrorf("price", "STOP_LIMIT 订单必须携带价格")
		}
		if !hasStop {
			return validationErrorf("stop_price", "STOP_LIMIT 订单必须携带触发价")
		}
	case KindOCO:
		if !hasPrice {
			return validationErrorf("price", "OCO 订单必须携带价格")
		}
		if !hasStop {
			return validationErrorf("stop_price", "OCO 订单必须携带触发价")
		}
	case KindMarket:
		if hasPrice {
			return validationErrorf("price", "MARKET 订单不得携带价格")
		}
	}
	return nil
}

// checkFilter 按交易所过滤器校验一个十进制数值。
// 步进不对齐时给出按步进向下取整后的最大合法值作为建议。
func checkFilter(field string, value decimal.Decimal, f exchange.Filter) error {
	if f.Min.IsPositive() && value.LessThan(f.Min) {
		return validationErrorf(field, "低于最小值: %s，最小值: %s", value.String(), f.Min.String())
	}
	if f.Max.IsPositive() && value.GreaterThan(f.Max) {
		return validationErrorf(field, "高于最大值: %s，最大值: %s", value.String(), f.Max.String())
	}
	if f.Step.IsPositive() {
		remainder := value.Mod(f.Step)
		if !remainder.IsZero() {
			suggested := value.Sub(remainder)
			return &ValidationError{
				Field:      field,
				Message:    "步进不对齐: " + value.String() + "，必须是 " + f.Step.String() + " 的整数倍",
				Suggestion: suggested.String(),
			}
		}
	}
	return nil
}
