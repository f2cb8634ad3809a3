package order

// Side 表示下单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 返回相反方向。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Kind 表示抽象订单类型。MARKET/LIMIT/STOP_LIMIT 存在原生对应，
// OCO/TWAP/GRID 必须由执行策略拆解为多笔原生订单。
type Kind string

const (
	KindMarket    Kind = "MARKET"
	KindLimit     Kind = "LIMIT"
	KindStopLimit Kind = "STOP_LIMIT"
	KindOCO       Kind = "OCO"
	KindTWAP      Kind = "TWAP"
	KindGrid      Kind = "GRID"
)

// Kinds 列出全部抽象订单类型。
func Kinds() []Kind {
	return []Kind{KindMarket, KindLimit, KindStopLimit, KindOCO, KindTWAP, KindGrid}
}

// TimeInForce 表示订单有效期策略。
type TimeInForce string

const (
	TIFGoodTillCancel    TimeInForce = "GTC"
	TIFImmediateOrCancel TimeInForce = "IOC"
	TIFFillOrKill        TimeInForce = "FOK"
)

// NativeKind 为交易所原生订单类型。
type NativeKind string

const (
	NativeMarket             NativeKind = "MARKET"
	NativeLimit              NativeKind = "LIMIT"
	NativeStop               NativeKind = "STOP"
	NativeStopMarket         NativeKind = "STOP_MARKET"
	NativeTakeProfitMarket   NativeKind = "TAKE_PROFIT_MARKET"
	NativeTrailingStopMarket NativeKind = "TRAILING_STOP_MARKET"
)

// MarketStyle 判断原生类型是否为市价类，市价类订单不携带 timeInForce。
func (k NativeKind) MarketStyle() bool {
	switch k {
	case NativeMarket, NativeStopMarket, NativeTakeProfitMarket, NativeTrailingStopMarket:
		return true
	default:
		return false
	}
}

// MapNative 把抽象订单类型映射为原生类型，是一个全函数：
// 返回 ok=false 表示该类型没有原生对应，必须交由相应策略拆单，
// 不走异常路径。
func MapNative(k Kind) (NativeKind, bool) {
	switch k {
	case KindMarket:
		return NativeMarket, true
	case KindLimit:
		return NativeLimit, true
	case KindStopLimit:
		// 币安合约的止损限价单原生类型为 STOP，同时携带 price 与 stopPrice。
		return NativeStop, true
	default:
		return "", false
	}
}

// Intent 描述一笔用户下单意图。校验通过后不再修改。
// Price/StopPrice 为 0 表示未提供。
type Intent struct {
	Symbol        string
	Side          Side
	Kind          Kind
	Quantity      float64
	Price         float64
	StopPrice     float64
	TimeInForce   TimeInForce
	ClientOrderID string
}
