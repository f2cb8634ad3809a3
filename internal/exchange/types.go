package exchange

import (
	"time"

	"github.com/shopspring/decimal"
)

// 交易所下发的约束过滤器类型。
const (
	FilterLotSize     = "LOT_SIZE"
	FilterPriceFilter = "PRICE_FILTER"
)

// OrderRequest 是提交给交易所的原生订单请求。
// Price/StopPrice 为 0 表示该字段不携带（合法价格与数量校验后均严格为正），
// TimeInForce 为空串表示不携带（市价类订单不接受该字段）。
type OrderRequest struct {
	Symbol        string
	Side          string // BUY | SELL
	Type          string // 原生订单类型：MARKET | LIMIT | STOP | STOP_MARKET ...
	Quantity      float64
	Price         float64
	StopPrice     float64
	TimeInForce   string
	ClientOrderID string
}

// OrderReceipt 为交易所返回的订单回执快照，构造后不再修改。
type OrderReceipt struct {
	OrderID          string
	ClientOrderID    string
	Symbol           string
	Status           string
	Side             string
	Kind             string
	Quantity         float64
	Price            float64
	StopPrice        float64
	ExecutedQuantity float64
	AveragePrice     float64
	UpdateTime       time.Time
}

// CancelAck 为撤单确认。
type CancelAck struct {
	OrderID string
	Symbol  string
	Status  string
}

// Filter 描述单条交易所数值约束，数值保留精确十进制表示。
type Filter struct {
	Kind string
	Min  decimal.Decimal
	Max  decimal.Decimal
	Step decimal.Decimal
}

// SymbolConstraints 聚合单个交易对的交易所约束，按需拉取、只读。
type SymbolConstraints struct {
	Symbol         string
	BasePrecision  int
	QuotePrecision int
	Filters        []Filter
}

// Filter 返回指定类型的过滤器。
func (c *SymbolConstraints) Filter(kind string) (Filter, bool) {
	if c == nil {
		return Filter{}, false
	}
	for _, f := range c.Filters {
		if f.Kind == kind {
			return f, true
		}
	}
	return Filter{}, false
}

// AssetBalance 为账户单个资产余额。
type AssetBalance struct {
	Asset            string
	WalletBalance    float64
	AvailableBalance float64
}

// AccountInfo 为合约账户概览。
type AccountInfo struct {
	TotalWalletBalance float64
	TotalUnrealizedPnL float64
	AvailableBalance   float64
	Assets             []AssetBalance
}
