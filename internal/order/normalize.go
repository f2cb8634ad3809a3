package order

import "futures-bot/internal/exchange"

// Normalize 把校验后的下单意图转换为交易所原生订单请求。
// OCO/TWAP/GRID 没有原生对应，返回 UnsupportedKindError，
// 应由相应策略拆解后再经由本函数逐笔归一化。
// 市价类原生订单不携带 timeInForce 字段。
func Normalize(in Intent) (exchange.OrderRequest, error) {
	native, ok := MapNative(in.Kind)
	if !ok {
		return exchange.OrderRequest{}, &UnsupportedKindError{Kind: in.Kind}
	}

	req := exchange.OrderRequest{
		Symbol:        in.Symbol,
		Side:          string(in.Side),
		Type:          string(native),
		Quantity:      in.Quantity,
		ClientOrderID: in.ClientOrderID,
	}

	if in.Price > 0 {
		req.Price = in.Price
	}
	if in.StopPrice > 0 {
		req.StopPrice = in.StopPrice
	}
	if !native.MarketStyle() {
		tif := in.TimeInForce
		if tif == "" {
			tif = TIFGoodTillCancel
		}
		req.TimeInForce = string(tif)
	}

	return req, nil
}
