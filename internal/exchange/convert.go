package exchange

import (
	"fmt"
	"strconv"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/shopspring/decimal"
)

// 边界转换：ccxt 返回的松散结构在此解析为内部类型，
// 字段缺失回退到请求侧已知值，调用方不再接触原始字典。

func receiptFromOrder(req OrderRequest, o ccxt.Order) OrderReceipt {
	receipt := OrderReceipt{
		OrderID:          derefString(o.Id),
		ClientOrderID:    derefString(o.ClientOrderId),
		Symbol:           req.Symbol,
		Status:           derefString(o.Status),
		Side:             req.Side,
		Kind:             req.Type,
		Quantity:         derefFloat(o.Amount),
		Price:            derefFloat(o.Price),
		StopPrice:        derefFloat(o.TriggerPrice),
		ExecutedQuantity: derefFloat(o.Filled),
		AveragePrice:     derefFloat(o.Average),
	}

	if receipt.ClientOrderID == "" {
		receipt.ClientOrderID = req.ClientOrderID
	}
	if receipt.Quantity == 0 {
		receipt.Quantity = req.Quantity
	}
	if receipt.Price == 0 {
		receipt.Price = req.Price
	}
	if receipt.StopPrice == 0 {
		receipt.StopPrice = req.StopPrice
	}

	ts := derefInt(o.LastUpdateTimestamp)
	if ts == 0 {
		ts = derefInt(o.Timestamp)
	}
	if ts > 0 {
		receipt.UpdateTime = time.UnixMilli(ts).UTC()
	} else {
		receipt.UpdateTime = time.Now().UTC()
	}

	return receipt
}

func receiptFromFetchedOrder(symbol string, o ccxt.Order) OrderReceipt {
	req := OrderRequest{
		Symbol: symbol,
		Side:   derefString(o.Side),
		Type:   derefString(o.Type),
	}
	return receiptFromOrder(req, o)
}

// parseConstraints 从交易所元数据原始字典解析交易对约束。
// 期望的形状即币安 exchangeInfo 单个 symbol 条目：
// filters 列表携带 LOT_SIZE(minQty/maxQty/stepSize) 与 PRICE_FILTER(minPrice/maxPrice/tickSize)。
func parseConstraints(symbol string, info map[string]interface{}) (*SymbolConstraints, error) {
	if info == nil {
		return nil, fmt.Errorf("交易对 %s 缺少元数据", symbol)
	}

	sc := &SymbolConstraints{
		Symbol:         symbol,
		BasePrecision:  int(asFloat(info["baseAssetPrecision"])),
		QuotePrecision: int(asFloat(info["quotePrecision"])),
	}

	rawFilters, ok := info["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("交易对 %s 元数据缺少 filters", symbol)
	}

	for _, raw := range rawFilters {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		switch asString(entry["filterType"]) {
		case FilterLotSize:
			sc.Filters = append(sc.Filters, Filter{
				Kind: FilterLotSize,
				Min:  asDecimal(entry["minQty"]),
				Max:  asDecimal(entry["maxQty"]),
				Step: asDecimal(entry["stepSize"]),
			})
		case FilterPriceFilter:
			sc.Filters = append(sc.Filters, Filter{
				Kind: FilterPriceFilter,
				Min:  asDecimal(entry["minPrice"]),
				Max:  asDecimal(entry["maxPrice"]),
				Step: asDecimal(entry["tickSize"]),
			})
		}
	}

	return sc, nil
}

// parseAccountInfo 解析币安合约账户概览。
func parseAccountInfo(info map[string]interface{}) AccountInfo {
	account := AccountInfo{
		TotalWalletBalance: asFloat(info["totalWalletBalance"]),
		TotalUnrealizedPnL: asFloat(info["totalUnrealizedProfit"]),
		AvailableBalance:   asFloat(info["availableBalance"]),
	}

	rawAssets, ok := info["assets"].([]interface{})
	if !ok {
		return account
	}
	for _, raw := range rawAssets {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		balance := AssetBalance{
			Asset:            asString(entry["asset"]),
			WalletBalance:    asFloat(entry["walletBalance"]),
			AvailableBalance: asFloat(entry["availableBalance"]),
		}
		if balance.Asset == "" || balance.WalletBalance == 0 && balance.AvailableBalance == 0 {
			continue
		}
		account.Assets = append(account.Assets, balance)
	}

	return account
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return f
	case int:
		return float64(value)
	case int64:
		return float64(value)
	default:
		return 0
	}
}

func asDecimal(v interface{}) decimal.Decimal {
	switch value := v.(type) {
	case string:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(value)
	default:
		return decimal.Zero
	}
}
