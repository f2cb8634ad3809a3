package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"futures-bot/internal/config"
	"futures-bot/internal/log"
)

// Client 封装 Binance USDⓈ-M 合约客户端，所有远程调用都经过统一重试策略。
// 本地不缓存任何订单或持仓状态，每次查询都是一次全新远程调用；
// 市场元数据仅为符号解析缓存一份。
type Client struct {
	cfg      config.ExchangeConfig
	logger   *zap.Logger
	exchange *ccxt.Binanceusdm
	retry    *Retryer

	marketsMu      sync.Mutex
	marketsLoaded  bool
	unifiedByID    map[string]string
	marketInfoByID map[string]map[string]interface{}
}

// NewClient 构造交易所客户端。
func NewClient(cfg config.ExchangeConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "future",
		},
	}

	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	ex := ccxt.NewBinanceusdm(userConfig)
	if cfg.UseTestnet {
		ex.SetSandboxMode(true)
	}

	policy := RetryPolicy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
	}

	logger.Info("交易所客户端已初始化",
		zap.String("component", "exchange"),
		zap.String("event", "client_initialized"),
		zap.Bool("testnet", cfg.UseTestnet),
		zap.String("api_key", log.MaskKey(cfg.APIKey)),
	)

	return &Client{
		cfg:      cfg,
		logger:   logger,
		exchange: ex,
		retry:    NewRetryer(policy, IsTransient, logger),
	}, nil
}

// CreateOrder 提交一笔原生订单并返回回执。
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (OrderReceipt, error) {
	unified, err := c.resolveSymbol(ctx, req.Symbol)
	if err != nil {
		return OrderReceipt{}, err
	}

	ccxtType, params := translateRequest(req)

	c.logger.Info("提交订单",
		zap.String("component", "exchange"),
		zap.String("event", "placing_order"),
		zap.String("symbol", req.Symbol),
		zap.String("side", req.Side),
		zap.String("type", req.Type),
		zap.Float64("quantity", req.Quantity),
		zap.Float64("price", req.Price),
		zap.Float64("stop_price", req.StopPrice),
		zap.String("client_order_id", req.ClientOrderID),
	)

	var raw ccxt.Order
	err = c.retry.Do(ctx, "create_order", func() error {
		opts := []ccxt.CreateOrderOptions{ccxt.WithCreateOrderParams(params)}
		if req.Price > 0 {
			opts = append(opts, ccxt.WithCreateOrderPrice(req.Price))
		}

		order, callErr := c.exchange.CreateOrder(unified, ccxtType, strings.ToLower(req.Side), req.Quantity, opts...)
		if callErr != nil {
			return callErr
		}
		raw = order
		return nil
	})
	if err != nil {
		return OrderReceipt{}, err
	}

	receipt := receiptFromOrder(req, raw)

	c.logger.Info("订单已受理",
		zap.String("component", "exchange"),
		zap.String("event", "order_placed"),
		zap.String("order_id", receipt.OrderID),
		zap.String("symbol", receipt.Symbol),
		zap.String("status", receipt.Status),
	)

	return receipt, nil
}

// CancelOrder 撤销指定订单。
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) (CancelAck, error) {
	unified, err := c.resolveSymbol(ctx, symbol)
	if err != nil {
		return CancelAck{}, err
	}

	var raw ccxt.Order
	err = c.retry.Do(ctx, "cancel_order", func() error {
		order, callErr := c.exchange.CancelOrder(orderID, ccxt.WithCancelOrderSymbol(unified))
		if callErr != nil {
			return callErr
		}
		raw = order
		return nil
	})
	if err != nil {
		return CancelAck{}, err
	}

	ack := CancelAck{
		OrderID: derefString(raw.Id),
		Symbol:  strings.ToUpper(symbol),
		Status:  derefString(raw.Status),
	}
	if ack.OrderID == "" {
		ack.OrderID = orderID
	}

	c.logger.Info("订单已撤销",
		zap.String("component", "exchange"),
		zap.String("event", "order_cancelled"),
		zap.String("order_id", ack.OrderID),
		zap.String("symbol", ack.Symbol),
	)

	return ack, nil
}

// GetOrder 查询订单当前状态。
func (c *Client) GetOrder(ctx context.Context, symbol, orderID string) (OrderReceipt, error) {
	unified, err := c.resolveSymbol(ctx, symbol)
	if err != nil {
		return OrderReceipt{}, err
	}

	var raw ccxt.Order
	err = c.retry.Do(ctx, "get_order", func() error {
		order, callErr := c.exchange.FetchOrder(orderID, ccxt.WithFetchOrderSymbol(unified))
		if callErr != nil {
			return callErr
		}
		raw = order
		return nil
	})
	if err != nil {
		return OrderReceipt{}, err
	}

	return receiptFromFetchedOrder(strings.ToUpper(symbol), raw), nil
}

// SymbolConstraints 拉取指定交易对的数量/价格约束。
func (c *Client) SymbolConstraints(ctx context.Context, symbol string) (*SymbolConstraints, error) {
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}

	key := strings.ToUpper(strings.TrimSpace(symbol))
	c.marketsMu.Lock()
	info, ok := c.marketInfoByID[key]
	c.marketsMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("交易所不支持交易对 %s", key)
	}

	return parseConstraints(key, info)
}

// AccountInfo 查询合约账户概览。
func (c *Client) AccountInfo(ctx context.Context) (AccountInfo, error) {
	var raw ccxt.Balances
	err := c.retry.Do(ctx, "account_info", func() error {
		balances, callErr := c.exchange.FetchBalance()
		if callErr != nil {
			return callErr
		}
		raw = balances
		return nil
	})
	if err != nil {
		return AccountInfo{}, err
	}

	return parseAccountInfo(raw.Info), nil
}

// Ping 做一次轻量连通性探测。
func (c *Client) Ping(ctx context.Context) error {
	return c.retry.Do(ctx, "ping", func() error {
		_, err := c.exchange.FetchTime()
		return err
	})
}

func (c *Client) resolveSymbol(ctx context.Context, symbol string) (string, error) {
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return "", err
	}

	key := strings.ToUpper(strings.TrimSpace(symbol))
	c.marketsMu.Lock()
	unified, ok := c.unifiedByID[key]
	c.marketsMu.Unlock()
	if !ok {
		return "", fmt.Errorf("交易所不支持交易对 %s", key)
	}
	return unified, nil
}

func (c *Client) ensureMarketsLoaded(ctx context.Context) error {
	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	if c.marketsLoaded {
		return nil
	}

	var markets []ccxt.MarketInterface
	loadErr := c.retry.Do(ctx, "load_markets", func() error {
		result, err := c.exchange.FetchMarkets()
		if err != nil {
			return err
		}
		markets = result
		return nil
	})
	if loadErr != nil {
		return loadErr
	}

	c.unifiedByID = make(map[string]string, len(markets))
	c.marketInfoByID = make(map[string]map[string]interface{}, len(markets))
	for _, market := range markets {
		id := strings.ToUpper(derefString(market.Id))
		unified := derefString(market.Symbol)
		if id == "" || unified == "" {
			continue
		}
		c.unifiedByID[id] = unified
		c.marketInfoByID[id] = market.Info
	}

	c.marketsLoaded = true
	c.logger.Info("已完成市场元数据加载",
		zap.String("component", "exchange"),
		zap.String("event", "markets_loaded"),
		zap.Int("market_count", len(c.unifiedByID)),
	)
	return nil
}

// translateRequest 将原生订单类型翻译为 ccxt 统一词汇。
// 币安的 STOP / STOP_MARKET 在 ccxt 中通过 limit/market 类型叠加
// stopPrice 参数表达。
func translateRequest(req OrderRequest) (string, map[string]interface{}) {
	params := map[string]interface{}{}
	if req.TimeInForce != "" {
		params["timeInForce"] = req.TimeInForce
	}
	if req.ClientOrderID != "" {
		params["newClientOrderId"] = req.ClientOrderID
	}

	switch req.Type {
	case "STOP":
		params["stopPrice"] = req.StopPrice
		return "limit", params
	case "STOP_MARKET":
		params["stopPrice"] = req.StopPrice
		return "market", params
	default:
		return strings.ToLower(req.Type), params
	}
}
