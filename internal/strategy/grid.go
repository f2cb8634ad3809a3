package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"futures-bot/internal/exchange"
	"futures-bot/internal/order"
)

// Grid 在价格区间内等距铺设限价单阶梯。
// BUY 网格从区间下沿向上铺，SELL 网格从区间上沿向下铺，
// 两个方向都从各自有利端起步。仅允许 LIMIT 子单。
type Grid struct {
	client    orderClient
	validator *order.Validator
	limit     *Limit
	logger    *zap.Logger

	pause time.Duration
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// GridParams 描述一次网格执行请求。
type GridParams struct {
	Symbol        string
	Side          string
	TotalQuantity float64
	MinPrice      float64
	MaxPrice      float64
	NumLevels     int
	Kind          string // 仅允许 LIMIT，空串视为 LIMIT
	TimeInForce   string
}

// GridLevel 为阶梯中的一档。
type GridLevel struct {
	Index         int
	Price         float64
	Quantity      float64
	ClientOrderID string
}

// GridPlan 在计划期一次性生成，执行期间只读。
type GridPlan struct {
	Symbol           string
	Side             order.Side
	TotalQuantity    float64
	MinPrice         float64
	MaxPrice         float64
	NumLevels        int
	PriceStep        float64
	QuantityPerLevel float64
	Levels           []GridLevel
	GeneratedAt      time.Time
}

// GridResult 汇总一次执行：成功回执与铺设比例。
type GridResult struct {
	Plan           GridPlan
	Receipts       []exchange.OrderReceipt
	PlacedQuantity float64
	PlacementRatio float64
}

const defaultGridPause = 100 * time.Millisecond

// NewGrid 创建网格策略。pause 为相邻两档之间的固定停顿，
// 用于避让交易所限流，传 0 使用默认值。
func NewGrid(client orderClient, v *order.Validator, pause time.Duration, logger *zap.Logger) *Grid {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pause <= 0 {
		pause = defaultGridPause
	}
	return &Grid{
		client:    client,
		validator: v,
		limit:     NewLimit(client, v, logger),
		logger:    logger,
		pause:     pause,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Simulate 计算完整阶梯排期但不提交任何订单。
func (s *Grid) Simulate(p GridParams) (GridPlan, error) {
	return s.plan(p)
}

func (s *Grid) plan(p GridParams) (GridPlan, error) {
	symbol, err := s.validator.Symbol(p.Symbol)
	if err != nil {
		return GridPlan{}, err
	}
	side, err := s.validator.Side(p.Side)
	if err != nil {
		return GridPlan{}, err
	}
	switch order.Kind(p.Kind) {
	case order.KindLimit, "":
	case order.KindMarket:
		return GridPlan{}, &order.ValidationError{Field: "order_type", Message: "网格只允许 LIMIT 子单"}
	default:
		return GridPlan{}, &order.ValidationError{Field: "order_type", Message: fmt.Sprintf("非法子单类型: %s", p.Kind)}
	}
	if p.TotalQuantity <= 0 {
		return GridPlan{}, &order.ValidationError{Field: "total_quantity", Message: "总数量必须为正"}
	}
	if p.MinPrice <= 0 || p.MaxPrice <= 0 {
		return GridPlan{}, &order.ValidationError{Field: "price_range", Message: "价格区间必须为正"}
	}
	if p.MinPrice >= p.MaxPrice {
		return GridPlan{}, &order.ValidationError{Field: "price_range", Message: "区间下沿必须小于上沿"}
	}
	if p.NumLevels < 2 {
		return GridPlan{}, &order.ValidationError{Field: "num_levels", Message: "档位数量必须大于1"}
	}

	minD := decimal.NewFromFloat(p.MinPrice)
	maxD := decimal.NewFromFloat(p.MaxPrice)
	stepD := maxD.Sub(minD).Div(decimal.NewFromInt(int64(p.NumLevels - 1)))
	perLevel := decimal.NewFromFloat(p.TotalQuantity).
		Div(decimal.NewFromInt(int64(p.NumLevels))).
		InexactFloat64()

	start := s.now()
	plan := GridPlan{
		Symbol:           symbol,
		Side:             side,
		TotalQuantity:    p.TotalQuantity,
		MinPrice:         p.MinPrice,
		MaxPrice:         p.MaxPrice,
		NumLevels:        p.NumLevels,
		PriceStep:        stepD.InexactFloat64(),
		QuantityPerLevel: perLevel,
		GeneratedAt:      start,
	}

	plan.Levels = make([]GridLevel, 0, p.NumLevels)
	for i := 0; i < p.NumLevels; i++ {
		offset := stepD.Mul(decimal.NewFromInt(int64(i)))
		var price decimal.Decimal
		if side == order.SideBuy {
			price = minD.Add(offset)
		} else {
			price = maxD.Sub(offset)
		}
		plan.Levels = append(plan.Levels, GridLevel{
			Index:         i,
			Price:         price.InexactFloat64(),
			Quantity:      perLevel,
			ClientOrderID: fmt.Sprintf("GRID_%s_%d_%d", symbol, start.Unix(), i),
		})
	}

	return plan, nil
}

// Execute 生成阶梯并逐档提交限价单。
// 单档失败记录后跳过，不中断剩余档位；相邻档位之间固定停顿。
func (s *Grid) Execute(ctx context.Context, p GridParams) (GridResult, error) {
	plan, err := s.plan(p)
	if err != nil {
		return GridResult{}, err
	}

	s.logger.Info("开始铺设网格",
		zap.String("component", "grid_order"),
		zap.String("event", "creating_grid"),
		zap.String("symbol", plan.Symbol),
		zap.String("side", string(plan.Side)),
		zap.Float64("total_quantity", plan.TotalQuantity),
		zap.Int("num_levels", plan.NumLevels),
		zap.Float64("price_step", plan.PriceStep),
		zap.Float64("quantity_per_level", plan.QuantityPerLevel),
	)

	sc := fetchConstraints(ctx, s.client, s.logger, "grid_order", plan.Symbol)

	result := GridResult{Plan: plan}

	for i, level := range plan.Levels {
		in := order.Intent{
			Symbol:        plan.Symbol,
			Side:          plan.Side,
			Quantity:      level.Quantity,
			Price:         level.Price,
			TimeInForce:   order.TimeInForce(p.TimeInForce),
			ClientOrderID: level.ClientOrderID,
		}

		receipt, placeErr := s.limit.place(ctx, in, sc)
		if placeErr != nil {
			if abortable(placeErr) {
				return s.finish(result), placeErr
			}
			s.logger.Error("网格档位失败，继续剩余档位",
				zap.String("component", "grid_order"),
				zap.String("event", "grid_order_failed"),
				zap.Int("level", level.Index+1),
				zap.Int("total_levels", plan.NumLevels),
				zap.Float64("price", level.Price),
				zap.Error(placeErr),
			)
		} else {
			result.Receipts = append(result.Receipts, receipt)
			s.logger.Info("网格档位已提交",
				zap.String("component", "grid_order"),
				zap.String("event", "grid_order_placed"),
				zap.Int("level", level.Index+1),
				zap.Int("total_levels", plan.NumLevels),
				zap.Float64("price", level.Price),
				zap.String("order_id", receipt.OrderID),
			)
		}

		if i < len(plan.Levels)-1 {
			if err := s.sleep(ctx, s.pause); err != nil {
				return s.finish(result), err
			}
		}
	}

	result = s.finish(result)

	s.logger.Info("网格铺设结束",
		zap.String("component", "grid_order"),
		zap.String("event", "grid_creation_completed"),
		zap.Int("levels_placed", len(result.Receipts)),
		zap.Int("levels_requested", plan.NumLevels),
		zap.Float64("quantity_placed", result.PlacedQuantity),
		zap.Float64("placement_ratio", result.PlacementRatio),
	)
	return result, nil
}

func (s *Grid) finish(result GridResult) GridResult {
	placed := decimal.Zero
	for _, r := range result.Receipts {
		placed = placed.Add(decimal.NewFromFloat(r.Quantity))
	}
	result.PlacedQuantity = placed.InexactFloat64()
	if result.Plan.NumLevels > 0 {
		result.PlacementRatio = float64(len(result.Receipts)) / float64(result.Plan.NumLevels)
	}
	return result
}
