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

// TWAP 把一笔大单按时间均匀切分为若干等量子单。
// 子单数量为 clamp(duration_minutes/2, 5, 20)，间隔为整秒。
// 子单串行提交，间隔期间阻塞调用方，这是有意的节奏控制。
type TWAP struct {
	client    orderClient
	validator *order.Validator
	market    *Market
	limit     *Limit
	logger    *zap.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// TWAPParams 描述一次 TWAP 执行请求。
type TWAPParams struct {
	Symbol          string
	Side            string
	TotalQuantity   float64
	DurationMinutes int
	Kind            string // MARKET | LIMIT
	Price           float64
	TimeInForce     string
}

// TWAPSlot 为执行计划中的一笔子单。
type TWAPSlot struct {
	Index         int
	Offset        time.Duration
	Quantity      float64
	Price         float64 // LIMIT 模式下携带
	ClientOrderID string
}

// TWAPPlan 在计划期一次性生成，执行期间只读。
type TWAPPlan struct {
	Symbol           string
	Side             order.Side
	Kind             order.Kind
	TotalQuantity    float64
	Duration         time.Duration
	NumOrders        int
	Interval         time.Duration
	QuantityPerOrder float64
	Slots            []TWAPSlot
	GeneratedAt      time.Time
}

// TWAPResult 汇总一次执行：成功回执与执行比例。
// 部分子单失败不是错误，体现在 ExecutionRatio < 1。
type TWAPResult struct {
	Plan             TWAPPlan
	Receipts         []exchange.OrderReceipt
	ExecutedQuantity float64
	ExecutionRatio   float64
}

const (
	twapMinOrders = 5
	twapMaxOrders = 20
)

// NewTWAP 创建 TWAP 策略。
func NewTWAP(client orderClient, v *order.Validator, logger *zap.Logger) *TWAP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TWAP{
		client:    client,
		validator: v,
		market:    NewMarket(client, v, logger),
		limit:     NewLimit(client, v, logger),
		logger:    logger,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Simulate 计算完整子单排期但不提交任何订单，用于预演。
func (s *TWAP) Simulate(p TWAPParams) (TWAPPlan, error) {
	return s.plan(p)
}

func (s *TWAP) plan(p TWAPParams) (TWAPPlan, error) {
	symbol, err := s.validator.Symbol(p.Symbol)
	if err != nil {
		return TWAPPlan{}, err
	}
	side, err := s.validator.Side(p.Side)
	if err != nil {
		return TWAPPlan{}, err
	}
	kind, err := childKind(p.Kind)
	if err != nil {
		return TWAPPlan{}, err
	}
	if p.DurationMinutes <= 0 {
		return TWAPPlan{}, &order.ValidationError{Field: "duration", Message: "执行时长必须为正"}
	}
	if p.TotalQuantity <= 0 {
		return TWAPPlan{}, &order.ValidationError{Field: "total_quantity", Message: "总数量必须为正"}
	}
	if kind == order.KindLimit && p.Price <= 0 {
		return TWAPPlan{}, &order.ValidationError{Field: "price", Message: "LIMIT 模式必须携带价格"}
	}

	numOrders := p.DurationMinutes / 2
	if numOrders < twapMinOrders {
		numOrders = twapMinOrders
	}
	if numOrders > twapMaxOrders {
		numOrders = twapMaxOrders
	}

	interval := time.Duration((p.DurationMinutes*60)/numOrders) * time.Second
	perOrder := decimal.NewFromFloat(p.TotalQuantity).
		Div(decimal.NewFromInt(int64(numOrders))).
		InexactFloat64()

	start := s.now()
	plan := TWAPPlan{
		Symbol:           symbol,
		Side:             side,
		Kind:             kind,
		TotalQuantity:    p.TotalQuantity,
		Duration:         time.Duration(p.DurationMinutes) * time.Minute,
		NumOrders:        numOrders,
		Interval:         interval,
		QuantityPerOrder: perOrder,
		GeneratedAt:      start,
	}

	plan.Slots = make([]TWAPSlot, 0, numOrders)
	for i := 0; i < numOrders; i++ {
		slot := TWAPSlot{
			Index:         i,
			Offset:        time.Duration(i) * interval,
			Quantity:      perOrder,
			ClientOrderID: fmt.Sprintf("TWAP_%s_%d_%d", symbol, start.Unix(), i),
		}
		if kind == order.KindLimit {
			slot.Price = p.Price
		}
		plan.Slots = append(plan.Slots, slot)
	}

	return plan, nil
}

// Execute 生成计划并逐槽执行。
// 每槽执行前重新计算已耗时，计划时长耗尽时提前收尾（剩余槽不再执行，属正常退出）；
// 单槽提交失败记录后跳过，不中断整个计划；槽间按计划间隔挂起。
func (s *TWAP) Execute(ctx context.Context, p TWAPParams) (TWAPResult, error) {
	plan, err := s.plan(p)
	if err != nil {
		return TWAPResult{}, err
	}

	s.logger.Info("开始 TWAP 执行",
		zap.String("component", "twap_order"),
		zap.String("event", "starting_twap_execution"),
		zap.String("symbol", plan.Symbol),
		zap.String("side", string(plan.Side)),
		zap.Float64("total_quantity", plan.TotalQuantity),
		zap.Int("num_orders", plan.NumOrders),
		zap.Duration("interval", plan.Interval),
		zap.Float64("quantity_per_order", plan.QuantityPerOrder),
	)

	sc := fetchConstraints(ctx, s.client, s.logger, "twap_order", plan.Symbol)

	result := TWAPResult{Plan: plan}
	start := s.now()

	for i, slot := range plan.Slots {
		elapsed := s.now().Sub(start)
		if elapsed >= plan.Duration {
			s.logger.Warn("计划时长已耗尽，剩余子单不再执行",
				zap.String("component", "twap_order"),
				zap.String("event", "duration_exceeded"),
				zap.Int("order_index", slot.Index),
				zap.Int("total_orders", plan.NumOrders),
			)
			break
		}

		in := order.Intent{
			Symbol:        plan.Symbol,
			Side:          plan.Side,
			Quantity:      slot.Quantity,
			Price:         slot.Price,
			TimeInForce:   order.TimeInForce(p.TimeInForce),
			ClientOrderID: slot.ClientOrderID,
		}

		var receipt exchange.OrderReceipt
		var placeErr error
		if plan.Kind == order.KindMarket {
			receipt, placeErr = s.market.place(ctx, in, sc)
		} else {
			receipt, placeErr = s.limit.place(ctx, in, sc)
		}

		if placeErr != nil {
			if abortable(placeErr) {
				return s.finish(result), placeErr
			}
			s.logger.Error("TWAP 子单失败，继续后续子单",
				zap.String("component", "twap_order"),
				zap.String("event", "twap_order_failed"),
				zap.Int("order_index", slot.Index+1),
				zap.Int("total_orders", plan.NumOrders),
				zap.Error(placeErr),
			)
		} else {
			result.Receipts = append(result.Receipts, receipt)
			s.logger.Info("TWAP 子单已提交",
				zap.String("component", "twap_order"),
				zap.String("event", "twap_order_placed"),
				zap.Int("order_index", slot.Index+1),
				zap.Int("total_orders", plan.NumOrders),
				zap.String("order_id", receipt.OrderID),
				zap.Float64("quantity", slot.Quantity),
			)
		}

		if i < len(plan.Slots)-1 {
			if err := s.sleep(ctx, plan.Interval); err != nil {
				return s.finish(result), err
			}
		}
	}

	result = s.finish(result)

	s.logger.Info("TWAP 执行结束",
		zap.String("component", "twap_order"),
		zap.String("event", "twap_execution_completed"),
		zap.Int("orders_placed", len(result.Receipts)),
		zap.Float64("total_quantity_requested", plan.TotalQuantity),
		zap.Float64("total_quantity_executed", result.ExecutedQuantity),
		zap.Float64("execution_ratio", result.ExecutionRatio),
	)
	return result, nil
}

func (s *TWAP) finish(result TWAPResult) TWAPResult {
	executed := decimal.Zero
	for _, r := range result.Receipts {
		executed = executed.Add(decimal.NewFromFloat(r.ExecutedQuantity))
	}
	result.ExecutedQuantity = executed.InexactFloat64()
	if result.Plan.TotalQuantity > 0 {
		result.ExecutionRatio = executed.
			Div(decimal.NewFromFloat(result.Plan.TotalQuantity)).
			InexactFloat64()
	}
	return result
}

func childKind(kind string) (order.Kind, error) {
	switch order.Kind(kind) {
	case order.KindMarket, "":
		return order.KindMarket, nil
	case order.KindLimit:
		return order.KindLimit, nil
	default:
		return "", &order.ValidationError{
			Field:   "order_type",
			Message: fmt.Sprintf("子单类型必须为 MARKET 或 LIMIT: %s", kind),
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
