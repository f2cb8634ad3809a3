package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"futures-bot/internal/exchange"
	"futures-bot/internal/order"
	"futures-bot/internal/strategy"
)

func (r *runner) cmdPlace(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("place", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	symbol := fs.String("symbol", "", "交易对，如 BTCUSDT")
	side := fs.String("side", "", "方向: BUY 或 SELL")
	kind := fs.String("type", "LIMIT", "订单类型: MARKET/LIMIT/STOP_LIMIT/OCO")
	quantity := fs.Float64("quantity", 0, "下单数量")
	price := fs.Float64("price", 0, "限价 (LIMIT/STOP_LIMIT/OCO)")
	stopPrice := fs.Float64("stop-price", 0, "触发价 (STOP_LIMIT/OCO)")
	tif := fs.String("tif", "", "有效期: GTC/IOC/FOK，留空使用配置默认值")
	clientID := fs.String("client-id", "", "自定义客户端订单号")
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}

	v := r.validator()
	k, err := v.Kind(*kind)
	if err != nil {
		fmt.Fprintf(r.stderr, "参数校验失败: %v\n", err)
		return exitValidation
	}
	if k == order.KindTWAP {
		fmt.Fprintln(r.stderr, "TWAP 属于执行策略，请使用 twap 子命令")
		return exitValidation
	}
	if k == order.KindGrid {
		fmt.Fprintln(r.stderr, "GRID 属于执行策略，请使用 grid 子命令")
		return exitValidation
	}

	in := order.Intent{
		Symbol:        *symbol,
		Side:          order.Side(*side),
		Kind:          k,
		Quantity:      *quantity,
		Price:         *price,
		StopPrice:     *stopPrice,
		TimeInForce:   order.TimeInForce(*tif),
		ClientOrderID: *clientID,
	}

	if r.dryRun {
		return r.placeDryRun(v, in)
	}

	if err := r.ensureClient(ctx); err != nil {
		fmt.Fprintf(r.stderr, "%v\n", err)
		return exitSetup
	}

	switch in.Kind {
	case order.KindOCO:
		oco := strategy.NewOCO(r.client, v, r.logger)
		receipt, err := oco.Place(ctx, in)
		if err != nil {
			fmt.Fprintf(r.stderr, "OCO 下单失败: %v\n", err)
			return exitCodeFor(err)
		}
		r.saveReceipt(ctx, receipt.TakeProfit)
		r.saveReceipt(ctx, receipt.StopLoss)
		fmt.Fprintf(r.stdout, "OCO 订单组已提交: list_id=%s\n", receipt.OrderListID)
		r.printReceipt("止盈腿", receipt.TakeProfit)
		r.printReceipt("止损腿", receipt.StopLoss)
		return exitOK
	case order.KindMarket:
		return r.placeOne(ctx, strategy.NewMarket(r.client, v, r.logger), in)
	case order.KindStopLimit:
		return r.placeOne(ctx, strategy.NewStopLimit(r.client, v, r.logger), in)
	default:
		return r.placeOne(ctx, strategy.NewLimit(r.client, v, r.logger), in)
	}
}

type placer interface {
	Place(ctx context.Context, in order.Intent) (exchange.OrderReceipt, error)
}

func (r *runner) placeOne(ctx context.Context, s placer, in order.Intent) int {
	receipt, err := s.Place(ctx, in)
	if err != nil {
		fmt.Fprintf(r.stderr, "下单失败: %v\n", err)
		return exitCodeFor(err)
	}
	r.saveReceipt(ctx, receipt)
	r.printReceipt("订单已受理", receipt)
	return exitOK
}

// placeDryRun 只做本地校验与类型映射，打印将要发送的请求后返回。
func (r *runner) placeDryRun(v *order.Validator, in order.Intent) int {
	validated, err := v.Intent(in, nil)
	if err != nil {
		fmt.Fprintf(r.stderr, "参数校验失败: %v\n", err)
		return exitValidation
	}

	if validated.Kind == order.KindOCO {
		fmt.Fprintf(r.stdout, "[DRY RUN] OCO 将拆为两腿提交:\n")
		fmt.Fprintf(r.stdout, "  止盈腿: %s %s LIMIT qty=%s price=%s\n",
			validated.Symbol, validated.Side, fnum(validated.Quantity), fnum(validated.Price))
		fmt.Fprintf(r.stdout, "  止损腿: %s %s STOP_MARKET qty=%s stop_price=%s\n",
			validated.Symbol, validated.Side.Opposite(), fnum(validated.Quantity), fnum(validated.StopPrice))
		return exitOK
	}

	req, err := order.Normalize(validated)
	if err != nil {
		fmt.Fprintf(r.stderr, "参数校验失败: %v\n", err)
		return exitValidation
	}
	fmt.Fprintf(r.stdout, "[DRY RUN] 校验通过，将发送: %s %s %s qty=%s",
		req.Symbol, req.Side, req.Type, fnum(req.Quantity))
	if req.Price > 0 {
		fmt.Fprintf(r.stdout, " price=%s", fnum(req.Price))
	}
	if req.StopPrice > 0 {
		fmt.Fprintf(r.stdout, " stop_price=%s", fnum(req.StopPrice))
	}
	if req.TimeInForce != "" {
		fmt.Fprintf(r.stdout, " tif=%s", req.TimeInForce)
	}
	fmt.Fprintln(r.stdout)
	return exitOK
}

func (r *runner) cmdStatus(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	symbol := fs.String("symbol", "", "交易对")
	orderID := fs.String("order-id", "", "交易所订单号")
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}
	if *symbol == "" || *orderID == "" {
		fmt.Fprintln(r.stderr, "status 需要 -symbol 与 -order-id")
		return exitValidation
	}
	if r.dryRun {
		fmt.Fprintf(r.stdout, "[DRY RUN] 跳过状态查询: symbol=%s order_id=%s\n", *symbol, *orderID)
		return exitOK
	}
	if err := r.ensureClient(ctx); err != nil {
		fmt.Fprintf(r.stderr, "%v\n", err)
		return exitSetup
	}
	receipt, err := r.client.GetOrder(ctx, *symbol, *orderID)
	if err != nil {
		fmt.Fprintf(r.stderr, "查询订单失败: %v\n", err)
		return exitPlacement
	}
	r.printReceipt("订单状态", receipt)
	return exitOK
}

func (r *runner) cmdCancel(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	symbol := fs.String("symbol", "", "交易对")
	orderID := fs.String("order-id", "", "交易所订单号")
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}
	if *symbol == "" || *orderID == "" {
		fmt.Fprintln(r.stderr, "cancel 需要 -symbol 与 -order-id")
		return exitValidation
	}
	if r.dryRun {
		fmt.Fprintf(r.stdout, "[DRY RUN] 跳过撤单: symbol=%s order_id=%s\n", *symbol, *orderID)
		return exitOK
	}
	if err := r.ensureClient(ctx); err != nil {
		fmt.Fprintf(r.stderr, "%v\n", err)
		return exitSetup
	}
	ack, err := r.client.CancelOrder(ctx, *symbol, *orderID)
	if err != nil {
		fmt.Fprintf(r.stderr, "撤单失败: %v\n", err)
		return exitPlacement
	}
	fmt.Fprintf(r.stdout, "撤单已受理: symbol=%s order_id=%s status=%s\n", ack.Symbol, ack.OrderID, ack.Status)
	return exitOK
}

func (r *runner) cmdTWAP(ctx context.Context, args []string, simulate bool) int {
	fs := flag.NewFlagSet("twap", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	symbol := fs.String("symbol", "", "交易对")
	side := fs.String("side", "", "方向: BUY 或 SELL")
	quantity := fs.Float64("quantity", 0, "总数量")
	duration := fs.Int("duration", 0, "执行时长(分钟)")
	kind := fs.String("type", "MARKET", "子单类型: MARKET 或 LIMIT")
	price := fs.Float64("price", 0, "限价 (子单为 LIMIT 时必填)")
	tif := fs.String("tif", "", "有效期: GTC/IOC/FOK")
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}

	p := strategy.TWAPParams{
		Symbol:          *symbol,
		Side:            *side,
		TotalQuantity:   *quantity,
		DurationMinutes: *duration,
		Kind:            *kind,
		Price:           *price,
		TimeInForce:     *tif,
	}

	if simulate {
		tw := strategy.NewTWAP(nil, r.validator(), r.logger)
		plan, err := tw.Simulate(p)
		if err != nil {
			fmt.Fprintf(r.stderr, "TWAP 方案生成失败: %v\n", err)
			if exitCodeFor(err) == exitValidation {
				return exitValidation
			}
			return exitSimulation
		}
		r.printTWAPPlan(plan)
		return exitOK
	}

	if err := r.ensureClient(ctx); err != nil {
		fmt.Fprintf(r.stderr, "%v\n", err)
		return exitSetup
	}

	tw := strategy.NewTWAP(r.client, r.validator(), r.logger)
	result, err := tw.Execute(ctx, p)
	for _, receipt := range result.Receipts {
		r.saveReceipt(ctx, receipt)
	}
	if err != nil {
		fmt.Fprintf(r.stderr, "TWAP 执行失败: %v\n", err)
		return exitCodeFor(err)
	}
	fmt.Fprintf(r.stdout, "TWAP 执行完成: symbol=%s 子单=%d/%d 成交量=%s 执行比例=%.2f%%\n",
		result.Plan.Symbol, len(result.Receipts), result.Plan.NumOrders,
		fnum(result.ExecutedQuantity), result.ExecutionRatio*100)
	return exitOK
}

func (r *runner) cmdGrid(ctx context.Context, args []string, simulate bool) int {
	fs := flag.NewFlagSet("grid", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	symbol := fs.String("symbol", "", "交易对")
	side := fs.String("side", "", "方向: BUY 或 SELL")
	quantity := fs.Float64("quantity", 0, "总数量")
	minPrice := fs.Float64("min-price", 0, "网格下边界")
	maxPrice := fs.Float64("max-price", 0, "网格上边界")
	levels := fs.Int("levels", 0, "网格档数，至少 2")
	tif := fs.String("tif", "", "有效期: GTC/IOC/FOK")
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}

	p := strategy.GridParams{
		Symbol:        *symbol,
		Side:          *side,
		TotalQuantity: *quantity,
		MinPrice:      *minPrice,
		MaxPrice:      *maxPrice,
		NumLevels:     *levels,
		TimeInForce:   *tif,
	}

	if simulate {
		g := strategy.NewGrid(nil, r.validator(), r.cfg.Execution.GridOrderPause, r.logger)
		plan, err := g.Simulate(p)
		if err != nil {
			fmt.Fprintf(r.stderr, "网格方案生成失败: %v\n", err)
			if exitCodeFor(err) == exitValidation {
				return exitValidation
			}
			return exitSimulation
		}
		r.printGridPlan(plan)
		return exitOK
	}

	if err := r.ensureClient(ctx); err != nil {
		fmt.Fprintf(r.stderr, "%v\n", err)
		return exitSetup
	}

	g := strategy.NewGrid(r.client, r.validator(), r.cfg.Execution.GridOrderPause, r.logger)
	result, err := g.Execute(ctx, p)
	for _, receipt := range result.Receipts {
		r.saveReceipt(ctx, receipt)
	}
	if err != nil {
		fmt.Fprintf(r.stderr, "网格创建失败: %v\n", err)
		return exitCodeFor(err)
	}
	fmt.Fprintf(r.stdout, "网格创建完成: symbol=%s 挂单=%d/%d 挂单量=%s 完成比例=%.2f%%\n",
		result.Plan.Symbol, len(result.Receipts), result.Plan.NumLevels,
		fnum(result.PlacedQuantity), result.PlacementRatio*100)
	return exitOK
}

// cmdInfo 并发拉取多个交易对的交易所约束。
func (r *runner) cmdInfo(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}
	symbols := fs.Args()
	if len(symbols) == 0 {
		fmt.Fprintln(r.stderr, "info 需要至少一个交易对参数，如: orderbot info BTCUSDT ETHUSDT")
		return exitValidation
	}
	if r.dryRun {
		fmt.Fprintln(r.stdout, "[DRY RUN] 跳过交易所查询")
		return exitOK
	}
	if err := r.ensureClient(ctx); err != nil {
		fmt.Fprintf(r.stderr, "%v\n", err)
		return exitSetup
	}

	results := make([]*exchange.SymbolConstraints, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		g.Go(func() error {
			sc, err := r.client.SymbolConstraints(gctx, symbol)
			if err != nil {
				return fmt.Errorf("查询 %s 约束失败: %w", symbol, err)
			}
			results[i] = sc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(r.stderr, "%v\n", err)
		return exitPlacement
	}

	for _, sc := range results {
		fmt.Fprintf(r.stdout, "%s:\n", sc.Symbol)
		if f, ok := sc.Filter(exchange.FilterLotSize); ok {
			fmt.Fprintf(r.stdout, "  数量: min=%s max=%s step=%s\n", f.Min, f.Max, f.Step)
		}
		if f, ok := sc.Filter(exchange.FilterPriceFilter); ok {
			fmt.Fprintf(r.stdout, "  价格: min=%s max=%s tick=%s\n", f.Min, f.Max, f.Step)
		}
	}
	return exitOK
}

func (r *runner) cmdBalance(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}
	if r.dryRun {
		fmt.Fprintln(r.stdout, "[DRY RUN] 跳过余额查询")
		return exitOK
	}
	if err := r.ensureClient(ctx); err != nil {
		fmt.Fprintf(r.stderr, "%v\n", err)
		return exitSetup
	}
	info, err := r.client.AccountInfo(ctx)
	if err != nil {
		fmt.Fprintf(r.stderr, "查询余额失败: %v\n", err)
		return exitPlacement
	}
	fmt.Fprintf(r.stdout, "钱包余额: %s  可用: %s  未实现盈亏: %s\n",
		fnum(info.TotalWalletBalance), fnum(info.AvailableBalance), fnum(info.TotalUnrealizedPnL))
	for _, asset := range info.Assets {
		if asset.WalletBalance == 0 {
			continue
		}
		fmt.Fprintf(r.stdout, "  %s: 余额=%s 可用=%s\n",
			asset.Asset, fnum(asset.WalletBalance), fnum(asset.AvailableBalance))
	}
	return exitOK
}

func (r *runner) cmdHistory(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	limit := fs.Int("limit", 20, "最多返回条数")
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}
	if err := r.ensureStore(); err != nil {
		fmt.Fprintf(r.stderr, "初始化订单历史存储失败: %v\n", err)
		return exitSetup
	}
	records, err := r.db.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(r.stderr, "读取订单历史失败: %v\n", err)
		return exitSetup
	}
	if len(records) == 0 {
		fmt.Fprintln(r.stdout, "暂无订单历史")
		return exitOK
	}
	for _, rec := range records {
		o := rec.Receipt
		fmt.Fprintf(r.stdout, "%s  %s %s %s qty=%s price=%s status=%s id=%s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			o.Symbol, o.Side, o.Kind, fnum(o.Quantity), fnum(o.Price), o.Status, o.OrderID)
	}
	return exitOK
}

func (r *runner) printReceipt(label string, o exchange.OrderReceipt) {
	fmt.Fprintf(r.stdout, "%s: id=%s client_id=%s symbol=%s side=%s type=%s status=%s qty=%s",
		label, o.OrderID, o.ClientOrderID, o.Symbol, o.Side, o.Kind, o.Status, fnum(o.Quantity))
	if o.Price > 0 {
		fmt.Fprintf(r.stdout, " price=%s", fnum(o.Price))
	}
	if o.StopPrice > 0 {
		fmt.Fprintf(r.stdout, " stop_price=%s", fnum(o.StopPrice))
	}
	if o.ExecutedQuantity > 0 {
		fmt.Fprintf(r.stdout, " filled=%s avg=%s", fnum(o.ExecutedQuantity), fnum(o.AveragePrice))
	}
	fmt.Fprintln(r.stdout)
}

func (r *runner) printTWAPPlan(p strategy.TWAPPlan) {
	fmt.Fprintf(r.stdout, "TWAP 执行计划: %s %s %s 总量=%s 时长=%s 子单=%d 间隔=%s 每单=%s\n",
		p.Symbol, p.Side, p.Kind, fnum(p.TotalQuantity), p.Duration, p.NumOrders, p.Interval, fnum(p.QuantityPerOrder))
	for _, slot := range p.Slots {
		fmt.Fprintf(r.stdout, "  #%d  +%s  qty=%s  client_id=%s\n",
			slot.Index+1, slot.Offset, fnum(slot.Quantity), slot.ClientOrderID)
	}
}

func (r *runner) printGridPlan(p strategy.GridPlan) {
	fmt.Fprintf(r.stdout, "网格方案: %s %s 总量=%s 区间=[%s, %s] 档数=%d 步长=%s 每档=%s\n",
		p.Symbol, p.Side, fnum(p.TotalQuantity), fnum(p.MinPrice), fnum(p.MaxPrice),
		p.NumLevels, fnum(p.PriceStep), fnum(p.QuantityPerLevel))
	for _, level := range p.Levels {
		fmt.Fprintf(r.stdout, "  #%d  price=%s  qty=%s  client_id=%s\n",
			level.Index+1, fnum(level.Price), fnum(level.Quantity), level.ClientOrderID)
	}
}

func fnum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
