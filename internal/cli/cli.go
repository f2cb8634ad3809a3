// Package cli 提供下单工具的命令行入口：解析子命令与参数，
// 组装配置、日志、交易所客户端与执行策略，并把错误映射为进程退出码。
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"futures-bot/internal/config"
	"futures-bot/internal/exchange"
	"futures-bot/internal/log"
	"futures-bot/internal/order"
	"futures-bot/internal/store"
)

// 退出码约定：1 启动/配置失败，2 本地校验失败，3 远程下单失败，4 方案模拟失败。
const (
	exitOK         = 0
	exitSetup      = 1
	exitValidation = 2
	exitPlacement  = 3
	exitSimulation = 4
)

const usageText = `用法: orderbot [全局参数] <子命令> [子命令参数]

全局参数:
  -config <path>   配置文件路径，默认使用 configs/config.yaml
  -dry-run         只做本地校验与方案生成，不向交易所发送任何请求

子命令:
  place            提交单笔订单 (MARKET/LIMIT/STOP_LIMIT/OCO)
  status           查询订单状态
  cancel           撤销订单
  twap             执行 TWAP 拆单
  grid             创建网格挂单
  simulate-twap    只生成并打印 TWAP 执行计划
  simulate-grid    只生成并打印网格方案
  info             查询交易对的交易所约束
  balance          查询合约账户余额
  history          查看本地订单历史
`

// runner 承载一次命令执行所需的依赖，便于各子命令之间复用。
type runner struct {
	cfg    *config.Config
	logger *zap.Logger
	dryRun bool
	stdout io.Writer
	stderr io.Writer

	client *exchange.Client
	db     *store.Store
}

// Run 解析参数并执行对应子命令，返回进程退出码。
func Run(args []string) int {
	global := flag.NewFlagSet("orderbot", flag.ContinueOnError)
	global.SetOutput(os.Stderr)
	configPath := global.String("config", "", "配置文件路径，默认使用 configs/config.yaml")
	dryRun := global.Bool("dry-run", false, "只做本地校验与方案生成，不向交易所发送任何请求")
	global.Usage = func() { fmt.Fprint(os.Stderr, usageText) }

	if err := global.Parse(args); err != nil {
		return exitSetup
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return exitSetup
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return exitSetup
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return exitSetup
	}
	defer func() {
		_ = logger.Sync()
	}()

	r := &runner{
		cfg:    cfg,
		logger: logger,
		dryRun: *dryRun,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	defer r.closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return r.dispatch(ctx, rest[0], rest[1:])
}

func (r *runner) dispatch(ctx context.Context, command string, args []string) int {
	switch command {
	case "place":
		return r.cmdPlace(ctx, args)
	case "status":
		return r.cmdStatus(ctx, args)
	case "cancel":
		return r.cmdCancel(ctx, args)
	case "twap":
		return r.cmdTWAP(ctx, args, r.dryRun)
	case "simulate-twap":
		return r.cmdTWAP(ctx, args, true)
	case "grid":
		return r.cmdGrid(ctx, args, r.dryRun)
	case "simulate-grid":
		return r.cmdGrid(ctx, args, true)
	case "info":
		return r.cmdInfo(ctx, args)
	case "balance":
		return r.cmdBalance(ctx, args)
	case "history":
		return r.cmdHistory(ctx, args)
	default:
		fmt.Fprintf(r.stderr, "未知子命令: %s\n\n", command)
		fmt.Fprint(r.stderr, usageText)
		return exitSetup
	}
}

// ensureClient 构造交易所客户端并做一次连通性探测。
// dry-run 模式下绝不应调用本方法。
func (r *runner) ensureClient(ctx context.Context) error {
	if r.client != nil {
		return nil
	}
	client, err := exchange.NewClient(r.cfg.Exchange, r.logger)
	if err != nil {
		return fmt.Errorf("初始化交易所客户端失败: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("交易所连通性探测失败: %w", err)
	}
	r.client = client
	return nil
}

func (r *runner) ensureStore() error {
	if r.db != nil {
		return nil
	}
	db, err := store.NewSQLite(r.cfg.Database)
	if err != nil {
		return err
	}
	r.db = db
	return nil
}

func (r *runner) closeStore() {
	if r.db == nil {
		return
	}
	if err := r.db.Close(); err != nil {
		r.logger.Warn("关闭数据库失败", zap.Error(err))
	}
}

// saveReceipt 把回执写入本地历史，落库失败只告警，不影响下单结果。
func (r *runner) saveReceipt(ctx context.Context, receipt exchange.OrderReceipt) {
	if err := r.ensureStore(); err != nil {
		r.logger.Warn("初始化订单历史存储失败", zap.Error(err))
		return
	}
	if err := r.db.SaveReceipt(ctx, receipt); err != nil {
		r.logger.Warn("写入订单历史失败",
			zap.String("order_id", receipt.OrderID),
			zap.Error(err))
	}
}

func (r *runner) validator() *order.Validator {
	return order.NewValidator(r.cfg.Order.MinQuantity, r.cfg.Order.DefaultTimeInForce)
}

// exitCodeFor 把下单阶段的错误归类到退出码：
// 本地校验类错误返回 2，其余视作远程失败返回 3。
func exitCodeFor(err error) int {
	var ve *order.ValidationError
	if errors.As(err, &ve) {
		return exitValidation
	}
	var uk *order.UnsupportedKindError
	if errors.As(err, &uk) {
		return exitValidation
	}
	return exitPlacement
}
