package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"futures-bot/internal/config"
	"futures-bot/internal/exchange"
)

// Store 在本地 SQLite 中留存已提交订单的回执，仅作事后审计，
// 不承担任何订单簿或持仓状态。
type Store struct {
	db *sql.DB
}

const ordersSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id        TEXT NOT NULL,
	client_order_id TEXT,
	symbol          TEXT NOT NULL,
	side            TEXT NOT NULL,
	kind            TEXT NOT NULL,
	status          TEXT NOT NULL,
	quantity        REAL NOT NULL,
	price           REAL,
	stop_price      REAL,
	executed_qty    REAL,
	avg_price       REAL,
	update_time     TIMESTAMP NOT NULL,
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
`

// Record 为一条历史记录。
type Record struct {
	Receipt   exchange.OrderReceipt
	CreatedAt time.Time
}

// NewSQLite 根据配置初始化订单历史存储。
func NewSQLite(cfg config.DatabaseConfig) (*Store, error) {
	dsn := cfg.Path
	if cfg.InMemory {
		dsn = ":memory:"
	} else {
		if err := ensureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", dsn))
	if err != nil {
		return nil, fmt.Errorf("打开 SQLite 数据库失败: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("设置 SQLite WAL 模式失败: %w", err)
	}

	if _, err := conn.Exec(ordersSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("初始化订单历史表失败: %w", err)
	}

	return &Store{db: conn}, nil
}

// SaveReceipt 落一条订单回执。
func (s *Store) SaveReceipt(ctx context.Context, r exchange.OrderReceipt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, client_order_id, symbol, side, kind, status,
			quantity, price, stop_price, executed_qty, avg_price, update_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.OrderID, r.ClientOrderID, r.Symbol, r.Side, r.Kind, r.Status,
		r.Quantity, r.Price, r.StopPrice, r.ExecutedQuantity, r.AveragePrice,
		r.UpdateTime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("写入订单历史失败: %w", err)
	}
	return nil
}

// Recent 按时间倒序返回最近 limit 条历史记录。
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, client_order_id, symbol, side, kind, status,
			quantity, price, stop_price, executed_qty, avg_price, update_time, created_at
		FROM orders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询订单历史失败: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.Receipt.OrderID, &rec.Receipt.ClientOrderID, &rec.Receipt.Symbol,
			&rec.Receipt.Side, &rec.Receipt.Kind, &rec.Receipt.Status,
			&rec.Receipt.Quantity, &rec.Receipt.Price, &rec.Receipt.StopPrice,
			&rec.Receipt.ExecutedQuantity, &rec.Receipt.AveragePrice,
			&rec.Receipt.UpdateTime, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("读取订单历史失败: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("创建目录 %q 失败: %w", path, err)
	}
	return nil
}
