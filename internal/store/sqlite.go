package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ictrader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and prepares
// the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	CREATE TABLE IF NOT EXISTS backtest_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		run_at DATETIME NOT NULL,
		total_trades INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		net_pnl REAL NOT NULL,
		profit_factor REAL NOT NULL,
		max_drawdown REAL NOT NULL,
		sharpe_ratio REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bars_symbol_timeframe ON bars(symbol, timeframe);
	CREATE INDEX IF NOT EXISTS idx_bars_timestamp ON bars(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_symbol ON backtest_runs(symbol);
	CREATE INDEX IF NOT EXISTS idx_runs_run_at ON backtest_runs(run_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBars upserts bars for a symbol and timeframe in one transaction.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol, timeframe string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, symbol, timeframe, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBars retrieves bars ordered by timestamp ascending.
func (s *SQLiteStore) GetBars(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}

	return bars, nil
}

// SaveBacktestRun persists a run summary and returns its row id.
func (s *SQLiteStore) SaveBacktestRun(ctx context.Context, run BacktestRun) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs (symbol, run_at, total_trades, win_rate, net_pnl, profit_factor, max_drawdown, sharpe_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Symbol, run.RunAt, run.TotalTrades, run.WinRate, run.NetPnL, run.ProfitFactor, run.MaxDrawdown, run.SharpeRatio)
	if err != nil {
		return 0, fmt.Errorf("failed to save backtest run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	return id, nil
}

// ListBacktestRuns retrieves the most recent run summaries, newest first.
// An empty symbol matches all symbols.
func (s *SQLiteStore) ListBacktestRuns(ctx context.Context, symbol string, limit int) ([]BacktestRun, error) {
	query := `
		SELECT id, symbol, run_at, total_trades, win_rate, net_pnl, profit_factor, max_drawdown, sharpe_ratio
		FROM backtest_runs WHERE 1=1
	`
	args := []interface{}{}

	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY run_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []BacktestRun
	for rows.Next() {
		var r BacktestRun
		if err := rows.Scan(&r.ID, &r.Symbol, &r.RunAt, &r.TotalTrades, &r.WinRate, &r.NetPnL, &r.ProfitFactor, &r.MaxDrawdown, &r.SharpeRatio); err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
