// File: dataprovider/db.go
package dataprovider

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"Tradewinds/utilities"
)

// SQLiteCache backs the data provider with a local bar cache and persists
// open paper positions across restarts.
type SQLiteCache struct {
	db *sql.DB
}

// PersistedPosition is the stored form of an open position.
type PersistedPosition struct {
	Symbol          string
	Shares          int
	EntryPrice      float64
	PositionValue   float64
	StopLossPrice   float64
	TakeProfitPrice float64
	RiskAmount      float64
	EntryDate       time.Time
}

func NewSQLiteCache(dbCfg utilities.DatabaseConfig) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbCfg.DBPath)
	if err != nil {
		return nil, err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS ohlcv_bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		interval TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		UNIQUE(symbol, interval, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_symbol_interval_timestamp ON ohlcv_bars (symbol, interval, timestamp);

	CREATE TABLE IF NOT EXISTS open_positions (
		symbol TEXT PRIMARY KEY,
		shares INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		position_value REAL NOT NULL,
		stop_loss_price REAL NOT NULL,
		take_profit_price REAL NOT NULL,
		risk_amount REAL NOT NULL,
		entry_timestamp INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &SQLiteCache{db: db}, nil
}

// --- OHLCV Bar Caching ---

func (s *SQLiteCache) SaveBar(symbol, interval string, bar utilities.OHLCVBar) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO ohlcv_bars (symbol, interval, timestamp, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		symbol, interval, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	return err
}

func (s *SQLiteCache) SaveBars(symbol, interval string, bars []utilities.OHLCVBar) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO ohlcv_bars (symbol, interval, timestamp, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, bar := range bars {
		if _, err := stmt.Exec(symbol, interval, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteCache) GetBars(symbol, interval string, start, end int64) ([]utilities.OHLCVBar, error) {
	rows, err := s.db.Query(`SELECT timestamp, open, high, low, close, volume FROM ohlcv_bars WHERE symbol=? AND interval=? AND timestamp BETWEEN ? AND ? ORDER BY timestamp ASC`,
		symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bars []utilities.OHLCVBar
	for rows.Next() {
		var bar utilities.OHLCVBar
		if err := rows.Scan(&bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// GetRecentBars returns up to limit most recent cached bars in ascending
// timestamp order.
func (s *SQLiteCache) GetRecentBars(symbol, interval string, limit int) ([]utilities.OHLCVBar, error) {
	rows, err := s.db.Query(`SELECT timestamp, open, high, low, close, volume FROM (
		SELECT timestamp, open, high, low, close, volume FROM ohlcv_bars WHERE symbol=? AND interval=? ORDER BY timestamp DESC LIMIT ?
	) ORDER BY timestamp ASC`, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bars []utilities.OHLCVBar
	for rows.Next() {
		var bar utilities.OHLCVBar
		if err := rows.Scan(&bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// --- State Persistence Functions ---

func (s *SQLiteCache) LoadPositions() ([]PersistedPosition, error) {
	rows, err := s.db.Query(`SELECT symbol, shares, entry_price, position_value, stop_loss_price, take_profit_price, risk_amount, entry_timestamp FROM open_positions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	var positions []PersistedPosition
	for rows.Next() {
		var pos PersistedPosition
		var ts int64
		if err := rows.Scan(&pos.Symbol, &pos.Shares, &pos.EntryPrice, &pos.PositionValue, &pos.StopLossPrice, &pos.TakeProfitPrice, &pos.RiskAmount, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		pos.EntryDate = time.Unix(ts, 0)
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

func (s *SQLiteCache) SavePosition(pos PersistedPosition) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO open_positions (symbol, shares, entry_price, position_value, stop_loss_price, take_profit_price, risk_amount, entry_timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.Symbol, pos.Shares, pos.EntryPrice, pos.PositionValue, pos.StopLossPrice, pos.TakeProfitPrice, pos.RiskAmount, pos.EntryDate.Unix())
	return err
}

func (s *SQLiteCache) DeletePosition(symbol string) error {
	_, err := s.db.Exec(`DELETE FROM open_positions WHERE symbol = ?`, symbol)
	return err
}

// --- Cleanup ---

func (s *SQLiteCache) CleanupOldBars(olderThan time.Time) error {
	_, err := s.db.Exec(`DELETE FROM ohlcv_bars WHERE timestamp < ?`, olderThan.Unix())
	return err
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func (s *SQLiteCache) StartScheduledCleanup(interval time.Duration, retentionDays int) {
	go func() {
		for {
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			if err := s.CleanupOldBars(cutoff); err != nil {
				log.Printf("Scheduled bar cleanup error: %v", err)
			}
			time.Sleep(interval)
		}
	}()
}
