package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/ledger"
	"github.com/coladapo/wealthincome/internal/model"
)

// Store persists signals, the append-only trade journal, portfolio
// snapshots and users.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		"INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id",
		email, passwordHash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (int64, string, error) {
	var id int64
	var hash string
	err := s.pool.QueryRow(ctx,
		"SELECT id, password_hash FROM users WHERE email = $1", email).Scan(&id, &hash)
	if err != nil {
		return 0, "", err
	}
	return id, hash, nil
}

// SaveSignal stores a generated signal with its full snapshot payload.
func (s *Store) SaveSignal(ctx context.Context, sig *model.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO signals (id, symbol, direction, confidence, generated_at, expires_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sig.ID, sig.Symbol, string(sig.Direction), sig.Confidence, sig.GeneratedAt, sig.ExpiresAt, payload)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}
	return nil
}

// SetReasoning fills the reasoning slot of a stored signal. Called from the
// asynchronous enrichment path; the slot may stay empty forever.
func (s *Store) SetReasoning(ctx context.Context, id, text string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE signals SET reasoning = $2, payload = jsonb_set(payload, '{reasoning}', to_jsonb($2::text)) WHERE id = $1",
		id, text)
	return err
}

// LatestSignals returns the most recent stored signals for a symbol.
func (s *Store) LatestSignals(ctx context.Context, symbol string, limit int) ([]model.Signal, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT payload FROM signals WHERE symbol = $1 ORDER BY generated_at DESC LIMIT $2",
		symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sig model.Signal
		if err := json.Unmarshal(payload, &sig); err != nil {
			s.logger.Error("failed to unmarshal stored signal", zap.Error(err))
			continue
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

// InsertTrade appends a closed trade to the journal.
func (s *Store) InsertTrade(ctx context.Context, t model.TradeRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (id, symbol, quantity, entry_price, exit_price, fee, realized_pnl, opened_at, closed_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Symbol, t.Quantity, t.EntryPrice, t.ExitPrice, t.Fee, t.RealizedPnL, t.OpenedAt, t.ClosedAt, t.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// ListTrades returns the most recent journal entries.
func (s *Store) ListTrades(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, quantity, entry_price, exit_price, fee, realized_pnl, opened_at, closed_at, reason
		FROM trades ORDER BY closed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.TradeRecord
	for rows.Next() {
		var t model.TradeRecord
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Quantity, &t.EntryPrice, &t.ExitPrice,
			&t.Fee, &t.RealizedPnL, &t.OpenedAt, &t.ClosedAt, &t.Reason); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// InsertSnapshot records one portfolio snapshot for the session history.
func (s *Store) InsertSnapshot(ctx context.Context, v ledger.View) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO portfolio_snapshots (cash, equity, realized_pnl, positions, taken_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		v.Cash, v.Equity, v.Realized, mustJSON(v.Positions))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
