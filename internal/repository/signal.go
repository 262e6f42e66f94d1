package repository

import (
	"database/sql"
	"time"

	"signal_relay/internal/database"
	"signal_relay/internal/models"
)

// timeLayout stores journal times as fixed-width UTC text so that string
// comparison and ordering in SQL match chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000-07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// SignalRepository handles signal journal database operations.
type SignalRepository struct {
	db *database.DB
}

// NewSignalRepository creates a new SignalRepository.
func NewSignalRepository(db *database.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Start records a received signal in the validating stage.
func (r *SignalRepository) Start(id, requestID string, receivedAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO signals (id, request_id, stage, status, received_at)
		VALUES (?, ?, 'validating', 'received', ?)
	`, id, requestID, formatTime(receivedAt))
	return err
}

// SetOrder stores the normalized order once validation has passed.
func (r *SignalRepository) SetOrder(id, action, symbol, size, takeProfit, stopLoss string) error {
	_, err := r.db.Exec(`
		UPDATE signals
		SET action = ?, symbol = ?, size = ?, take_profit = ?, stop_loss = ?
		WHERE id = ?
	`, action, symbol, size, nullString(takeProfit), nullString(stopLoss), id)
	return err
}

// Advance moves a signal to the next pipeline stage.
func (r *SignalRepository) Advance(id, stage string) error {
	_, err := r.db.Exec(`UPDATE signals SET stage = ? WHERE id = ?`, stage, id)
	return err
}

// Complete marks a signal as executed by the brokerage.
func (r *SignalRepository) Complete(id string, brokerStatus int, brokerBody string) error {
	now := time.Now()
	duration, err := r.durationSince(id, now)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE signals
		SET stage = 'done', status = 'executed', broker_status = ?, broker_body = ?, completed_at = ?, duration_ms = ?
		WHERE id = ?
	`, brokerStatus, brokerBody, formatTime(now), duration, id)
	return err
}

// Fail marks a signal as rejected or failed. The stage is left where the
// pipeline stopped. brokerStatus is zero when the brokerage never answered.
func (r *SignalRepository) Fail(id, status, category, errorMsg string, brokerStatus int, brokerBody string) error {
	now := time.Now()
	duration, err := r.durationSince(id, now)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE signals
		SET status = ?, error_category = ?, error_message = ?, broker_status = ?, broker_body = ?, completed_at = ?, duration_ms = ?
		WHERE id = ?
	`, status, category, errorMsg, nullInt(brokerStatus), nullString(brokerBody), formatTime(now), duration, id)
	return err
}

// durationSince returns the milliseconds between the signal's receipt and
// now. It is NULL when the signal was never started.
func (r *SignalRepository) durationSince(id string, now time.Time) (sql.NullInt64, error) {
	var receivedAt time.Time
	err := r.db.QueryRow(`SELECT received_at FROM signals WHERE id = ?`, id).Scan(&receivedAt)
	if err == sql.ErrNoRows {
		return sql.NullInt64{}, nil
	}
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: now.Sub(receivedAt).Milliseconds(), Valid: true}, nil
}

// GetByID retrieves a signal by ID.
func (r *SignalRepository) GetByID(id string) (*models.Signal, error) {
	row := r.db.QueryRow(`
		SELECT `+signalColumns+`
		FROM signals
		WHERE id = ?
	`, id)

	return scanSignal(row)
}

// List retrieves one page of signals, newest first.
func (r *SignalRepository) List(p Pagination) (Page[*models.Signal], error) {
	var total int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM signals`).Scan(&total); err != nil {
		return Page[*models.Signal]{}, err
	}

	rows, err := r.db.Query(`
		SELECT `+signalColumns+`
		FROM signals
		ORDER BY received_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, p.Limit, p.Offset)
	if err != nil {
		return Page[*models.Signal]{}, err
	}
	defer rows.Close()

	signals := make([]*models.Signal, 0, p.Limit)
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return Page[*models.Signal]{}, err
		}
		signals = append(signals, s)
	}
	if err := rows.Err(); err != nil {
		return Page[*models.Signal]{}, err
	}
	return NewPage(signals, total, p), nil
}

// CountByStatus returns the number of signals with the given status.
func (r *SignalRepository) CountByStatus(status string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM signals WHERE status = ?`, status).Scan(&count)
	return count, err
}

// DeleteOlderThan removes signals received before the given time.
func (r *SignalRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM signals WHERE received_at < ?`, formatTime(before))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const signalColumns = `id, request_id, action, symbol, size, take_profit, stop_loss, stage, status,
		error_category, error_message, broker_status, broker_body, received_at, completed_at, duration_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanSignal(row scanner) (*models.Signal, error) {
	s := &models.Signal{}
	var (
		requestID, action, symbol, size, tp, sl sql.NullString
		category, errorMsg, brokerBody          sql.NullString
		brokerStatus, durationMs                sql.NullInt64
		completedAt                             sql.NullTime
	)

	err := row.Scan(
		&s.ID,
		&requestID,
		&action,
		&symbol,
		&size,
		&tp,
		&sl,
		&s.Stage,
		&s.Status,
		&category,
		&errorMsg,
		&brokerStatus,
		&brokerBody,
		&s.ReceivedAt,
		&completedAt,
		&durationMs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.RequestID = requestID.String
	s.Action = action.String
	s.Symbol = symbol.String
	s.Size = size.String
	s.TakeProfit = tp.String
	s.StopLoss = sl.String
	s.ErrorCategory = category.String
	s.ErrorMessage = errorMsg.String
	s.BrokerStatus = int(brokerStatus.Int64)
	s.BrokerBody = brokerBody.String
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	if durationMs.Valid {
		s.DurationMs = durationMs.Int64
	}

	return s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
