// Package postgres keeps an append-only archive of emitted watchlist
// alerts for later review. The archive is optional: a nil *AlertArchive
// is a valid no-op sink.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/rugscan/rugscan/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS watchlist_alerts (
	id          TEXT PRIMARY KEY,
	chain       TEXT NOT NULL,
	address     TEXT NOT NULL,
	field       TEXT NOT NULL,
	severity    TEXT NOT NULL,
	old_value   DOUBLE PRECISION NOT NULL,
	new_value   DOUBLE PRECISION NOT NULL,
	message     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_watchlist_alerts_address
	ON watchlist_alerts (chain, address, created_at);
`

// AlertRow is the stored form of one emitted alert.
type AlertRow struct {
	ID        string    `db:"id" json:"id"`
	Chain     string    `db:"chain" json:"chain"`
	Address   string    `db:"address" json:"address"`
	Field     string    `db:"field" json:"field"`
	Severity  string    `db:"severity" json:"severity"`
	OldValue  float64   `db:"old_value" json:"oldValue"`
	NewValue  float64   `db:"new_value" json:"newValue"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// AlertArchive persists alerts into postgres.
type AlertArchive struct {
	db *sqlx.DB
}

// Open connects with the given DSN and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*AlertArchive, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting alert archive: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating alert schema: %w", err)
	}
	return &AlertArchive{db: db}, nil
}

// Record stores one alert. Safe on a nil archive.
func (a *AlertArchive) Record(ctx context.Context, id string, addr domain.Address, change domain.Change) error {
	if a == nil {
		return nil
	}
	_, err := a.db.NamedExecContext(ctx, `
		INSERT INTO watchlist_alerts
			(id, chain, address, field, severity, old_value, new_value, message, created_at)
		VALUES
			(:id, :chain, :address, :field, :severity, :old_value, :new_value, :message, :created_at)`,
		AlertRow{
			ID:        id,
			Chain:     string(addr.Chain),
			Address:   addr.Value,
			Field:     change.Field,
			Severity:  string(change.Severity),
			OldValue:  change.Old,
			NewValue:  change.New,
			Message:   change.Message,
			CreatedAt: time.Now().UTC(),
		})
	if err != nil {
		return fmt.Errorf("recording alert: %w", err)
	}
	return nil
}

// Recent returns the latest alerts for one address, newest first.
func (a *AlertArchive) Recent(ctx context.Context, addr domain.Address, limit int) ([]AlertRow, error) {
	if a == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []AlertRow
	err := a.db.SelectContext(ctx, &rows, `
		SELECT * FROM watchlist_alerts
		WHERE chain = $1 AND address = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		string(addr.Chain), addr.Value, limit)
	if err != nil {
		return nil, fmt.Errorf("loading alerts: %w", err)
	}
	return rows, nil
}

// Close releases the connection pool. Safe on a nil archive.
func (a *AlertArchive) Close() error {
	if a == nil {
		return nil
	}
	return a.db.Close()
}
