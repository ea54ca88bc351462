// Package journal keeps an audit trail of handled commands in SQLite. It lets
// an operator check whether a command whose response was lost was executed.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zygl/pkg/protocol"

	_ "modernc.org/sqlite"
)

// Entry is one handled command and its outcome.
type Entry struct {
	ID        int64                  `json:"id"`
	CommandID uint64                 `json:"commandID"`
	Type      protocol.PacketType    `json:"type"`
	Target    string                 `json:"target"`
	Operator  string                 `json:"operator"`
	Result    protocol.CommandResult `json:"result"`
	Message   string                 `json:"message"`
	At        time.Time              `json:"handledAt"`
}

// Journal stores entries in a SQLite database.
type Journal struct {
	db *sql.DB
}

// NewJournal opens dsn and applies the schema. ":memory:" gives a private
// in-memory journal.
func NewJournal(dsn string) (*Journal, error) {
	if dsn == "" {
		dsn = memoryDSN
	}
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}

	ctx := context.Background()
	if dsn == memoryDSN {
		// Every connection to :memory: is a separate database.
		database.SetMaxOpenConns(1)
	} else if _, err := database.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
	}

	if _, err := database.ExecContext(ctx, Schema); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabaseError, err)
	}

	return &Journal{db: database}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends an entry. A zero At is stamped with the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO commands (command_id, type, target, operator, result, message, handled_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(e.CommandID), int64(e.Type), e.Target, e.Operator, int64(e.Result), e.Message, e.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nil
}

const selectColumns = `SELECT id, command_id, type, target, operator, result, message, handled_at FROM commands`

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := j.db.QueryContext(ctx, selectColumns+` ORDER BY handled_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return scanEntries(rows)
}

// ByCommandID returns every entry for a command id, oldest first. Callers that
// retry with the same id get one entry per attempt.
func (j *Journal) ByCommandID(ctx context.Context, commandID uint64) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, selectColumns+` WHERE command_id = ? ORDER BY id`, int64(commandID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEntryNotFound
	}
	return entries, nil
}

func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return n, nil
}

// Prune deletes entries handled before cutoff and reports how many went.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := j.db.ExecContext(ctx, `DELETE FROM commands WHERE handled_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var commandID, typ, result, at int64
		if err := rows.Scan(&e.ID, &commandID, &typ, &e.Target, &e.Operator, &result, &e.Message, &at); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		e.CommandID = uint64(commandID)
		e.Type = protocol.PacketType(typ)
		e.Result = protocol.CommandResult(result)
		e.At = time.UnixMilli(at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return entries, nil
}
