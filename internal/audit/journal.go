// Package audit keeps a journal of the mutating commands sessions have
// executed, backed by the command_log table.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one executed command.
type Entry struct {
	ID         string          `json:"id"`
	Method     string          `json:"method"`
	Result     string          `json:"result"` // "ok" or the wire error code
	Parameters json.RawMessage `json:"parameters,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Filter controls which journal entries to return.
type Filter struct {
	Method string // optional: filter by command method
	Result string // optional: filter by result ("ok" or an error code)
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// Page contains the paginated journal results.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Journal records commands into SQLite.
type Journal struct {
	db *sql.DB
}

// NewJournal creates a journal over the given database.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Record inserts one entry. The ID and CreatedAt are generated if empty.
func (j *Journal) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "cmd-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var params any
	if len(e.Parameters) > 0 {
		params = string(e.Parameters)
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO command_log (id, method, result, parameters, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Method, e.Result, params,
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting command log entry: %w", err)
	}

	return nil
}

// List returns journal entries matching the filter, most recent first.
func (j *Journal) List(ctx context.Context, filter Filter) (*Page, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Method != "" {
		conditions = append(conditions, "method = ?")
		args = append(args, filter.Method)
	}
	if filter.Result != "" {
		conditions = append(conditions, "result = ?")
		args = append(args, filter.Result)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE is assembled from parameterised conditions only.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM command_log %s", where)
	var total int
	if err := j.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command log entries: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, method, result, parameters, created_at FROM command_log %s ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var params sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Method, &e.Result, &params, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command log entry: %w", err)
		}

		if params.Valid && params.String != "" {
			e.Parameters = json.RawMessage(params.String)
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing command log timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &Page{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
