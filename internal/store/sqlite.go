package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite-backed store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode so the interactive path and scheduled jobs can write concurrently.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT 'default'
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

	CREATE TABLE IF NOT EXISTS tools_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tool_name TEXT NOT NULL,
		usage TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT 'default'
	);
	CREATE INDEX IF NOT EXISTS idx_tools_log_session ON tools_log(session_id);

	CREATE TABLE IF NOT EXISTS preferences (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		proactive_enabled INTEGER NOT NULL DEFAULT 0,
		proactive_interval INTEGER NOT NULL DEFAULT 60,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS proactive_agents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		prompt TEXT NOT NULL,
		interval_minutes INTEGER NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		last_run TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO preferences (id, proactive_enabled, proactive_interval, created_at, updated_at)
		 VALUES (1, 0, 60, ?, ?)`, now, now,
	)
	return err
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, role, content, sessionID string) (int64, error) {
	if sessionID == "" {
		sessionID = "default"
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (role, content, timestamp, session_id) VALUES (?,?,?,?)",
		role, content, time.Now().UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("save message: %w", err)
	}
	return res.LastInsertId()
}

// Messages returns messages in insertion order. An empty sessionID returns all
// sessions; limit > 0 keeps only the most recent rows (still oldest-first).
func (s *SQLiteStore) Messages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	query := "SELECT id, role, content, timestamp, session_id FROM messages"
	args := []any{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var ts string
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &ts, &m.SessionID); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (s *SQLiteStore) SaveToolLog(ctx context.Context, toolName, usage, sessionID string) (int64, error) {
	if sessionID == "" {
		sessionID = "default"
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO tools_log (tool_name, usage, timestamp, session_id) VALUES (?,?,?,?)",
		toolName, usage, time.Now().UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("save tool log: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) ToolLogs(ctx context.Context, sessionID string) ([]ToolLog, error) {
	query := "SELECT id, tool_name, usage, timestamp, session_id FROM tools_log"
	args := []any{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tool logs: %w", err)
	}
	defer rows.Close()

	var logs []ToolLog
	for rows.Next() {
		var l ToolLog
		var ts string
		if err := rows.Scan(&l.ID, &l.ToolName, &l.Usage, &ts, &l.SessionID); err != nil {
			return nil, fmt.Errorf("scan tool log row: %w", err)
		}
		l.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) Preferences(ctx context.Context) (Preferences, error) {
	var p Preferences
	var enabled int
	err := s.db.QueryRowContext(ctx,
		"SELECT proactive_enabled, proactive_interval FROM preferences WHERE id = 1",
	).Scan(&enabled, &p.ProactiveInterval)
	if err != nil {
		return Preferences{}, fmt.Errorf("query preferences: %w", err)
	}
	p.ProactiveEnabled = enabled != 0
	return p, nil
}

func (s *SQLiteStore) UpdatePreferences(ctx context.Context, enabled bool, interval int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE preferences SET proactive_enabled=?, proactive_interval=?, updated_at=? WHERE id=1",
		boolToInt(enabled), interval, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return nil
}

// SaveProactiveAgent upserts by name: update first, insert when no row was
// affected. The UNIQUE constraint on name backstops the check.
func (s *SQLiteStore) SaveProactiveAgent(ctx context.Context, name, prompt string, intervalMinutes int) error {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx,
		"UPDATE proactive_agents SET prompt=?, interval_minutes=?, updated_at=? WHERE name=?",
		prompt, intervalMinutes, now, name,
	)
	if err != nil {
		return fmt.Errorf("update proactive agent: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO proactive_agents (name, prompt, interval_minutes, created_at, updated_at) VALUES (?,?,?,?,?)",
			name, prompt, intervalMinutes, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert proactive agent: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ProactiveAgents(ctx context.Context, enabledOnly bool) ([]ProactiveAgent, error) {
	query := "SELECT name, prompt, interval_minutes, enabled, last_run, created_at, updated_at FROM proactive_agents"
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query proactive agents: %w", err)
	}
	defer rows.Close()

	var agents []ProactiveAgent
	for rows.Next() {
		var a ProactiveAgent
		var enabled int
		var lastRun sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&a.Name, &a.Prompt, &a.IntervalMinutes, &enabled, &lastRun, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan proactive agent row: %w", err)
		}
		a.Enabled = enabled != 0
		if lastRun.Valid {
			if t, err := time.Parse(time.RFC3339, lastRun.String); err == nil {
				a.LastRun = &t
			}
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *SQLiteStore) UpdateProactiveAgentLastRun(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE proactive_agents SET last_run=? WHERE name=?",
		time.Now().UTC().Format(time.RFC3339), name,
	)
	if err != nil {
		return fmt.Errorf("update last run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteProactiveAgent(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM proactive_agents WHERE name=?", name)
	if err != nil {
		return fmt.Errorf("delete proactive agent: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT session_id FROM messages ORDER BY session_id")
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) SessionStats(ctx context.Context, sessionID string) (SessionStats, error) {
	stats := SessionStats{
		SessionID:     sessionID,
		MessageCounts: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, COUNT(*) FROM messages WHERE session_id = ? GROUP BY role", sessionID,
	)
	if err != nil {
		return stats, fmt.Errorf("query message counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return stats, err
		}
		stats.MessageCounts[role] = count
		stats.TotalMessages += count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	var first, last sql.NullString
	err = s.db.QueryRowContext(ctx,
		"SELECT MIN(timestamp), MAX(timestamp) FROM messages WHERE session_id = ?", sessionID,
	).Scan(&first, &last)
	if err != nil {
		return stats, fmt.Errorf("query message range: %w", err)
	}
	if first.Valid {
		if t, err := time.Parse(time.RFC3339Nano, first.String); err == nil {
			stats.FirstMessage = &t
		}
	}
	if last.Valid {
		if t, err := time.Parse(time.RFC3339Nano, last.String); err == nil {
			stats.LastMessage = &t
		}
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tools_log WHERE session_id = ?", sessionID,
	).Scan(&stats.ToolUsage)
	if err != nil {
		return stats, fmt.Errorf("query tool usage: %w", err)
	}

	return stats, nil
}

// DeleteSession removes a session's messages and tool logs.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tools_log WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("delete tool logs: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
