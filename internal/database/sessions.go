package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoSession is returned when an operation needs a session that does not exist
var ErrNoSession = errors.New("no such session")

// StartSession creates a new session row and returns its ID
func (db *DB) StartSession(region string, startedAt time.Time) (int64, error) {
	var sessionID int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO sessions (region, started_at) VALUES (?, ?)
		`, region, startedAt)

		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		sessionID, err = result.LastInsertId()
		return err
	})

	if err != nil {
		return 0, err
	}

	return sessionID, nil
}

// EndSession closes a session with its final counters
func (db *DB) EndSession(sessionID int64, ticks, actions int64, endedAt time.Time) error {
	result, err := db.conn.Exec(`
		UPDATE sessions
		SET ended_at = ?, ticks = ?, actions = ?
		WHERE id = ? AND ended_at IS NULL
	`, endedAt, ticks, actions, sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %d: %w", sessionID, ErrNoSession)
	}
	return nil
}

// RecordAction stores one command against a session. errMsg is empty when
// the device accepted the command.
func (db *DB) RecordAction(sessionID int64, kind, button, phase, errMsg string, at time.Time) (int64, error) {
	var message *string
	if errMsg != "" {
		message = &errMsg
	}

	result, err := db.conn.Exec(`
		INSERT INTO actions (session_id, kind, button, phase, error_message, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, kind, button, phase, message, at)
	if err != nil {
		return 0, fmt.Errorf("failed to insert action: %w", err)
	}

	return result.LastInsertId()
}

// GetSession retrieves a session by ID
func (db *DB) GetSession(sessionID int64) (*Session, error) {
	s := &Session{}
	var ended sql.NullTime

	err := db.conn.QueryRow(`
		SELECT id, region, started_at, ended_at, ticks, actions
		FROM sessions WHERE id = ?
	`, sessionID).Scan(&s.ID, &s.Region, &s.StartedAt, &ended, &s.Ticks, &s.Actions)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrNoSession)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if ended.Valid {
		s.EndedAt = &ended.Time
	}
	return s, nil
}

// RecentSessions returns up to limit sessions, newest first
func (db *DB) RecentSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT id, region, started_at, ended_at, ticks, actions
		FROM sessions
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		var ended sql.NullTime
		if err := rows.Scan(&s.ID, &s.Region, &s.StartedAt, &ended, &s.Ticks, &s.Actions); err != nil {
			return nil, err
		}
		if ended.Valid {
			s.EndedAt = &ended.Time
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// SessionActions returns the actions recorded for a session in order
func (db *DB) SessionActions(sessionID int64) ([]*ActionRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, session_id, kind, button, phase, error_message, occurred_at
		FROM actions
		WHERE session_id = ?
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []*ActionRecord
	for rows.Next() {
		a := &ActionRecord{}
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Kind, &a.Button, &a.Phase, &a.ErrorMessage, &a.OccurredAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// CloseOpenSessions ends sessions left open by a crash
func (db *DB) CloseOpenSessions(at time.Time) (int64, error) {
	result, err := db.conn.Exec(`UPDATE sessions SET ended_at = ? WHERE ended_at IS NULL`, at)
	if err != nil {
		return 0, fmt.Errorf("failed to close open sessions: %w", err)
	}
	return result.RowsAffected()
}

// PruneSessions deletes ended sessions that started before cutoff together
// with their actions. Open sessions are kept.
func (db *DB) PruneSessions(cutoff time.Time) (int64, error) {
	var removed int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM actions WHERE session_id IN (
				SELECT id FROM sessions WHERE started_at < ? AND ended_at IS NOT NULL
			)`, cutoff); err != nil {
			return err
		}
		result, err := tx.Exec(`DELETE FROM sessions WHERE started_at < ? AND ended_at IS NOT NULL`, cutoff)
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return removed, nil
}
