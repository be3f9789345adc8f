// Package ledger provides an append-only history of device commands and
// blink sessions for auditing. It never stores presence values.
package ledger

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/presenced/internal/light"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventCommandApplied EventType = "command_applied"
	EventCommandFailed  EventType = "command_failed"
	EventBlinkStarted   EventType = "blink_started"
	EventBlinkStopped   EventType = "blink_stopped"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	EventType EventType
	Timestamp time.Time
	OpID      string
	Light     string
	On        bool
	URL       string
	Interval  time.Duration
	Error     string
}

// Ledger provides append-only command logging. It satisfies light.Recorder;
// write failures are logged, not surfaced, because recording runs on the
// command path and must never block a light operation.
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordCommand appends one light command outcome. opID groups the commands
// of a single light-set operation.
func (l *Ledger) RecordCommand(opID string, flag light.Flag, on bool, url string, cmdErr error) {
	eventType := EventCommandApplied
	errText := ""
	if cmdErr != nil {
		eventType = EventCommandFailed
		errText = cmdErr.Error()
	}

	_, err := l.db.Exec(`
		INSERT INTO command_ledger (event_type, timestamp, op_id, light, direction, url, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(eventType), time.Now().UTC().Unix(), opID, flag.String(), boolToInt(on), url, errText)
	if err != nil {
		log.Warn().Err(err).Str("op_id", opID).Msg("Failed to record command in ledger")
	}
}

// RecordBlink appends a blink session transition. sessionID is stable for
// the session's start and stop rows.
func (l *Ledger) RecordBlink(sessionID string, flags light.Flag, interval time.Duration, started bool) {
	eventType := EventBlinkStarted
	if !started {
		eventType = EventBlinkStopped
	}

	_, err := l.db.Exec(`
		INSERT INTO command_ledger (event_type, timestamp, op_id, light, interval_ms)
		VALUES (?, ?, ?, ?, ?)
	`, string(eventType), time.Now().UTC().Unix(), sessionID, flags.String(), interval.Milliseconds())
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to record blink session in ledger")
	}
}

// Recent returns the newest entries, newest first.
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, op_id, light, direction, url, interval_ms, error
		FROM command_ledger
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM command_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var timestamp int64
		var lightName, url, errText sql.NullString
		var direction, intervalMS sql.NullInt64

		err := rows.Scan(
			&entry.ID, &entry.EventType, &timestamp, &entry.OpID,
			&lightName, &direction, &url, &intervalMS, &errText,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if lightName.Valid {
			entry.Light = lightName.String
		}
		if direction.Valid {
			entry.On = direction.Int64 == 1
		}
		if url.Valid {
			entry.URL = url.String
		}
		if intervalMS.Valid {
			entry.Interval = time.Duration(intervalMS.Int64) * time.Millisecond
		}
		if errText.Valid {
			entry.Error = errText.String
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
