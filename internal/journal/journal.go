// Package journal records model change events in a SQLite database, one
// session per attached model.
package journal

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fiji/fiji-sub027/internal/model"
	"github.com/fiji/fiji-sub027/internal/monitoring"
)

// Journal is a change journal backed by SQLite. It is safe for concurrent
// use.
type Journal struct {
	db *sql.DB

	mu  sync.Mutex
	seq map[uuid.UUID]int
}

// Open opens or creates the journal at path and migrates its schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, seq: make(map[uuid.UUID]int)}
	if err := j.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// StartSession opens a session for the model with the given identity.
func (j *Journal) StartSession(modelID uuid.UUID) (uuid.UUID, error) {
	session := uuid.New()
	if _, err := j.db.Exec(
		`INSERT INTO sessions (session_id, model_id) VALUES (?, ?)`,
		session.String(), modelID.String(),
	); err != nil {
		return uuid.Nil, fmt.Errorf("failed to start session: %w", err)
	}
	return session, nil
}

// Attach starts a session for m and records every event m sends until the
// returned detach function is called. Recording failures are logged; the
// model is never blocked by them.
func (j *Journal) Attach(m *model.Model) (session uuid.UUID, detach func(), err error) {
	session, err = j.StartSession(m.ID())
	if err != nil {
		return uuid.Nil, nil, err
	}
	detach = m.AddModelChangeListener(model.ModelChangeListenerFunc(func(ev model.ModelChangeEvent) {
		if err := j.Record(session, ev); err != nil {
			monitoring.Logf("journal: session %s: %v", session, err)
		}
	}))
	return session, detach, nil
}

// Record appends ev to the session.
func (j *Journal) Record(session uuid.UUID, ev model.ModelChangeEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	seq := j.seq[session]
	res, err := tx.Exec(
		`INSERT INTO events (session_id, seq, kind, tracks_recomputed, n_errors) VALUES (?, ?, ?, ?, ?)`,
		session.String(), seq, ev.Kind.String(), ev.TracksRecomputed, len(ev.Errors),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	eventID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read event id: %w", err)
	}

	for _, c := range ev.Spots {
		if _, err := tx.Exec(
			`INSERT INTO spot_changes (event_id, spot_id, flag, frame, prev_frame) VALUES (?, ?, ?, ?, ?)`,
			eventID, c.Spot.ID(), c.Flag.String(), c.Frame, c.PrevFrame,
		); err != nil {
			return fmt.Errorf("failed to insert spot change: %w", err)
		}
	}
	for _, c := range ev.Edges {
		if _, err := tx.Exec(
			`INSERT INTO edge_changes (event_id, source_id, target_id, weight, flag) VALUES (?, ?, ?, ?, ?)`,
			eventID, c.Edge.Source().ID(), c.Edge.Target().ID(), c.Edge.Weight(), c.Flag.String(),
		); err != nil {
			return fmt.Errorf("failed to insert edge change: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}
	j.seq[session] = seq + 1
	return nil
}
