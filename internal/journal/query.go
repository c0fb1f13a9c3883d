package journal

import (
	"fmt"

	"github.com/google/uuid"
)

// Session is one journaled model.
type Session struct {
	ID      uuid.UUID `json:"id"`
	ModelID uuid.UUID `json:"model_id"`
	Events  int       `json:"events"`
}

// Entry is one recorded event.
type Entry struct {
	Seq              int          `json:"seq"`
	Kind             string       `json:"kind"`
	TracksRecomputed bool         `json:"tracks_recomputed"`
	Errors           int          `json:"errors"`
	Spots            []SpotRecord `json:"spots,omitempty"`
	Edges            []EdgeRecord `json:"edges,omitempty"`
}

// SpotRecord is one recorded spot change.
type SpotRecord struct {
	SpotID    int64  `json:"spot_id"`
	Flag      string `json:"flag"`
	Frame     int    `json:"frame"`
	PrevFrame int    `json:"prev_frame"`
}

// EdgeRecord is one recorded edge change.
type EdgeRecord struct {
	SourceID int64   `json:"source_id"`
	TargetID int64   `json:"target_id"`
	Weight   float64 `json:"weight"`
	Flag     string  `json:"flag"`
}

// Sessions lists the sessions in the journal, oldest first.
func (j *Journal) Sessions() ([]Session, error) {
	rows, err := j.db.Query(`
		SELECT s.session_id, s.model_id, COUNT(e.event_id)
		FROM sessions s LEFT JOIN events e ON e.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sid, mid string
		var s Session
		if err := rows.Scan(&sid, &mid, &s.Events); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(sid); err != nil {
			return nil, fmt.Errorf("corrupt session id %q: %w", sid, err)
		}
		if s.ModelID, err = uuid.Parse(mid); err != nil {
			return nil, fmt.Errorf("corrupt model id %q: %w", mid, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Events returns the events of a session in recording order.
func (j *Journal) Events(session uuid.UUID) ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT event_id, seq, kind, tracks_recomputed, n_errors FROM events WHERE session_id = ? ORDER BY seq`,
		session.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	var ids []int64
	var out []Entry
	for rows.Next() {
		var id int64
		var e Entry
		if err := rows.Scan(&id, &e.Seq, &e.Kind, &e.TracksRecomputed, &e.Errors); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		if out[i].Spots, err = j.spotChanges(id); err != nil {
			return nil, err
		}
		if out[i].Edges, err = j.edgeChanges(id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (j *Journal) spotChanges(eventID int64) ([]SpotRecord, error) {
	rows, err := j.db.Query(
		`SELECT spot_id, flag, frame, prev_frame FROM spot_changes WHERE event_id = ? ORDER BY rowid`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query spot changes: %w", err)
	}
	defer rows.Close()
	var out []SpotRecord
	for rows.Next() {
		var r SpotRecord
		if err := rows.Scan(&r.SpotID, &r.Flag, &r.Frame, &r.PrevFrame); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *Journal) edgeChanges(eventID int64) ([]EdgeRecord, error) {
	rows, err := j.db.Query(
		`SELECT source_id, target_id, weight, flag FROM edge_changes WHERE event_id = ? ORDER BY rowid`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query edge changes: %w", err)
	}
	defer rows.Close()
	var out []EdgeRecord
	for rows.Next() {
		var r EdgeRecord
		if err := rows.Scan(&r.SourceID, &r.TargetID, &r.Weight, &r.Flag); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
