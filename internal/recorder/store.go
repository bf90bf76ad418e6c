package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Episode is one recorded game run.
type Episode struct {
	ID        string     `json:"id"`
	Strategy  string     `json:"strategy"`
	Remote    string     `json:"remote,omitempty"`
	StartedAt time.Time  `json:"started-at"`
	EndedAt   *time.Time `json:"ended-at,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
	Steps     int        `json:"steps"`
}

// Step is one recorded protocol event within an episode.
type Step struct {
	EpisodeID string    `json:"episode-id"`
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Payload   string    `json:"payload"`
}

const (
	StepState   = "state"
	StepCommand = "command"
	StepFrame   = "frame"
)

// Store persists episodes to sqlite. WAL keeps writers from blocking the
// API's reads.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", p, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			strategy TEXT NOT NULL,
			remote TEXT,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			outcome TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS steps (
			episode_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (episode_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_episode ON steps(episode_id)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) BeginEpisode(ctx context.Context, id, strategy, remote string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (id, strategy, remote, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, strategy, remote, startedAt.UnixMilli())
	return err
}

func (s *Store) EndEpisode(ctx context.Context, id, outcome string, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET ended_at = ?, outcome = ? WHERE id = ?
	`, endedAt.UnixMilli(), outcome, id)
	return err
}

func (s *Store) AppendStep(ctx context.Context, episodeID string, seq int64, kind string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps (episode_id, seq, ts, kind, payload)
		VALUES (?, ?, ?, ?, ?)
	`, episodeID, seq, time.Now().UnixMilli(), kind, string(payload))
	return err
}

func (s *Store) ListEpisodes(ctx context.Context, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.strategy, COALESCE(e.remote, ''), e.started_at, e.ended_at,
		       COALESCE(e.outcome, ''), COUNT(st.seq)
		FROM episodes e
		LEFT JOIN steps st ON st.episode_id = e.id
		GROUP BY e.id
		ORDER BY e.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var ep Episode
		var startedAt int64
		var endedAt sql.NullInt64
		if err := rows.Scan(&ep.ID, &ep.Strategy, &ep.Remote, &startedAt, &endedAt, &ep.Outcome, &ep.Steps); err != nil {
			return nil, err
		}
		ep.StartedAt = time.UnixMilli(startedAt)
		if endedAt.Valid {
			t := time.UnixMilli(endedAt.Int64)
			ep.EndedAt = &t
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

func (s *Store) GetSteps(ctx context.Context, episodeID string, limit int) ([]Step, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT episode_id, seq, ts, kind, payload
		FROM steps
		WHERE episode_id = ?
		ORDER BY seq
		LIMIT ?
	`, episodeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var st Step
		var ts int64
		if err := rows.Scan(&st.EpisodeID, &st.Seq, &ts, &st.Kind, &st.Payload); err != nil {
			return nil, err
		}
		st.Timestamp = time.UnixMilli(ts)
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
