package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/syncsum"
)

// ReplayRun is the outcome of verifying one replay file.
type ReplayRun struct {
	ID         int64
	GameID     uuid.UUID
	ReplayPath string
	EndTime    int32
	Commands   int
	Checks     int
	Desyncs    int
	FinalHash  syncsum.Checksum
	Ended      bool
}

// OK reports whether the replay played to its end without desyncs.
func (r ReplayRun) OK() bool {
	return r.Ended && r.Desyncs == 0
}

// WriteReplayRun stores a verification run and returns its id.
func (s *Store) WriteReplayRun(ctx context.Context, r ReplayRun) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO replay_runs
		(game_id, replay_path, end_time, commands, checks, desyncs, final_hash, ended)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.GameID.String(),
		r.ReplayPath,
		r.EndTime,
		r.Commands,
		r.Checks,
		r.Desyncs,
		r.FinalHash.String(),
		boolToInt(r.Ended),
	)
	if err != nil {
		return 0, fmt.Errorf("write replay run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write replay run: %w", err)
	}
	return id, nil
}

// ReadReplayRuns returns the verification runs of a game in insertion order.
func (s *Store) ReadReplayRuns(ctx context.Context, gameID uuid.UUID) ([]ReplayRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, replay_path, end_time, commands, checks, desyncs, final_hash, ended
		FROM replay_runs
		WHERE game_id = ?
		ORDER BY id ASC
	`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("query replay runs: %w", err)
	}
	defer rows.Close()

	runs := []ReplayRun{}
	for rows.Next() {
		var (
			r      ReplayRun
			gameID string
			hash   string
			ended  int
		)
		if err := rows.Scan(&r.ID, &gameID, &r.ReplayPath, &r.EndTime, &r.Commands, &r.Checks, &r.Desyncs, &hash, &ended); err != nil {
			return nil, fmt.Errorf("scan replay run: %w", err)
		}
		if r.GameID, err = uuid.Parse(gameID); err != nil {
			return nil, fmt.Errorf("scan replay run: %w", err)
		}
		if r.FinalHash, err = syncsum.ParseChecksum(hash); err != nil {
			return nil, fmt.Errorf("scan replay run: %w", err)
		}
		r.Ended = ended != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replay runs: %w", err)
	}
	return runs, nil
}
