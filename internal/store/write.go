package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/syncsum"
)

// Game identifies a recorded game.
type Game struct {
	ID        uuid.UUID
	Seed      uint64
	Players   []string
	StartTime int32
}

// SyncReport is one comparison of a peer hash against the reference hash.
type SyncReport struct {
	GameID   uuid.UUID
	Time     int32
	Peer     string
	Expected syncsum.Checksum
	Got      syncsum.Checksum
}

// OK reports whether the hashes matched.
func (r SyncReport) OK() bool { return r.Expected == r.Got }

// Desync is a failed comparison. DumpPath names the sync-stream dump written
// for it, if any.
type Desync struct {
	GameID   uuid.UUID
	Time     int32
	Peer     string
	Expected syncsum.Checksum
	Got      syncsum.Checksum
	DumpPath string
}

// WriteGame inserts a game. Writing an existing id is silently ignored.
func (s *Store) WriteGame(ctx context.Context, g Game) error {
	players, err := json.Marshal(g.Players)
	if err != nil {
		return fmt.Errorf("write game: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, seed, players, start_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		g.ID.String(),
		int64(g.Seed),
		string(players),
		g.StartTime,
	)
	if err != nil {
		return fmt.Errorf("write game: %w", err)
	}
	return nil
}

// WriteSyncReport stores a report. A failed report is also stored as a
// desync, in the same transaction.
//
// Note: The game referenced by GameID must exist (foreign key constraint).
func (s *Store) WriteSyncReport(ctx context.Context, r SyncReport) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sync_reports (game_id, game_time, peer, expected, got, ok)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			r.GameID.String(),
			r.Time,
			r.Peer,
			r.Expected.String(),
			r.Got.String(),
			boolToInt(r.OK()),
		)
		if err != nil || r.OK() {
			return err
		}
		_, err = tx.ExecContext(ctx, insertDesync,
			r.GameID.String(), r.Time, r.Peer, r.Expected.String(), r.Got.String(), "",
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("write sync report: %w", err)
	}
	return nil
}

const insertDesync = `
	INSERT INTO desyncs (game_id, game_time, peer, expected, got, dump_path)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(game_id, game_time, peer) DO UPDATE SET
		dump_path = CASE WHEN excluded.dump_path != '' THEN excluded.dump_path ELSE desyncs.dump_path END
`

// WriteDesync stores a desync. If the same desync was already stored through
// WriteSyncReport, its dump path is filled in.
func (s *Store) WriteDesync(ctx context.Context, d Desync) error {
	_, err := s.db.ExecContext(ctx, insertDesync,
		d.GameID.String(),
		d.Time,
		d.Peer,
		d.Expected.String(),
		d.Got.String(),
		d.DumpPath,
	)
	if err != nil {
		return fmt.Errorf("write desync: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
