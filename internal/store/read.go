package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/syncsum"
)

// ErrNotFound is returned when a requested game does not exist.
var ErrNotFound = errors.New("not found")

// ReadGame returns the game with the given id.
func (s *Store) ReadGame(ctx context.Context, id uuid.UUID) (Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seed, players, start_time FROM games WHERE id = ?
	`, id.String())
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, fmt.Errorf("read game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Game{}, fmt.Errorf("read game %s: %w", id, err)
	}
	return g, nil
}

// ReadGames returns all games ordered by id.
func (s *Store) ReadGames(ctx context.Context) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed, players, start_time FROM games
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(sc scanner) (Game, error) {
	var (
		g       Game
		id      string
		seed    int64
		players string
	)
	if err := sc.Scan(&id, &seed, &players, &g.StartTime); err != nil {
		return Game{}, err
	}
	var err error
	if g.ID, err = uuid.Parse(id); err != nil {
		return Game{}, fmt.Errorf("scan game: %w", err)
	}
	if err := json.Unmarshal([]byte(players), &g.Players); err != nil {
		return Game{}, fmt.Errorf("scan game: players: %w", err)
	}
	g.Seed = uint64(seed)
	return g, nil
}

// ReadSyncReports returns the reports of a game.
// Results are ordered deterministically: ORDER BY game_time ASC, peer COLLATE BINARY ASC.
func (s *Store) ReadSyncReports(ctx context.Context, gameID uuid.UUID) ([]SyncReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, game_time, peer, expected, got
		FROM sync_reports
		WHERE game_id = ?
		ORDER BY game_time ASC, peer COLLATE BINARY ASC
	`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("query sync reports: %w", err)
	}
	defer rows.Close()

	reports := []SyncReport{}
	for rows.Next() {
		var r SyncReport
		var id, expected, got string
		if err := rows.Scan(&id, &r.Time, &r.Peer, &expected, &got); err != nil {
			return nil, fmt.Errorf("scan sync report: %w", err)
		}
		if r.GameID, r.Expected, r.Got, err = parseRow(id, expected, got); err != nil {
			return nil, fmt.Errorf("scan sync report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync reports: %w", err)
	}
	return reports, nil
}

// ReadDesyncs returns the desyncs of a game, earliest first.
func (s *Store) ReadDesyncs(ctx context.Context, gameID uuid.UUID) ([]Desync, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, game_time, peer, expected, got, dump_path
		FROM desyncs
		WHERE game_id = ?
		ORDER BY game_time ASC, peer COLLATE BINARY ASC
	`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("query desyncs: %w", err)
	}
	defer rows.Close()

	desyncs := []Desync{}
	for rows.Next() {
		var d Desync
		var id, expected, got string
		if err := rows.Scan(&id, &d.Time, &d.Peer, &expected, &got, &d.DumpPath); err != nil {
			return nil, fmt.Errorf("scan desync: %w", err)
		}
		if d.GameID, d.Expected, d.Got, err = parseRow(id, expected, got); err != nil {
			return nil, fmt.Errorf("scan desync: %w", err)
		}
		desyncs = append(desyncs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate desyncs: %w", err)
	}
	return desyncs, nil
}

// CountFailedReports returns how many reports of a game did not match.
func (s *Store) CountFailedReports(ctx context.Context, gameID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_reports WHERE game_id = ? AND ok = 0
	`, gameID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count failed reports: %w", err)
	}
	return n, nil
}

func parseRow(id, expected, got string) (uuid.UUID, syncsum.Checksum, syncsum.Checksum, error) {
	gid, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, syncsum.Checksum{}, syncsum.Checksum{}, err
	}
	e, err := syncsum.ParseChecksum(expected)
	if err != nil {
		return uuid.UUID{}, syncsum.Checksum{}, syncsum.Checksum{}, err
	}
	g, err := syncsum.ParseChecksum(got)
	if err != nil {
		return uuid.UUID{}, syncsum.Checksum{}, syncsum.Checksum{}, err
	}
	return gid, e, g, nil
}
