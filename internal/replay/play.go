package replay

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/syncsum"
)

// Result summarizes a playback.
type Result struct {
	GameID    uuid.UUID
	Commands  int
	Checks    []logic.SyncCheck
	Desyncs   []logic.Desync
	EndTime   logic.Time
	Ended     bool
	FinalHash syncsum.Checksum
}

// OK reports whether playback reached the end record without a desync.
func (r *Result) OK() bool {
	return r.Ended && len(r.Desyncs) == 0
}

// FirstDesync returns the earliest desync, if any.
func (r *Result) FirstDesync() (logic.Desync, bool) {
	if len(r.Desyncs) == 0 {
		return logic.Desync{}, false
	}
	return r.Desyncs[0], true
}

// Play restores the recorded game and re-executes it, checking every sync
// record. Desyncs are collected in the result; playback continues past them.
// Options are passed to logic.LoadGame; a desync handler is added.
func Play(ctx context.Context, rr *Reader, opts ...logic.Option) (*Result, *logic.Game, error) {
	res := &Result{GameID: rr.Header().GameID}
	opts = append(opts, logic.WithDesyncHandler(func(d logic.Desync) {
		res.Desyncs = append(res.Desyncs, d)
	}))
	g, err := rr.LoadGame(opts...)
	if err != nil {
		return nil, nil, err
	}
	g.Logger().Info("replay playback started", "game", res.GameID, "time", g.Time())

	for rec, err := range rr.Records() {
		if err != nil {
			return res, g, err
		}
		if err := ctx.Err(); err != nil {
			return res, g, err
		}
		// Everything strictly before the record's time already happened in
		// the recording before the record was written.
		if err := g.RunUntil(rec.Time - 1); err != nil {
			return res, g, fmt.Errorf("replay playback: %w", err)
		}
		switch rec.Type {
		case RecordCommand:
			g.Enqueue(rec.Command)
			res.Commands++
		case RecordSync:
			g.Enqueue(logic.NewCmdReplaySyncRead(rec.Time, rec.Sync, func(c logic.SyncCheck) {
				res.Checks = append(res.Checks, c)
			}))
		case RecordEnd:
			g.Enqueue(logic.NewCmdReplayEnd(rec.Time, func(t logic.Time) {
				res.Ended = true
				res.EndTime = t
			}))
			if err := g.RunUntil(rec.Time); err != nil {
				return res, g, fmt.Errorf("replay playback: %w", err)
			}
		}
	}
	res.FinalHash = g.SyncHash()
	return res, g, nil
}

// Verify plays the replay at path and returns the result.
func Verify(ctx context.Context, path string, opts ...logic.Option) (*Result, error) {
	rr, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rr.Close()
	res, _, err := Play(ctx, rr, opts...)
	return res, err
}
