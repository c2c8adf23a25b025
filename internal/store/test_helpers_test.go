package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/syncsum"
)

var testGameID = uuid.MustParse("0192f0c8-7a51-7b3e-9c1d-2e3f4a5b6c7d")

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestGame stores the game every test row refers to.
func createTestGame(t *testing.T, s *Store) Game {
	t.Helper()
	g := Game{ID: testGameID, Seed: 42, Players: []string{"alice", "bob"}}
	if err := s.WriteGame(context.Background(), g); err != nil {
		t.Fatalf("WriteGame() failed: %v", err)
	}
	return g
}

func sum(s string) syncsum.Checksum {
	return syncsum.Sum([]byte(s))
}
