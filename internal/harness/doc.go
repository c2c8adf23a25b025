// Package harness checks that scripted games are deterministic.
//
// A scenario describes a game setup, a list of player commands with explicit
// duetimes and cmdserials, and the game times at which to capture the sync
// hash. Run plays the scenario twice, once while recording a replay, and
// then plays the recording back. All three must agree on every hash.
//
// # Scenario Format
//
//	name: two_builders
//	description: "Both players build, bob bulldozes"
//	seed: 7
//	players: [alice, bob]
//	until: 1000
//	intervals:
//	  replay_sync_ms: 250
//	commands:
//	  - at: 100
//	    player: 1
//	    serial: 1
//	    do: build
//	    args: {building: quarry, x: "3", "y": "4"}
//	checkpoints: [500]
//	assertions:
//	  - type: object_count
//	    player: 1
//	    object: building
//	    count: 1
//
// The do field takes the identifiers listed by logic.CommandIDs.
//
// # Assertion Types
//
//   - object_count: number of objects of a type owned by a player
//   - stock: ware stock of a player, exact (count) or bounded (min, max)
//   - building_at: the building type standing on a field, or none
//
// # Golden Files
//
// RunWithGolden compares the replay timeline of a scenario, one line per
// record, against testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
package harness
