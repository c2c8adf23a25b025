package harness

// Checkpoint is the sync hash at a game time.
type Checkpoint struct {
	Time    int32  `json:"time"`
	Hash    string `json:"hash"`
	Objects int    `json:"objects"`
}

// ReplaySummary describes the playback of the recorded run.
type ReplaySummary struct {
	Commands  int    `json:"commands"`
	Checks    int    `json:"checks"`
	Desyncs   int    `json:"desyncs"`
	Ended     bool   `json:"ended"`
	FinalHash string `json:"final_hash"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Checkpoints of the recorded run. The last one is at Until.
	Checkpoints []Checkpoint `json:"checkpoints"`

	Replay ReplaySummary `json:"replay"`

	// Timeline lists the records of the replay, one line each.
	Timeline []string `json:"timeline"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Checkpoints: []Checkpoint{},
		Timeline:    []string{},
		Errors:      []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// FinalHash is the hash at the end of the recorded run.
func (r *Result) FinalHash() string {
	if len(r.Checkpoints) == 0 {
		return ""
	}
	return r.Checkpoints[len(r.Checkpoints)-1].Hash
}
