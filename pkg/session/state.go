package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ScorePerObjective is awarded for every completed objective.
const ScorePerObjective = 100

// LoadingPhase tracks which generation request, if any, is in flight.
type LoadingPhase string

const (
	PhaseIdle                  LoadingPhase = "idle"
	PhaseGeneratingEnvironment LoadingPhase = "generating-environment"
	PhaseGeneratingObjective   LoadingPhase = "generating-objective"
)

var (
	// ErrRequestInFlight is returned when a generation request is begun
	// while another one is still outstanding.
	ErrRequestInFlight = errors.New("a generation request is already in flight")

	// ErrNoEnvironment is returned when an objective is requested before
	// an environment has been generated.
	ErrNoEnvironment = errors.New("an environment must be generated first")

	// ErrStaleResponse is returned when a generation result arrives for a
	// request that is no longer the outstanding one.
	ErrStaleResponse = errors.New("generation result is stale")
)

// Objective is a quest and the reward for completing it.
type Objective struct {
	Objective string `json:"objective"`
	Reward    string `json:"reward"`
}

// State is a single player's game session.
type State struct {
	ID           uuid.UUID    `json:"id"`
	Environment  string       `json:"environment"`
	Objective    *Objective   `json:"objective,omitempty"`
	Inventory    []string     `json:"inventory"`
	Score        int          `json:"score"`
	Phase        LoadingPhase `json:"loading_phase"`
	RequestToken uint64       `json:"request_token"`
	RequestedAt  time.Time    `json:"requested_at,omitzero"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// New returns an idle session with nothing generated yet.
func New() *State {
	now := time.Now()
	return &State{
		ID:        uuid.New(),
		Inventory: make([]string, 0),
		Phase:     PhaseIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	if s.Objective != nil {
		obj := *s.Objective
		c.Objective = &obj
	}
	c.Inventory = append(make([]string, 0, len(s.Inventory)), s.Inventory...)
	return &c
}

// IsIdle reports whether no request is in flight.
func (s *State) IsIdle() bool {
	return s.Phase == PhaseIdle || s.Phase == ""
}

// CanRequestObjective reports whether an objective may be requested now.
func (s *State) CanRequestObjective() bool {
	return s.Environment != "" && s.IsIdle()
}

// BeginEnvironment starts an environment request for prompt. The current
// environment and objective are cleared immediately. The returned token
// must accompany the result.
func (s *State) BeginEnvironment(prompt string) (uint64, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return 0, err
	}
	if !s.IsIdle() {
		return 0, ErrRequestInFlight
	}
	s.Environment = ""
	s.Objective = nil
	return s.begin(PhaseGeneratingEnvironment), nil
}

// ApplyEnvironment stores a generated description.
func (s *State) ApplyEnvironment(token uint64, description string) error {
	if !s.outstanding(token, PhaseGeneratingEnvironment) {
		return ErrStaleResponse
	}
	s.Environment = description
	s.Objective = nil
	s.finish()
	return nil
}

// FailEnvironment returns the session to idle after a failed request.
func (s *State) FailEnvironment(token uint64) error {
	if !s.outstanding(token, PhaseGeneratingEnvironment) {
		return ErrStaleResponse
	}
	s.finish()
	return nil
}

// BeginObjective starts an objective request conditioned on the current
// environment.
func (s *State) BeginObjective(d Difficulty) (uint64, error) {
	if !d.Valid() {
		return 0, &ValidationError{Field: FieldDifficulty, Message: MsgDifficultyRequired}
	}
	if !s.IsIdle() {
		return 0, ErrRequestInFlight
	}
	if s.Environment == "" {
		return 0, ErrNoEnvironment
	}
	s.Objective = nil
	return s.begin(PhaseGeneratingObjective), nil
}

// ApplyObjective stores a generated objective.
func (s *State) ApplyObjective(token uint64, obj Objective) error {
	if !s.outstanding(token, PhaseGeneratingObjective) {
		return ErrStaleResponse
	}
	s.Objective = &obj
	s.finish()
	return nil
}

// FailObjective returns the session to idle, leaving the objective unset.
func (s *State) FailObjective(token uint64) error {
	if !s.outstanding(token, PhaseGeneratingObjective) {
		return ErrStaleResponse
	}
	s.finish()
	return nil
}

// CompleteObjective folds the current objective's reward into the
// inventory and score. It reports false and changes nothing when there is
// no current objective.
func (s *State) CompleteObjective() (string, bool) {
	if s.Objective == nil {
		return "", false
	}
	reward := s.Objective.Reward
	s.Score += ScorePerObjective
	s.Inventory = append(s.Inventory, reward)
	s.Objective = nil
	return reward, true
}

// Expire abandons an outstanding request older than timeout, so a lost
// response cannot wedge the session. It reports whether it did anything.
func (s *State) Expire(now time.Time, timeout time.Duration) bool {
	if s.IsIdle() || timeout <= 0 || now.Sub(s.RequestedAt) < timeout {
		return false
	}
	s.finish()
	return true
}

func (s *State) begin(phase LoadingPhase) uint64 {
	s.RequestToken++
	s.Phase = phase
	s.RequestedAt = time.Now()
	return s.RequestToken
}

func (s *State) finish() {
	s.Phase = PhaseIdle
	s.RequestedAt = time.Time{}
}

func (s *State) outstanding(token uint64, phase LoadingPhase) bool {
	return s.Phase == phase && s.RequestToken == token
}
