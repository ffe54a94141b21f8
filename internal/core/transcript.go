package core

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"jarvis/internal/llm"
	"jarvis/pkg"

	"github.com/oklog/ulid/v2"
)

// IDSource yields time-ordered unique ids
type IDSource func() string

// NewIDSource returns ULIDs from now and entropy. A nil entropy uses a
// monotonic source seeded from the clock.
func NewIDSource(now func() time.Time, entropy io.Reader) IDSource {
	if entropy == nil {
		entropy = ulid.Monotonic(rand.New(rand.NewSource(now().UnixNano())), 0)
	}
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(now()), entropy).String()
	}
}

// Transcript is the append-only conversation log. Only the open model turn
// may change, and only by having text appended to it.
type Transcript struct {
	newID    IDSource
	observer Observer

	mu    sync.Mutex
	turns []pkg.Turn
}

// NewTranscript creates a transcript seeded with the greeting turns
func NewTranscript(newID IDSource, observer Observer, greeting ...pkg.Turn) *Transcript {
	if observer == nil {
		observer = NopObserver{}
	}
	t := &Transcript{newID: newID, observer: observer}
	for _, turn := range greeting {
		turn.ID = newID()
		turn.State = pkg.TurnFinal
		t.turns = append(t.turns, turn)
	}
	return t
}

// Append adds a complete turn and returns it with its id
func (t *Transcript) Append(turn pkg.Turn) pkg.Turn {
	turn.ID = t.newID()
	turn.State = pkg.TurnFinal

	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()

	t.observer.TurnAdded(turn)
	return turn
}

// Begin opens an empty pending turn for streamed text
func (t *Transcript) Begin(role pkg.Role) string {
	turn := pkg.Turn{ID: t.newID(), Role: role, State: pkg.TurnPending}

	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()

	t.observer.TurnAdded(turn)
	return turn.ID
}

// Extend appends chunk to the open turn id
func (t *Transcript) Extend(id, chunk string) error {
	t.mu.Lock()
	turn, err := t.open(id)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	turn.Text += chunk
	turn.State = pkg.TurnStreaming
	t.mu.Unlock()

	t.observer.TurnChunk(id, chunk)
	return nil
}

// Finalize closes turn id as complete
func (t *Transcript) Finalize(id string) (pkg.Turn, error) {
	return t.close(id, pkg.TurnFinal)
}

// Interrupt closes turn id after a failed stream, keeping the partial text
func (t *Transcript) Interrupt(id string) (pkg.Turn, error) {
	return t.close(id, pkg.TurnInterrupted)
}

func (t *Transcript) close(id string, state pkg.TurnState) (pkg.Turn, error) {
	t.mu.Lock()
	turn, err := t.open(id)
	if err != nil {
		t.mu.Unlock()
		return pkg.Turn{}, err
	}
	turn.State = state
	closed := *turn
	t.mu.Unlock()

	t.observer.TurnClosed(closed)
	return closed, nil
}

// open finds an extendable turn. Caller holds mu.
func (t *Transcript) open(id string) (*pkg.Turn, error) {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].ID != id {
			continue
		}
		if !t.turns[i].State.Open() {
			return nil, fmt.Errorf("turn %s is %s", id, t.turns[i].State)
		}
		return &t.turns[i], nil
	}
	return nil, fmt.Errorf("turn %s not found", id)
}

// Turns returns a copy of every turn in order
func (t *Transcript) Turns() []pkg.Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]pkg.Turn(nil), t.turns...)
}

// Len returns the number of turns
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.turns)
}

// History converts the user and model turns into model history, keeping
// only the last maxTurns when maxTurns > 0
func (t *Transcript) History(maxTurns int) []llm.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := make([]llm.Message, 0, len(t.turns))
	for _, turn := range t.turns {
		if turn.Role == pkg.RoleSystem {
			continue
		}
		history = append(history, llm.Message{Role: turn.Role, Text: turn.Text})
	}
	return trimTail(history, maxTurns)
}

func trimTail(messages []llm.Message, maxTurns int) []llm.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		return messages
	}
	return messages[len(messages)-maxTurns:]
}
