package core

import "jarvis/pkg"

// Observer receives transcript and state events as they happen. Calls are
// made synchronously from the goroutine running the exchange.
type Observer interface {
	TurnAdded(turn pkg.Turn)
	TurnChunk(id, chunk string)
	TurnClosed(turn pkg.Turn)
	Reasoning(lines []string)
	StateChanged(state State)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) TurnAdded(pkg.Turn) {}
func (NopObserver) TurnChunk(string, string) {}
func (NopObserver) TurnClosed(pkg.Turn) {}
func (NopObserver) Reasoning([]string) {}
func (NopObserver) StateChanged(State) {}
