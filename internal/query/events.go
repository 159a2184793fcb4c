package query

import "time"

// StartedEvent is delivered before a provider is called.
type StartedEvent struct {
	Provider Provider
	Terms    Terms
	vetoed   bool
}

// Veto skips the provider call. The provider then contributes no results.
func (e *StartedEvent) Veto() {
	e.vetoed = true
}

// Vetoed reports whether an observer vetoed the call.
func (e *StartedEvent) Vetoed() bool {
	return e.vetoed
}

// FinishedEvent is delivered after a provider call returns, fails or panics.
type FinishedEvent struct {
	Provider Provider
	Terms    Terms
	Results  []*Result
	Err      error
	Elapsed  time.Duration
}

// Observer receives provider lifecycle events. Events for different providers
// may be delivered concurrently.
type Observer interface {
	SearchStarted(e *StartedEvent)
	SearchFinished(e *FinishedEvent)
}

// ObserverFuncs adapts plain functions to Observer. Nil functions are skipped.
type ObserverFuncs struct {
	Started  func(e *StartedEvent)
	Finished func(e *FinishedEvent)
}

// SearchStarted implements Observer.
func (o ObserverFuncs) SearchStarted(e *StartedEvent) {
	if o.Started != nil {
		o.Started(e)
	}
}

// SearchFinished implements Observer.
func (o ObserverFuncs) SearchFinished(e *FinishedEvent) {
	if o.Finished != nil {
		o.Finished(e)
	}
}

type observers []Observer

func (obs observers) SearchStarted(e *StartedEvent) {
	for _, o := range obs {
		o.SearchStarted(e)
	}
}

func (obs observers) SearchFinished(e *FinishedEvent) {
	for _, o := range obs {
		o.SearchFinished(e)
	}
}
