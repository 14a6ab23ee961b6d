package pipeline

import "github.com/nhle/card-statements/internal/model"

// EventKind identifies a progress event.
type EventKind int

const (
	EventSearch EventKind = iota
	EventMessage
	EventFile
	EventDone
)

// Event reports run progress to an observer such as the terminal view.
type Event struct {
	Kind  EventKind
	Done  int
	Total int
	File  string
	Bank  model.Bank
}
