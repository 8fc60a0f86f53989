package events

import "context"

// Publisher emits registry events with fail-closed semantics: Emit blocks
// until the event is durably accepted, and an error means the calling
// operation must not commit. Indexers depend on the stream being complete.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}
