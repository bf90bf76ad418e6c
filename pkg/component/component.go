package component

import "context"

// Component is the unit the daemon orchestrates. Start must return once the
// component's goroutines are running; Stop must not return until they have
// drained.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
