// Package throttle limits how often a key (caller + room) may attempt an action.
package throttle

import "context"

// Limiter decides whether one more attempt for key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
