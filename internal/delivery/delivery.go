// Package delivery holds the entry points that expose the service to the outside world.
package delivery

import "context"

// Delivery is a long-running component started by the application, such as the
// HTTP API or the background ledger worker. Serve blocks until the component stops.
type Delivery interface {
	Serve(ctx context.Context) error
}
