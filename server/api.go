package server

import (
	"context"

	"github.com/jathurchan/davlock/rpc"
)

// DavLockServer serves a lock store and the If header evaluator over gRPC.
//
// The server validates requests, parses their header-valued fields and
// maps store and parser errors to gRPC status codes. It owns neither the
// lock store nor the entity-tag source; callers close those after Stop.
type DavLockServer interface {
	rpc.LockServiceServer

	// Start begins listening and serving in the background.
	//
	// Returns an error if the server was already started or stopped, or if
	// the listen address cannot be bound.
	Start(ctx context.Context) error

	// Stop gracefully shuts the server down, waiting for in-flight requests
	// until ctx ends or ShutdownTimeout elapses, whichever comes first.
	// Remaining requests are then cancelled and ErrShutdownTimeout returned.
	Stop(ctx context.Context) error

	// Addr returns the address the server listens on, or "" before Start.
	Addr() string

	// State returns the current lifecycle state.
	State() ServerOperationalState

	// Connections returns the tracker of live client connections.
	Connections() ConnectionManager
}
