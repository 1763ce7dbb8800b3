package engine

import (
	"time"

	"github.com/relay-dev/relay/internal/lockstore"
	"github.com/relay-dev/relay/internal/logging"
)

// DefaultTimeout bounds every store call; exceeding it is treated the same
// as the backend being unreachable.
const DefaultTimeout = 5 * time.Second

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithTimeout overrides the per-store-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// Engine evaluates check_status and post_status requests against a lock
// store and a dependency graph. It holds no mutable state of its own; all
// shared state lives in the injected store, so engines are safe for
// concurrent use and cheap to construct per scope or per process.
type Engine struct {
	store   lockstore.Store
	graph   GraphView
	log     *logging.Logger
	timeout time.Duration
}

// New creates an Engine over the given store and graph view.
func New(store lockstore.Store, graph GraphView, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		graph:   graph,
		log:     logging.NopLogger(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// displayHead renders a stored repo head for responses; an empty head means
// no release has ever recorded one.
func displayHead(head string) string {
	if head == "" {
		return "unknown"
	}
	return head
}
