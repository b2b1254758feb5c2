package core

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Option configures the components built by this package.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type Option func(*options)

type options struct {
	// logger receives structured component logs.
	logger *log.Logger

	// loggerSet reports whether the caller supplied the logger.
	loggerSet bool

	// clock supplies timestamps and the reference time for decay.
	clock func() time.Time

	// nodeID is the Snowflake node for memory IDs.
	nodeID int64
}

func defaultOptions() *options {
	return &options{
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "agentrecall"}),
		clock:  time.Now,
		nodeID: 1,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger.
//
// Example:
//
//	client, _ := core.NewClient(cfg, core.WithLogger(log.Default()))
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
			o.loggerSet = true
		}
	}
}

// WithClock sets the time source. Stored timestamps and temporal decay use it.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithNodeID sets the Snowflake node used for memory IDs.
func WithNodeID(nodeID int64) Option {
	return func(o *options) {
		o.nodeID = nodeID
	}
}
