// Package connector drives a Session end to end: it dials a transport,
// generates the session uuid, retries the dial with backoff (and redials
// when the link fails), and runs the poll loop until the session unbinds or
// the caller cancels. A failed negotiate/establish is not retried. It is the ambient dial/reconnect layer, kept separate
// from the dependency-free core.
package connector

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Options configures a Connector.
type Options struct {
	// PollInterval is how often Run calls Session.Poll while connected.
	PollInterval time.Duration

	// Backoff governs delay between dial attempts. Defaults to
	// an exponential backoff capped at 8 retries.
	Backoff backoff.BackOff

	// Logger receives operator-facing connect/reconnect/error events.
	// Defaults to a logger writing nowhere.
	Logger *logrus.Logger
}

// Option configures Options.
type Option func(*Options)

func defaultOptions() Options {
	logger := logrus.New()
	logger.SetOutput(discardWriter{})
	return Options{
		PollInterval: 20 * time.Millisecond,
		Backoff:      backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8),
		Logger:       logger,
	}
}

// WithPollInterval sets how often the connector calls Session.Poll.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) { o.PollInterval = d }
}

// WithBackoff sets the reconnect backoff policy.
func WithBackoff(b backoff.BackOff) Option {
	return func(o *Options) { o.Backoff = b }
}

// WithLogger sets the operator-facing logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
