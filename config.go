package ilink3

import (
	"io"
	"log/slog"
)

// AutomaticSeqNo is the sentinel initial sequence number for "no explicit
// value". NewSession keeps no record of earlier sessions, so a sequence
// number given as AutomaticSeqNo starts at 1. When both initial numbers
// are AutomaticSeqNo the session opens with Negotiate even if
// ReEstablishLastSession is set.
const AutomaticSeqNo uint64 = 0

// NotAppliedUUIDPolicy governs what a Session does when it receives a
// NotApplied message whose uuid does not match its own. The upstream
// behavior here is an empty branch with ambiguous intent; this library
// defaults to the conservative choice and makes it configurable.
type NotAppliedUUIDPolicy uint8

// NotAppliedUUIDPolicy values.
const (
	// NotAppliedUUIDTerminate disconnects the session. Default.
	NotAppliedUUIDTerminate NotAppliedUUIDPolicy = iota
	// NotAppliedUUIDIgnore logs and discards the message.
	NotAppliedUUIDIgnore
)

// Config holds every option consumed by a Session. Build one with
// NewConfig and the With* functional options.
type Config struct {
	SessionID   string
	FirmID      string
	AccessKeyID string
	UserKey     string

	TradingSystemName    string
	TradingSystemVersion string
	TradingSystemVendor  string

	KeepAliveIntervalMs int32

	ReEstablishLastSession bool
	InitialSentSeqNo       uint64
	InitialRecvSeqNo       uint64

	RetransmitRequestMessageLimit int32

	OnNotAppliedWrongUUID NotAppliedUUIDPolicy

	Handler Handler
	Logger  *slog.Logger
}

// Option configures a Config built by NewConfig.
type Option func(*Config)

// NewConfig builds a Config with the given identity and iLink3's usual
// defaults: 10s keepalive, sequence numbers starting at 1, a retransmit
// request limit of 1000, a discarding logger, and no handler (WithHandler
// is required before use).
func NewConfig(sessionID, firmID, userKeyBase64URL string, opts ...Option) *Config {
	cfg := &Config{
		SessionID:                     sessionID,
		FirmID:                        firmID,
		UserKey:                       userKeyBase64URL,
		KeepAliveIntervalMs:           10000,
		InitialSentSeqNo:              1,
		InitialRecvSeqNo:              1,
		RetransmitRequestMessageLimit: 1000,
		OnNotAppliedWrongUUID:         NotAppliedUUIDTerminate,
		Logger:                        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithAccessKeyID sets the access key identifier sent in Negotiate.
func WithAccessKeyID(accessKeyID string) Option {
	return func(c *Config) { c.AccessKeyID = accessKeyID }
}

// WithTradingSystem sets the trading system identity fields sent in
// Establish.
func WithTradingSystem(name, version, vendor string) Option {
	return func(c *Config) {
		c.TradingSystemName = name
		c.TradingSystemVersion = version
		c.TradingSystemVendor = vendor
	}
}

// WithKeepAlive sets the requested keepalive interval in milliseconds.
func WithKeepAlive(intervalMs int32) Option {
	return func(c *Config) { c.KeepAliveIntervalMs = intervalMs }
}

// WithReEstablishLastSession requests Establish instead of Negotiate on a
// newly connected transport.
func WithReEstablishLastSession(reEstablish bool) Option {
	return func(c *Config) { c.ReEstablishLastSession = reEstablish }
}

// WithInitialSequenceNumbers sets the initial sent/received sequence
// numbers. AutomaticSeqNo for either starts that number at 1; no last
// value from an earlier session is looked up.
func WithInitialSequenceNumbers(sent, recv uint64) Option {
	return func(c *Config) {
		c.InitialSentSeqNo = sent
		c.InitialRecvSeqNo = recv
	}
}

// WithRetransmitRequestMessageLimit bounds the msgCount of any single
// RetransmitRequest the session sends.
func WithRetransmitRequestMessageLimit(limit int32) Option {
	return func(c *Config) { c.RetransmitRequestMessageLimit = limit }
}

// WithHandler installs the event handler invoked from Poll/OnMessage.
func WithHandler(h Handler) Option {
	return func(c *Config) { c.Handler = h }
}

// WithLogger installs a *slog.Logger for internal debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithOnNotAppliedWrongUUID sets the policy for a NotApplied carrying a
// uuid that does not match the session's own.
func WithOnNotAppliedWrongUUID(policy NotAppliedUUIDPolicy) Option {
	return func(c *Config) { c.OnNotAppliedWrongUUID = policy }
}
