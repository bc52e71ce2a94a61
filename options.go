package kademlia

import (
	"time"

	"go.uber.org/zap"
)

// NodeOption configures NewNode. Adapted from the teacher's
// Option{Name, Value}/getOption pattern in options.go, renamed to the
// conventional WithX functional-option idiom but keeping the same
// "apply over defaults" shape.
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	identity     *Identity
	k            int
	difficulty   int
	logInterval  uint64
	timeout      time.Duration
	maxAttempts  int
	refreshLower int
	refreshUpper int
	skew         time.Duration
	log          *zap.SugaredLogger
}

func defaultNodeConfig() nodeConfig {
	return nodeConfig{
		k:            DefaultK,
		difficulty:   DefaultC1,
		logInterval:  DefaultLogInterval,
		timeout:      DefaultTimeoutTimer * time.Second,
		maxAttempts:  DefaultTimeoutMaxAttempts,
		refreshLower: DefaultRefreshTimerLower,
		refreshUpper: DefaultRefreshTimerUpper,
		skew:         DefaultSkew,
	}
}

// WithIdentity supplies a pre-generated identity instead of running
// the proof-of-work generator at startup.
func WithIdentity(id Identity) NodeOption {
	return func(c *nodeConfig) { c.identity = &id }
}

// WithDifficulty overrides the C1 proof-of-work admission constraint.
func WithDifficulty(c1 int) NodeOption {
	return func(c *nodeConfig) { c.difficulty = c1 }
}

// WithK overrides the k-bucket replication parameter.
func WithK(k int) NodeOption {
	return func(c *nodeConfig) { c.k = k }
}

// WithLogInterval overrides how often identity generation logs progress.
func WithLogInterval(n uint64) NodeOption {
	return func(c *nodeConfig) { c.logInterval = n }
}

// WithTimeout overrides the per-attempt RPC timeout.
func WithTimeout(d time.Duration) NodeOption {
	return func(c *nodeConfig) { c.timeout = d }
}

// WithMaxAttempts overrides the number of attempts made per RPC.
func WithMaxAttempts(n int) NodeOption {
	return func(c *nodeConfig) { c.maxAttempts = n }
}

// WithRefreshBounds overrides the refresh task's sleep interval bounds,
// in seconds.
func WithRefreshBounds(lower, upper int) NodeOption {
	return func(c *nodeConfig) { c.refreshLower, c.refreshUpper = lower, upper }
}

// WithSkew overrides the allowed request timestamp skew window.
func WithSkew(d time.Duration) NodeOption {
	return func(c *nodeConfig) { c.skew = d }
}

// WithLogger supplies a zap sugared logger; defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) NodeOption {
	return func(c *nodeConfig) { c.log = log }
}
