package risk

import "errors"

// ErrInvalidConfig marks configuration-time failures: out-of-range
// parameters, inconsistent leverage limits, unstamped snapshots.
// These fail fast, before any batch is processed. Per-order problems
// are never errors; they surface as RejectedOrder entries and the
// engine's halt flags.
var ErrInvalidConfig = errors.New("invalid risk configuration")
