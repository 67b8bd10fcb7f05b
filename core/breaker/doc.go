// Package breaker implements the circuit breaker protecting the external
// license API.
//
// # State machine
//
//   - Closed (initial): calls pass through; consecutive failures are counted.
//   - Open: after the failure threshold is hit, every call fails fast with
//     ErrOpen. After the cooldown the breaker moves to Half-Open.
//   - Half-Open: exactly one probe call is allowed. Success closes the
//     breaker and resets the counter; failure re-opens it and restarts the
//     cooldown timer.
//
// The breaker is an explicit, injectable object rather than package-level
// state, so each external system gets its own instance and tests can drive
// transitions with a fake clock.
package breaker
