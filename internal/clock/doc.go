// Package clock abstracts the monotonic time source the session engine
// depends on: periodic tickers for heartbeats and single-shot timers for
// timeouts. The fake implementation lets tests drive time deterministically.
package clock
