// Package transport defines the duplex byte-stream boundary the session
// engine runs over and provides the TCP dialer used by the player. The
// engine itself never opens sockets.
package transport
