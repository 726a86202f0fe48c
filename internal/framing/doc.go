// Package framing splits the connection byte stream into tagged frames and
// writes outbound messages as single atomic frames. The reader accumulates
// partial frames across transport reads of arbitrary size and reports loss
// of frame-boundary synchronisation, which is fatal to the connection.
package framing
