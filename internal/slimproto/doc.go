// Package slimproto implements the SlimProto wire codec and message catalog.
// It handles the binary message layouts exchanged between a playback device
// and a Slim server: encoding of client messages and decoding of server
// commands, including capability and status report formatting.
package slimproto
