package slimproto

import "errors"

// Decode error taxonomy. Unknown tags are skippable; the other two mean the
// frame body did not match its declared layout but the frame boundary itself
// is intact, so the connection can continue.
var (
	// ErrUnknownTag marks a well-formed frame whose tag the catalog does
	// not recognise. Callers should log and skip the frame.
	ErrUnknownTag = errors.New("unknown message tag")

	// ErrMalformedBody marks a body whose fixed-width fields do not fit or
	// whose enumerated sub-fields are out of range.
	ErrMalformedBody = errors.New("malformed message body")

	// ErrTruncatedBody marks a body shorter than a variable-length
	// sub-field's declared size.
	ErrTruncatedBody = errors.New("truncated message body")
)
