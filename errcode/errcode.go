package errcode

// Code is a stable, log- and bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	Timeout        Code = "timeout"

	// Transport and session.
	QueueFull     Code = "queue_full"     // transient: outbound slot not available in time
	TooLarge      Code = "too_large"      // fatal: caller exceeded the buffer contract
	LinkDown      Code = "link_down"      // fatal: serial endpoint failed
	PeerNotFound  Code = "peer_not_found" // fatal: peer never answered a ping
	Closed        Code = "closed"
	BadFrame      Code = "bad_frame"
	UnknownEntity Code = "unknown_entity"

	Fatal Code = "fatal"
	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches an operation and cause to a code. A nil cause still yields an *E.
func Wrap(c Code, op string, err error) *E { return &E{C: c, Op: op, Err: err} }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Transient reports whether err is an expected, retryable condition.
func Transient(err error) bool {
	switch Of(err) {
	case QueueFull, Timeout, Busy:
		return true
	}
	return false
}
