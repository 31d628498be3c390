package cli

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can tell a missing worker from a
// timed-out read without matching on message text.
type Kind int

const (
	// KindConfig: no worker artifact could be found.
	KindConfig Kind = iota + 1
	// KindSpawn: the worker process could not be started.
	KindSpawn
	// KindStartupTimeout: the worker's socket never appeared.
	KindStartupTimeout
	// KindConnect: the socket exists but dialing it failed.
	KindConnect
	// KindTransport: a write or read failed or hit its deadline.
	KindTransport
	// KindDecode: a line was read but is not a valid response.
	KindDecode
	// KindTranslate: the tokens map to no request.
	KindTranslate
	// KindApplication: the worker answered success:false.
	KindApplication
)

var kindNames = map[Kind]string{
	KindConfig:         "config",
	KindSpawn:          "spawn",
	KindStartupTimeout: "startup_timeout",
	KindConnect:        "connect",
	KindTransport:      "transport",
	KindDecode:         "decode",
	KindTranslate:      "translate",
	KindApplication:    "application",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by every client-side operation.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
