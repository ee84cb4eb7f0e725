package convert

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a conversion failure. The HTTP layer maps each kind to a
// status code.
type Kind string

const (
	KindClientInput         Kind = "client_input"
	KindUnsupportedContent  Kind = "unsupported_content"
	KindTimeout             Kind = "timeout"
	KindRendererUnavailable Kind = "renderer_unavailable"
	KindFilesystem          Kind = "filesystem"
)

// Error is the single failure shape every route reports.
type Error struct {
	Kind  Kind
	Route string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Route != "" {
		msg = e.Route + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Public returns the message shown to clients. Filesystem failures are
// reported generically so server paths never leak.
func (e *Error) Public() string {
	if e.Kind == KindFilesystem {
		return e.Op + ": internal storage error"
	}
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op
}

// KindOf returns the kind of err, or "" when err is nil. Errors that did not
// come from this package are treated as unsupported content.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnsupportedContent
}

// AsError reports whether err is (or wraps) an *Error.
func AsError(err error) (*Error, bool) {
	var ce *Error
	ok := errors.As(err, &ce)
	return ce, ok
}

func clientErr(op string, err error) *Error {
	return &Error{Kind: KindClientInput, Op: op, Err: err}
}

func contentErr(op string, err error) *Error {
	return &Error{Kind: KindUnsupportedContent, Op: op, Err: err}
}

func fsErr(op string, err error) *Error {
	return &Error{Kind: KindFilesystem, Op: op, Err: err}
}

// rendererErr classifies a failure from the HTML renderer. Deadline and
// cancellation keep their own kind; anything else means the browser is
// not usable.
func rendererErr(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Op: "render pdf", Err: err}
	}
	return &Error{Kind: KindRendererUnavailable, Op: "render pdf", Err: err}
}

// classify fills in the route on a strategy error and gives untyped errors
// a kind.
func classify(route string, err error) *Error {
	if ce, ok := AsError(err); ok {
		if ce.Route == "" {
			ce.Route = route
		}
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Route: route, Op: "convert", Err: err}
	}
	return &Error{Kind: KindUnsupportedContent, Route: route, Op: "convert", Err: err}
}

type panicError struct {
	value any
}

func (p panicError) Error() string {
	return fmt.Sprintf("converter panicked: %v", p.value)
}
