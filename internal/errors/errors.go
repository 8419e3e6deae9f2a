// Package errors provides the error taxonomy used across the whois server.
//
// Every error that can surface to a client is tagged with a Kind so callers
// can branch on category (KindOf or IsKind) without parsing strings. Handlers never propagate a raw error to the
// connection; they convert it to a single "% Error: ..." comment line.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error per spec.md §7.
type Kind string

const (
	KindClassification      Kind = "classification_error"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindDN42Miss            Kind = "dn42_miss"
	KindPluginTimeout       Kind = "plugin_timeout"
	KindPluginRuntimeError  Kind = "plugin_runtime_error"
	KindPluginPermission    Kind = "plugin_permission_denied"
	KindPatchApply          Kind = "patch_apply_error"
	KindPatchMismatch       Kind = "patch_download_mismatch"
	KindStorage             Kind = "storage_error"
	KindConnectionLimit     Kind = "connection_limit_exceeded"
	KindClientDeadline      Kind = "client_deadline_exceeded"
	KindMalformed           Kind = "malformed"
)

// Error is a taxonomy-tagged error. It wraps an underlying cause so
// errors.Is/errors.As keep working against that cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a taxonomy error with no underlying cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a Kind to an existing error.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, walking Unwrap chains. The second
// return is false if no tagged error was found.
func KindOf(err error) (Kind, bool) {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind, true
	}
	return "", false
}

// IsKind reports whether err (or a wrapped cause) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// StorageOpenError wraps a KV-store open failure. Per spec.md §7 this is the
// one StorageError variant that is fatal to the process; a read failure of
// the same Kind is instead treated as a cache miss by the caller.
func StorageOpenError(err error) error {
	return Wrap(KindStorage, "open failed", err)
}
