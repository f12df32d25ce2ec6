// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload indicates a frame that is not a valid JSON object
	// or whose fields have the wrong JSON types.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnknownType indicates a well-formed frame whose "type" is not recognized.
	ErrUnknownType = errors.New("unknown message type")

	// ErrUnknownCommand indicates a command type that cannot be sent to a device.
	ErrUnknownCommand = errors.New("unknown command type")

	// ErrInvalidCommandPayload indicates a command payload that is not a JSON object.
	ErrInvalidCommandPayload = errors.New("invalid command payload")
)

// DecodeError describes why an inbound frame could not be decoded.
type DecodeError struct {
	// Kind is ErrMalformedPayload or ErrUnknownType.
	Kind error

	// Type is the "type" field of the frame, when it could be read.
	Type string

	// Err is the underlying parser error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.Type != "":
		return fmt.Sprintf("%v: %q", e.Kind, e.Type)
	default:
		return e.Kind.Error()
	}
}

// Unwrap allows errors.Is to match both the kind and the parser error.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
