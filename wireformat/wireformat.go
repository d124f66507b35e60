// Package wireformat defines the JSON wire format structures exchanged between
// the guest and the host through the nif_host imports. These types define the
// ABI contract and must remain stable and backward compatible.
package wireformat

import (
	"encoding/json"
	"fmt"
	"time"
)

// TermWire carries a term value across the boundary.
// Type is a cty type in its JSON encoding; Value is the value in cty msgpack.
type TermWire struct {
	Type  json.RawMessage `json:"type"`
	Value []byte          `json:"value"`
}

// TermDecodeRequest asks the host for the value behind a term.
type TermDecodeRequest struct {
	Env  uint64 `json:"env"`
	Term uint64 `json:"term"`
}

// TermDecodeResponse returns the value behind a term.
type TermDecodeResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	Value *TermWire    `json:"value,omitempty"`
}

// TermEncodeRequest asks the host to store a value in an env.
type TermEncodeRequest struct {
	Value TermWire `json:"value"`
	Env   uint64   `json:"env"`
}

// TermEncodeResponse returns the term the host created.
type TermEncodeResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	Term  uint64       `json:"term"`
}

// RaiseRequest records an exception reason on an env.
type RaiseRequest struct {
	Reason TermWire `json:"reason"`
	Env    uint64   `json:"env"`
}

// RaiseResponse acknowledges a raise. Term is always the non-value.
type RaiseResponse struct {
	Error *ErrorDetail `json:"error,omitempty"`
	Term  uint64       `json:"term"`
}

// LogMessageWire is the JSON wire format for a log message from guest to host.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	Env       uint64        `json:"env,omitempty"`
}

// LogAttrWire is one structured logging attribute.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ErrorDetail is the wire form of a host-side failure.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s [%s]", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}
