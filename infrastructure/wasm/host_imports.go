//go:build wasip1

// Package wasm provides the guest-side adapters over the nif_host imports.
package wasm

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/reglet-nif/internal/abi"
)

//go:wasmimport nif_host term_decode
func host_term_decode(requestPacked uint64) uint64

//go:wasmimport nif_host term_encode
func host_term_encode(requestPacked uint64) uint64

//go:wasmimport nif_host raise_exception
func host_raise_exception(requestPacked uint64) uint64

// callHost sends req to a host import and decodes its response. The request
// buffer is released once the host returns; the response buffer was allocated
// by the host through allocate and is released after decoding.
func callHost[Req, Resp any](hostFunc func(uint64) uint64, req Req) (Resp, error) {
	var resp Resp
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqPacked := abi.PtrFromBytes(reqBytes)
	if reqPacked == 0 {
		return resp, fmt.Errorf("failed to allocate %d byte request", len(reqBytes))
	}
	respPacked := hostFunc(reqPacked)
	abi.DeallocatePacked(reqPacked)

	respBytes := abi.BytesFromPtr(respPacked)
	abi.DeallocatePacked(respPacked)
	if respBytes == nil {
		return resp, fmt.Errorf("host returned no data")
	}

	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return resp, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return resp, nil
}
