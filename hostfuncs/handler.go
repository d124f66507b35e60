package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultMaxRequestSize caps a single guest request (1MB). The adapter
// refuses larger requests before reading guest memory.
const DefaultMaxRequestSize = 1 << 20

// HostFunc handles one typed request. Failures travel inside Resp so the
// guest can decode them; a HostFunc has no error return.
type HostFunc[Req any, Resp any] func(context.Context, Req) Resp

// ByteHandler is the untyped form every nif_host import is registered as:
// JSON request bytes in, JSON response bytes out. A returned error means the
// host could not produce any response and the guest call fails.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewJSONHandler adapts a HostFunc to a ByteHandler. A request that does not
// decode is answered with a validation ErrorResponse.
//
//	decode := NewJSONHandler(func(ctx context.Context, req wireformat.TermDecodeRequest) wireformat.TermDecodeResponse {
//	    return PerformTermDecode(ctx, envs, req)
//	})
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewValidationError(fmt.Sprintf("malformed request: %v", err)).ToJSON(), nil
		}
		out, err := json.Marshal(fn(ctx, req))
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		return out, nil
	}
}
