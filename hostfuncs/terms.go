package hostfuncs

import (
	"context"

	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/reglet-dev/reglet-nif/domain/ports"
	"github.com/reglet-dev/reglet-nif/term"
	"github.com/reglet-dev/reglet-nif/wireformat"
)

// Host function names, as imported by the guest from the nif_host module.
const (
	TermDecodeFunc     = "term_decode"
	TermEncodeFunc     = "term_encode"
	RaiseExceptionFunc = "raise_exception"
	LogMessageFunc     = "log_message"
)

// PerformTermDecode returns the value behind a term.
func PerformTermDecode(_ context.Context, codec ports.TermCodec, req wireformat.TermDecodeRequest) wireformat.TermDecodeResponse {
	v, err := codec.Decode(entities.Env(req.Env), entities.Term(req.Term))
	if err != nil {
		return wireformat.TermDecodeResponse{Error: detailOf(entities.ErrorTypeBadArg, err)}
	}
	w, err := term.ToWire(v)
	if err != nil {
		return wireformat.TermDecodeResponse{Error: detailOf(ErrorTypeInternal, err)}
	}
	return wireformat.TermDecodeResponse{Value: &w}
}

// PerformTermEncode stores a value in an env and returns its term.
func PerformTermEncode(_ context.Context, codec ports.TermCodec, req wireformat.TermEncodeRequest) wireformat.TermEncodeResponse {
	v, err := term.FromWire(req.Value)
	if err != nil {
		return wireformat.TermEncodeResponse{Error: detailOf(ErrorTypeValidation, err)}
	}
	t, err := codec.Encode(entities.Env(req.Env), v)
	if err != nil {
		return wireformat.TermEncodeResponse{Error: detailOf(entities.ErrorTypeBadArg, err)}
	}
	return wireformat.TermEncodeResponse{Term: uint64(t)}
}

// PerformRaise records an exception on an env.
func PerformRaise(_ context.Context, codec ports.TermCodec, req wireformat.RaiseRequest) wireformat.RaiseResponse {
	reason, err := term.FromWire(req.Reason)
	if err != nil {
		return wireformat.RaiseResponse{Error: detailOf(ErrorTypeValidation, err)}
	}
	return wireformat.RaiseResponse{Term: uint64(codec.Raise(entities.Env(req.Env), reason))}
}

// TermBundle returns the term host functions bound to codec:
// term_decode, term_encode, raise_exception.
func TermBundle(codec ports.TermCodec) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			TermDecodeFunc: NewJSONHandler(func(ctx context.Context, req wireformat.TermDecodeRequest) wireformat.TermDecodeResponse {
				return PerformTermDecode(ctx, codec, req)
			}),
			TermEncodeFunc: NewJSONHandler(func(ctx context.Context, req wireformat.TermEncodeRequest) wireformat.TermEncodeResponse {
				return PerformTermEncode(ctx, codec, req)
			}),
			RaiseExceptionFunc: NewJSONHandler(func(ctx context.Context, req wireformat.RaiseRequest) wireformat.RaiseResponse {
				return PerformRaise(ctx, codec, req)
			}),
		},
	}
}
