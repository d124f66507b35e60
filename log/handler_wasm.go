//go:build wasip1

package log

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/reglet-nif/internal/abi"
	"github.com/reglet-dev/reglet-nif/wireformat"
)

//go:wasmimport nif_host log_message
//nolint:revive // intentional snake_case to match WASM import convention
func host_log_message(messagePacked uint64)

func sendToHost(msg wireformat.LogMessageWire) {
	requestBytes, err := json.Marshal(msg)
	if err != nil {
		fmt.Printf("nif: failed to marshal log message for host: %v, original: %s\n", err, msg.Message)
		return
	}
	packed := abi.PtrFromBytes(requestBytes)
	if packed == 0 {
		return
	}
	host_log_message(packed)
	abi.DeallocatePacked(packed)
}

// init routes the default slog logger to the host.
func init() {
	slog.SetDefault(slog.New(NewHandler()))
}
