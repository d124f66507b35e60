//go:build !wasip1

package log

import (
	"fmt"

	"github.com/reglet-dev/reglet-nif/wireformat"
)

// sendToHost for non-WASM builds (e.g., host tests) prints the record.
func sendToHost(msg wireformat.LogMessageWire) {
	fmt.Printf("[HOST-STUB] Level=%s Env=%d Msg=%q\n", msg.Level, msg.Env, msg.Message)
}
