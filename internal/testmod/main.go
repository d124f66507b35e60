//go:build wasip1

// Command testmod is the testmod module built as a wasm reactor. The host
// tests compile it on demand.
package main

import (
	_ "github.com/reglet-dev/reglet-nif/internal/testmod/nif"
)

func main() {}
