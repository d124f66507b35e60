//go:build !wasip1

package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressOf_Native(t *testing.T) {
	assert.Equal(t, NativeBase, AddressOf(make([]byte, 4)))
	assert.Zero(t, AddressOf(nil))
}
