package coro

import (
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestSizeOfAtomicUint64MatchesRuntime(t *testing.T) {
	var v atomic.Uint64
	assert.EqualValues(t, unsafe.Sizeof(v), sizeOfAtomicUint64)
}

func TestLoopStateHasNoFalseSharingPadding(t *testing.T) {
	var s loopState
	assert.GreaterOrEqual(t, int(unsafe.Sizeof(s)), sizeOfCacheLine*2)
}
