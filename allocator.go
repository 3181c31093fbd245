package vom

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// ExportIDAllocator mints fresh kind IDs. Real export-ID allocation
// policy is a host-level concern vom only consumes; vom ships two
// reference allocators so it is runnable standalone, but a host
// embedding vom is expected to supply its own.
type ExportIDAllocator interface {
	AllocateExportID() string
}

// SequentialAllocator mints "<n>"-shaped ids from a monotonic counter,
// starting at 1. This is the default allocator and the one used by
// every round-trip test, since it gives deterministic, human-legible
// instance keys like o+1/1, o+1/2, o+2/1.
type SequentialAllocator struct {
	next atomic.Uint64
}

// NewSequentialAllocator returns an allocator whose first id is "1".
func NewSequentialAllocator() *SequentialAllocator {
	return &SequentialAllocator{}
}

func (a *SequentialAllocator) AllocateExportID() string {
	return strconv.FormatUint(a.next.Add(1), 10)
}

// UUIDExportIDAllocator mints globally-unique kind ids via
// github.com/google/uuid, for hosts that register kinds from multiple
// independent processes sharing one vatstore and cannot rely on a
// single in-process counter to avoid collisions.
type UUIDExportIDAllocator struct{}

func (UUIDExportIDAllocator) AllocateExportID() string {
	return uuid.NewString()
}
