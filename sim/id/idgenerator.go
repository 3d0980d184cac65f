// Package id generates identifiers for runs, tasks and recordings.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// A Generator generates IDs.
type Generator interface {
	Generate() string
}

// NewSequential returns a Generator whose IDs are "1", "2", and so on. Two
// sequential generators given the same calls produce the same IDs, which
// keeps simulation output reproducible.
func NewSequential() Generator {
	return &sequentialGenerator{}
}

// NewXID returns a Generator of globally unique IDs. The IDs are not
// deterministic.
func NewXID() Generator {
	return xidGenerator{}
}

type sequentialGenerator struct {
	nextID uint64
}

func (g *sequentialGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	return strconv.FormatUint(idNumber, 10)
}

type xidGenerator struct{}

func (xidGenerator) Generate() string {
	return xid.New().String()
}
