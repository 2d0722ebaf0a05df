package repository

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"wallet-engine/src/pkg/kvstore"
	"wallet-engine/src/pkg/log"

	"github.com/shopspring/decimal"
)

var errWriteFailed = errors.New("disk full")

// flakyStore fails every Set while failing is set, or only those whose key
// starts with failPrefix when it is not empty.
type flakyStore struct {
	*kvstore.MemoryStore
	failing    atomic.Bool
	failPrefix string
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: kvstore.NewMemoryStore()}
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	if s.failing.Load() && strings.HasPrefix(key, s.failPrefix) {
		return errWriteFailed
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func testLogger() log.Log {
	return log.New("wallet-engine-test", "ERROR")
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
