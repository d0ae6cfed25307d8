package main

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/duelforge/matchengine/internal/settlement"
)

// loopbackBackend is a development stand-in for settlement.Backend. The
// real settlement substrate (chain RPC, rollup submission) is explicitly
// out of scope (spec.md §1) — the engine only depends on the Backend
// abstraction. This confirms every submission immediately and is only
// wired here so the composition root has something concrete to boot;
// production deployments inject a real Backend instead.
type loopbackBackend struct {
	mu  sync.Mutex
	txs map[string]string
}

func newLoopbackBackend() *loopbackBackend {
	return &loopbackBackend{txs: make(map[string]string)}
}

func (b *loopbackBackend) Submit(payload settlement.Payload) (settlement.Confirmation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tx, ok := b.txs[payload.MatchID]; ok {
		return settlement.Confirmation{TxID: tx}, nil
	}
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	tx := "loopback-" + hex.EncodeToString(buf)
	b.txs[payload.MatchID] = tx
	return settlement.Confirmation{TxID: tx}, nil
}

func (b *loopbackBackend) Status(matchID string) (settlement.Status, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, ok := b.txs[matchID]
	if !ok {
		return settlement.StatusNotFound, "", nil
	}
	return settlement.StatusConfirmed, tx, nil
}
