package rules

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/duelforge/matchengine/internal/core/ecs"
)

// RngStream is deterministically seeded from (match_id, actor, tick, nonce)
// so validation — and therefore the settlement proof — is reproducible
// (spec.md §4.3). It is a pure function of its inputs: no package-level
// state, unlike math/rand's global source the teacher's NPC/loot code
// reaches for (internal/world.RandInt in the teacher repo) — that global
// source would break the Determinism property (spec.md §8), so this uses
// an FNV-1a hash of the seed tuple as a single-shot stream instead.
func RngStream(matchID string, actor ecs.EntityID, tick, nonce uint64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(matchID))
	var buf [8]byte
	h.Write(actor[:])
	binary.BigEndian.PutUint64(buf[:], tick)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], nonce)
	h.Write(buf[:])
	return h.Sum64()
}

// RollCrit reports whether a crit_chance-percent roll succeeds for the
// given seed (spec.md §4.3: rng_stream(...) mod 100 < crit_chance).
func RollCrit(matchID string, actor ecs.EntityID, tick, nonce uint64, critChance uint8) bool {
	return RngStream(matchID, actor, tick, nonce)%100 < uint64(critChance)
}
