package component

// PublicKey is a fixed-size ed25519 public key, immutable once the player
// component is created (spec.md §3).
type PublicKey [32]byte

// Player is immutable after creation — no System ever writes to it once
// EntityStore.create has run (spec.md §3).
type Player struct {
	Wallet PublicKey
	Name   string // <= 32 bytes
	Level  uint16
}
