package settlement

import "github.com/duelforge/matchengine/internal/component"

// Payout is one wallet's settlement amount in integer base units —
// floating point is never used for money (spec.md §9 Design Notes).
type Payout struct {
	Wallet component.PublicKey
	Amount uint64
}

// ComputeSplit implements the payout rule from spec.md §4.7 step 1:
//
//	pot = 2 * bet
//	house_share = pot * house_edge (floored)
//	winner receives pot - house_share - tx_fee
//	draw refunds both minus half the house share
//
// All division floors; any remainder from splitting a draw's refund goes
// to p1, a deterministic and documented tie-break (spec.md §9 "winner
// gets the remainder" generalized to the no-winner case).
func ComputeSplit(p1, p2 component.PublicKey, bet uint64, houseEdgeBps int, txFee uint64, winner *component.PublicKey) ([]Payout, uint64) {
	pot := 2 * bet
	houseShare := pot * uint64(houseEdgeBps) / 10000

	if winner != nil {
		loser := p1
		if *winner == p1 {
			loser = p2
		}
		winnerPayout := pot - houseShare - txFee
		return []Payout{
			{Wallet: *winner, Amount: winnerPayout},
			{Wallet: loser, Amount: 0},
		}, houseShare
	}

	drawHouseShare := houseShare / 2
	remaining := pot - drawHouseShare - txFee
	each := remaining / 2
	remainder := remaining % 2
	return []Payout{
		{Wallet: p1, Amount: each + remainder},
		{Wallet: p2, Amount: each},
	}, drawHouseShare
}
