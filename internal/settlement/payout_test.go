package settlement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duelforge/matchengine/internal/component"
)

func TestComputeSplit_DecisiveWinnerConservesPot(t *testing.T) {
	var p1, p2 component.PublicKey
	p1[0] = 1
	p2[0] = 2

	cases := []struct {
		name         string
		bet          uint64
		houseEdgeBps int
		txFee        uint64
	}{
		{"even_bet", 1000, 250, 5},
		{"odd_bet", 1001, 250, 5},
		{"zero_fee", 500, 100, 0},
		{"zero_house_edge", 777, 0, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payouts, houseShare := ComputeSplit(p1, p2, tc.bet, tc.houseEdgeBps, tc.txFee, &p1)
			require.Len(t, payouts, 2)

			var total uint64
			for _, p := range payouts {
				total += p.Amount
			}
			total += houseShare + tc.txFee

			require.Equal(t, 2*tc.bet, total, "winner+loser+house+fee must equal the full pot")
			require.Equal(t, p1, payouts[0].Wallet)
			require.Equal(t, uint64(0), payouts[1].Amount, "loser gets nothing on a decisive outcome")
		})
	}
}

func TestComputeSplit_DrawConservesPotAndSplitsEvenly(t *testing.T) {
	var p1, p2 component.PublicKey
	p1[0] = 1
	p2[0] = 2

	payouts, houseShare := ComputeSplit(p1, p2, 1001, 250, 7, nil)
	require.Len(t, payouts, 2)

	var total uint64
	for _, p := range payouts {
		total += p.Amount
	}
	total += houseShare + 7

	require.Equal(t, uint64(2002), total)
	require.LessOrEqual(t, payouts[1].Amount, payouts[0].Amount, "any odd remainder goes to p1")
	require.LessOrEqual(t, payouts[0].Amount-payouts[1].Amount, uint64(1))
}

func TestComputeSplit_HouseShareFloors(t *testing.T) {
	var p1, p2 component.PublicKey
	// bet=3, bps=250 -> pot=6, house_share = 6*250/10000 = 0 (floors to zero)
	payouts, houseShare := ComputeSplit(p1, p2, 3, 250, 0, &p1)
	require.Equal(t, uint64(0), houseShare)
	require.Equal(t, uint64(6), payouts[0].Amount)
}
