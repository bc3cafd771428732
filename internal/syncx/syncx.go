// Package syncx computes the node's wall-clock sync percentage: one
// state-query window running five queries in order, then a wall-clock
// comparison against the chain tip's slot.
package syncx

import (
	"context"
	"fmt"
	"time"

	"github.com/blockfrost/node-gateway/internal/n2c"
)

// Progress is the JSON record the root endpoint reports under the
// sync_progress field name.
type Progress struct {
	Percentage float64 `json:"percentage"`
	Era        uint16  `json:"era"`
	Epoch      uint32  `json:"epoch"`
	Slot       uint64  `json:"slot"`
	Block      string  `json:"block"`
}

// tolerance is the window inside which a node is reported fully synced even
// if its tip is a few seconds behind the wall clock.
const tolerance = 60 * time.Second

// genesisValues is a linear slot-to-wallclock model anchored at the
// Byron-to-Shelley transition. It does not account for protocol parameter
// updates mid-chain; slot length has been stable on the well-known networks
// since that transition.
type genesisValues struct {
	byronGenesisUnix   int64
	byronSlotLength    int64
	shelleyGenesisUnix int64
	shelleySlotLength  int64
	transitionSlot     uint64
}

var wellKnownNetworks = map[uint64]genesisValues{
	764824073: { // mainnet
		byronGenesisUnix:   1506203091,
		byronSlotLength:    20,
		shelleyGenesisUnix: 1596059091,
		shelleySlotLength:  1,
		transitionSlot:     4492800,
	},
	1: { // preprod
		byronGenesisUnix:   1654041600,
		byronSlotLength:    20,
		shelleyGenesisUnix: 1654041600,
		shelleySlotLength:  1,
		transitionSlot:     0,
	},
	2: { // preview
		byronGenesisUnix:   1666656000,
		byronSlotLength:    20,
		shelleyGenesisUnix: 1666656000,
		shelleySlotLength:  1,
		transitionSlot:     0,
	},
}

func (g genesisValues) slotToWallclock(slot uint64) time.Time {
	if slot < g.transitionSlot {
		return time.Unix(g.byronGenesisUnix+int64(slot)*g.byronSlotLength, 0).UTC()
	}
	elapsed := int64(slot-g.transitionSlot) * g.shelleySlotLength
	return time.Unix(g.shelleyGenesisUnix+elapsed, 0).UTC()
}

// nowFunc exists purely so tests can pin "now" without sleeping.
var nowFunc = time.Now

// Compute runs the five-query window against conn and derives the
// wall-clock sync percentage. Only well-known network magics are supported.
func Compute(ctx context.Context, conn *n2c.NodeClient) (*Progress, error) {
	result, err := conn.WithStateQuery(func(q *n2c.StateQueryClient) (any, error) {
		era, err := q.CurrentEra()
		if err != nil {
			return nil, fmt.Errorf("syncx: current era: %w", err)
		}
		epoch, err := q.BlockEpochNumber(era)
		if err != nil {
			return nil, fmt.Errorf("syncx: block epoch number: %w", err)
		}
		geneses, err := q.GenesisConfig(era)
		if err != nil {
			return nil, fmt.Errorf("syncx: genesis config: %w", err)
		}
		if len(geneses) == 0 {
			return nil, fmt.Errorf("syncx: expected at least one genesis entry")
		}
		genesis := geneses[0]

		gv, ok := wellKnownNetworks[genesis.NetworkMagic]
		if !ok {
			return nil, fmt.Errorf("syncx: only well-known networks are supported (unsupported network magic: %d)", genesis.NetworkMagic)
		}

		systemStart, err := q.SystemStart()
		if err != nil {
			return nil, fmt.Errorf("syncx: system start: %w", err)
		}
		chainPoint, err := q.GetChainPoint()
		if err != nil {
			return nil, fmt.Errorf("syncx: chain point: %w", err)
		}

		utcStart := time.Date(int(systemStart.Year), time.January, 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, int(systemStart.DayOfYear-1)).
			Add(time.Duration(systemStart.PicosecondsOfDay/1000) * time.Nanosecond)

		slot := chainPoint.Slot
		utcSlot := gv.slotToWallclock(slot)
		utcNow := nowFunc().UTC()

		utcSlotCapped := utcSlot
		if utcNow.Before(utcSlot) {
			utcSlotCapped = utcNow
		}

		var percentage float64
		if utcNow.Sub(utcSlotCapped) < tolerance {
			percentage = 1.0
		} else {
			networkDuration := utcNow.Sub(utcStart).Seconds()
			durationUpToSlot := utcSlotCapped.Sub(utcStart).Seconds()
			percentage = durationUpToSlot / networkDuration
		}

		block := ""
		if !chainPoint.Origin {
			block = fmt.Sprintf("%x", chainPoint.Block)
		}

		return &Progress{
			Percentage: percentage,
			Era:        era,
			Epoch:      epoch,
			Slot:       slot,
			Block:      block,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Progress), nil
}
