package brain

import (
	"math"

	"github.com/raccoonforest/ailink/pkg/frame"
	"github.com/raccoonforest/ailink/pkg/gamestate"
	"github.com/raccoonforest/ailink/pkg/protocol"
)

func init() {
	Register("visual", func(params Params) (Brain, error) {
		return &visualBrain{
			reflex:   newReflexBrain(params),
			deadband: params.Get("deadband", 0.15),
		}, nil
	})
}

// visualBrain steers toward the brightest column of the latest frame, on the
// assumption that the playfield action (players, weapons, muzzle flashes)
// is brighter than the backdrop. Weapon handling still comes from the state
// fields; without a frame it degrades to the reflex rules.
type visualBrain struct {
	reflex   *reflexBrain
	deadband float64
}

func (b *visualBrain) Name() string { return "visual" }

func (b *visualBrain) Decide(snap gamestate.Snapshot, a *frame.Analysis) (protocol.Command, bool) {
	if snap.Seq == 0 || snap.Terminal() {
		return nil, false
	}
	if a == nil {
		return b.reflex.Decide(snap, nil)
	}

	builder := protocol.NewBuilder()

	if !snap.HasWeapon && snap.NumWeapons > 0 {
		builder.Pickup()
	} else if snap.HasWeapon && snap.NumActivePlayers > 1 {
		builder.Shoot()
	}

	cols := a.Columns()
	center := float64(cols-1) / 2
	offset := (float64(a.BrightestCol) - center) / center

	if math.Abs(offset) > b.deadband {
		amount := math.Min(1.0, math.Abs(offset))
		if offset < 0 {
			builder.Left(amount)
		} else {
			builder.Right(amount)
		}
	}

	cmd, err := builder.Build()
	if err != nil || cmd.Empty() {
		return nil, false
	}
	return cmd, true
}
