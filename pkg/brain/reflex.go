package brain

import (
	"math/rand"
	"time"

	"github.com/raccoonforest/ailink/pkg/frame"
	"github.com/raccoonforest/ailink/pkg/gamestate"
	"github.com/raccoonforest/ailink/pkg/protocol"
)

func init() {
	Register("reflex", func(params Params) (Brain, error) {
		return newReflexBrain(params), nil
	})
}

// reflexBrain plays from the state fields alone: grab a weapon when one is
// on the ground, shoot while armed and opponents remain, otherwise patrol.
type reflexBrain struct {
	rng       *rand.Rand
	jumpBias  float64
	shootBias float64
	facing    protocol.Action
}

func newReflexBrain(params Params) *reflexBrain {
	return &reflexBrain{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		jumpBias:  params.Get("jump_bias", 0.3),
		shootBias: params.Get("shoot_bias", 0.7),
		facing:    protocol.ActionRight,
	}
}

func (b *reflexBrain) Name() string { return "reflex" }

func (b *reflexBrain) Decide(snap gamestate.Snapshot, a *frame.Analysis) (protocol.Command, bool) {
	if snap.Seq == 0 || snap.Terminal() {
		return nil, false
	}

	builder := protocol.NewBuilder()

	switch {
	case !snap.HasWeapon && snap.NumWeapons > 0:
		// Move while grabbing so a missed pickup still makes progress.
		builder.Pickup()
		b.move(builder, 0.5)

	case snap.HasWeapon && snap.NumActivePlayers > 1:
		if b.rng.Float64() < b.shootBias {
			builder.Shoot()
		} else {
			b.move(builder, 1.0)
		}

	default:
		b.move(builder, 1.0)
	}

	cmd, err := builder.Build()
	if err != nil {
		return nil, false
	}
	return cmd, true
}

func (b *reflexBrain) move(builder *protocol.Builder, amount float64) {
	// Turn around now and then so patrols cover the level.
	if b.rng.Float64() < 0.2 {
		if b.facing == protocol.ActionRight {
			b.facing = protocol.ActionLeft
		} else {
			b.facing = protocol.ActionRight
		}
	}

	if b.facing == protocol.ActionRight {
		builder.Right(amount)
	} else {
		builder.Left(amount)
	}

	if b.rng.Float64() < b.jumpBias {
		builder.Jump(1.0)
	}
}
