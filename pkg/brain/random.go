package brain

import (
	"math/rand"
	"time"

	"github.com/raccoonforest/ailink/pkg/frame"
	"github.com/raccoonforest/ailink/pkg/gamestate"
	"github.com/raccoonforest/ailink/pkg/protocol"
)

func init() {
	Register("random", func(params Params) (Brain, error) {
		return &randomBrain{
			rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		}, nil
	})
}

// randomBrain picks one of the six actions uniformly, full throttle on the
// scaled ones. Useful as a smoke-test opponent and as the training baseline.
type randomBrain struct {
	rng *rand.Rand
}

func (b *randomBrain) Name() string { return "random" }

func (b *randomBrain) Decide(snap gamestate.Snapshot, a *frame.Analysis) (protocol.Command, bool) {
	builder := protocol.NewBuilder()

	switch b.rng.Intn(6) {
	case 0:
		builder.Left(1.0)
	case 1:
		builder.Right(1.0)
	case 2:
		builder.Jump(1.0)
	case 3:
		builder.Pickup()
	case 4:
		builder.Drop()
	default:
		builder.Shoot()
	}

	cmd, err := builder.Build()
	if err != nil {
		return nil, false
	}
	return cmd, true
}
