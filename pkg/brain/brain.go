package brain

import (
	"fmt"
	"sort"
	"sync"

	"github.com/raccoonforest/ailink/pkg/frame"
	"github.com/raccoonforest/ailink/pkg/gamestate"
	"github.com/raccoonforest/ailink/pkg/protocol"
)

// Params are the tunable knobs a strategy accepts from config.
type Params map[string]float64

func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Brain decides the next command from the latest state snapshot and, when
// frame fetching is enabled, the latest frame analysis. The second return
// is false when the brain has nothing to say this round.
//
// A brain instance belongs to a single session and is never called
// concurrently.
type Brain interface {
	Name() string
	Decide(snap gamestate.Snapshot, a *frame.Analysis) (protocol.Command, bool)
}

type Factory func(params Params) (Brain, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("brain strategy %s already registered", name))
	}
	factories[name] = factory
}

// New builds a fresh brain for one session.
func New(name string, params Params) (Brain, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown brain strategy %q, available: %v", name, List())
	}
	return factory(params)
}

func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
