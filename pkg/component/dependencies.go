package component

import (
	"github.com/raccoonforest/ailink/pkg/cache"
	"github.com/raccoonforest/ailink/pkg/config"
	"github.com/raccoonforest/ailink/pkg/events"
	"github.com/raccoonforest/ailink/pkg/session"
)

// Dependencies carries the shared plumbing handed to every component.
type Dependencies struct {
	EventBus events.Bus
	Cache    cache.Cache
	Config   *config.Config
	Sessions *session.Registry
}
