package service

import (
	"context"
	"log"

	"github.com/sadewadee/safety-observer/internal/cache"
	"github.com/sadewadee/safety-observer/internal/events"
)

// notifier invalidates cached dashboard data and announces changes.
// Both are best effort: failures are logged and never fail the write.
type notifier struct {
	component string
	cache     cache.Cache
	events    events.Publisher
}

func newNotifier(component string, c cache.Cache, pub events.Publisher) notifier {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return notifier{component: component, cache: c, events: pub}
}

func (n notifier) changed(ctx context.Context, ev events.Event, prefixes ...string) {
	InvalidateCache(ctx, n.cache, n.component, prefixes...)

	if err := n.events.Publish(ctx, ev); err != nil {
		log.Printf("[%s] WARNING: failed to publish %s: %v", n.component, ev.Type, err)
	}
}

// InvalidateCache drops every cached entry under the given prefixes
func InvalidateCache(ctx context.Context, c cache.Cache, component string, prefixes ...string) {
	for _, prefix := range prefixes {
		if err := c.DeleteByPattern(ctx, cache.Pattern(prefix)); err != nil {
			log.Printf("[%s] WARNING: failed to invalidate %s: %v", component, prefix, err)
		}
	}
}

// dashboardPrefixes are the cache prefixes derived from observations
var dashboardPrefixes = []string{cache.KeyPrefixStats, cache.KeyPrefixFilterOption}
