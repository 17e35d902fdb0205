package cart

import (
	"context"
	"encoding/json"

	"github.com/Skotchmaster/phenofarm/internal/kv"
	"github.com/Skotchmaster/phenofarm/internal/money"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

const ChangedChannel = "cart-changed"

// Notifier lets badge counters and other readers re-read the cart after a
// mutation. Delivery is best effort.
type Notifier interface {
	CartChanged(ctx context.Context, owner string, c *Cart)
}

type NopNotifier struct{}

func (NopNotifier) CartChanged(context.Context, string, *Cart) {}

type NotifierFunc func(ctx context.Context, owner string, c *Cart)

func (f NotifierFunc) CartChanged(ctx context.Context, owner string, c *Cart) { f(ctx, owner, c) }

type ChangedEvent struct {
	Type      string      `json:"type"`
	Owner     string      `json:"owner"`
	ItemCount int         `json:"itemCount"`
	Total     money.Cents `json:"total"`
}

func NewChangedEvent(owner string, c *Cart) ChangedEvent {
	return ChangedEvent{Type: "cart_changed", Owner: owner, ItemCount: c.Count(), Total: c.Total}
}

// Broadcaster publishes cart-changed notifications on a pub/sub channel.
type Broadcaster struct {
	Pub     kv.Publisher
	Channel string
}

func (b *Broadcaster) CartChanged(ctx context.Context, owner string, c *Cart) {
	data, err := json.Marshal(NewChangedEvent(owner, c))
	if err != nil {
		return
	}
	ch := b.Channel
	if ch == "" {
		ch = ChangedChannel
	}
	if err := b.Pub.Publish(ctx, ch, data); err != nil {
		logging.FromContext(ctx).Warn("cart_changed_publish_error", "owner", owner, "error", err)
	}
}

// Fanout delivers to every notifier in order.
type Fanout []Notifier

func (f Fanout) CartChanged(ctx context.Context, owner string, c *Cart) {
	for _, n := range f {
		n.CartChanged(ctx, owner, c)
	}
}
