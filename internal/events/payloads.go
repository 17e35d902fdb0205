package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/phenofarm/internal/cart"
	"github.com/Skotchmaster/phenofarm/internal/money"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

type OrderEvent struct {
	Type         string      `json:"type"`
	OrderID      uuid.UUID   `json:"orderID"`
	OrderNumber  string      `json:"orderNumber"`
	GrowerID     uuid.UUID   `json:"growerID"`
	DispensaryID uuid.UUID   `json:"dispensaryID"`
	Status       string      `json:"status"`
	PrevStatus   string      `json:"prevStatus,omitempty"`
	TotalAmount  money.Cents `json:"totalAmount"`
	At           time.Time   `json:"at"`
}

type ProductEvent struct {
	Type         string      `json:"type"`
	ProductID    uuid.UUID   `json:"productID"`
	GrowerID     uuid.UUID   `json:"growerID,omitempty"`
	Name         string      `json:"name,omitempty"`
	Price        money.Cents `json:"price,omitempty"`
	InventoryQty int         `json:"inventoryQty,omitempty"`
}

type BatchEvent struct {
	Type        string    `json:"type"`
	BatchID     uuid.UUID `json:"batchID"`
	GrowerID    uuid.UUID `json:"growerID,omitempty"`
	BatchNumber string    `json:"batchNumber,omitempty"`
}

// CartNotifier forwards cart mutations to the cart topic.
type CartNotifier struct {
	Pub Publisher
}

func (n CartNotifier) CartChanged(ctx context.Context, owner string, c *cart.Cart) {
	if err := n.Pub.PublishEvent(ctx, TopicCart, owner, cart.NewChangedEvent(owner, c)); err != nil {
		logging.FromContext(ctx).Warn("cart_event_publish_error", "owner", owner, "error", err)
	}
}
