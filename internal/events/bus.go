// Package events carries workflow notifications from the core services to
// side consumers such as the audit log, metrics and the daily report mailer.
package events

import (
	"time"

	"github.com/alocode/restopos/internal/domain"
	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
)

const (
	TopicOrderCreated      = "order:created"
	TopicOrderTransitioned = "order:transitioned"
	TopicOrderEdited       = "order:edited"
	TopicRegisterOpened    = "register:opened"
	TopicRegisterClosed    = "register:closed"
)

var OrderTopics = []string{TopicOrderCreated, TopicOrderTransitioned, TopicOrderEdited}
var RegisterTopics = []string{TopicRegisterOpened, TopicRegisterClosed}

// Publisher is what services need; events are published only after commit
type Publisher interface {
	Publish(topic string, payload interface{})
}

// OrderEvent payload of the order:* topics
type OrderEvent struct {
	Order   domain.Order
	From    domain.OrderState
	To      domain.OrderState
	ActorID int64
	At      time.Time
}

// RegisterEvent payload of the register:* topics. Reconciliation and
// Cancelled are set on close only.
type RegisterEvent struct {
	Session        domain.RegisterSession
	Reconciliation *domain.Reconciliation
	Auto           bool
	Cancelled      int
	ActorID        int64
	At             time.Time
}

type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Publish(topic string, payload interface{}) {
	b.bus.Publish(topic, payload)
}

// Subscribe runs fn synchronously inside Publish
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return errors.Wrapf(b.bus.Subscribe(topic, fn), "subscribe %s", topic)
}

// SubscribeAsync runs fn in its own goroutine, one event at a time
func (b *Bus) SubscribeAsync(topic string, fn interface{}) error {
	return errors.Wrapf(b.bus.SubscribeAsync(topic, fn, true), "subscribe %s", topic)
}

// Wait blocks until the async handlers drained their events
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}

// Nop discards events
type Nop struct{}

func (Nop) Publish(string, interface{}) {}
