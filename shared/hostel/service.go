// Package hostel keeps rooms, tenants, payments and the hostel stats rollup
// consistent on top of a document store that offers no transactions.
//
// Every operation is a short sequence of independent store calls. Nothing is
// locked: two writers racing on the same room document resolve as
// last-writer-wins, and the check-in/check-out sequences can leave a bed and
// its tenant out of step if the second write fails. Reconciler reports such
// mismatches; nothing repairs them automatically.
package hostel

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

type deps struct {
	store     store.Store
	publisher events.Publisher
	cache     SnapshotCache
	now       func() time.Time
	log       *logrus.Entry
}

// Option configures the managers built by New
type Option func(*deps)

// WithPublisher sets where domain events go. Defaults to dropping them.
func WithPublisher(p events.Publisher) Option {
	return func(d *deps) { d.publisher = p }
}

// WithSnapshotCache sets the stats snapshot cache. Defaults to none.
func WithSnapshotCache(c SnapshotCache) Option {
	return func(d *deps) { d.cache = c }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// WithLogger sets the base log entry
func WithLogger(log *logrus.Entry) Option {
	return func(d *deps) { d.log = log }
}

func newDeps(st store.Store, opts ...Option) *deps {
	d := &deps{
		store:     st,
		publisher: events.NopPublisher{},
		now:       time.Now,
		log:       logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *deps) clock() time.Time {
	return d.now().UTC()
}

func (d *deps) component(name string) *deps {
	c := *d
	c.log = d.log.WithField("component", name)
	return &c
}

// publish sends an event after a successful mutation. The mutation already
// happened, so a delivery failure is only logged.
func (d *deps) publish(ctx context.Context, t events.Type, hostelID, entityID string, data map[string]interface{}) {
	event := events.New(t, hostelID, entityID, d.clock(), data)
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.log.WithFields(logrus.Fields{
			"event_type": t,
			"hostel_id":  hostelID,
			"entity_id":  entityID,
		}).WithError(err).Warn("Failed to publish event")
	}
}

// Service bundles the managers that share one store
type Service struct {
	Hostels    *HostelManager
	Rooms      *RoomManager
	Tenants    *TenantManager
	Payments   *PaymentLedger
	Stats      *Aggregator
	Reconciler *Reconciler

	d *deps
}

// New wires every manager to st
func New(st store.Store, opts ...Option) *Service {
	d := newDeps(st, opts...)
	rooms := &RoomManager{d: d.component("rooms")}
	return &Service{
		Hostels:    &HostelManager{d: d.component("hostels")},
		Rooms:      rooms,
		Tenants:    &TenantManager{d: d.component("tenants"), rooms: rooms},
		Payments:   &PaymentLedger{d: d.component("payments")},
		Stats:      &Aggregator{d: d.component("stats")},
		Reconciler: &Reconciler{d: d.component("reconciler")},
		d:          d.component("overview"),
	}
}
