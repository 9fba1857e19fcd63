// Package app wires the ledger store, the event bus and the services into
// one application.
package app

import (
	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	handlercommon "github.com/amirasaad/studentaid/pkg/handler/common"
	"github.com/amirasaad/studentaid/pkg/handler/donation"
	"github.com/amirasaad/studentaid/pkg/handler/notification"
)

// setupEventBus registers all event handlers with the event bus. Every
// handler is wrapped so a redelivered event is handled once per handler.
func (a *App) setupEventBus() {
	bus := a.Deps.EventBus
	if bus == nil {
		return
	}
	tracker := handlercommon.NewDeliveryTracker(handlercommon.DefaultWindow)

	a.register(bus, tracker, events.EventTypeDonationRecorded, "donation.HandleRecorded",
		donation.HandleRecorded(a.Deps.Store, a.Deps.Logger))
	a.register(bus, tracker, events.EventTypeRequestDecided, "notification.HandleRequestDecided",
		notification.HandleRequestDecided(a.Deps.Store, a.Deps.Notifier, a.Deps.Logger))
	a.register(bus, tracker, events.EventTypeVerificationDecided, "notification.HandleVerificationDecided",
		notification.HandleVerificationDecided(a.Deps.Store, a.Deps.Notifier, a.Deps.Logger))
}

func (a *App) register(
	bus eventbus.Bus,
	tracker *handlercommon.DeliveryTracker,
	eventType events.EventType,
	name string,
	handler eventbus.HandlerFunc,
) {
	bus.Register(eventType, handlercommon.Once(name, handler, tracker, a.Deps.Logger))
}
