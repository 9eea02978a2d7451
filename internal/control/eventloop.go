package control

import (
	"context"
	"log"
	"time"

	"chargerd-go/bus"
	"chargerd-go/types"
)

// Topics carries the bus addressing this Manager listens and publishes
// on, kept separate from Manager so tests can drive Handle directly
// without a bus.
type Topics struct {
	Battery bus.Topic // retained types.BatterySample
	Skin    bus.Topic // retained types.SkinSample
	Plug    bus.Topic // types.Event{Kind: Plugin|Plugout}
	Fault   bus.Topic // types.Event{Kind: Fault|FaultCleared}
	State   bus.Topic // retained StateID published here as a string
}

// Run drives Manager from a bus connection until ctx is cancelled,
// mirroring the teacher's single select-loop HAL.Run: one goroutine,
// no locking, a periodic tick interleaved with subscription channels.
func Run(ctx context.Context, conn *bus.Connection, m *Manager, topics Topics) {
	battSub := conn.Subscribe(topics.Battery)
	skinSub := conn.Subscribe(topics.Skin)
	plugSub := conn.Subscribe(topics.Plug)
	faultSub := conn.Subscribe(topics.Fault)
	defer conn.Unsubscribe(battSub)
	defer conn.Unsubscribe(skinSub)
	defer conn.Unsubscribe(plugSub)
	defer conn.Unsubscribe(faultSub)

	ticker := time.NewTicker(time.Duration(m.desc.PollingIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	var batt types.BatterySample
	var skin types.SkinSample

	publishState := func() {
		conn.Publish(conn.NewMessage(topics.State, m.State().String(), true))
	}
	publishState()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-battSub.Channel():
			if v, ok := msg.Payload.(types.BatterySample); ok {
				batt = v
			}

		case msg := <-skinSub.Channel():
			if v, ok := msg.Payload.(types.SkinSample); ok {
				skin = v
			}

		case msg := <-plugSub.Channel():
			if ev, ok := msg.Payload.(types.Event); ok {
				ev.Batt = batt
				ev.Skin = skin
				if err := m.Handle(ev); err != nil {
					log.Printf("control: plug event: %v", err)
				}
				publishState()
			}

		case msg := <-faultSub.Channel():
			if ev, ok := msg.Payload.(types.Event); ok {
				if err := m.Handle(ev); err != nil {
					log.Printf("control: fault event: %v", err)
				}
				publishState()
			}

		case <-ticker.C:
			prev := m.State()
			if err := m.Handle(types.Event{Kind: types.EventTick, Batt: batt, Skin: skin}); err != nil {
				log.Printf("control: tick: %v", err)
			}
			if m.State() != prev {
				publishState()
			}
		}
	}
}
