// Package telemetry bridges a hwio.Backend's polled readings onto the
// bus topics control.Run listens on, the way the teacher's main.go
// bridges device adaptors onto retained value topics for subscribers.
package telemetry

import (
	"context"
	"log"
	"time"

	"chargerd-go/bus"
	"chargerd-go/internal/hwio"
)

const pollPeriod = 500 * time.Millisecond

// Publish polls backend for battery and skin samples at a fixed period
// and publishes them retained on battTopic/skinTopic until ctx is done.
func Publish(ctx context.Context, conn *bus.Connection, backend hwio.Backend, battTopic, skinTopic bus.Topic) {
	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batt, err := backend.BatterySample()
			if err != nil {
				log.Printf("telemetry: battery sample: %v", err)
			} else {
				conn.Publish(conn.NewMessage(battTopic, batt, true))
			}

			skin, err := backend.SkinSample()
			if err != nil {
				log.Printf("telemetry: skin sample: %v", err)
			} else {
				conn.Publish(conn.NewMessage(skinTopic, skin, true))
			}
		}
	}
}
