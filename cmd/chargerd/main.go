// Command chargerd runs the charge-path control loop against a
// described charger board: it loads a ChargerDesc, wires a hardware
// backend, and drives the control state machine off the bus.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chargerd-go/bus"
	"chargerd-go/internal/config"
	"chargerd-go/internal/control"
	"chargerd-go/internal/hwio"
	"chargerd-go/internal/powerlock"
	"chargerd-go/internal/profile"
	"chargerd-go/internal/telemetry"
)

func main() {
	descPath := flag.String("desc", "", "path to the charger description file (JSON or key=value)")
	sim := flag.Bool("sim", true, "use the in-memory simulated backend instead of real I2C hardware")
	flag.Parse()

	if *descPath == "" {
		log.Fatal("chargerd: -desc is required")
	}
	data, err := os.ReadFile(*descPath)
	if err != nil {
		log.Fatalf("chargerd: reading description: %v", err)
	}
	desc, err := config.Load(data)
	if err != nil {
		log.Fatalf("chargerd: parsing description: %v", err)
	}

	var backend hwio.Backend
	if *sim {
		s := hwio.NewSim()
		s.EnableDelayMs = desc.EnableDelayMs
		backend = s
	} else {
		log.Fatal("chargerd: -sim=false requires board-specific I2C wiring; see internal/hwio.NewI2CBackend")
	}

	table := &profile.Table{Rows: desc.Profiles}
	termVolt := desc.TermVolt
	if len(termVolt) == 0 {
		termVolt = config.DefaultTermVolt()
	}

	lock := &powerlock.Noop{}
	mgr := control.New(desc, backend, table, termVolt, lock)

	b := bus.NewBus(8)
	conn := b.NewConnection("chargerd")

	topics := control.Topics{
		Battery: bus.T("charger", desc.Name, "battery"),
		Skin:    bus.T("charger", desc.Name, "skin"),
		Plug:    bus.T("charger", desc.Name, "plug"),
		Fault:   bus.T("charger", desc.Name, "fault"),
		State:   bus.T("charger", desc.Name, "state"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryConn := b.NewConnection("telemetry")
	go telemetry.Publish(ctx, telemetryConn, backend, topics.Battery, topics.Skin)

	log.Printf("chargerd: starting control loop for %q", desc.Name)
	control.Run(ctx, conn, mgr, topics)
	log.Printf("chargerd: stopped")
}
