package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/hexsim/hexsim"
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/balance"
	"github.com/hexsim/hexsim/service/event"
)

// newDemoCmd runs a short in-memory scenario: one player with modest
// hardware starts two operations, the second queues, both complete.
func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a short in-memory scenario and print the event stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return demo(cmd.Context())
		},
	}
}

func demo(ctx context.Context) error {
	table, err := balance.New(&balance.Config{Types: map[model.Type]balance.Entry{
		model.TypeBruteforce: {BaseSeconds: 4, MinSeconds: 1, Demand: model.Resources{CPU: 60, RAM: 128, HDD: 5, Net: 10}},
		model.TypeOverflow:   {BaseSeconds: 3, MinSeconds: 1, Demand: model.Resources{CPU: 45, RAM: 256, HDD: 5, Net: 10}},
	}})
	if err != nil {
		return err
	}
	engine, err := hexsim.New(hexsim.WithBalance(table))
	if err != nil {
		return err
	}
	engine.Events().SetListener(func(e *event.Event[any]) {
		log.Printf("event %s: %+v", e.Context.EventType, e.Data)
	})

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	go func() {
		if err := engine.Start(ctx); err != nil && err != context.DeadlineExceeded {
			log.Printf("engine stopped: %v", err)
		}
	}()

	const player = "demo-player"
	engine.SetCapacity(ctx, player, model.Resources{CPU: 80, RAM: 512, HDD: 100, Net: 100})

	first, err := engine.StartProcess(ctx, player, model.TypeBruteforce, "target-server-1", model.PriorityHigh)
	if err != nil {
		return err
	}
	log.Printf("started %s: %s", first.Type, first.State)

	second, err := engine.StartProcess(ctx, player, model.TypeOverflow, "target-server-2", model.PriorityNormal)
	if err != nil {
		return err
	}
	log.Printf("started %s: %s", second.Type, second.State)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			counters := engine.Counters(player)
			log.Printf("running=%d queued=%d completed=%d", counters.Running, counters.Queued, counters.Completed)
			if counters.Completed == 2 {
				engine.Shutdown()
				return nil
			}
		}
	}
}
