// Package hexsim implements the process execution engine of a hacking
// simulation: long-running player operations (file transfers, password
// cracking, virus management, bank operations) compete for each player's
// finite hardware resources, progress over wall-clock time and mutate game
// state exactly once on completion.
//
// The engine is assembled from small collaborating services:
//
//   - ledger: per-player resource accounting across cpu, ram, hdd and net
//   - registry: the authoritative process store with a validated state machine
//   - admission: all-or-nothing reservation plus a priority wait queue
//   - scheduler: event-driven progress advancement keyed on projected ETAs
//   - resolver: exactly-once completion effect application with retries
//
// Construction follows the functional-options pattern:
//
//	engine, err := hexsim.New(
//		hexsim.WithProcessDAO(store),
//		hexsim.WithEffectApplier(applier),
//	)
//	go engine.Start(ctx)
//	p, err := engine.StartProcess(ctx, player, model.TypeBruteforce, target, model.PriorityHigh)
package hexsim
