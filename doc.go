// Package tunex provides a Go client for hyperparameter search over
// studies backed by Valkey or Redis, with an embedded in-memory store
// for tests and single-process use.
//
// Tunex supports two search modes:
//   - Grid sweeps enumerating the full cartesian space
//   - Random sweeps drawing seeded samples from it
//
// # Low-level API — explicit control
//
//	client, _ := tunex.New(ctx, tunex.WithValkey("localhost:6379", ""))
//	client.Studies().Create(ctx, "lr-sweep",
//	    tunex.LogUniform("lr", 1e-4, 1e-1),
//	    tunex.Choice("optimizer", "adam", "sgd"),
//	    tunex.Maximize("accuracy"),
//	)
//	res, _ := client.Sweep("lr-sweep").RandomFunc(ctx, objective, 50, nil)
//	top, _ := client.Trials("lr-sweep").Leaderboard(ctx, 10)
//
// # High-level API — schema-first with Go generics
//
//	type Config struct {
//	    LR        float64 `tunex:"lr,log_uniform=1e-4:1e-1"`
//	    Layers    int64   `tunex:"layers,int=1:4"`
//	    Optimizer string  `tunex:"optimizer,choice=adam|sgd"`
//	    Dropout   bool    `tunex:"dropout"`
//	}
//
//	study, _ := tunex.NewStudy[Config](client, "mlp")
//	_ = study.Ensure(ctx)
//	res, _ := study.Sweep().
//	    Objective(trainAndScore).
//	    Workers(4).
//	    Random(ctx, 100)
package tunex
