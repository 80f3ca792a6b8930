package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/luki/smartfarm/internal/farmsim"
)

const defaultSeedRows = 20

// runSim serves the development backend until interrupted. A reading is
// appended every POLL_INTERVAL, like a farm device pushing data.
func runSim(ctx context.Context, args []string) error {
	rows := defaultSeedRows
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			printSimHelp()
			return fmt.Errorf("invalid seed-rows %q", args[0])
		}
		rows = n
	}

	e := setup(true)
	defer e.closer.Close()

	sim := farmsim.New(farmsim.Config{
		Secret: []byte(e.cfg.SimSecret),
		Seed:   time.Now().UnixNano(),
	}, e.logger)
	sim.Seed(rows)

	srv := &http.Server{
		Addr:              e.cfg.SimAddr,
		Handler:           sim.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("farm simulator listening", "addr", srv.Addr, "seed_rows", rows)
		errCh <- srv.ListenAndServe()
	}()

	var tick <-chan time.Time
	if e.cfg.PollInterval > 0 {
		t := time.NewTicker(e.cfg.PollInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-tick:
			r := sim.Simulate()
			e.logger.Debug("simulated reading", "time", r.Timestamp)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			e.logger.Info("shutting down farm simulator")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}

func printSimHelp() {
	fmt.Println("Usage: smartfarm sim [seed-rows]")
	fmt.Println()
	fmt.Println("Serves the Smart Farm API from memory on SIM_ADDR (default :5000).")
	fmt.Println("seed-rows readings are generated at start (default 20).")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  smartfarm sim")
	fmt.Println("  SIM_ADDR=:8080 smartfarm sim 50")
}
