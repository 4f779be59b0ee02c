// Command poolbench drives a connection pool under configurable load and
// prints the resulting counters. With -database-url (or DATABASE_URL) it
// pools real PostgreSQL connections; without it, an in-memory connector
// with a synthetic dial delay is used.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuku/connpool"
	"github.com/yuku/connpool/internal/testutil"
	"github.com/yuku/connpool/pgxconn"
)

var (
	databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string; empty for in-memory connections")
	maxConns    = flag.Int("max-conns", 10, "maximum pool size")
	minConns    = flag.Int("min-conns", 0, "connections opened eagerly at startup")
	workers     = flag.Int("workers", 32, "concurrent workers acquiring connections")
	duration    = flag.Duration("duration", 10*time.Second, "how long to run")
	holdTime    = flag.Duration("hold", 2*time.Millisecond, "how long each worker holds an acquired connection")
	dialDelay   = flag.Duration("dial-delay", 5*time.Millisecond, "synthetic dial latency for the in-memory connector")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	if *databaseURL != "" {
		connector, err := pgxconn.NewConnector(*databaseURL)
		if err != nil {
			log.Fatalf("Failed to parse database URL: %v", err)
		}
		run(ctx, connector)
	} else {
		run(ctx, &testutil.Connector{DialDelay: *dialDelay})
	}
}

func run[C connpool.Conn](ctx context.Context, connector connpool.Connector[C]) {
	pool, err := connpool.Connect(ctx, &connpool.Config[C]{
		Connector:      connector,
		MaxConnections: *maxConns,
		MinConnections: *minConns,
	})
	if err != nil {
		log.Fatalf("Failed to create pool: %v", err)
	}
	defer pool.Close(ctx)

	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	start := time.Now()
	g, runCtx := errgroup.WithContext(runCtx)

	for i := 0; i < *workers; i++ {
		g.Go(func() error {
			for {
				conn, err := pool.Acquire(runCtx)
				if err != nil {
					if runCtx.Err() != nil {
						return nil // run is over
					}
					return err
				}

				select {
				case <-time.After(*holdTime):
				case <-runCtx.Done():
				}
				conn.Release(ctx)

				if runCtx.Err() != nil {
					return nil
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}

	elapsed := time.Since(start)
	stat := pool.Stat()

	fmt.Printf("ran %v with %d workers, pool size cap %d\n", elapsed.Round(time.Millisecond), *workers, *maxConns)
	fmt.Printf("  acquires:       %d (%.0f/s)\n", stat.AcquireCount, float64(stat.AcquireCount)/elapsed.Seconds())
	fmt.Printf("  waits:          %d\n", stat.WaitCount)
	fmt.Printf("  total wait:     %v\n", stat.WaitDuration.Round(time.Millisecond))
	fmt.Printf("  final size:     %d (idle %d)\n", stat.Size, stat.Idle)
	fmt.Printf("  lifetime close: %d, idle close: %d\n", stat.MaxLifetimeCloses, stat.IdleTimeoutCloses)
}
