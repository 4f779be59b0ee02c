package connpool_test

import (
	"context"
	"fmt"
	"log"

	"github.com/yuku/connpool"
	"github.com/yuku/connpool/internal/testutil"
)

// This example shows the basic acquire/release cycle against an
// in-memory connector. Real applications would plug in a database
// connector such as pgxconn.NewConnector.
func Example() {
	ctx := context.Background()

	pool, err := connpool.Connect(ctx, &connpool.Config[*testutil.Conn]{
		Connector:      &testutil.Connector{},
		MaxConnections: 2,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close(ctx)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("connection id:", conn.Conn().ID)
	conn.Release(ctx)

	// the released connection is reused
	again, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("connection id:", again.Conn().ID)
	again.Release(ctx)

	// Output:
	// connection id: 1
	// connection id: 1
}

// Demonstrates lifecycle hooks: vetting idle connections before reuse and
// deciding whether to keep a connection on release.
func Example_hooks() {
	ctx := context.Background()

	pool, err := connpool.Connect(ctx, &connpool.Config[*testutil.Conn]{
		Connector:      &testutil.Connector{},
		MaxConnections: 2,
		BeforeAcquire: func(ctx context.Context, conn *testutil.Conn) error {
			return conn.Ping(ctx)
		},
		AfterRelease: func(conn *testutil.Conn) bool {
			return true // keep the connection for reuse
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close(ctx)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Release(ctx)

	fmt.Println("acquired:", conn.Conn().ID)
	// Output:
	// acquired: 1
}
