// Package pgxconn adapts pgx connections to the connpool interfaces,
// providing a pooled PostgreSQL client built on connpool's admission
// control instead of pgxpool's.
//
//	pool, err := pgxconn.New(ctx, "postgres://localhost/app", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close(ctx)
//
//	conn, err := pool.Acquire(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Release(ctx)
//
//	rows, err := conn.Conn().Raw().Query(ctx, "SELECT ...")
package pgxconn
