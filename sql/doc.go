// Package sql provides an instrumented database/sql driver wrapper that
// emits one structured event per logical query.
//
// # Features
//
//   - One event per query with SQL text, name, bound parameters and call site
//   - Error kind and message recorded, errors returned unchanged
//   - Optional trace linkage (context ids or OpenTelemetry spans)
//   - Query duration and event outcome metrics, connection pool state
//   - Query sanitization for secure logging
//   - Full compatibility with database/sql interface
//
// # Quick Start
//
// Open a database connection with instrumentation:
//
//	import sqlevent "github.com/kroma-labs/sqlevent/sql"
//
//	client := event.NewClient(event.NewWriterSender(os.Stdout))
//	db, err := sqlevent.Open("postgres", dsn,
//	    sqlevent.WithClient(client),
//	    sqlevent.WithDBSystem("postgresql"),
//	    sqlevent.WithDBName("zoo"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	// Use like standard *sql.DB
//	_, err = db.ExecContext(ctx, "INSERT INTO animals (name, species) VALUES ($1, $2)", "Max", "Lion")
//
// produces an event like:
//
//	{"type":"db","name":"INSERT","db.sql":"INSERT INTO animals ...",
//	 "db.params.1":"Max","db.params.2":"Lion","duration_ms":0.42, ...}
//
// # Driver Registration
//
// For more control, register a wrapped driver:
//
//	if err := sqlevent.Register("postgres-events", pq.Driver{},
//	    sqlevent.WithClient(client),
//	); err != nil {
//	    log.Fatal(err)
//	}
//	db, _ := sql.Open("postgres-events", dsn)
//
// # Connection Settings
//
// OpenConfig opens a database from a settings map. MungeConfig rewrites a
// plain configuration so that it goes through the instrumented adapter:
//
//	db, err := sqlevent.OpenConfig(sqlevent.MungeConfig(settings),
//	    sqlevent.WithClient(client),
//	)
//
// # Re-entrancy
//
// Each driver connection carries its own call depth. When the wrapped
// driver cannot execute directly, the statement is prepared and executed
// on the same connection and still yields a single event.
package sql
