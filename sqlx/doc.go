// Package sqlx instruments github.com/jmoiron/sqlx at the connection
// adapter level: every logical call (ExecContext, ExecQuery, ExecInsert,
// ExecUpdate, ExecDelete, Get, Select, NamedExec) produces exactly one
// event, even when it is served by other instrumented methods underneath.
//
// # Quick Start
//
//	import sqleventx "github.com/kroma-labs/sqlevent/sqlx"
//
//	client := event.NewClient(event.NewWriterSender(os.Stdout))
//	db, err := sqleventx.Open("postgres", dsn,
//	    sqleventx.WithClient(client),
//	    sqleventx.WithDBSystem("postgresql"),
//	    sqleventx.WithDBName("zoo"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// # Adapter Operations
//
// Binds carry the column they belong to, which becomes the db.params.* key:
//
//	res, err := db.ExecInsert(ctx,
//	    "INSERT INTO animals (name, species) VALUES ($1, $2)", "Animal Create",
//	    instrument.Bind{Column: "name", Value: "Max"},
//	    instrument.Bind{Column: "species", Value: "Lion"},
//	)
//
//	rows, err := db.ExecQuery(ctx,
//	    "SELECT name FROM animals WHERE species = $1", "Animal Load",
//	    instrument.Bind{Column: "species", Value: "Lion"},
//	)
//
// # Struct Scanning
//
//	var animals []Animal
//	err := db.SelectContext(ctx, &animals, "SELECT * FROM animals")
//
// # Connections and Transactions
//
// DB runs each call on a fresh session. Pin a connection with Conn, or
// start a transaction with BeginTxx; both keep one call depth for their
// lifetime and must not be used concurrently.
//
//	tx, err := db.BeginTxx(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if _, err := tx.ExecUpdate(ctx, "UPDATE animals SET species = $1", "", instrument.Bind{Column: "species", Value: "Tiger"}); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Events
//
// Events carry the same fields as the sql package, plus db.num_rows_returned
// for ExecQuery and db.last_insert_id for ExecInsert when the driver
// reports it.
package sqlx
