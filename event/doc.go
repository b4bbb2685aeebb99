// Package event builds and delivers structured telemetry events.
//
// An event is a flat set of named fields. A Client owns a Sender and a root
// Builder; builders are immutable templates that can be extended with Add
// and shared freely. Events created from a builder start with its fields,
// are filled in by one operation and are sent exactly once.
//
// Senders provided by this package:
//
//   - Recorder keeps records in memory for tests.
//   - WriterSender writes JSON lines to an io.Writer.
//   - LogSender writes records through zerolog.
//   - RedisStreamSender appends records to a Redis stream.
//   - HTTPSender posts records to a collector endpoint.
//   - Transmission makes any Sender asynchronous with a bounded queue,
//     retries, a circuit breaker and an optional rate limit.
//
// Basic usage:
//
//	client := event.NewClient(event.NewWriterSender(os.Stdout),
//	    event.WithFields(event.Fields{"service.name": "billing"}),
//	)
//	ev := client.NewEvent()
//	ev.AddField("db.sql", "SELECT 1")
//	_ = ev.Send()
package event
