// Package instrument is the driver-agnostic core of sqlevent.
//
// An Instrumenter holds the event template (type, meta.package,
// meta.package_version and static fields) and the shared settings. Each
// connection gets its own Wrapper, which intercepts calls with Run or Do:
//
//	w := inst.NewWrapper()
//	res, err := instrument.Run(ctx, w, instrument.Query{SQL: q, Params: instrument.Args(args)},
//	    func(ctx context.Context) (sql.Result, error) {
//	        return db.ExecContext(ctx, q, args...)
//	    },
//	)
//
// The outermost call on a wrapper opens an event with the SQL text, the
// operation name, one db.params.<name> field per bound parameter, the call
// site and, when a tracer is configured, the trace linkage. The delegate
// runs with a context carrying the span and the in-flight event. Whatever
// happens, the event gets duration_ms and is sent exactly once; errors are
// recorded as db.error and db.error_detail and returned unchanged.
//
// Calls entered while another call is in progress on the same wrapper are
// plain pass-through, so convenience methods built on lower-level ones
// produce a single event.
package instrument
