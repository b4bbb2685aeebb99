package instrument

// Event field names.
const (
	FieldType           = "type"
	FieldPackage        = "meta.package"
	FieldPackageVersion = "meta.package_version"

	FieldSQL         = "db.sql"
	FieldName        = "name"
	FieldParamPrefix = "db.params."
	FieldQuerySource = "db.query_source"

	FieldError       = "db.error"
	FieldErrorDetail = "db.error_detail"
	FieldDurationMs  = "duration_ms"

	FieldRowsAffected = "db.rows_affected"
	FieldRowsReturned = "db.num_rows_returned"
	FieldLastInsertID = "db.last_insert_id"
	FieldDBSystem     = "db.system"
	FieldDBName       = "db.name"
	FieldDBInstance   = "db.instance"

	FieldTraceID  = "trace.trace_id"
	FieldSpanID   = "trace.span_id"
	FieldParentID = "trace.parent_id"
)

// TypeDB is the value of FieldType on every query event.
const TypeDB = "db"
