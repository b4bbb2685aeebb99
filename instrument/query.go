package instrument

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"strconv"
	"strings"
)

// Query describes one logical database call.
type Query struct {
	// SQL is the statement text as sent to the driver.
	SQL string

	// Name labels the operation. If empty, QueryName(SQL) is used.
	Name string

	// Params are the bound parameters.
	Params []Param
}

// Param is a bound parameter exposing its name and value.
// Positional parameters are named by their 1-based ordinal.
type Param interface {
	ParamName() string
	ParamValue() any
}

// Bind is a (column, value) parameter pair.
type Bind struct {
	Column string
	Value  any
}

// ParamName implements Param.
func (b Bind) ParamName() string { return b.Column }

// ParamValue implements Param.
func (b Bind) ParamValue() any { return b.Value }

// NamedValues converts driver arguments to params. Named arguments keep
// their name; positional ones are named by ordinal.
func NamedValues(args []driver.NamedValue) []Param {
	if len(args) == 0 {
		return nil
	}

	params := make([]Param, len(args))
	for i, arg := range args {
		name := arg.Name
		if name == "" {
			name = strconv.Itoa(arg.Ordinal)
		}
		params[i] = Bind{Column: name, Value: arg.Value}
	}
	return params
}

// Args converts database/sql style arguments to params.
//
// sql.NamedArg keeps its name and driver.Valuer values are resolved so the
// event shows what the driver receives.
func Args(args []any) []Param {
	if len(args) == 0 {
		return nil
	}

	params := make([]Param, len(args))
	for i, arg := range args {
		name := strconv.Itoa(i + 1)
		if named, ok := arg.(sql.NamedArg); ok {
			name = named.Name
			arg = named.Value
		}
		if p, ok := arg.(Param); ok {
			params[i] = p
			continue
		}
		if valuer, ok := arg.(driver.Valuer); ok {
			arg = valuerValue(valuer)
		}
		params[i] = Bind{Column: name, Value: arg}
	}
	return params
}

var valuerType = reflect.TypeFor[driver.Valuer]()

// valuerValue resolves v the way database/sql does: a nil pointer to a type
// with a value receiver Value is recorded as nil. A failing or panicking
// Value leaves v as is; the driver reports the error.
func valuerValue(v driver.Valuer) (out any) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() &&
		rv.Type().Elem().Implements(valuerType) {
		return nil
	}

	out = v
	defer func() {
		if recover() != nil {
			out = v
		}
	}()

	if value, err := v.Value(); err == nil {
		out = value
	}
	return out
}

// Values returns the parameter values in order, for delegation to a driver.
func Values(params []Param) []any {
	if len(params) == 0 {
		return nil
	}

	values := make([]any, len(params))
	for i, p := range params {
		values[i] = p.ParamValue()
	}
	return values
}

// QueryName labels a statement by its first whitespace-delimited token,
// upper-cased. Empty statements are labelled "SQL".
//
// Example:
//
//	QueryName("select * from animals") // "SELECT"
//	QueryName("")                      // "SQL"
func QueryName(query string) string {
	if op := Operation(query); op != "" {
		return op
	}
	return "SQL"
}

// Operation returns the upper-cased first token of query, or "" when the
// query is blank.
func Operation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// paramValue normalizes values for the event payload.
func paramValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
