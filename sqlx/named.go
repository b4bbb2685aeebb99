package sqlx

import (
	"regexp"

	"github.com/kroma-labs/sqlevent/instrument"
)

// namedParamPattern matches :name bindvars. "::" casts are not bindvars.
var namedParamPattern = regexp.MustCompile(`(?:^|[^:\w]):([A-Za-z_][\w.]*)`)

// namedParams pairs the :name bindvars of query with args, the values
// sqlx bound for them in order. Positional names are used when the two
// do not line up.
func namedParams(query string, args []any) []instrument.Param {
	matches := namedParamPattern.FindAllStringSubmatch(query, -1)
	if len(matches) != len(args) {
		return instrument.Args(args)
	}

	params := make([]instrument.Param, len(args))
	for i, m := range matches {
		params[i] = instrument.Bind{Column: m[1], Value: args[i]}
	}
	return params
}
