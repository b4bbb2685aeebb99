package instrument

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuncPackage(t *testing.T) {
	tests := []struct {
		fn   string
		want string
	}{
		{fn: "database/sql.(*DB).ExecContext", want: "database/sql"},
		{fn: "github.com/jmoiron/sqlx.(*DB).Get", want: "github.com/jmoiron/sqlx"},
		{fn: "github.com/kroma-labs/sqlevent/sqlx.(*Conn).ExecQuery.func1", want: "github.com/kroma-labs/sqlevent/sqlx"},
		{fn: "main.main", want: "main"},
		{fn: "runtime.goexit", want: "runtime"},
	}

	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			assert.Equal(t, tt.want, funcPackage(tt.fn))
		})
	}
}

func TestSourceLocator_Silenced(t *testing.T) {
	l := newSourceLocator([]string{"github.com/acme/app/repo/"})

	tests := []struct {
		name  string
		frame runtime.Frame
		want  bool
	}{
		{
			name:  "given a database/sql frame, then silenced",
			frame: runtime.Frame{Function: "database/sql.(*DB).QueryContext", File: "/go/src/database/sql/sql.go"},
			want:  true,
		},
		{
			name:  "given a database/sql/driver frame, then silenced",
			frame: runtime.Frame{Function: "database/sql/driver.callValuerValue", File: "/go/src/database/sql/driver/types.go"},
			want:  true,
		},
		{
			name:  "given the sqlx package of this module, then silenced",
			frame: runtime.Frame{Function: modulePath + "/sqlx.(*Conn).ExecQuery", File: "/src/sqlx/conn.go"},
			want:  true,
		},
		{
			name:  "given a configured package, then silenced",
			frame: runtime.Frame{Function: "github.com/acme/app/repo.(*Animals).Insert", File: "/src/repo/animals.go"},
			want:  true,
		},
		{
			name:  "given application code, then reported",
			frame: runtime.Frame{Function: "github.com/acme/app/service.Adopt", File: "/src/service/adopt.go"},
			want:  false,
		},
		{
			name:  "given a test file inside a silenced package, then reported",
			frame: runtime.Frame{Function: modulePath + "/sql.TestExec", File: "/src/sql/conn_test.go"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.silenced(tt.frame))
		})
	}
}

func TestFormatFrame(t *testing.T) {
	got := formatFrame(runtime.Frame{
		Function: "github.com/acme/app/service.(*Zoo).Adopt",
		File:     "/home/dev/app/service/zoo.go",
		Line:     42,
	})
	assert.Equal(t, "service/zoo.go:42 in service.(*Zoo).Adopt", got)
}
