package instrument

import (
	"path"
	"runtime"
	"strconv"
	"strings"
)

const (
	modulePath = "github.com/kroma-labs/sqlevent"

	maxSourceDepth = 32
)

// defaultSilencers are the packages never reported as a query source:
// this module's instrumentation layers plus the frameworks they wrap.
var defaultSilencers = []string{
	modulePath + "/instrument",
	modulePath + "/sql",
	modulePath + "/sqlx",
	modulePath + "/event",
	modulePath + "/tracing",
	"database/sql",
	"github.com/jmoiron/sqlx",
	"runtime",
	"reflect",
}

// sourceLocator finds the first stack frame outside the silenced packages.
type sourceLocator struct {
	silencers []string
}

func newSourceLocator(extra []string) *sourceLocator {
	silencers := make([]string, 0, len(defaultSilencers)+len(extra))
	silencers = append(silencers, defaultSilencers...)
	for _, pkg := range extra {
		if pkg = strings.TrimSuffix(strings.TrimSpace(pkg), "/"); pkg != "" {
			silencers = append(silencers, pkg)
		}
	}
	return &sourceLocator{silencers: silencers}
}

// locate returns "dir/file.go:line in pkg.Func" for the caller, or "".
func (l *sourceLocator) locate() string {
	pcs := make([]uintptr, maxSourceDepth)
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !l.silenced(frame) {
			return formatFrame(frame)
		}
		if !more {
			return ""
		}
	}
}

func (l *sourceLocator) silenced(frame runtime.Frame) bool {
	// Tests are callers even when they live inside a silenced package.
	if strings.HasSuffix(frame.File, "_test.go") {
		return false
	}

	pkg := funcPackage(frame.Function)
	for _, s := range l.silencers {
		if pkg == s || strings.HasPrefix(pkg, s+"/") {
			return true
		}
	}
	return false
}

// funcPackage extracts the import path from a fully qualified function name
// such as "github.com/acme/app/store.(*Repo).Save".
func funcPackage(fn string) string {
	slash := strings.LastIndex(fn, "/")
	dot := strings.Index(fn[slash+1:], ".")
	if dot < 0 {
		return fn
	}
	return fn[:slash+1+dot]
}

func formatFrame(frame runtime.Frame) string {
	file := path.Join(path.Base(path.Dir(frame.File)), path.Base(frame.File))

	fn := frame.Function
	if slash := strings.LastIndex(fn, "/"); slash >= 0 {
		fn = fn[slash+1:]
	}

	return file + ":" + strconv.Itoa(frame.Line) + " in " + fn
}
