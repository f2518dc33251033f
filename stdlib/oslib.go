package stdlib

import (
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/AarenWang/haifa-go/registry"
	"github.com/AarenWang/haifa-go/values"
)

// openOSLib installs the "os" library: time, clock, date, difftime —
// the sandboxed subset a teaching VM should expose (no os.execute,
// os.remove, os.exit: those touch the host OS, out of scope per
// spec.md's sandboxing intent for io/os carried over from the teacher's
// pkg/fpm sandboxing posture). date() uses ncruces/go-strftime to render
// Lua's strftime-style os.date formats, since Go's time package only
// understands its own reference-time layout.
func openOSLib(globals *values.Table) {
	lib := registry.RegisterLibrary(globals, "os")
	registerIn(lib, "time", osTime)
	registerIn(lib, "clock", osClock)
	registerIn(lib, "date", osDate)
	registerIn(lib, "difftime", osDifftime)
}

var processStart = time.Now()

func osTime(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	return []*values.Value{values.NewInt(time.Now().Unix())}, nil
}

func osClock(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	return []*values.Value{values.NewFloat(time.Since(processStart).Seconds())}, nil
}

func osDate(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	format := "%c"
	if f := arg(args, 0); !f.IsNil() {
		format = f.ToDisplayString()
	}
	t := time.Now()
	if ts := arg(args, 1); !ts.IsNil() {
		if sec, ok := ts.ToInt(); ok {
			t = time.Unix(sec, 0)
		}
	}
	utc := false
	if len(format) > 0 && format[0] == '!' {
		utc = true
		format = format[1:]
	}
	if utc {
		t = t.UTC()
	}
	return []*values.Value{values.NewString(strftime.Format(format, t))}, nil
}

func osDifftime(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t2, _ := arg(args, 0).ToFloat()
	t1, _ := arg(args, 1).ToFloat()
	return []*values.Value{values.NewFloat(t2 - t1)}, nil
}
