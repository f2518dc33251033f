package stdlib

import (
	"sort"
	"strings"

	"github.com/AarenWang/haifa-go/registry"
	"github.com/AarenWang/haifa-go/values"
)

// openTableLib installs the "table" library: insert, remove, concat,
// sort, pack, unpack, move — grounded on the teacher's
// runtime/array.go array-manipulation builtins, retargeted to
// values.Table's array+hash model.
func openTableLib(globals *values.Table) {
	lib := registry.RegisterLibrary(globals, "table")
	registerIn(lib, "insert", tblInsert)
	registerIn(lib, "remove", tblRemove)
	registerIn(lib, "concat", tblConcat)
	registerIn(lib, "sort", tblSort)
	registerIn(lib, "pack", tblPack)
	registerIn(lib, "unpack", biUnpack)
	registerIn(lib, "move", tblMove)
}

func tblInsert(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil {
		return nil, argError(1, "insert", "table expected")
	}
	if len(args) >= 3 {
		pos, ok := args[1].ToInt()
		if !ok {
			return nil, argError(2, "insert", "number expected")
		}
		t.Insert(int(pos), args[2])
		return nil, nil
	}
	t.Insert(0, arg(args, 1))
	return nil, nil
}

func tblRemove(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil {
		return nil, argError(1, "remove", "table expected")
	}
	pos := 0
	if !arg(args, 1).IsNil() {
		p, ok := args[1].ToInt()
		if !ok {
			return nil, argError(2, "remove", "number expected")
		}
		pos = int(p)
	}
	return []*values.Value{t.Remove(pos)}, nil
}

func tblConcat(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil {
		return nil, argError(1, "concat", "table expected")
	}
	sep := ""
	if s := arg(args, 1); !s.IsNil() {
		sep = s.ToDisplayString()
	}
	i := int64(1)
	if !arg(args, 2).IsNil() {
		i, _ = args[2].ToInt()
	}
	j := int64(t.Len())
	if !arg(args, 3).IsNil() {
		j, _ = args[3].ToInt()
	}
	parts := make([]string, 0, j-i+1)
	for k := i; k <= j; k++ {
		parts = append(parts, t.Get(values.NewInt(k)).ToDisplayString())
	}
	return []*values.Value{values.NewString(strings.Join(parts, sep))}, nil
}

// tblSort implements table.sort with an optional comparator, reentering
// the VM via CallValue for each comparison — this is the canonical
// "C function calling back into Lua" case that pushes an IsForeign
// frame and therefore cannot be yielded across (spec.md §4.3).
func tblSort(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := arg(args, 0).AsTable()
	if t == nil {
		return nil, argError(1, "sort", "table expected")
	}
	n := t.Len()
	elems := make([]*values.Value, n)
	for i := 0; i < n; i++ {
		elems[i] = t.Get(values.NewInt(int64(i + 1)))
	}
	cmp := arg(args, 1)
	var sortErr error
	sort.SliceStable(elems, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		if cmp.IsNil() {
			less, err := defaultLess(elems[i], elems[j])
			if err != nil {
				sortErr = err
			}
			return less
		}
		results, err := vm.CallValue(cmp, []*values.Value{elems[i], elems[j]})
		if err != nil {
			sortErr = err
			return false
		}
		return arg(results, 0).IsTruthy()
	})
	if sortErr != nil {
		return nil, sortErr
	}
	for i, v := range elems {
		t.Set(values.NewInt(int64(i+1)), v)
	}
	return nil, nil
}

func defaultLess(a, b *values.Value) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return af < bf, nil
	}
	if a.Type == values.TypeString && b.Type == values.TypeString {
		return a.Data.(string) < b.Data.(string), nil
	}
	return false, argError(1, "sort", "attempt to compare incompatible values")
}

func tblPack(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	t := values.NewEmptyTable()
	for i, v := range args {
		t.Set(values.NewInt(int64(i+1)), v)
	}
	t.Set(values.NewString("n"), values.NewInt(int64(len(args))))
	return []*values.Value{values.NewTable(t)}, nil
}

func tblMove(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	a1 := arg(args, 0).AsTable()
	if a1 == nil {
		return nil, argError(1, "move", "table expected")
	}
	f, _ := arg(args, 1).ToInt()
	e, _ := arg(args, 2).ToInt()
	t, _ := arg(args, 3).ToInt()
	a2 := a1
	if dst := arg(args, 4); !dst.IsNil() {
		a2 = dst.AsTable()
		if a2 == nil {
			return nil, argError(5, "move", "table expected")
		}
	}
	if e >= f {
		if t > f || a1 != a2 {
			for i := int64(0); i <= e-f; i++ {
				a2.Set(values.NewInt(t+i), a1.Get(values.NewInt(f+i)))
			}
		} else {
			for i := e - f; i >= 0; i-- {
				a2.Set(values.NewInt(t+i), a1.Get(values.NewInt(f+i)))
			}
		}
	}
	return []*values.Value{values.NewTable(a2)}, nil
}
