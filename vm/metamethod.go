package vm

import "github.com/AarenWang/haifa-go/values"

// metamethodOf returns the named metamethod closure/foreign value from v's
// metatable, or nil if v has no table representation or no such
// metamethod, grounded on the teacher's per-opcode-executor dispatch
// pattern generalized into one lookup helper shared by every operator.
func metamethodOf(v *values.Value, name string) *values.Value {
	if v == nil || v.Type != values.TypeTable {
		return nil
	}
	t := v.AsTable()
	if t == nil || t.Metatable == nil {
		return nil
	}
	mm := t.Metatable.Get(values.NewString(name))
	if mm.IsNil() {
		return nil
	}
	return mm
}

// binaryMetamethod tries name first on a then on b (Lua tries the
// left operand's metamethod before the right's).
func binaryMetamethod(a, b *values.Value, name string) *values.Value {
	if mm := metamethodOf(a, name); mm != nil {
		return mm
	}
	return metamethodOf(b, name)
}

// callMetamethod invokes handler(a, b) via CallValue, returning its
// first result (binary metamethods conventionally yield one value).
func (v *VirtualMachine) callMetamethod(ctx *ExecutionContext, handler *values.Value, a, b *values.Value) (*values.Value, error) {
	results, err := v.CallValue(ctx, handler, []*values.Value{a, b})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return values.NewNil(), nil
	}
	return results[0], nil
}

var arithMetaNames = map[string]string{
	"add": "__add", "sub": "__sub", "mul": "__mul", "div": "__div",
	"idiv": "__idiv", "mod": "__mod", "pow": "__pow", "neg": "__unm",
	"concat": "__concat",
}

// Index implements the __index chain walk for TABLE_GET: raw lookup
// first, then metatable __index (a table, recursed; or a function,
// called), capped at MaxMetamethodDepth to catch cyclic metatables.
func (v *VirtualMachine) Index(ctx *ExecutionContext, target, key *values.Value) (*values.Value, error) {
	cur := target
	for depth := 0; depth < v.MaxMetamethodDepth; depth++ {
		if cur.Type != values.TypeTable {
			mm := metamethodOf(cur, "__index")
			if mm == nil {
				return nil, &VMError{Type: ErrNotIndexable, Message: cur.Type.String() + " is not indexable"}
			}
			if mm.Type == values.TypeTable {
				cur = mm
				continue
			}
			return v.callMetamethod(ctx, mm, cur, key)
		}
		t := cur.AsTable()
		raw := t.Get(key)
		if !raw.IsNil() {
			return raw, nil
		}
		if t.Metatable == nil {
			return values.NewNil(), nil
		}
		mm := t.Metatable.Get(values.NewString("__index"))
		if mm.IsNil() {
			return values.NewNil(), nil
		}
		if mm.Type == values.TypeTable {
			cur = mm
			continue
		}
		return v.callMetamethod(ctx, mm, cur, key)
	}
	return nil, &VMError{Type: ErrMetamethodDepth, Message: "__index"}
}

// NewIndex implements the __newindex chain walk for TABLE_SET.
func (v *VirtualMachine) NewIndex(ctx *ExecutionContext, target, key, val *values.Value) error {
	cur := target
	for depth := 0; depth < v.MaxMetamethodDepth; depth++ {
		if cur.Type != values.TypeTable {
			mm := metamethodOf(cur, "__newindex")
			if mm == nil {
				return &VMError{Type: ErrNotIndexable, Message: cur.Type.String() + " is not indexable"}
			}
			if mm.Type == values.TypeTable {
				cur = mm
				continue
			}
			_, err := v.CallValue(ctx, mm, []*values.Value{cur, key, val})
			return err
		}
		t := cur.AsTable()
		if !t.Get(key).IsNil() || t.Metatable == nil {
			t.Set(key, val)
			return nil
		}
		mm := t.Metatable.Get(values.NewString("__newindex"))
		if mm.IsNil() {
			t.Set(key, val)
			return nil
		}
		if mm.Type == values.TypeTable {
			cur = mm
			continue
		}
		_, err := v.CallValue(ctx, mm, []*values.Value{cur, key, val})
		return err
	}
	return &VMError{Type: ErrMetamethodDepth, Message: "__newindex"}
}

// Length implements the # operator honoring __len.
func (v *VirtualMachine) Length(ctx *ExecutionContext, target *values.Value) (*values.Value, error) {
	if mm := metamethodOf(target, "__len"); mm != nil {
		return v.callMetamethod(ctx, mm, target, target)
	}
	switch target.Type {
	case values.TypeTable:
		return values.NewInt(int64(target.AsTable().Len())), nil
	case values.TypeString:
		return values.NewInt(int64(len(target.Data.(string)))), nil
	case values.TypeList:
		return values.NewInt(int64(len(target.AsList()))), nil
	}
	return nil, &VMError{Type: ErrNoMetamethod, Message: "attempt to get length of a " + target.Type.String() + " value"}
}

// EqualValues implements == honoring __eq (only consulted when both
// operands are tables/userdata-like and raw identity/value equality says
// unequal, per Lua semantics).
func (v *VirtualMachine) EqualValues(ctx *ExecutionContext, a, b *values.Value) (bool, error) {
	if values.ValuesEqual(a, b) {
		return true, nil
	}
	if a.Type != values.TypeTable || b.Type != values.TypeTable {
		return false, nil
	}
	mm := binaryMetamethod(a, b, "__eq")
	if mm == nil {
		return false, nil
	}
	result, err := v.callMetamethod(ctx, mm, a, b)
	if err != nil {
		return false, err
	}
	return result.IsTruthy(), nil
}

// LessThan implements < honoring __lt.
func (v *VirtualMachine) LessThan(ctx *ExecutionContext, a, b *values.Value) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		af, _ := a.ToFloat()
		bf, _ := b.ToFloat()
		return af < bf, nil
	}
	if a.Type == values.TypeString && b.Type == values.TypeString {
		return a.Data.(string) < b.Data.(string), nil
	}
	mm := binaryMetamethod(a, b, "__lt")
	if mm == nil {
		return false, &VMError{Type: ErrNoMetamethod, Message: "attempt to compare two " + a.Type.String() + " values"}
	}
	result, err := v.callMetamethod(ctx, mm, a, b)
	if err != nil {
		return false, err
	}
	return result.IsTruthy(), nil
}
