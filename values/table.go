package values

import (
	"fmt"
	"sort"
)

// Table is the hybrid array+hash container backing Lua tables. The array
// part holds the contiguous 1-based integer keys 1..len(arr); everything
// else — non-contiguous integers, strings, other values — lives in the
// hash part. nil is never stored and never a valid key: setting a key to
// nil removes it.
type Table struct {
	arr       []*Value
	hash      map[interface{}]*Value
	Metatable *Table
}

func NewEmptyTable() *Table {
	return &Table{}
}

// normalizeKey canonicalizes table keys the way Lua does: float keys with
// an exact integer value are stored as ints so that t[1] and t[1.0] are
// the same slot.
func normalizeKey(key *Value) interface{} {
	if key == nil {
		return nil
	}
	switch key.Type {
	case TypeInt:
		return key.Data.(int64)
	case TypeFloat:
		if i, ok := key.ToInt(); ok {
			f := key.Data.(float64)
			if float64(i) == f {
				return i
			}
		}
		return key.Data.(float64)
	case TypeString:
		return key.Data.(string)
	case TypeBool:
		return key.Data.(bool)
	default:
		// Identity keys (tables, closures, ...) use the handle itself.
		return key.Data
	}
}

// Get performs a raw (non-metamethod) lookup.
func (t *Table) Get(key *Value) *Value {
	if t == nil || key == nil {
		return NewNil()
	}
	if ik, ok := normalizeKey(key).(int64); ok && ik >= 1 && int(ik) <= len(t.arr) {
		v := t.arr[ik-1]
		if v == nil {
			return NewNil()
		}
		return v
	}
	if t.hash == nil {
		return NewNil()
	}
	if v, ok := t.hash[normalizeKey(key)]; ok {
		return v
	}
	return NewNil()
}

// Set performs a raw (non-metamethod) store. Setting to nil removes the
// key.
func (t *Table) Set(key *Value, val *Value) {
	nk := normalizeKey(key)
	if ik, ok := nk.(int64); ok && ik >= 1 {
		idx := int(ik)
		if idx <= len(t.arr) {
			if val.IsNil() {
				if idx == len(t.arr) {
					t.arr = t.arr[:idx-1]
					t.shrinkFromHash()
				} else {
					t.arr[idx-1] = nil
				}
				return
			}
			t.arr[idx-1] = val
			return
		}
		if idx == len(t.arr)+1 && !val.IsNil() {
			t.arr = append(t.arr, val)
			t.absorbFromHash()
			return
		}
	}
	if val.IsNil() {
		if t.hash != nil {
			delete(t.hash, nk)
		}
		return
	}
	if t.hash == nil {
		t.hash = make(map[interface{}]*Value)
	}
	t.hash[nk] = val
}

// absorbFromHash pulls any hash-part integer keys that now extend the
// array part contiguously.
func (t *Table) absorbFromHash() {
	if t.hash == nil {
		return
	}
	for {
		next := int64(len(t.arr) + 1)
		v, ok := t.hash[next]
		if !ok || v.IsNil() {
			return
		}
		t.arr = append(t.arr, v)
		delete(t.hash, next)
	}
}

// shrinkFromHash trims trailing nil holes left at the end of the array
// part after a deletion.
func (t *Table) shrinkFromHash() {
	for len(t.arr) > 0 && t.arr[len(t.arr)-1] == nil {
		t.arr = t.arr[:len(t.arr)-1]
	}
}

// Append adds val at position Len()+1, growing the array part. This is
// the TABLE_APPEND opcode's primitive.
func (t *Table) Append(val *Value) {
	t.Set(NewInt(int64(t.Len()+1)), val)
}

// Len implements the # operator: the length of the array part. This is
// the "prefer length of the array part" convention fixed by DESIGN.md
// for tables with holes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	n := len(t.arr)
	for n > 0 && t.arr[n-1] == nil {
		n--
	}
	return n
}

// Next implements stateless iteration for generic for/pairs: given the
// previous key (nil to start), returns the next (key, value) pair, or
// (nil, nil) when iteration is exhausted. Array-part keys are visited in
// order before hash-part keys, which are visited sorted by type tag and
// rendered key (identity keys by handle address), so the order is stable
// for the duration of one iteration so long as the table is not mutated.
func (t *Table) Next(prev *Value) (*Value, *Value) {
	keys := t.orderedHashKeys()
	if prev.IsNil() {
		if idx := t.nextArrayIndex(0); idx > 0 {
			return NewInt(int64(idx)), t.arr[idx-1]
		}
		if len(keys) > 0 {
			return keyToValue(keys[0]), t.hash[keys[0]]
		}
		return nil, nil
	}
	nk := normalizeKey(prev)
	if ik, ok := nk.(int64); ok && ik >= 1 && int(ik) <= len(t.arr) {
		if idx := t.nextArrayIndex(int(ik)); idx > 0 {
			return NewInt(int64(idx)), t.arr[idx-1]
		}
		if len(keys) > 0 {
			return keyToValue(keys[0]), t.hash[keys[0]]
		}
		return nil, nil
	}
	for i, k := range keys {
		if k == nk {
			if i+1 < len(keys) {
				return keyToValue(keys[i+1]), t.hash[keys[i+1]]
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (t *Table) nextArrayIndex(after int) int {
	for i := after; i < len(t.arr); i++ {
		if t.arr[i] != nil {
			return i + 1
		}
	}
	return 0
}

func (t *Table) orderedHashKeys() []interface{} {
	keys := make([]interface{}, 0, len(t.hash))
	for k := range t.hash {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return hashKeySortString(keys[i]) < hashKeySortString(keys[j])
	})
	return keys
}

func hashKeySortString(k interface{}) string {
	switch v := k.(type) {
	case string:
		return "s:" + v
	case int64:
		return "n:" + NewInt(v).ToDisplayString()
	case float64:
		return "n:" + NewFloat(v).ToDisplayString()
	case bool:
		if v {
			return "b:1"
		}
		return "b:0"
	default:
		return fmt.Sprintf("p:%p", v)
	}
}

func keyToValue(k interface{}) *Value {
	switch v := k.(type) {
	case int64:
		return NewInt(v)
	case float64:
		return NewFloat(v)
	case string:
		return NewString(v)
	case bool:
		return NewBool(v)
	case *Table:
		return NewTable(v)
	case *Closure:
		return NewClosure(v)
	case *Coroutine:
		return NewCoroutine(v)
	case *Foreign:
		return NewForeign(v)
	case *Cell:
		return NewCell(v)
	default:
		return NewNil()
	}
}

// Clone deep-copies a table for LOAD_CONST semantics (independent literal
// tables per load). The metatable link is shared, not copied, matching
// Lua's usual "metatable is an attribute of the slot, not value" intent
// for compiled literals that never carry one anyway.
func (t *Table) Clone() *Table {
	if t == nil {
		return NewEmptyTable()
	}
	cp := &Table{Metatable: t.Metatable}
	cp.arr = make([]*Value, len(t.arr))
	for i, v := range t.arr {
		if v == nil {
			continue
		}
		cp.arr[i] = DeepCopy(v)
	}
	if t.hash != nil {
		cp.hash = make(map[interface{}]*Value, len(t.hash))
		for k, v := range t.hash {
			cp.hash[k] = DeepCopy(v)
		}
	}
	return cp
}

// Insert and Remove back table.insert/table.remove. pos is 1-based; a
// zero value of pos means "not given" and selects the default behavior
// for that call (append / remove the last element).
func (t *Table) Insert(pos int, val *Value) {
	n := t.Len()
	if pos <= 0 || pos > n+1 {
		pos = n + 1
	}
	for i := n + 1; i > pos; i-- {
		t.Set(NewInt(int64(i)), t.Get(NewInt(int64(i-1))))
	}
	t.Set(NewInt(int64(pos)), val)
}

func (t *Table) Remove(pos int) *Value {
	n := t.Len()
	if n == 0 {
		return NewNil()
	}
	if pos <= 0 {
		pos = n
	}
	if pos < 1 || pos > n {
		return NewNil()
	}
	removed := t.Get(NewInt(int64(pos)))
	for i := pos; i < n; i++ {
		t.Set(NewInt(int64(i)), t.Get(NewInt(int64(i+1))))
	}
	t.Set(NewInt(int64(n)), NewNil())
	return removed
}
