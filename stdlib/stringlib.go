package stdlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AarenWang/haifa-go/registry"
	"github.com/AarenWang/haifa-go/values"
)

// openStringLib installs string.len/sub/upper/lower/rep/reverse/byte/
// char/format/find/match/gmatch/gsub, spec.md §4.3. find/match/gmatch/
// gsub ride on the from-scratch pattern matcher in luapattern.go;
// everything else, format included, is a thin wrapper over the Go standard
// library's strings/strconv, the ambient posture the teacher uses for
// pure string munging with no domain-specific replacement in the pack.
func openStringLib(globals *values.Table) {
	lib := registry.RegisterLibrary(globals, "string")
	registerIn(lib, "len", strLen)
	registerIn(lib, "sub", strSub)
	registerIn(lib, "upper", strUpper)
	registerIn(lib, "lower", strLower)
	registerIn(lib, "rep", strRep)
	registerIn(lib, "reverse", strReverse)
	registerIn(lib, "byte", strByte)
	registerIn(lib, "char", strChar)
	registerIn(lib, "format", strFormat)
	registerIn(lib, "find", strFind)
	registerIn(lib, "match", strMatch)
	registerIn(lib, "gmatch", strGmatch)
	registerIn(lib, "gsub", strGsub)
}

func checkStr(args []*values.Value, i int, fname string) (string, error) {
	v := arg(args, i)
	if v.Type != values.TypeString && !v.IsNumber() {
		return "", argError(i+1, fname, "string expected, got "+v.Type.String())
	}
	return v.ToDisplayString(), nil
}

// strIndex resolves a Lua 1-based, possibly-negative string index to a
// 1-based position: a negative index counts back from the end (0 when it
// reaches before the start); a non-negative index is returned unchanged,
// and callers clamp it to the string length.
func strIndex(i, length int) int {
	if i >= 0 {
		return i
	}
	if -i > length {
		return 0
	}
	return length + i + 1
}

func strLen(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "len")
	if err != nil {
		return nil, err
	}
	return []*values.Value{values.NewInt(int64(len(s)))}, nil
}

func strSub(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "sub")
	if err != nil {
		return nil, err
	}
	length := len(s)
	i := 1
	if iv := arg(args, 1); !iv.IsNil() {
		n, _ := iv.ToInt()
		i = int(n)
	}
	j := -1
	if jv := arg(args, 2); !jv.IsNil() {
		n, _ := jv.ToInt()
		j = int(n)
	}
	start := strIndex(i, length)
	if start < 1 {
		start = 1
	}
	end := strIndex(j, length)
	if end > length {
		end = length
	}
	if start > end {
		return []*values.Value{values.NewString("")}, nil
	}
	return []*values.Value{values.NewString(s[start-1 : end])}, nil
}

func strUpper(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "upper")
	if err != nil {
		return nil, err
	}
	return []*values.Value{values.NewString(strings.ToUpper(s))}, nil
}

func strLower(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "lower")
	if err != nil {
		return nil, err
	}
	return []*values.Value{values.NewString(strings.ToLower(s))}, nil
}

func strRep(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "rep")
	if err != nil {
		return nil, err
	}
	n, _ := arg(args, 1).ToInt()
	sep := ""
	if sv := arg(args, 2); !sv.IsNil() {
		sep = sv.ToDisplayString()
	}
	if n <= 0 {
		return []*values.Value{values.NewString("")}, nil
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s
	}
	return []*values.Value{values.NewString(strings.Join(parts, sep))}, nil
}

func strReverse(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "reverse")
	if err != nil {
		return nil, err
	}
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return []*values.Value{values.NewString(string(b))}, nil
}

func strByte(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "byte")
	if err != nil {
		return nil, err
	}
	length := len(s)
	i := 1
	if iv := arg(args, 1); !iv.IsNil() {
		n, _ := iv.ToInt()
		i = int(n)
	}
	j := i
	if jv := arg(args, 2); !jv.IsNil() {
		n, _ := jv.ToInt()
		j = int(n)
	}
	start := strIndex(i, length)
	end := strIndex(j, length)
	if start < 1 {
		start = 1
	}
	if end > length {
		end = length
	}
	if start > end {
		return nil, nil
	}
	out := make([]*values.Value, 0, end-start+1)
	for k := start; k <= end; k++ {
		out = append(out, values.NewInt(int64(s[k-1])))
	}
	return out, nil
}

func strChar(args []*values.Value, v values.VM) ([]*values.Value, error) {
	b := make([]byte, len(args))
	for i, a := range args {
		n, ok := a.ToInt()
		if !ok {
			return nil, argError(i+1, "char", "number expected")
		}
		b[i] = byte(n)
	}
	return []*values.Value{values.NewString(string(b))}, nil
}

// strFormat implements Lua's string.format, which mirrors C's printf
// directives (%d %i %u %f %g %e %x %o %c %s %q %%); translated onto
// Go's fmt verbs one directive at a time since the flag/width/precision
// grammar differs just enough (e.g. %q's escaping rules) that fmt can't
// be handed the pattern wholesale.
func strFormat(args []*values.Value, v values.VM) ([]*values.Value, error) {
	format, err := checkStr(args, 0, "format")
	if err != nil {
		return nil, err
	}
	var out strings.Builder
	argi := 1
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(format) && strings.ContainsRune("-+ #0", rune(format[j])) {
			j++
		}
		for j < len(format) && format[j] >= '0' && format[j] <= '9' {
			j++
		}
		if j < len(format) && format[j] == '.' {
			j++
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				j++
			}
		}
		if j >= len(format) {
			return nil, fmt.Errorf("invalid format string to 'format'")
		}
		verb := format[j]
		spec := format[i : j+1]
		i = j
		if verb == '%' {
			out.WriteByte('%')
			continue
		}
		a := arg(args, argi)
		argi++
		switch verb {
		case 'd', 'i', 'u':
			n, _ := a.ToInt()
			out.WriteString(fmt.Sprintf(spec[:len(spec)-1]+"d", n))
		case 'x', 'X', 'o':
			n, _ := a.ToInt()
			out.WriteString(fmt.Sprintf(spec, n))
		case 'c':
			n, _ := a.ToInt()
			out.WriteByte(byte(n))
		case 'f', 'F', 'g', 'G', 'e', 'E':
			f, _ := a.ToFloat()
			out.WriteString(fmt.Sprintf(spec, f))
		case 's':
			out.WriteString(fmt.Sprintf(spec, a.ToDisplayString()))
		case 'q':
			out.WriteString(strconv.Quote(a.ToDisplayString()))
		default:
			return nil, fmt.Errorf("invalid conversion '%%%c' to 'format'", verb)
		}
	}
	return []*values.Value{values.NewString(out.String())}, nil
}

func capturesToValues(src string, start, end int, caps []capture) []*values.Value {
	ss := capturedStrings(src, start, end, caps)
	out := make([]*values.Value, len(ss))
	for i, s := range ss {
		if len(caps) > i && caps[i].len == capPosition {
			n, _ := strconv.Atoi(s)
			out[i] = values.NewInt(int64(n))
		} else {
			out[i] = values.NewString(s)
		}
	}
	return out
}

func strFind(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "find")
	if err != nil {
		return nil, err
	}
	pat, err := checkStr(args, 1, "find")
	if err != nil {
		return nil, err
	}
	init := 0
	if iv := arg(args, 2); !iv.IsNil() {
		n, _ := iv.ToInt()
		init = strIndex(int(n), len(s)) - 1
		if init < 0 {
			init = 0
		}
	}
	plain := arg(args, 3).IsTruthy()
	if plain || !strings.ContainsAny(pat, "^$*+?.([%-") {
		idx := strings.Index(s[min(init, len(s)):], pat)
		if idx < 0 {
			return []*values.Value{values.NewNil()}, nil
		}
		start := init + idx
		return []*values.Value{values.NewInt(int64(start + 1)), values.NewInt(int64(start + len(pat)))}, nil
	}
	start, end, caps, ok := patternFind(s, pat, init)
	if !ok {
		return []*values.Value{values.NewNil()}, nil
	}
	result := []*values.Value{values.NewInt(int64(start + 1)), values.NewInt(int64(end))}
	if len(caps) > 0 {
		result = append(result, capturesToValues(s, start, end, caps)...)
	}
	return result, nil
}

func strMatch(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "match")
	if err != nil {
		return nil, err
	}
	pat, err := checkStr(args, 1, "match")
	if err != nil {
		return nil, err
	}
	init := 0
	if iv := arg(args, 2); !iv.IsNil() {
		n, _ := iv.ToInt()
		init = strIndex(int(n), len(s)) - 1
		if init < 0 {
			init = 0
		}
	}
	start, end, caps, ok := patternFind(s, pat, init)
	if !ok {
		return []*values.Value{values.NewNil()}, nil
	}
	return capturesToValues(s, start, end, caps), nil
}

// strGmatch returns an iterator Foreign suitable for a generic for loop,
// closing over the search cursor (advanced past each match, by at least
// one byte to avoid looping forever on an empty-match pattern).
func strGmatch(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "gmatch")
	if err != nil {
		return nil, err
	}
	pat, err := checkStr(args, 1, "gmatch")
	if err != nil {
		return nil, err
	}
	pos := 0
	iter := func(_ []*values.Value, _ values.VM) ([]*values.Value, error) {
		for pos <= len(s) {
			start, end, caps, ok := patternFind(s, pat, pos)
			if !ok {
				return nil, nil
			}
			if end == pos {
				pos = end + 1
			} else {
				pos = end
			}
			return capturesToValues(s, start, end, caps), nil
		}
		return nil, nil
	}
	return []*values.Value{values.NewForeign(&values.Foreign{Name: "gmatch_iterator", Fn: iter})}, nil
}

// strGsub implements string.gsub's three replacement forms (string with
// %n back-references, table keyed by whole match, function called with
// the captures) and the optional max-replacement count.
func strGsub(args []*values.Value, v values.VM) ([]*values.Value, error) {
	s, err := checkStr(args, 0, "gsub")
	if err != nil {
		return nil, err
	}
	pat, err := checkStr(args, 1, "gsub")
	if err != nil {
		return nil, err
	}
	repl := arg(args, 2)
	maxN := -1
	if nv := arg(args, 3); !nv.IsNil() {
		n, _ := nv.ToInt()
		maxN = int(n)
	}

	var out strings.Builder
	pos := 0
	count := 0
	for pos <= len(s) && (maxN < 0 || count < maxN) {
		start, end, caps, ok := patternFind(s, pat, pos)
		if !ok {
			break
		}
		out.WriteString(s[pos:start])
		whole := s[start:end]
		capVals := capturesToValues(s, start, end, caps)

		replaced, used, rerr := gsubReplacement(repl, whole, capVals, v)
		if rerr != nil {
			return nil, rerr
		}
		if used {
			out.WriteString(replaced)
		} else {
			out.WriteString(whole)
		}
		count++
		if end == start {
			if start < len(s) {
				out.WriteByte(s[start])
			}
			pos = start + 1
		} else {
			pos = end
		}
	}
	if pos < len(s) {
		out.WriteString(s[pos:])
	}
	return []*values.Value{values.NewString(out.String()), values.NewInt(int64(count))}, nil
}

func gsubReplacement(repl *values.Value, whole string, caps []*values.Value, v values.VM) (string, bool, error) {
	switch repl.Type {
	case values.TypeString:
		return expandPercentRefs(repl.ToDisplayString(), whole, caps), true, nil
	case values.TypeTable:
		key := caps[0]
		found := repl.AsTable().Get(key)
		if found.IsNil() || (found.Type == values.TypeBool && !found.IsTruthy()) {
			return "", false, nil
		}
		return found.ToDisplayString(), true, nil
	case values.TypeClosure, values.TypeForeign:
		results, err := v.CallValue(repl, caps)
		if err != nil {
			return "", false, err
		}
		if len(results) == 0 || results[0].IsNil() || (results[0].Type == values.TypeBool && !results[0].IsTruthy()) {
			return "", false, nil
		}
		return results[0].ToDisplayString(), true, nil
	default:
		return whole, true, nil
	}
}

func expandPercentRefs(repl, whole string, caps []*values.Value) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		if repl[i] != '%' || i+1 >= len(repl) {
			b.WriteByte(repl[i])
			continue
		}
		i++
		c := repl[i]
		switch {
		case c == '%':
			b.WriteByte('%')
		case c == '0':
			b.WriteString(whole)
		case c >= '1' && c <= '9':
			idx := int(c - '1')
			if idx < len(caps) {
				b.WriteString(caps[idx].ToDisplayString())
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
