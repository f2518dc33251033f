package stdlib

import (
	"math"
	"math/rand"

	"github.com/AarenWang/haifa-go/registry"
	"github.com/AarenWang/haifa-go/values"
)

// openMathLib installs the "math" library, grounded on the teacher's
// runtime/math.go GetMathFunctions list, retargeted to Lua's number
// model (no separate int/float "ToInt()/ToFloat() always succeeds"
// PHP-isms; uses Value.ToFloat/ToInt coercion instead).
func openMathLib(globals *values.Table) {
	lib := registry.RegisterLibrary(globals, "math")
	lib.Set(values.NewString("pi"), values.NewFloat(math.Pi))
	lib.Set(values.NewString("huge"), values.NewFloat(math.Inf(1)))
	lib.Set(values.NewString("maxinteger"), values.NewInt(math.MaxInt64))
	lib.Set(values.NewString("mininteger"), values.NewInt(math.MinInt64))

	registerIn(lib, "abs", mathUnary("abs", math.Abs, func(i int64) int64 {
		if i < 0 {
			return -i
		}
		return i
	}))
	registerIn(lib, "ceil", mathToInt("ceil", math.Ceil))
	registerIn(lib, "floor", mathToInt("floor", math.Floor))
	registerIn(lib, "sqrt", mathFloatUnary("sqrt", math.Sqrt))
	registerIn(lib, "sin", mathFloatUnary("sin", math.Sin))
	registerIn(lib, "cos", mathFloatUnary("cos", math.Cos))
	registerIn(lib, "tan", mathFloatUnary("tan", math.Tan))
	registerIn(lib, "asin", mathFloatUnary("asin", math.Asin))
	registerIn(lib, "acos", mathFloatUnary("acos", math.Acos))
	registerIn(lib, "atan", mathAtan)
	registerIn(lib, "exp", mathFloatUnary("exp", math.Exp))
	registerIn(lib, "log", mathLog)
	registerIn(lib, "pow", mathPow)
	registerIn(lib, "deg", mathFloatUnary("deg", func(r float64) float64 { return r * 180 / math.Pi }))
	registerIn(lib, "rad", mathFloatUnary("rad", func(d float64) float64 { return d * math.Pi / 180 }))
	registerIn(lib, "max", mathMax)
	registerIn(lib, "min", mathMin)
	registerIn(lib, "fmod", mathFmod)
	registerIn(lib, "modf", mathModf)
	registerIn(lib, "tointeger", mathToInteger)
	registerIn(lib, "type", mathType)
	registerIn(lib, "random", mathRandom)
	registerIn(lib, "randomseed", mathRandomSeed)
}

func mathUnary(name string, ffn func(float64) float64, ifn func(int64) int64) func([]*values.Value, values.VM) ([]*values.Value, error) {
	return func(args []*values.Value, vm values.VM) ([]*values.Value, error) {
		v := arg(args, 0)
		if v.Type == values.TypeInt {
			return []*values.Value{values.NewInt(ifn(v.Data.(int64)))}, nil
		}
		f, ok := v.ToFloat()
		if !ok {
			return nil, argError(1, name, "number expected")
		}
		return []*values.Value{values.NewFloat(ffn(f))}, nil
	}
}

func mathFloatUnary(name string, fn func(float64) float64) func([]*values.Value, values.VM) ([]*values.Value, error) {
	return func(args []*values.Value, vm values.VM) ([]*values.Value, error) {
		f, ok := arg(args, 0).ToFloat()
		if !ok {
			return nil, argError(1, name, "number expected")
		}
		return []*values.Value{values.NewFloat(fn(f))}, nil
	}
}

// mathToInt backs ceil/floor: returns an integer when the result is
// representable, matching Lua 5.3's math.floor/math.ceil contract.
func mathToInt(name string, fn func(float64) float64) func([]*values.Value, values.VM) ([]*values.Value, error) {
	return func(args []*values.Value, vm values.VM) ([]*values.Value, error) {
		v := arg(args, 0)
		if v.Type == values.TypeInt {
			return []*values.Value{v}, nil
		}
		f, ok := v.ToFloat()
		if !ok {
			return nil, argError(1, name, "number expected")
		}
		r := fn(f)
		if r >= -9223372036854775808 && r < 9223372036854775808 {
			return []*values.Value{values.NewInt(int64(r))}, nil
		}
		return []*values.Value{values.NewFloat(r)}, nil
	}
}

func mathLog(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	x, ok := arg(args, 0).ToFloat()
	if !ok {
		return nil, argError(1, "log", "number expected")
	}
	if base := arg(args, 1); !base.IsNil() {
		b, ok := base.ToFloat()
		if !ok {
			return nil, argError(2, "log", "number expected")
		}
		return []*values.Value{values.NewFloat(math.Log(x) / math.Log(b))}, nil
	}
	return []*values.Value{values.NewFloat(math.Log(x))}, nil
}

// mathAtan implements math.atan(y [, x]): two-argument form is atan2,
// matching Lua 5.3's signature.
func mathAtan(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	y, ok := arg(args, 0).ToFloat()
	if !ok {
		return nil, argError(1, "atan", "number expected")
	}
	if x := arg(args, 1); !x.IsNil() {
		xf, ok := x.ToFloat()
		if !ok {
			return nil, argError(2, "atan", "number expected")
		}
		return []*values.Value{values.NewFloat(math.Atan2(y, xf))}, nil
	}
	return []*values.Value{values.NewFloat(math.Atan(y))}, nil
}

func mathPow(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	x, xok := arg(args, 0).ToFloat()
	y, yok := arg(args, 1).ToFloat()
	if !xok || !yok {
		return nil, argError(1, "pow", "number expected")
	}
	return []*values.Value{values.NewFloat(math.Pow(x, y))}, nil
}

func mathMax(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	if len(args) == 0 {
		return nil, argError(1, "max", "value expected")
	}
	best := args[0]
	for _, v := range args[1:] {
		lt, err := compareNumeric(best, v)
		if err != nil {
			return nil, err
		}
		if lt {
			best = v
		}
	}
	return []*values.Value{best}, nil
}

func mathMin(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	if len(args) == 0 {
		return nil, argError(1, "min", "value expected")
	}
	best := args[0]
	for _, v := range args[1:] {
		lt, err := compareNumeric(v, best)
		if err != nil {
			return nil, err
		}
		if lt {
			best = v
		}
	}
	return []*values.Value{best}, nil
}

func compareNumeric(a, b *values.Value) (bool, error) {
	af, aok := a.ToFloat()
	bf, bok := b.ToFloat()
	if !aok || !bok {
		return false, argError(1, "max/min", "number expected")
	}
	return af < bf, nil
}

func mathFmod(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	a, aok := arg(args, 0).ToFloat()
	b, bok := arg(args, 1).ToFloat()
	if !aok || !bok {
		return nil, argError(1, "fmod", "number expected")
	}
	return []*values.Value{values.NewFloat(math.Mod(a, b))}, nil
}

func mathModf(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	f, ok := arg(args, 0).ToFloat()
	if !ok {
		return nil, argError(1, "modf", "number expected")
	}
	ip, fp := math.Modf(f)
	return []*values.Value{values.NewFloat(ip), values.NewFloat(fp)}, nil
}

func mathToInteger(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	v := arg(args, 0)
	if i, ok := v.ToInt(); ok && v.IsNumber() {
		return []*values.Value{values.NewInt(i)}, nil
	}
	return []*values.Value{values.NewNil()}, nil
}

func mathType(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	switch arg(args, 0).Type {
	case values.TypeInt:
		return []*values.Value{values.NewString("integer")}, nil
	case values.TypeFloat:
		return []*values.Value{values.NewString("float")}, nil
	}
	return []*values.Value{values.NewNil()}, nil
}

func mathRandom(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	switch len(args) {
	case 0:
		return []*values.Value{values.NewFloat(rand.Float64())}, nil
	case 1:
		m, _ := args[0].ToInt()
		return []*values.Value{values.NewInt(1 + rand.Int63n(m))}, nil
	default:
		lo, _ := args[0].ToInt()
		hi, _ := args[1].ToInt()
		return []*values.Value{values.NewInt(lo + rand.Int63n(hi-lo+1))}, nil
	}
}

func mathRandomSeed(args []*values.Value, vm values.VM) ([]*values.Value, error) {
	if seed, ok := arg(args, 0).ToInt(); ok {
		rand.Seed(seed)
	}
	return nil, nil
}
