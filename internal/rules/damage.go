package rules

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// DamageFormula computes melee/ranged damage. The built-in formula matches
// spec.md §4.3 exactly: max(1, power - defense/2), doubled on crit.
type DamageFormula interface {
	Damage(power, defense uint16, crit bool) uint16
}

type builtinFormula struct{}

func (builtinFormula) Damage(power, defense uint16, crit bool) uint16 {
	d := int32(power) - int32(defense)/2
	if d < 1 {
		d = 1
	}
	if crit {
		d *= 2
	}
	if d > 0xFFFF {
		d = 0xFFFF
	}
	return uint16(d)
}

// DefaultDamageFormula is the spec-normative formula, used whenever a match
// config carries no Lua override.
var DefaultDamageFormula DamageFormula = builtinFormula{}

// LuaFormula evaluates a damage(power, defense, crit) -> int function from
// an embedded Lua script, letting operators tune combat math per match
// without a redeploy. Adapted from the teacher's internal/scripting engine
// (gopher-lua powered formula evaluation) trimmed to this single pure
// call — no shared state, no hot-reload watcher, no skill table lookups.
//
// A LuaFormula is single-threaded and must only be called from the
// MatchRuntime worker that owns it (spec.md §5); gopher-lua's *lua.LState
// is not safe for concurrent use.
type LuaFormula struct {
	mu sync.Mutex
	L  *lua.LState
	fn *lua.LFunction
}

// NewLuaFormula compiles the script and resolves its top-level `damage`
// function. The script must define:
//
//	function damage(power, defense, crit) ... return dmg end
func NewLuaFormula(script string) (*LuaFormula, error) {
	L := lua.NewState()
	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("rules: compile damage script: %w", err)
	}
	fn, ok := L.GetGlobal("damage").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("rules: damage script has no top-level damage() function")
	}
	return &LuaFormula{L: L, fn: fn}, nil
}

func (f *LuaFormula) Damage(power, defense uint16, crit bool) uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()

	L := f.L
	critVal := lua.LFalse
	if crit {
		critVal = lua.LTrue
	}
	if err := L.CallByParam(lua.P{
		Fn:      f.fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(power), lua.LNumber(defense), critVal); err != nil {
		return DefaultDamageFormula.Damage(power, defense, crit)
	}
	ret := L.Get(-1)
	L.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok || n < 1 {
		return 1
	}
	if n > 0xFFFF {
		return 0xFFFF
	}
	return uint16(n)
}

// Close releases the Lua state.
func (f *LuaFormula) Close() {
	f.L.Close()
}
