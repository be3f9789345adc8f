// Package script hosts an optional Lua hook that overrides the built-in
// presence→light mapping for selected statuses.
//
// The script may define:
//
//	function map(status)
//	    if status == "lunch" then return "away" end
//	end
//
// Returning "busy", "away", "available", "off" or "blink" overrides the
// mapping for that status; returning nothing (or anything unrecognized)
// falls back to the built-in table.
package script

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/presenced/internal/presence"
)

// Mapper wraps a Lua state holding the user's map function. The Lua VM is
// not thread safe, so calls are serialized with a mutex.
type Mapper struct {
	mu sync.Mutex
	L  *lua.LState
	fn lua.LValue
}

// Load reads and executes the script, then looks up its map function.
func Load(path string) (*Mapper, error) {
	L := lua.NewState()
	registerLog(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("load mapping script: %w", err)
	}

	fn := L.GetGlobal("map")
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("mapping script %s does not define a map function", path)
	}

	log.Info().Str("script", path).Msg("Mapping override script loaded")
	return &Mapper{L: L, fn: fn}, nil
}

// Map calls the script for one status. The second return is false when the
// script declines (returns nil), errors, or returns an unknown target name;
// the caller then uses the built-in table.
func (m *Mapper) Map(s presence.Status) (presence.Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.L.CallByParam(lua.P{
		Fn:      m.fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(string(s)))
	if err != nil {
		log.Warn().Err(err).Str("status", string(s)).Msg("Mapping script failed, using built-in table")
		return 0, false
	}

	ret := m.L.Get(-1)
	m.L.Pop(1)

	str, ok := ret.(lua.LString)
	if !ok {
		return 0, false
	}

	switch strings.ToLower(string(str)) {
	case "available":
		return presence.TargetAvailable, true
	case "away":
		return presence.TargetAway, true
	case "busy":
		return presence.TargetBusy, true
	case "off":
		return presence.TargetOff, true
	case "blink":
		return presence.TargetBlink, true
	default:
		log.Warn().Str("status", string(s)).Str("target", string(str)).Msg("Mapping script returned unknown target, using built-in table")
		return 0, false
	}
}

// Close releases the Lua state.
func (m *Mapper) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.L.Close()
}

// registerLog exposes log.info/log.warn to scripts.
func registerLog(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "info", L.NewFunction(func(L *lua.LState) int {
		log.Info().Str("source", "script").Msg(L.CheckString(1))
		return 0
	}))
	L.SetField(mod, "warn", L.NewFunction(func(L *lua.LState) int {
		log.Warn().Str("source", "script").Msg(L.CheckString(1))
		return 0
	}))
	L.SetGlobal("log", mod)
}
