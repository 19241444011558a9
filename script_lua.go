// script_lua.go - Lua scripting host

/*
 ▄▄▄▄▄ ▄▄▄▄▄ ▄▄  ▄ ▄   ▄   ▄▄▄▄   ▄▄▄   ▄▄▄ ▄  ▄ ▄▄▄▄▄ ▄▄▄▄▄
   ▄▀  █▄▄   █ ▀▄█ █   █   █▄▄▀  █   █ █    █▄▀  █▄▄     █
 ▄█▄▄▄ █▄▄▄▄ █   █ ▀▄▄▄▀   █      ▀▄▄▄▀  ▀▄▄ █ ▀▄ █▄▄▄▄   █

Zenu Pocket virtual console
https://github.com/StrayKOficial/zenu-virtualconsole

License: GPLv3 or later
*/

/*
A script may define two globals:

    on_frame(frame)                 called after every presented frame
    on_bridge(value, input, frame)  called when the guest raises the bridge byte

and sees the machine through:

    peek(addr)  poke(addr, byte)  peek32(addr)  poke32(addr, word)
    reg(n)      pc()              input()       frame()

Script errors are reported on stderr with a "Script:" prefix. A hook that
raises an error is not called again.
*/

package main

import (
	"fmt"
	"io"
	"os"

	lua "github.com/yuin/gopher-lua"
)

const (
	SCRIPT_HOOK_FRAME  = "on_frame"
	SCRIPT_HOOK_BRIDGE = "on_bridge"
)

type ScriptHost struct {
	L    *lua.LState
	bus  *MachineBus
	regs RegisterIO
	cpu  *CPUZR32

	frame    uint64
	disabled map[string]bool

	// Stderr receives script errors
	Stderr io.Writer
}

func NewScriptHost(m *Machine) *ScriptHost {
	h := &ScriptHost{
		L:        lua.NewState(),
		bus:      m.Bus,
		regs:     m.Bus,
		cpu:      m.CPU,
		disabled: make(map[string]bool),
		Stderr:   os.Stderr,
	}
	h.register()
	return h
}

// Attach installs the host as the machine's bridge handler and frame hook.
func (h *ScriptHost) Attach(m *Machine) {
	m.SetBridgeHandler(h)
	m.AddFrameHook(h)
}

func (h *ScriptHost) LoadFile(path string) error {
	if err := h.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

func (h *ScriptHost) LoadString(source string) error {
	if err := h.L.DoString(source); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

func (h *ScriptHost) Close() {
	h.L.Close()
}

func (h *ScriptHost) register() {
	bindings := map[string]lua.LGFunction{
		"peek": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.bus.Read8(checkAddr(L, 1))))
			return 1
		},
		"poke": func(L *lua.LState) int {
			h.bus.Write8(checkAddr(L, 1), uint8(L.CheckInt64(2)))
			return 0
		},
		"peek32": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.regs.ReadRegister(checkAddr(L, 1))))
			return 1
		},
		"poke32": func(L *lua.LState) int {
			h.regs.WriteRegister(checkAddr(L, 1), uint32(L.CheckInt64(2)))
			return 0
		},
		"reg": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.cpu.Reg(L.CheckInt(1))))
			return 1
		},
		"pc": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.cpu.PC))
			return 1
		},
		"input": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.bus.Input()))
			return 1
		},
		"frame": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.frame))
			return 1
		},
	}
	for name, fn := range bindings {
		h.L.SetGlobal(name, h.L.NewFunction(fn))
	}
}

// checkAddr reads a bus address argument. Negative numbers wrap the way a
// guest register would.
func checkAddr(L *lua.LState, n int) uint32 {
	return uint32(L.CheckInt64(n))
}

// call runs a global hook if it is defined and still enabled.
func (h *ScriptHost) call(name string, args ...lua.LValue) {
	if h.disabled[name] {
		return
	}
	fn, ok := h.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return
	}
	err := h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	if err != nil {
		msg := err.Error()
		if apiErr, ok := err.(*lua.ApiError); ok {
			msg = apiErr.Object.String()
		}
		fmt.Fprintf(h.Stderr, "Script: %s: %s (hook disabled)\n", name, msg)
		h.disabled[name] = true
	}
}

func (h *ScriptHost) HandleBridge(bus *MachineBus, value uint8, input uint8, frame uint64) {
	h.frame = frame
	h.call(SCRIPT_HOOK_BRIDGE, lua.LNumber(value), lua.LNumber(input), lua.LNumber(frame))
}

func (h *ScriptHost) HandleFrame(bus *MachineBus, frame uint64) error {
	h.frame = frame
	h.call(SCRIPT_HOOK_FRAME, lua.LNumber(frame))
	return nil
}
