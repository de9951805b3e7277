package regmap

import "sync"

// WriteHook computes the new register value from the current value and
// the value written.  Used by Mem to emulate registers with side
// effects, e.g. write-one-to-clear bits.
type WriteHook func(old, v uint32) uint32

// Mem is an in-memory register file implementing Interface.  Reads and
// writes can be made to fail per offset to exercise a caller's bus
// fault handling.  Peek and Poke bypass hooks and injected faults,
// which allows emulating the other bus master of a shared register
// bank.
//
// Mem is safe for concurrent use.
type Mem struct {
	mu       sync.Mutex
	regs     map[uint32]uint32
	hooks    map[uint32]WriteHook
	readErr  map[uint32]error
	writeErr map[uint32]error
}

func NewMem() *Mem {
	return &Mem{
		regs:     make(map[uint32]uint32),
		hooks:    make(map[uint32]WriteHook),
		readErr:  make(map[uint32]error),
		writeErr: make(map[uint32]error),
	}
}

func (m *Mem) Read(off uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.readErr[off]; err != nil {
		return 0, err
	}
	return m.regs[off], nil
}

func (m *Mem) Write(off uint32, v uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErr[off]; err != nil {
		return err
	}
	if hook := m.hooks[off]; hook != nil {
		v = hook(m.regs[off], v)
	}
	m.regs[off] = v
	return nil
}

// Peek returns the raw register value, ignoring injected read faults.
func (m *Mem) Peek(off uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.regs[off]
}

// Poke stores v directly, bypassing write hooks and injected faults.
func (m *Mem) Poke(off uint32, v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.regs[off] = v
}

// Update atomically replaces the register value with f applied to it,
// bypassing write hooks and injected faults.  Use it when another bus
// master must modify single bits without losing concurrent writes.
func (m *Mem) Update(off uint32, f func(uint32) uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.regs[off] = f(m.regs[off])
}

// SetWriteHook installs hook for writes to off.  A nil hook removes it.
func (m *Mem) SetWriteHook(off uint32, hook WriteHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hook == nil {
		delete(m.hooks, off)
		return
	}
	m.hooks[off] = hook
}

// FailRead makes reads of off return err.  A nil err restores normal
// operation.
func (m *Mem) FailRead(off uint32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.readErr, off)
		return
	}
	m.readErr[off] = err
}

// FailWrite makes writes of off return err.  A nil err restores normal
// operation.
func (m *Mem) FailWrite(off uint32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.writeErr, off)
		return
	}
	m.writeErr[off] = err
}
