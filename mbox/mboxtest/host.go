// Package mboxtest emulates the host side of the mailbox on an
// in-memory register file.  It drives the same window the channel under
// test reads and writes, sets RECV, raises interrupt edges and consumes
// SEND, which makes the full handshake testable without hardware.
package mboxtest

import (
	"github.com/bmcgo/mbox/irq"
	"github.com/bmcgo/mbox/mbox"
	"github.com/bmcgo/mbox/regmap"
)

// Host is the other bus master of a mailbox register bank.  Its
// register accesses bypass the channel's transfer lock, like real
// host traffic would.  Use a single Host goroutine per direction.
type Host struct {
	rm   *regmap.Mem
	base uint32
	line *irq.Line
}

// NewHost attaches a host peer to rm at base and installs the hardware
// semantics of the shared registers: the BMC control register couples
// write-one-to-clear RECV with unmasking, the status registers are
// write-one-to-clear.
func NewHost(rm *regmap.Mem, base uint32, line *irq.Line) *Host {
	h := &Host{rm: rm, base: base, line: line}
	rm.SetWriteHook(base+mbox.RegBMCCtrl, ctrlWrite)
	rm.SetWriteHook(base+mbox.RegStatus0, w1c)
	rm.SetWriteHook(base+mbox.RegStatus1, w1c)
	return h
}

// ctrlWrite emulates a BMC side write of the control register.  Writing
// the RECV bit clears RECV and MASK in the same transaction, that is
// the atomic acknowledge.  MASK and SEND latch when written.
func ctrlWrite(old, v uint32) uint32 {
	next := old
	if v&uint32(mbox.Recv) != 0 {
		next &^= uint32(mbox.Recv | mbox.Mask)
	}
	if v&uint32(mbox.Mask) != 0 {
		next |= uint32(mbox.Mask)
	}
	if v&uint32(mbox.Send) != 0 {
		next |= uint32(mbox.Send)
	}
	return next
}

func w1c(old, v uint32) uint32 { return old &^ v }

// Control returns the current BMC control register value.
func (h *Host) Control() mbox.Control {
	return mbox.Control(h.rm.Peek(h.base + mbox.RegBMCCtrl))
}

// Peek returns data window byte i as seen on the bus.
func (h *Host) Peek(i int) byte {
	return byte(h.rm.Peek(h.base + mbox.DataReg(i)))
}

// Send places payload into the window at off, sets RECV and, unless the
// BMC has masked the interrupt, raises an edge on the line.
func (h *Host) Send(payload []byte, off int) {
	for i, b := range payload {
		h.rm.Poke(h.base+mbox.DataReg(off+i), uint32(b))
	}

	// Single read-modify-write so a concurrent BMC control write is
	// not lost.
	var masked bool
	h.rm.Update(h.base+mbox.RegBMCCtrl, func(ctrl uint32) uint32 {
		masked = mbox.Control(ctrl)&mbox.Mask != 0
		return ctrl | uint32(mbox.Recv)
	})

	if !masked && h.line != nil {
		h.line.Raise()
	}
}

// TakeSent consumes an outbound message: if SEND is set it is cleared
// and n window bytes starting at off are returned.
func (h *Host) TakeSent(off, n int) ([]byte, bool) {
	var sent bool
	h.rm.Update(h.base+mbox.RegBMCCtrl, func(ctrl uint32) uint32 {
		sent = mbox.Control(ctrl)&mbox.Send != 0
		return ctrl &^ uint32(mbox.Send)
	})
	if !sent {
		return nil, false
	}

	p := make([]byte, n)
	for i := range p {
		p[i] = h.Peek(off + i)
	}
	return p, true
}
