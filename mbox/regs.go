package mbox

import "github.com/bmcgo/mbox/debug"

// NumRegs is the size of the data window in bytes.
const NumRegs = 16

// Register offsets relative to the mailbox base.  The registers are one
// byte wide but addressed four bytes apart; the other three bytes are
// reserved.
const (
	RegData0      uint32 = 0x00
	RegStatus0    uint32 = 0x40 // write-one-to-clear, unused after init
	RegStatus1    uint32 = 0x44 // write-one-to-clear, unused after init
	RegBMCCtrl    uint32 = 0x48
	RegHostCtrl   uint32 = 0x4c // owned by the host side
	RegInterrupt0 uint32 = 0x50 // per-register interrupt enable, regs 0-7
	RegInterrupt1 uint32 = 0x54 // per-register interrupt enable, regs 8-15
)

// DataReg returns the offset of data register i.
func DataReg(i int) uint32 {
	debug.Assert(i >= 0 && i < NumRegs, "data register out of range")
	return RegData0 + uint32(i)*4
}

// Control holds the flags of the BMC side control register.
type Control uint8

const (
	// Send signals the host that an outbound message is ready.  Fire
	// and forget, the host clears it.
	Send Control = 1 << 0
	// Mask suppresses interrupt generation until cleared.
	Mask Control = 1 << 1
	// Recv is set by the host when inbound data in the window is
	// valid.  Write-one-to-clear: writing the Recv bit clears it and
	// unmasks the interrupt in the same transaction.  Clearing and
	// unmasking must never be split into two writes, a new edge
	// arriving between them would be lost.
	Recv Control = 1 << 7
)
