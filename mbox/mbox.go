// Package mbox implements the BMC side of a byte oriented mailbox
// channel shared with the host processor.  Both sides exchange short
// messages through a 16 byte register window and signal each other with
// the SEND and RECV bits of the control register.  An inbound message
// raises an edge on the mailbox interrupt line; reading the message
// acknowledges it with a single write that clears RECV and unmasks the
// interrupt again.
//
// The platform binding supplies the register bus and the base offset
// once at construction and owns both for the lifetime of the channel.
package mbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bmcgo/mbox/irq"
	"github.com/bmcgo/mbox/regmap"
)

var (
	// ErrBounds reports an offset/length pair outside the 16 byte
	// window.  Rejected before any register access.
	ErrBounds = errors.New("mbox: transfer outside data window")
	// ErrBusy reports a second Open without an intervening Close.
	ErrBusy = errors.New("mbox: already open")
	// ErrWouldBlock reports a non-blocking read with no pending data.
	ErrWouldBlock = errors.New("mbox: no data pending")
	// ErrInterrupted reports a blocking read cancelled by its context.
	ErrInterrupted = errors.New("mbox: wait interrupted")
	// ErrFault reports a transfer stopped short because the caller's
	// source or sink failed.  The byte count returned alongside is
	// valid.
	ErrFault = errors.New("mbox: transfer fault")
)

// Mbox is one mailbox channel.  At most one session may have it open at
// a time; all window transfers of that session are fully serialized, a
// concurrent Read and Write never interleave at the register level.
//
// Construct with New, one Mbox per physical mailbox.
type Mbox struct {
	win window

	mu   sync.Mutex  // serializes all window transfers
	open atomic.Bool // single session gate

	wakeMu sync.Mutex
	wake   chan struct{} // closed on wakeup, then replaced
}

// New initializes the mailbox on rm at base: per-register interrupts
// are disabled, stale status bits are cleared and a pending RECV is
// acknowledged, so all signaling flows through the control bit edge.
//
// rm is borrowed and must outlive the channel.  A nil log discards the
// soft fault messages.
func New(rm regmap.Interface, base uint32, log *slog.Logger) *Mbox {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	m := &Mbox{
		win:  window{rm: rm, base: base, log: log},
		wake: make(chan struct{}),
	}

	m.win.outb(0x00, RegInterrupt0)
	m.win.outb(0x00, RegInterrupt1)

	// Status registers are write one to clear.  Clear them.
	m.win.outb(0xff, RegStatus0)
	m.win.outb(0xff, RegStatus1)

	m.ack()
	return m
}

// ack clears RECV and unmasks the interrupt.  RECV is write one to
// clear, so this is a single transaction.
func (m *Mbox) ack() {
	m.win.outb(byte(Recv), RegBMCCtrl)
}

// Open claims the channel for a session.  It fails with ErrBusy while
// another session holds it.  A stale RECV left over from before is
// acknowledged so the session starts clean and armed.
func (m *Mbox) Open() error {
	if !m.open.CompareAndSwap(false, true) {
		return ErrBusy
	}
	m.ack()
	return nil
}

// Close releases the session.  It does not touch register state and may
// be called more than once.
func (m *Mbox) Close() {
	m.open.Store(false)
}

// Readable reports whether an inbound message is pending, without
// consuming it.
func (m *Mbox) Readable() bool {
	return Control(m.win.inb(RegBMCCtrl))&Recv != 0
}

// Ready returns a channel that is closed on the next wake event.  It
// does not consume the event; use it to poll for readability without
// racing a concurrent reader.
func (m *Mbox) Ready() <-chan struct{} {
	m.wakeMu.Lock()
	defer m.wakeMu.Unlock()
	return m.wake
}

func (m *Mbox) wakeup() {
	m.wakeMu.Lock()
	close(m.wake)
	m.wake = make(chan struct{})
	m.wakeMu.Unlock()
}

// wait blocks until RECV is observed set.  Wakeups may be spurious, the
// predicate is re-checked on every one.
func (m *Mbox) wait(ctx context.Context) error {
	for {
		// Grab the wake channel before checking the predicate so a
		// wakeup between the two can't be lost.
		ready := m.Ready()
		if m.Readable() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		case <-ready:
		}
	}
}

// Read copies n bytes from the data window starting at off into dst and
// returns the number of bytes copied.  On success the message is
// acknowledged: RECV is cleared and the interrupt unmasked in a single
// write.
//
// With block set, Read suspends until the interrupt handler signals
// pending data or ctx is cancelled (ErrInterrupted).  Without it, Read
// fails immediately with ErrWouldBlock if RECV is clear.
//
// If dst fails to accept a byte the transfer stops with ErrFault and
// the partial count; the message stays unacknowledged.
func (m *Mbox) Read(ctx context.Context, dst io.ByteWriter, off, n int, block bool) (int, error) {
	if off < 0 || n < 0 || off > NumRegs || n > NumRegs-off {
		return 0, ErrBounds
	}

	if !block {
		if !m.Readable() {
			return 0, ErrWouldBlock
		}
	} else if err := m.wait(ctx); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < n; i++ {
		b := m.win.inb(DataReg(off + i))
		if err := dst.WriteByte(b); err != nil {
			return i, fmt.Errorf("%w: %w", ErrFault, err)
		}
	}

	m.ack()
	return n, nil
}

// Write copies n bytes from src into the data window starting at off,
// raises SEND to signal the host and returns the number of bytes
// written.  SEND is fire and forget, the host clears it.  Write never
// suspends.
//
// If src fails to yield a byte the transfer stops with ErrFault and the
// partial count; SEND is not raised.
func (m *Mbox) Write(src io.ByteReader, off, n int) (int, error) {
	if off < 0 || n < 0 || off > NumRegs || n > NumRegs-off {
		return 0, ErrBounds
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < n; i++ {
		b, err := src.ReadByte()
		if err != nil {
			return i, fmt.Errorf("%w: %w", ErrFault, err)
		}
		m.win.outb(b, DataReg(off+i))
	}

	m.win.outb(byte(Send), RegBMCCtrl)
	return n, nil
}

// ReadBytes is Read into a byte slice, transferring len(p) bytes.
func (m *Mbox) ReadBytes(ctx context.Context, p []byte, off int, block bool) (int, error) {
	w := sliceWriter{p: p}
	n, err := m.Read(ctx, &w, off, len(p), block)
	return n, err
}

// WriteBytes is Write from a byte slice, transferring len(p) bytes.
func (m *Mbox) WriteBytes(p []byte, off int) (int, error) {
	return m.Write(bytes.NewReader(p), off, len(p))
}

// ServeIRQ services one edge of the (possibly shared) mailbox interrupt
// line.  If RECV is clear the edge belongs to another device and
// NotMine lets the line route it there.  Otherwise further interrupts
// are masked and all waiters are woken.  RECV is left set so they can
// still observe the pending data; the acknowledge on read clears it and
// unmasks again.
//
// ServeIRQ runs in the delivery context of the line: it never suspends,
// never takes the transfer lock and performs at most one register write
// and one wakeup.
func (m *Mbox) ServeIRQ() irq.Outcome {
	if Control(m.win.inb(RegBMCCtrl))&Recv == 0 {
		return irq.NotMine
	}

	m.win.outb(byte(Mask), RegBMCCtrl)
	m.wakeup()
	return irq.Claimed
}

// BusFaults returns the number of failed bus transactions so far.  Bus
// faults are soft: reads yield 0xff, nothing is retried or aborted.
// The count is purely diagnostic.
func (m *Mbox) BusFaults() uint64 { return m.win.faults.Load() }

type sliceWriter struct {
	p []byte
	n int
}

func (w *sliceWriter) WriteByte(c byte) error {
	if w.n == len(w.p) {
		return io.ErrShortBuffer
	}
	w.p[w.n] = c
	w.n++
	return nil
}
