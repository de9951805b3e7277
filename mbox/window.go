package mbox

import (
	"log/slog"
	"sync/atomic"

	"github.com/bmcgo/mbox/regmap"
)

// window gives byte granular access to the register bank.  Every call
// is an independent bus transaction, there is no caching or batching.
//
// A failed transaction is a soft fault: it is logged, counted and for
// reads substituted with 0xff.  It never aborts the enclosing transfer.
type window struct {
	rm   regmap.Interface
	base uint32
	log  *slog.Logger

	faults atomic.Uint64
}

func (w *window) inb(reg uint32) byte {
	v, err := w.rm.Read(w.base + reg)
	if err != nil {
		w.faults.Add(1)
		w.log.Error("mbox: register read failed", "reg", w.base+reg, "err", err)
		return 0xff
	}
	return byte(v)
}

func (w *window) outb(b byte, reg uint32) {
	if err := w.rm.Write(w.base+reg, uint32(b)); err != nil {
		w.faults.Add(1)
		w.log.Error("mbox: register write failed", "reg", w.base+reg, "val", b, "err", err)
	}
}
