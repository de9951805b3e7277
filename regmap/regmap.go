// Package regmap abstracts access to a bank of memory mapped registers
// behind a bus that may fail.  It is the transport consumed by the mbox
// package; the platform binding that provides the real syscon window is
// expected to implement Interface.
package regmap

// Interface is a synchronous register bus.  Each call is a single bus
// transaction.  Implementations must signal transport failures through
// the returned error instead of panicking, callers decide how to
// degrade.
type Interface interface {
	Read(off uint32) (uint32, error)
	Write(off uint32, v uint32) error
}
