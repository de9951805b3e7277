package regmap_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/bmcgo/mbox/regmap"
)

func TestMemReadWrite(t *testing.T) {
	m := regmap.NewMem()

	if v, err := m.Read(0x48); err != nil || v != 0 {
		t.Fatalf("fresh register: v=%#x err=%v", v, err)
	}
	if err := m.Write(0x48, 0x82); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Read(0x48); v != 0x82 {
		t.Fatalf("read back %#x", v)
	}
}

func TestMemFaults(t *testing.T) {
	m := regmap.NewMem()
	bad := errors.New("bus timeout")

	m.Poke(0x04, 0x7f)
	m.FailRead(0x04, bad)
	if _, err := m.Read(0x04); !errors.Is(err, bad) {
		t.Fatalf("expected injected fault, got %v", err)
	}
	if v := m.Peek(0x04); v != 0x7f {
		t.Fatalf("peek affected by injected fault: %#x", v)
	}

	m.FailWrite(0x04, bad)
	if err := m.Write(0x04, 1); !errors.Is(err, bad) {
		t.Fatalf("expected injected fault, got %v", err)
	}

	m.FailRead(0x04, nil)
	m.FailWrite(0x04, nil)
	if _, err := m.Read(0x04); err != nil {
		t.Fatal("fault not cleared:", err)
	}
}

func TestMemWriteHook(t *testing.T) {
	m := regmap.NewMem()

	// Write-one-to-clear register.
	m.SetWriteHook(0x40, func(old, v uint32) uint32 { return old &^ v })
	m.Poke(0x40, 0b1010)

	if err := m.Write(0x40, 0b0010); err != nil {
		t.Fatal(err)
	}
	if v := m.Peek(0x40); v != 0b1000 {
		t.Fatalf("w1c result %#b", v)
	}

	// Poke bypasses the hook.
	m.Poke(0x40, 0xff)
	if v := m.Peek(0x40); v != 0xff {
		t.Fatalf("poke went through hook: %#x", v)
	}

	m.SetWriteHook(0x40, nil)
	if err := m.Write(0x40, 0x0f); err != nil {
		t.Fatal(err)
	}
	if v := m.Peek(0x40); v != 0x0f {
		t.Fatalf("hook not removed: %#x", v)
	}
}

func TestMemUpdate(t *testing.T) {
	m := regmap.NewMem()

	// Update bypasses hooks and faults, like Poke.
	m.SetWriteHook(0x48, func(old, v uint32) uint32 { return old &^ v })
	m.FailWrite(0x48, errors.New("bus timeout"))
	m.Update(0x48, func(v uint32) uint32 { return v | 0x80 })
	if v := m.Peek(0x48); v != 0x80 {
		t.Fatalf("update went through hook or fault: %#x", v)
	}

	// Concurrent single-bit updates must not lose each other.
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update(0x100, func(v uint32) uint32 { return v | 1<<i })
		}()
	}
	wg.Wait()
	if v := m.Peek(0x100); v != 0xffff_ffff {
		t.Fatalf("lost update: %#x", v)
	}
}
