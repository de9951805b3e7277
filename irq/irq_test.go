package irq_test

import (
	"errors"
	"testing"

	"github.com/bmcgo/mbox/irq"
)

func TestRegisterShared(t *testing.T) {
	claimed := func() irq.Outcome { return irq.Claimed }

	tests := map[string]struct {
		first, second bool
		err           error
	}{
		"SharedShared":       {true, true, nil},
		"SharedExclusive":    {true, false, irq.ErrShared},
		"ExclusiveShared":    {false, true, irq.ErrShared},
		"ExclusiveExclusive": {false, false, irq.ErrShared},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			line := &irq.Line{}
			if err := line.Register(claimed, tc.first); err != nil {
				t.Fatal(err)
			}
			if err := line.Register(claimed, tc.second); !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestRaiseStopsAtClaim(t *testing.T) {
	line := &irq.Line{}
	var calls []int

	for i := range 3 {
		err := line.Register(func() irq.Outcome {
			calls = append(calls, i)
			if i == 1 {
				return irq.Claimed
			}
			return irq.NotMine
		}, true)
		if err != nil {
			t.Fatal(err)
		}
	}

	if out := line.Raise(); out != irq.Claimed {
		t.Fatalf("expected Claimed, got %v", out)
	}
	if len(calls) != 2 || calls[0] != 0 || calls[1] != 1 {
		t.Fatalf("dispatch order %v, expected [0 1]", calls)
	}
	if line.Spurious() != 0 {
		t.Fatal("claimed edge counted as spurious")
	}
}

func TestRaiseSpurious(t *testing.T) {
	line := &irq.Line{}

	if out := line.Raise(); out != irq.NotMine {
		t.Fatalf("expected NotMine, got %v", out)
	}
	if err := line.Register(func() irq.Outcome { return irq.NotMine }, true); err != nil {
		t.Fatal(err)
	}
	line.Raise()
	if line.Spurious() != 2 {
		t.Fatalf("spurious = %d, expected 2", line.Spurious())
	}
}
