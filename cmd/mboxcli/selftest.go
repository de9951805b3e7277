package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/sigurn/crc8"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/bmcgo/mbox/irq"
	"github.com/bmcgo/mbox/mbox"
	"github.com/bmcgo/mbox/mbox/mboxtest"
	"github.com/bmcgo/mbox/regmap"
)

var crcTable = crc8.MakeTable(crc8.CRC8)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Round-trip messages in both directions",
	RunE:  runSelftest,
}

var pumpCmd = &cobra.Command{
	Use:   "pump",
	Short: "Stream host messages through the channel until interrupted",
	RunE:  runPump,
}

func init() {
	selftestCmd.Flags().Int("count", 8, "messages per direction")
	_ = viper.BindPFlag("count", selftestCmd.Flags().Lookup("count"))
	pumpCmd.Flags().Duration("interval", 500*time.Millisecond, "delay between host messages")
	_ = viper.BindPFlag("interval", pumpCmd.Flags().Lookup("interval"))

	rootCmd.AddCommand(selftestCmd)
	rootCmd.AddCommand(pumpCmd)
}

// newChannel wires a mailbox, its interrupt line and the emulated host
// peer on a fresh in-memory register bank.
func newChannel() (*mbox.Mbox, *mboxtest.Host, error) {
	base := viper.GetUint32("base")

	var log *slog.Logger
	if viper.GetBool("verbose") {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	rm := regmap.NewMem()
	line := &irq.Line{}
	host := mboxtest.NewHost(rm, base, line)
	m := mbox.New(rm, base, log)
	if err := line.Register(m.ServeIRQ, true); err != nil {
		return nil, nil, err
	}
	if err := m.Open(); err != nil {
		return nil, nil, err
	}
	return m, host, nil
}

func runSelftest(cmd *cobra.Command, args []string) error {
	m, host, err := newChannel()
	if err != nil {
		return err
	}
	defer m.Close()

	count := viper.GetInt("count")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	g, ctx := errgroup.WithContext(ctx)

	// Both directions run concurrently, so the window is split:
	// inbound messages in bytes 0-7, outbound in bytes 8-15.

	g.Go(func() error {
		// Inbound: host sends, channel blocks until the edge wakes it.
		for i := 0; i < count; i++ {
			want := fmt.Appendf(nil, "in%06d", i)
			host.Send(want, 0)

			got := make([]byte, len(want))
			n, err := m.ReadBytes(ctx, got, 0, true)
			if err != nil {
				return fmt.Errorf("read %d: %w", i, err)
			}
			if !bytes.Equal(got, want) {
				return fmt.Errorf("read %d: got %q, sent %q", i, got, want)
			}
			fmt.Printf("recv %2d bytes crc8=%#02x %q\n", n, crc8.Checksum(got, crcTable), got)
		}
		return nil
	})

	g.Go(func() error {
		// Outbound: channel raises SEND, host consumes it.
		for i := 0; i < count; i++ {
			want := fmt.Appendf(nil, "out%05d", i)
			if _, err := m.WriteBytes(want, 8); err != nil {
				return fmt.Errorf("write %d: %w", i, err)
			}
			for {
				if got, ok := host.TakeSent(8, len(want)); ok {
					fmt.Printf("sent %2d bytes crc8=%#02x %q\n", len(got), crc8.Checksum(got, crcTable), got)
					break
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Millisecond):
				}
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Printf("ok, %d messages per direction, %d bus faults\n", count, m.BusFaults())
	return nil
}

func runPump(cmd *cobra.Command, args []string) error {
	m, host, err := newChannel()
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interval := viper.GetDuration("interval")
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for i := 0; ; i++ {
			host.Send(fmt.Appendf(nil, "tick %011d", i), 0)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
	})

	g.Go(func() error {
		p := make([]byte, mbox.NumRegs)
		for {
			n, err := m.ReadBytes(ctx, p, 0, true)
			if errors.Is(err, mbox.ErrInterrupted) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("recv %2d bytes crc8=%#02x %q\n", n, crc8.Checksum(p[:n], crcTable), p[:n])
		}
	})

	return g.Wait()
}
