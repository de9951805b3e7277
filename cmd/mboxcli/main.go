// Mboxcli exercises the mailbox channel against an in-memory register
// file with an emulated host peer on the other end.  It runs the full
// cycle of the handshake: open, write/SEND, RECV edge, blocking read,
// acknowledge.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mboxcli",
	Short: "Exercise the BMC/host mailbox channel",
	Long: `Mboxcli runs the mailbox channel against an in-memory register bank
with an emulated host processor on the other end.  Useful to inspect
the handshake and to validate changes to the channel core without
hardware.`,
}

func init() {
	rootCmd.PersistentFlags().Uint32("base", 0x200, "base offset of the mailbox register bank")
	rootCmd.PersistentFlags().Bool("verbose", false, "log register bus faults")
	_ = viper.BindPFlag("base", rootCmd.PersistentFlags().Lookup("base"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetEnvPrefix("MBOX")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
