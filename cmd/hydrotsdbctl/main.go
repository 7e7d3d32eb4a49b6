// Command hydrotsdbctl is a thin CLI wrapper over the tsdb package: it
// parses flags and arguments and delegates every operation to a DB,
// carrying no business logic of its own.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	root := &cobra.Command{
		Use:           "hydrotsdbctl",
		Short:         "Inspect and populate a hydrotsdb database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newCreateDBCommand(),
		newRegisterTimeseriesCommand(),
		newCreateInstanceCommand(),
		newWriteCommand(),
		newReadCommand(),
		newReadAsOfCommand(),
		newListCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hydrotsdbctl:", err)
		os.Exit(1)
	}
}
