// Command sqlsentry is the CLI surface for offline scanning: point it at a
// project directory of .sql files and it reports every checker violation
// without needing a live interceptor chain or Kafka pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes per the scan command's contract: 0 clean, 1 violations found,
// 2 internal/usage error.
const (
	ExitClean      = 0
	ExitViolations = 1
	ExitError      = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sqlsentry: %v\n", err)
		return ExitError
	}
	return exitCodeFromScan
}

// exitCodeFromScan is set by runScan and read after Execute returns, since
// cobra's RunE can only report an error, not an arbitrary exit code.
var exitCodeFromScan = ExitClean

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sqlsentry",
		Short:         "SQL safety scanner and audit report viewer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newExecCmd())
	return cmd
}
