// Command caretstudio serves the AutoML wizard and runs it from the shell.
//
//	$ caretstudio serve -c caretstudio.yaml
//	$ caretstudio inspect data/churn.csv
//	$ caretstudio run -c caretstudio.yaml -e churn.yaml
package main

import (
	"fmt"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

var (
	configFile     string
	experimentFile string
	previewRows    int
)

func app() *commander.Command {
	return &commander.Command{
		UsageLine: "caretstudio <command> [options]",
		Short:     "build models through an AutoML service",
		Subcommands: []*commander.Command{
			serveCmd(),
			inspectCmd(),
			runCmd(),
		},
		Flag: *flag.NewFlagSet("caretstudio", flag.ExitOnError),
	}
}

func main() {
	if err := app().Dispatch(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "**err**: %v\n", err)
		os.Exit(1)
	}
}
