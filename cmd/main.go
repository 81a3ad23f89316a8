package main

import (
	"os"

	"operator-index/cmd/build"
	"operator-index/cmd/push"
	"operator-index/pkg"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbosity int

func main() {
	pkg.ConfigureLogger()

	rootCmd := &cobra.Command{
		Use:     "operator-index",
		Short:   "build and push OLM catalog index images",
		Long:    "",
		Version: pkg.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			pkg.RaiseVerbosity(verbosity)
		},
	}
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity (specify multiple times for more)")

	rootCmd.AddCommand(build.NewCmd())
	rootCmd.AddCommand(push.NewCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(pkg.ExitCode(err))
	}
}
