package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	"github.com/certiweb/go-auth/config"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
	lgr *glog.BaseLogger
)

var rootCmd = &cobra.Command{
	Use:   "certiweb",
	Short: "Certiweb authentication service",
	Long: `certiweb runs the authentication API and its maintenance tasks: password
migration, offline hashing and account listing.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		lgr = newLogger(cfg.Logging.Level, verbose)

		if verbose {
			fmt.Println("============")
			fmt.Println(print.MaybeHighlightJSON(cfg))
			fmt.Println("============")
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CERTIWEB_CONFIG"), "Path to a YAML or TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Trace logging and print the resolved config")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migratePasswordsCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(revocationsCmd)
}

func newLogger(level string, verbose bool) *glog.BaseLogger {
	switch strings.ToLower(level) {
	case "trace", "debug":
		verbose = true
	}
	if verbose {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("certiweb"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("certiweb"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}
