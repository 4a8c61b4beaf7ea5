package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pagedb/pkg/config"
	"pagedb/pkg/logging"
)

const version = "0.1.0"

// NewRootCmd builds the pagedb command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "pagedb",
		Short:         "pagedb is a single-file relational storage engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default pagedb.yaml in the working directory)")
	root.PersistentFlags().String("data-dir", ".", "directory holding the database and WAL files")
	root.PersistentFlags().Uint64("max-pages", 0, "page-count cap for the backing file (0 = default)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")
	root.PersistentFlags().String("log-path", "", "log destination file (default stderr)")

	var cfg *config.Config
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		return logging.Init(logging.Config{
			Level:      logging.LogLevel(strings.ToUpper(cfg.Log.Level)),
			Format:     cfg.Log.Format,
			OutputPath: cfg.Log.Path,
		})
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newQueryCmd(func() *config.Config { return cfg }))
	root.AddCommand(newShellCmd(func() *config.Config { return cfg }))
	root.AddCommand(newInspectCmd(func() *config.Config { return cfg }))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pagedb version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pagedb %s\n", version)
		},
	}
}
