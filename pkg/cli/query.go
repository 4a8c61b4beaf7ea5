package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pagedb/pkg/config"
	"pagedb/pkg/database"
)

func openDatabase(cfg *config.Config) (*database.Database, error) {
	return database.Open(database.Options{
		DatabasePath: cfg.DatabasePath(),
		WALPath:      cfg.WALPath(),
		MaxPages:     cfg.MaxPages,
	})
}

func newQueryCmd(cfg func() *config.Config) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run one SQL statement and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cfg())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			res := db.ExecuteSQL(args[0])
			if res.Err != nil {
				return res.Err
			}
			return renderResult(cmd.OutOrStdout(), res, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, csv or json")
	return cmd
}

func newShellCmd(cfg func() *config.Config) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive SQL shell reading statements from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cfg())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			return runShell(cmd.InOrStdin(), cmd.OutOrStdout(), db, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, csv or json")
	return cmd
}

// runShell executes one statement per line until EOF or \q. Errors are
// printed and the shell keeps going.
func runShell(in io.Reader, out io.Writer, db *database.Database, format string) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "pagedb> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "--"):
		case line == `\q` || strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit"):
			return nil
		default:
			res := db.ExecuteSQL(line)
			if res.Err != nil {
				fmt.Fprintf(out, "error: %v\n", res.Err)
			} else if err := renderResult(out, res, format); err != nil {
				return err
			}
		}
		fmt.Fprint(out, "pagedb> ")
	}
	return scanner.Err()
}
