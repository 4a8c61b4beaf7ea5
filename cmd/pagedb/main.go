package main

import (
	"fmt"
	"os"

	"pagedb/pkg/cli"
	"pagedb/pkg/logging"
)

func main() {
	defer logging.Close()

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
