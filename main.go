package main

import (
	"os"

	"github.com/pco-tools/pco-mcp-server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
