// Package main provides the entry point for the hugin CLI.
package main

import (
	"fmt"
	"os"

	"github.com/hugin-ai/hugin/cmd/hugin/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
