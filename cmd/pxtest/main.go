// Package main is the entry point for the pxtest CLI.
package main

import (
	"os"

	"github.com/openpixel/pxtest/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
