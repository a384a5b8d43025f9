// Package main is the entry point for the ledgerctl CLI.
package main

import (
	"os"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/cmd/ledgerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
