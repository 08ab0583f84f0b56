// Package main is the entry point for arprobe, a VLAN-tagged ARP resolver.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/arprobe/cmd"
	"firestige.xyz/arprobe/internal/core"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCode(err))
	}
}
