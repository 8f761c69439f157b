package main

import (
	"fmt"
	"os"

	"github.com/opticshop/optics/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "optics:", err)
		os.Exit(1)
	}
}
