package main

import (
	"fmt"
	"os"

	"github.com/berfenger/amicomm/internal/cli"
)

func main() {
	if err := cli.CmdAmiDiag().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "amidiag:", err)
		os.Exit(1)
	}
}
