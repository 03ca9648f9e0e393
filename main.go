package main

import (
	"os"

	"github.com/tfufuu/nova/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
