package main

import (
	"os"

	"github.com/rustyeddy/riskwatch/cmd/riskwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
