package main

import (
	"os"

	"github.com/handystats/handystats-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
