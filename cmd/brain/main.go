package main

import (
	"os"

	"github.com/Tar-ive/brain-system-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
