package main

import (
	"os"

	"slicer/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
