package main

import (
	"github.com/fatih/color"

	"github.com/openfill/openfill/cli"
)

// version is set through linker flags at build time.
var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		color.Red("%v", err)
	}
}
