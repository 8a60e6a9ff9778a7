package main

import (
	"os"

	"github.com/tjfontaine/courier/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
