package main

import (
	"os"

	"fakellm/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
