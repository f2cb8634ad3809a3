package main

import (
	"os"

	"futures-bot/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
