package main

import (
	"os"

	"github.com/tinoosan/loanledger/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
