package main

import (
	"os"

	"jsacademy/backend/cmd/learnctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
