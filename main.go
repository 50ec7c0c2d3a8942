package main

import (
	"os"

	"github.com/AnyUserName/jpeg2png/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
