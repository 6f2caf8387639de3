package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/kiosk404/mirror/internal/mirrorctl/cmd"
)

func main() {
	command := cmd.NewDefaultMirrorCtlCommand()
	if err := command.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
