package main

import (
	"os"

	"draftpad/internal/app"
	"draftpad/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd(app.Run)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
