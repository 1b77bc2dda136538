package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "sagaflow-manager",
		EnableShellCompletion: true,
		Usage:                 "Route workflow status reports to the next processes or their compensations",
		Flags:                 runFlags(),
		Action:                runManager,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
