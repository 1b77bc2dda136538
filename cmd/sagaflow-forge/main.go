package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "sagaflow-forge",
		EnableShellCompletion: true,
		Usage:                 "Submit workflow definitions to the managers",
		Flags:                 commonFlags(),
		Commands: []*cli.Command{
			NewServeCommand(),
			NewPublishCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
