package main

import (
	"context"
	"os"

	"github.com/dukex/flowcanvas/pkg/client"
	"github.com/dukex/flowcanvas/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "flowcanvas",
		Usage:                 "Edit, run and follow workflows from the terminal",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Workflow API base URL",
				Value:   client.DefaultBaseURL,
				Sources: cli.EnvVars("CANVAS_API_URL"),
			},
			&cli.StringFlag{
				Name:    "owner",
				Usage:   "User owning the workflows",
				Sources: cli.EnvVars("CANVAS_OWNER"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for stored credentials (memory when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			NewListCommand(),
			NewLoadCommand(),
			NewSaveCommand(),
			NewRunCommand(),
			NewDeleteCommand(),
			NewClearCommand(),
			NewScheduleCommand(),
			NewTailCommand(),
			NewConnectCommand(),
			NewGenerateCommand(),
		},
	}
}

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
