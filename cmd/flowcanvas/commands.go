package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/flowcanvas/pkg/client"
	"github.com/dukex/flowcanvas/pkg/log"
	"github.com/dukex/flowcanvas/pkg/logchannel"
	cli "github.com/urfave/cli/v3"
)

func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List the workflows saved by the owner",
		Action: func(ctx context.Context, command *cli.Command) error {
			session := newSession(command, credentialStore(command))
			defer session.Close()

			docs, err := session.Workflows(ctx)
			if err != nil {
				return err
			}

			fmt.Println("Workflows:")
			fmt.Println("==========")

			for _, doc := range docs {
				fmt.Printf("%s\t%s\t%d steps\n", doc.ID, doc.Name, len(doc.Workflow))
			}

			fmt.Printf("\nTotal workflows: %d\n", len(docs))

			return nil
		},
	}
}

func NewLoadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Aliases:   []string{"show"},
		Usage:     "Load a saved workflow and print its graph",
		ArgsUsage: "<workflow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireArg(command, 0, "workflow-id")
			if err != nil {
				return err
			}

			session := newSession(command, credentialStore(command))
			defer session.Close()

			if err := session.LoadByID(ctx, id); err != nil {
				return err
			}

			fmt.Printf("Workflow: %s (%s)\n", session.Name(), session.WorkflowID())

			for _, n := range session.Graph().Nodes() {
				fmt.Printf("  - %s %s/%s [%s] at (%.0f, %.0f)\n", n.ID, n.Service, n.Action, n.Kind, n.Position.X, n.Position.Y)
			}

			for _, e := range session.Graph().Edges() {
				fmt.Printf("  %s -> %s\n", e.Source, e.Target)
			}

			return nil
		},
	}
}

func NewSaveCommand() *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save a workflow document from a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Workflow document to save",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Override the workflow name",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			doc, err := readDocument(command.String("file"))
			if err != nil {
				return err
			}

			session := newSession(command, credentialStore(command))
			defer session.Close()

			session.Load(doc)

			if name := command.String("name"); name != "" {
				session.SetName(name)
			}

			return session.Save(ctx)
		},
	}
}

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a workflow and follow its log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Workflow document to run",
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Saved workflow to run",
			},
			&cli.StringSliceFlag{
				Name:  "token",
				Usage: "Integration token as provider=token, repeatable",
			},
			&cli.IntFlag{
				Name:  "max-lines",
				Usage: "Keep at most this many log lines (0 keeps all)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			creds := credentialStore(command)
			if err := applyTokens(ctx, creds, command.StringSlice("token")); err != nil {
				return err
			}

			opts := []logchannel.Option{
				logchannel.WithLineHandler(func(_, line string) {
					fmt.Println(line)
				}),
			}

			if n := command.Int("max-lines"); n > 0 {
				opts = append(opts, logchannel.WithMaxLines(n))
			}

			session := newSession(command, creds, opts...)
			defer session.Close()

			switch {
			case command.String("file") != "":
				doc, err := readDocument(command.String("file"))
				if err != nil {
					return err
				}

				session.Load(doc)
			case command.String("id") != "":
				if err := session.LoadByID(ctx, command.String("id")); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: --file or --id", ErrMissingArgument)
			}

			if _, err := session.Run(ctx); err != nil {
				return err
			}

			waitForLogs(ctx, session.Logs())

			return nil
		},
	}
}

func NewDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a saved workflow",
		ArgsUsage: "<workflow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireArg(command, 0, "workflow-id")
			if err != nil {
				return err
			}

			session := newSession(command, credentialStore(command))
			defer session.Close()

			return session.DeleteWorkflow(ctx, id)
		},
	}
}

func NewScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Usage:     "Run a saved workflow after a delay",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "minutes",
				Aliases: []string{"m"},
				Usage:   "Delay in minutes",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireArg(command, 0, "workflow-id")
			if err != nil {
				return err
			}

			session := newSession(command, credentialStore(command))
			defer session.Close()

			return session.Schedule(ctx, id, command.Int("minutes"))
		},
	}
}

func NewTailCommand() *cli.Command {
	return &cli.Command{
		Name:      "tail",
		Usage:     "Follow the log of an execution",
		ArgsUsage: "<execution-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireArg(command, 0, "execution-id")
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := log.WithModule("cli")
			sub := logchannel.NewWebsocketSubscriber(logger, logURL(command.String("api-url")))

			ch := logchannel.New(logger, sub, logchannel.WithLineHandler(func(_, line string) {
				fmt.Println(line)
			}))
			defer ch.Close()

			if err := ch.Open(ctx, id); err != nil {
				return err
			}

			waitForLogs(ctx, ch)

			return nil
		},
	}
}

func NewConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Store an integration token for the owner",
		ArgsUsage: "<provider> <token>",
		Action: func(ctx context.Context, command *cli.Command) error {
			provider, err := requireArg(command, 0, "provider")
			if err != nil {
				return err
			}

			token, err := requireArg(command, 1, "token")
			if err != nil {
				return err
			}

			if command.String("redis-url") == "" {
				fmt.Fprintln(os.Stderr, "No --redis-url set; the token is kept for this process only.")
			}

			if err := credentialStore(command).Set(ctx, provider, token); err != nil {
				return err
			}

			fmt.Printf("%s connected\n", provider)

			return nil
		},
	}
}

func NewGenerateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Run a prompt through the text generation tool",
		ArgsUsage: "<prompt>",
		Action: func(ctx context.Context, command *cli.Command) error {
			prompt, err := requireArg(command, 0, "prompt")
			if err != nil {
				return err
			}

			res, err := client.New(log.WithModule("cli"), command.String("api-url")).Generate(ctx, prompt)
			if err != nil {
				return err
			}

			if res.Error != "" {
				return fmt.Errorf("generation failed: %s", res.Error)
			}

			fmt.Println(res.Result)

			return nil
		},
	}
}

func NewClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every saved workflow on the backend",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the deletion",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			if !command.Bool("yes") {
				return ErrNotConfirmed
			}

			resp, err := client.New(log.WithModule("cli"), command.String("api-url")).ClearAll(ctx)
			if err != nil {
				return err
			}

			fmt.Println(resp.Message)

			return nil
		},
	}
}
