package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dukex/flowcanvas/pkg/client"
	"github.com/dukex/flowcanvas/pkg/cmd"
	"github.com/dukex/flowcanvas/pkg/codec"
	"github.com/dukex/flowcanvas/pkg/credentials"
	"github.com/dukex/flowcanvas/pkg/editor"
	"github.com/dukex/flowcanvas/pkg/log"
	"github.com/dukex/flowcanvas/pkg/logchannel"
	"github.com/dukex/flowcanvas/pkg/models"
	cli "github.com/urfave/cli/v3"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrInvalidToken    = errors.New("token must look like provider=token")
	ErrNotConfirmed    = errors.New("pass --yes to confirm")
)

// logURL derives the websocket log endpoint from the API base URL.
func logURL(apiURL string) string {
	return strings.TrimSuffix(apiURL, "/") + "/ws/workflow_log"
}

func credentialStore(command *cli.Command) credentials.Store {
	return cmd.NewCredentialStore(command.String("redis-url"), command.String("owner"))
}

// newSession wires an editor controller against the configured backend.
// Notices are printed as they arrive.
func newSession(command *cli.Command, creds credentials.Store, opts ...logchannel.Option) *editor.Controller {
	logger := log.WithModule("cli")
	apiURL := command.String("api-url")

	backend := client.New(logger, apiURL)

	return editor.New(logger, editor.Dependencies{
		Backend:     backend,
		Subscriber:  logchannel.NewWebsocketSubscriber(logger, logURL(apiURL)),
		Registry:    cmd.NewRegistry(context.Background(), logger, ""),
		Credentials: creds,
		Generator:   backend,
		Notifier: editor.NotifierFunc(func(n editor.Notice) {
			if n.Level == editor.LevelError {
				fmt.Fprintln(os.Stderr, n.Message)

				return
			}

			fmt.Println(n.Message)
		}),
	}, editor.Config{Owner: command.String("owner")}, opts...)
}

func readDocument(path string) (models.WorkflowDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.WorkflowDocument{}, fmt.Errorf("failed to read workflow file: %w", err)
	}

	return codec.Parse(data)
}

func applyTokens(ctx context.Context, store credentials.Store, tokens []string) error {
	for _, t := range tokens {
		provider, token, ok := strings.Cut(t, "=")
		if !ok || provider == "" || token == "" {
			return fmt.Errorf("%w: %q", ErrInvalidToken, t)
		}

		if err := store.Set(ctx, provider, token); err != nil {
			return err
		}
	}

	return nil
}

func requireArg(command *cli.Command, index int, name string) (string, error) {
	v := command.Args().Get(index)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}

	return v, nil
}

// waitForLogs blocks until the feed ends or ctx is done.
func waitForLogs(ctx context.Context, ch *logchannel.Channel) {
	select {
	case <-ch.Ended():
	case <-ctx.Done():
	}
}
