package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowcanvas/pkg/models"
)

const defaultPrompt = "Summarize the following email:"

var ErrNoGenerator = errors.New("text generation is not configured")

func stepString(step models.Step, key string) string {
	s, _ := step.Extra[key].(string)

	return s
}

func gmailTrigger(_ context.Context, _ models.Step, run *Run) error {
	run.Log("Checking new email...")

	if run.Tokens[models.ServiceGmail] == "" {
		run.Log("Gmail is not connected.")
		run.Log("No new email.")
		run.Stop()

		return nil
	}

	run.Log("Gmail connected; dry run does not fetch messages.")

	return nil
}

func notionAction(_ context.Context, step models.Step, run *Run) error {
	if run.Tokens[models.ServiceNotion] == "" {
		run.Log("Notion is not connected; page not created.")

		return nil
	}

	run.Log("Creating Notion page...")

	parent := stepString(step, models.FieldParentID)
	if parent == "" {
		run.Log("Notion page would be created in the workspace root.")

		return nil
	}

	run.Log(fmt.Sprintf("Notion page would be created under %s.", parent))

	return nil
}

func promptAction(gen Generator) StepFunc {
	return func(ctx context.Context, step models.Step, run *Run) error {
		prompt := stepString(step, models.FieldPrompt)
		if prompt == "" {
			prompt = defaultPrompt
		}

		run.Log("Calling OpenAI...")
		run.Log("Prompt: " + prompt)

		if gen == nil {
			return ErrNoGenerator
		}

		res, err := gen.Generate(ctx, prompt)
		if err != nil {
			run.Log("OpenAI error: " + err.Error())

			return nil
		}

		if res.Error != "" {
			run.Log("OpenAI error: " + res.Error)

			return nil
		}

		run.Log("OpenAI result: " + res.Result)

		return nil
	}
}
