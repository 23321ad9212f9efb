package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/leofalp/vertexgen/internal/utils"
	"github.com/leofalp/vertexgen/providers/ai"
	"github.com/leofalp/vertexgen/providers/ai/gemini"
)

const defaultStreamPrompt = "Tell me about the birth of the universe as a bedtime story with 1000 words."

// streamGeneration is the sampling setup of the streaming sample: the multimodal one with a
// higher temperature.
func streamGeneration() *ai.GenerationConfig {
	config := sampleGeneration()
	config.Temperature = utils.Ptr(1.0)
	return config
}

func newStreamCommand(a *app) *cobra.Command {
	var wholeBody bool

	cmd := &cobra.Command{
		Use:   "stream [prompt]",
		Short: "Stream a text answer as it is generated",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := ai.GenerateRequest{
				Contents:         []ai.Content{ai.NewUserContent(ai.NewTextPart(promptArg(args, defaultStreamPrompt)))},
				GenerationConfig: a.generation(streamGeneration()),
			}
			var opts []ai.StreamOption
			if wholeBody {
				opts = append(opts, ai.WithWholeBody())
			}

			return a.run(cmd, func(ctx context.Context) error {
				generator, err := a.generator(gemini.DefaultModel)
				if err != nil {
					return err
				}
				return a.streamText(ctx, generator, request, opts...)
			})
		},
	}
	cmd.Flags().BoolVar(&wholeBody, "whole-body", false, "request the JSON array form instead of server-sent events")
	return cmd
}
