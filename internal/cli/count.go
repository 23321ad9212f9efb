package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/vertexgen/providers/ai"
	"github.com/leofalp/vertexgen/providers/ai/gemini"
)

const defaultCountPrompt = "What is the airspeed of an unladen swallow?"

func newCountTokensCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count-tokens [prompt]",
		Short: "Print the number of tokens in a prompt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := ai.CountTokensRequest{
				Contents: []ai.Content{ai.NewUserContent(ai.NewTextPart(promptArg(args, defaultCountPrompt)))},
			}
			return a.run(cmd, func(ctx context.Context) error {
				generator, err := a.generator(gemini.DefaultModel)
				if err != nil {
					return err
				}
				count, err := generator.CountTokens(ctx, request)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, count.TotalTokens)
				return nil
			})
		},
	}
}
