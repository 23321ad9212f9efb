package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leofalp/vertexgen/internal/utils"
	"github.com/leofalp/vertexgen/internal/webfetch"
	"github.com/leofalp/vertexgen/providers/ai"
	"github.com/leofalp/vertexgen/providers/ai/gemini"
	"github.com/leofalp/vertexgen/providers/observability"
)

const summarizeInstruction = "Summarize the following web page in a few short paragraphs. " +
	"Keep names, numbers and dates exact."

func newSummarizeURLCommand(a *app) *cobra.Command {
	var (
		maxChars  int
		timeout   time.Duration
		wholeBody bool
	)

	cmd := &cobra.Command{
		Use:   "summarize-url <url>",
		Short: "Fetch a web page and stream a summary of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context) error {
				page, err := webfetch.Fetch(ctx, args[0], webfetch.WithTimeout(timeout))
				if err != nil {
					return err
				}
				a.observer.Debug(ctx, "Page fetched",
					observability.String(observability.AttrHTTPURL, page.URL),
					observability.Int(observability.AttrHTTPResponseBodySize, len(page.Markdown)),
				)

				markdown := page.Markdown
				if maxChars > 0 && len(markdown) > maxChars {
					markdown = utils.TruncateString(markdown, maxChars)
				}
				prompt := fmt.Sprintf("%s\n\nURL: %s\n\n%s", summarizeInstruction, page.URL, markdown)
				request := ai.GenerateRequest{
					Contents:         []ai.Content{ai.NewUserContent(ai.NewTextPart(prompt))},
					GenerationConfig: a.generation(sampleGeneration()),
				}

				generator, err := a.generator(gemini.DefaultModel)
				if err != nil {
					return err
				}
				var opts []ai.StreamOption
				if wholeBody {
					opts = append(opts, ai.WithWholeBody())
				}
				return a.streamText(ctx, generator, request, opts...)
			})
		},
	}
	cmd.Flags().IntVar(&maxChars, "max-chars", 20000, "truncate the page Markdown to this many bytes (0 keeps all)")
	cmd.Flags().DurationVar(&timeout, "fetch-timeout", webfetch.DefaultTimeout, "timeout for fetching the page")
	cmd.Flags().BoolVar(&wholeBody, "whole-body", false, "request the JSON array form instead of server-sent events")
	return cmd
}
