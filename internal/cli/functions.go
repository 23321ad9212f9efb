package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/vertexgen/internal/jsonschema"
	"github.com/leofalp/vertexgen/providers/ai"
	"github.com/leofalp/vertexgen/providers/ai/gemini"
)

const defaultFunctionPrompt = "Which theaters in Mountain View show Barbie movie?"

// FindMoviesArgs are the parameters of find_movies.
type FindMoviesArgs struct {
	Location    string `json:"location,omitempty" jsonschema:"description=The city and state, e.g. San Francisco, CA or a zip code e.g. 95616"`
	Description string `json:"description" jsonschema:"description=Any kind of description including category or genre, title words, attributes, etc."`
}

// FindTheatersArgs are the parameters of find_theaters.
type FindTheatersArgs struct {
	Location string `json:"location" jsonschema:"description=The city and state, e.g. San Francisco, CA or a zip code e.g. 95616"`
	Movie    string `json:"movie,omitempty" jsonschema:"description=Any movie title"`
}

// GetShowtimesArgs are the parameters of get_showtimes.
type GetShowtimesArgs struct {
	Location string `json:"location" jsonschema:"description=The city and state, e.g. San Francisco, CA or a zip code e.g. 95616"`
	Movie    string `json:"movie" jsonschema:"description=Any movie title"`
	Theater  string `json:"theater" jsonschema:"description=Name of the theater"`
	Date     string `json:"date" jsonschema:"description=Date for requested showtime"`
}

// movieTools declares the three movie functions of the function calling sample.
func movieTools() []ai.Tool {
	return []ai.Tool{{FunctionDeclarations: []ai.FunctionDeclaration{
		{
			Name:        "find_movies",
			Description: "find movie titles currently playing in theaters based on any description, genre, title words, etc.",
			Parameters:  jsonschema.MustGenerate[FindMoviesArgs](),
		},
		{
			Name:        "find_theaters",
			Description: "find theaters based on location and optionally movie title which are is currently playing in theaters",
			Parameters:  jsonschema.MustGenerate[FindTheatersArgs](),
		},
		{
			Name:        "get_showtimes",
			Description: "Find the start times for movies playing in a specific theater",
			Parameters:  jsonschema.MustGenerate[GetShowtimesArgs](),
		},
	}}}
}

// checkArgs decodes the arguments of a known function so that malformed calls surface as
// errors. Unknown functions pass through.
func checkArgs(call ai.FunctionCall) error {
	var err error
	switch call.Name {
	case "find_movies":
		_, err = ai.DecodeArgs[FindMoviesArgs](call)
	case "find_theaters":
		_, err = ai.DecodeArgs[FindTheatersArgs](call)
	case "get_showtimes":
		_, err = ai.DecodeArgs[GetShowtimesArgs](call)
	}
	return err
}

func newFunctionCallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "function-call [prompt]",
		Short: "Offer movie functions to the model and print the calls it makes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := ai.GenerateRequest{
				Contents:         []ai.Content{ai.NewUserContent(ai.NewTextPart(promptArg(args, defaultFunctionPrompt)))},
				GenerationConfig: a.generation(sampleGeneration()),
				Tools:            movieTools(),
			}

			return a.run(cmd, func(ctx context.Context) error {
				generator, err := a.generator(gemini.DefaultModel)
				if err != nil {
					return err
				}
				chunk, err := generator.GenerateContent(ctx, request)
				if err != nil {
					return err
				}

				calls := chunk.FunctionCalls()
				if len(calls) == 0 {
					fmt.Fprintln(a.stdout, chunk.Text())
					return nil
				}
				for _, call := range calls {
					if err := checkArgs(call); err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "name: %s; args: %s\n", call.Name, call.ArgsString())
				}
				return nil
			})
		},
	}
}
