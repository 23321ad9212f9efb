package cli

import (
	"cmp"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leofalp/vertexgen/internal/config"
	"github.com/leofalp/vertexgen/providers/ai"
	"github.com/leofalp/vertexgen/providers/ai/gemini"
	"github.com/leofalp/vertexgen/providers/auth"
	"github.com/leofalp/vertexgen/providers/observability"
	"github.com/leofalp/vertexgen/providers/observability/slogobs"
)

// app holds what the subcommands share once the global flags are parsed.
type app struct {
	flags    rootFlags
	stdout   io.Writer
	stderr   io.Writer
	observer *slogobs.Observer
	cfg      *config.Config
	tokens   ai.TokenProvider
}

// init sets up logging, loads the configuration and picks the token provider.
func (a *app) init(cmd *cobra.Command) error {
	a.observer = slogobs.New(
		slogobs.WithFormat(a.flags.format(cmd)),
		slogobs.WithLevel(a.flags.level(cmd)),
		slogobs.WithOutput(a.stderr),
	)

	cfg, err := config.Load(config.Options{EnvFile: a.flags.envFile, ConfigFile: a.flags.configFile})
	if err != nil {
		return err
	}
	a.cfg = cfg

	if token := cmp.Or(a.flags.token, cfg.AccessToken); token != "" {
		static, err := auth.Static(token)
		if err != nil {
			return err
		}
		a.tokens = static
	} else {
		a.tokens = auth.NewGoogle()
	}
	return nil
}

// generator builds a client for the configured model, or fallbackModel when none is set.
func (a *app) generator(fallbackModel string) (ai.Generator, error) {
	client, err := gemini.New(
		gemini.WithEndpoint(a.cfg.APIEndpoint),
		gemini.WithProject(a.cfg.ProjectID),
		gemini.WithLocation(a.cfg.LocationID),
		gemini.WithModel(cmp.Or(a.flags.model, a.cfg.Model, fallbackModel)),
		gemini.WithBaseURL(a.flags.baseURL),
		gemini.WithTokenProvider(a.tokens),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// generation returns the file's sampling parameters, or defaults when the file sets none.
func (a *app) generation(defaults *ai.GenerationConfig) *ai.GenerationConfig {
	if a.cfg != nil && a.cfg.Generation != nil {
		return a.cfg.Generation
	}
	return defaults
}

// run executes fn inside a command span with the observer on the context.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx := observability.ContextWithObserver(cmd.Context(), a.observer)
	ctx, span := a.observer.StartSpan(ctx, observability.SpanCLICommand,
		observability.String(observability.AttrCLICommand, cmd.CommandPath()))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.SetStatus(observability.StatusError, err.Error())
		return err
	}
	span.SetStatus(observability.StatusOK, "")
	return nil
}

// streamText prints the text of every chunk as it arrives.
func (a *app) streamText(ctx context.Context, generator ai.Generator, request ai.GenerateRequest, opts ...ai.StreamOption) error {
	stream, err := generator.StreamGenerateContent(ctx, request, opts...)
	if err != nil {
		return err
	}
	defer stream.Close()

	for chunk, err := range stream.Iter() {
		if err != nil {
			fmt.Fprintln(a.stdout)
			return err
		}
		fmt.Fprint(a.stdout, chunk.Text())
	}
	fmt.Fprintln(a.stdout)
	return nil
}

func promptArg(args []string, fallback string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return fallback
}
