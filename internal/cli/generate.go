package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leofalp/vertexgen/internal/utils"
	"github.com/leofalp/vertexgen/providers/ai"
	"github.com/leofalp/vertexgen/providers/ai/gemini"
)

const (
	visionModel        = "gemini-pro-vision"
	defaultImagePrompt = "Describe this image"
	defaultImageMIME   = "image/jpeg"
)

// sampleGeneration is the sampling setup of the multimodal and function calling samples.
func sampleGeneration() *ai.GenerationConfig {
	return &ai.GenerationConfig{
		MaxOutputTokens: utils.Ptr(2048),
		Temperature:     utils.Ptr(0.4),
		TopP:            utils.Ptr(1.0),
		TopK:            utils.Ptr(32),
	}
}

type generateFlags struct {
	imageURI  string
	imageFile string
	mimeType  string
	sync      bool
}

func newGenerateCommand(a *app) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate text from a prompt and optional images",
		Long: `Generate text from a prompt, optionally with an image from Cloud Storage
(--image-uri gs://...) or a local file (--image-file). Images switch the default
model to gemini-pro-vision.

The answer is requested as a whole-body stream and printed once complete; --sync
uses generateContent instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts, err := flags.imageParts()
			if err != nil {
				return err
			}
			prompt := promptArg(args, "")
			if prompt == "" {
				if len(parts) == 0 {
					return errors.New("a prompt or an image is required")
				}
				prompt = defaultImagePrompt
			}
			model := gemini.DefaultModel
			if len(parts) > 0 {
				model = visionModel
			}

			request := ai.GenerateRequest{
				Contents:         []ai.Content{ai.NewUserContent(append([]ai.Part{ai.NewTextPart(prompt)}, parts...)...)},
				GenerationConfig: a.generation(sampleGeneration()),
			}

			return a.run(cmd, func(ctx context.Context) error {
				generator, err := a.generator(model)
				if err != nil {
					return err
				}
				if !flags.sync {
					return a.streamText(ctx, generator, request, ai.WithWholeBody())
				}
				chunk, err := generator.GenerateContent(ctx, request)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, chunk.Text())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&flags.imageURI, "image-uri", "", "image in Cloud Storage, e.g. gs://bucket/cat.jpg")
	cmd.Flags().StringVar(&flags.imageFile, "image-file", "", "local image sent inline")
	cmd.Flags().StringVar(&flags.mimeType, "mime", "", "image MIME type (default from the file extension, else image/jpeg)")
	cmd.Flags().BoolVar(&flags.sync, "sync", false, "use generateContent instead of the whole-body stream")
	return cmd
}

func (f generateFlags) imageParts() ([]ai.Part, error) {
	var parts []ai.Part
	if f.imageURI != "" {
		parts = append(parts, ai.NewFileDataPart(f.mediaType(f.imageURI), f.imageURI))
	}
	if f.imageFile != "" {
		data, err := os.ReadFile(f.imageFile)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		parts = append(parts, ai.NewInlineDataPart(f.mediaType(f.imageFile), data))
	}
	return parts, nil
}

func (f generateFlags) mediaType(path string) string {
	if f.mimeType != "" {
		return f.mimeType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return defaultImageMIME
}
