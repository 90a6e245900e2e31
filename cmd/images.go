package cmd

import (
	"context"
	"errors"
	"fmt"

	"reelsmith/internal/app"
	"reelsmith/internal/imagegen"
	"reelsmith/internal/llm"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
)

var (
	imagesTopic         string
	imagesWidth         int
	imagesHeight        int
	imagesCount         int
	imagesSeed          int64
	imagesScale         float64
	imagesSource        string
	imagesPreLLM        bool
	imagesProvider      string
	imagesStopOnFailure bool
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Generate images for a topic and save them locally",
	Long: `Generate images for a topic and download them into the configured work directory.
With --source the provider transforms an existing image instead.`,
	RunE: runImages,
}

func init() {
	imagesCmd.Flags().StringVarP(&imagesTopic, "topic", "t", "", "Topic to illustrate")
	imagesCmd.Flags().IntVarP(&imagesWidth, "width", "W", 0, "Image width in pixels (defaults to images.width)")
	imagesCmd.Flags().IntVarP(&imagesHeight, "height", "H", 0, "Image height in pixels (defaults to images.height)")
	imagesCmd.Flags().IntVarP(&imagesCount, "count", "c", 0, "Number of images (defaults to images.count)")
	imagesCmd.Flags().Int64Var(&imagesSeed, "seed", 0, "Seed for image-to-image (0 picks a random one)")
	imagesCmd.Flags().Float64Var(&imagesScale, "scale", 0, "Prompt influence for image-to-image")
	imagesCmd.Flags().StringVar(&imagesSource, "source", "", "Source image URL or uploaded file name")
	imagesCmd.Flags().BoolVar(&imagesPreLLM, "pre-llm", false, "Let the provider expand the prompt")
	imagesCmd.Flags().StringVarP(&imagesProvider, "provider", "p", "", "Provider name (defaults to llm.provider)")
	imagesCmd.Flags().BoolVar(&imagesStopOnFailure, "stop-on-failure", false, "Stop at the first failed download")
	rootCmd.AddCommand(imagesCmd)
}

func runImages(cmd *cobra.Command, args []string) error {
	if imagesTopic == "" {
		return errors.New("please provide --topic")
	}

	policy := imagegen.SkipFailed
	if imagesStopOnFailure {
		policy = imagegen.StopOnFailure
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	service, err := loadService(ctx, policy)
	if err != nil {
		cancel()
		return err
	}
	defer func() { _ = service.Close() }()
	defer cancel()

	pipeline := app.NewPipeline(service)
	req := app.ImageRequest{
		Provider: imagesProvider,
		ImageRequest: llm.ImageRequest{
			Topic:       imagesTopic,
			Width:       imagesWidth,
			Height:      imagesHeight,
			Count:       imagesCount,
			Seed:        imagesSeed,
			Scale:       imagesScale,
			SourceImage: imagesSource,
			UsePreLLM:   imagesPreLLM,
		},
	}

	outcome, err := generateWithSpinner(spinnerRunner("Generating images"), func() (*llm.ImageOutcome, error) {
		return pipeline.GenerateImages(ctx, req)
	})
	if err != nil {
		return err
	}

	printOutcome(outcome)
	if !outcome.OK() {
		return fmt.Errorf("image generation failed: %s", outcome.Reason)
	}
	return nil
}

func spinnerRunner(title string) func(action func()) error {
	return func(action func()) error {
		return spinner.New().Title(title).Action(action).Run()
	}
}

// generateWithSpinner runs generate as the spinner action. An interrupted
// spinner returns while the action is still in flight, so its results are
// only read after a clean run.
func generateWithSpinner(run func(action func()) error, generate func() (*llm.ImageOutcome, error)) (*llm.ImageOutcome, error) {
	var (
		outcome *llm.ImageOutcome
		genErr  error
	)
	if err := run(func() { outcome, genErr = generate() }); err != nil {
		return nil, fmt.Errorf("image generation interrupted: %w", err)
	}
	return spinnerOutcome(outcome, genErr)
}

func spinnerOutcome(outcome *llm.ImageOutcome, genErr error) (*llm.ImageOutcome, error) {
	if genErr != nil {
		return nil, genErr
	}
	if outcome == nil {
		return nil, errors.New("image generation returned no outcome")
	}
	return outcome, nil
}

func printOutcome(outcome *llm.ImageOutcome) {
	if outcome == nil {
		return
	}
	for _, path := range outcome.Paths {
		fmt.Println(successStyle.Render("✓ " + path))
	}
	for _, f := range outcome.Failed {
		fmt.Println(warnStyle.Render(fmt.Sprintf("✗ %s: %v", f.URL, f.Err)))
	}
}
