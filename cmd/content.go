package cmd

import (
	"errors"
	"fmt"

	"reelsmith/internal/app"
	"reelsmith/internal/imagegen"

	"github.com/spf13/cobra"
)

var (
	contentTopic    string
	contentLanguage string
	contentLength   string
	contentProvider string
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Generate narration text for a topic",
	Long:  `Render the content prompt for a topic and print the provider's answer.`,
	RunE:  runContent,
}

func init() {
	contentCmd.Flags().StringVarP(&contentTopic, "topic", "t", "", "Topic to write about")
	contentCmd.Flags().StringVarP(&contentLanguage, "language", "l", "English", "Language of the answer")
	contentCmd.Flags().StringVarP(&contentLength, "length", "n", "under 150 words", "Length hint for the answer")
	contentCmd.Flags().StringVarP(&contentProvider, "provider", "p", "", "Provider name (defaults to llm.provider)")
	rootCmd.AddCommand(contentCmd)
}

func runContent(cmd *cobra.Command, args []string) error {
	if contentTopic == "" {
		return errors.New("please provide --topic")
	}

	ctx := cmd.Context()
	service, err := loadService(ctx, imagegen.SkipFailed)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	text, err := app.NewPipeline(service).GenerateContent(ctx, app.ContentRequest{
		Provider: contentProvider,
		Topic:    contentTopic,
		Language: contentLanguage,
		Length:   contentLength,
	})
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}
