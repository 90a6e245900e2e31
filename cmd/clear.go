package cmd

import (
	"fmt"

	"reelsmith/internal/imagegen"

	"github.com/spf13/cobra"
)

var clearRemote bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove generated images from the work directory",
	Long: `Remove every image file from the configured work directory.
With --remote the mirrored objects in the GCS bucket are listed first.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearRemote, "remote", false, "List mirrored images in GCS before clearing")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, err := loadService(ctx, imagegen.SkipFailed)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	if clearRemote {
		mirror := service.Mirror()
		if mirror == nil {
			fmt.Println(warnStyle.Render("GCS mirror is not enabled"))
		} else {
			uris, err := mirror.List(ctx)
			if err != nil {
				return fmt.Errorf("list mirror: %w", err)
			}
			for _, uri := range uris {
				fmt.Println(infoStyle.Render(uri))
			}
			fmt.Printf("%d image(s) in GCS are kept\n", len(uris))
		}
	}

	count, err := service.Storage().Clear()
	if err != nil {
		return fmt.Errorf("clear images: %w", err)
	}

	fmt.Printf("Removed %d image(s) from %s\n", count, service.Storage().Dir())
	return nil
}
