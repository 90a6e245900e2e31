package cmd

import (
	"fmt"

	"reelsmith/internal/app"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the supported providers and their capabilities",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(titleStyle.Render("Providers"))
		for _, p := range app.Providers() {
			fmt.Printf("  %-12s %s\n", p.Name, infoStyle.Render(p.Capabilities.String()))
		}
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
