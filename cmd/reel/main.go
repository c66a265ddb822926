package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "reel",
		Short:        "Timeline and animation engine for programmatic video",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default reel.yaml when present)")
	root.AddCommand(renderCmd())
	root.AddCommand(frameCmd())
	root.AddCommand(previewCmd())
	root.AddCommand(inspectCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
