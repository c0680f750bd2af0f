package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	settingsPath string
	splitterCmd  string
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "fragmerge <mask> [directory] [new-root]",
	Short: "Merge same-shaped XML or CSV fragment files into one document",
	Long: `Merges fragment files discovered by a filename glob into one consolidated
file. ZIP archives matching the mask are unpacked first, and all consumed
inputs and intermediate artifacts are removed afterward.

Passing a new root element name selects XML re-rooting mode: every source is
split into per-record fragments and the cleaned record bodies are collected
under the new root. Without it, sources are concatenated verbatim, which
suits CSV and headerless merges.`,
	Args: cobra.RangeArgs(1, 3),
	Run: func(cmd *cobra.Command, args []string) {
		mask := args[0]
		baseDir := "."
		if len(args) > 1 {
			baseDir = args[1]
		}
		newRoot := ""
		if len(args) > 2 {
			newRoot = args[2]
		}

		if debugMode {
			SetDebugMode(true)
		}

		var settings *Settings
		var err error
		if settingsPath != "" {
			// Explicit settings file must exist
			settings, err = loadSettingsRequired(settingsPath)
		} else {
			if err := ensureConfigExists(); err != nil {
				log.Fatalf("Ensuring config files exist: %v", err)
			}
			settings, err = loadSettings(getConfigPath("settings.yaml"))
		}
		if err != nil {
			log.Fatalf("Loading settings: %v", err)
		}
		if splitterCmd != "" {
			settings.Splitter.Command = splitterCmd
		}

		processor := NewMergeProcessor(baseDir, newRoot, settings)

		result, err := processor.Merge(context.Background(), mask)
		if err != nil {
			log.Fatalf("Merge failed: %v", err)
		}

		log.Printf("✓ Combined %d source(s) into: %s", result.Sources, result.Output)
	},
}

func init() {
	rootCmd.Flags().StringVar(&settingsPath, "settings", "", "Path to settings YAML file")
	rootCmd.Flags().StringVar(&splitterCmd, "splitter", "", "External record-splitting command (overrides settings)")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
