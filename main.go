package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	anthropicKey string
	searchKey    string
	genaiKey     string
	settingsPath string
	templatePath string
	promptDir    string
	debugMode    bool

	noteFile    string
	reviseFile  string
	reviseLine  int
	commentText string
	commentFile string
)

var rootCmd = &cobra.Command{
	Use:   "blog-pipeline",
	Short: "Turns rough notes into published blog posts using AI",
	Long: `A staged pipeline that structures rough personal notes, grounds them
with research, composes and polishes a draft, reviews it, illustrates it,
and assembles a publishable markdown post.`,
}

var runCmd = &cobra.Command{
	Use:   "run [note-file]",
	Short: "Run the full pipeline on a note",
	Long: `Runs stages 1-8 on the given note file. With no argument the most
recently modified note in the configured input directory is used.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, pipeline := mustPipeline()

		notePath := noteFile
		if len(args) > 0 {
			notePath = args[0]
		}
		if notePath == "" {
			var err error
			notePath, err = PickLatestNote(config.Settings.InputDirectory)
			if err != nil {
				log.Fatalf("Selecting note: %v", err)
			}
			log.Printf("Selected most recent note: %s", notePath)
		}

		if _, err := pipeline.Run(context.Background(), notePath); err != nil {
			log.Fatalf("Pipeline failed: %v", err)
		}
	},
}

var reviseCmd = &cobra.Command{
	Use:   "revise",
	Short: "Apply a reviewer comment as a targeted revision",
	Run: func(cmd *cobra.Command, args []string) {
		_, pipeline := mustPipeline()

		comment := commentText
		if commentFile != "" {
			data, err := os.ReadFile(commentFile)
			if err != nil {
				log.Fatalf("Reading comment file: %v", err)
			}
			comment = string(data)
		}
		if comment == "" {
			log.Fatal("Comment required: use --comment or --comment-file")
		}
		if reviseFile == "" {
			log.Fatal("File required: use --file")
		}

		result, err := pipeline.Revise(RevisionRequest{
			FilePath: reviseFile,
			Line:     reviseLine,
			Comment:  comment,
		})
		if err != nil {
			log.Fatalf("Revision failed: %v", err)
		}

		summaryPath, err := pipeline.WriteRevisionSummary(result)
		if err != nil {
			log.Fatalf("Writing summary: %v", err)
		}

		log.Printf("✓ Revised %s (%s)", reviseFile, result.Scope)
		log.Printf("  Changes: %s", result.ChangesMade)
		log.Printf("  Summary: %s", summaryPath)
	},
}

// mustPipeline builds config and pipeline or exits.
func mustPipeline() (*Config, *Pipeline) {
	if anthropicKey == "" {
		anthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if anthropicKey == "" {
		log.Fatal("API key required: use --api-key flag or ANTHROPIC_API_KEY environment variable")
	}
	if searchKey == "" {
		searchKey = os.Getenv("BING_SEARCH_KEY")
	}
	if genaiKey == "" {
		genaiKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := ensureConfigExists(); err != nil {
		log.Fatalf("Preparing config: %v", err)
	}

	overrides := &ConfigOverrides{}
	if settingsPath != "" {
		overrides.SettingsPath = &settingsPath
	}
	if templatePath != "" {
		overrides.TemplatePath = &templatePath
	}
	if promptDir != "" {
		overrides.PromptDir = &promptDir
	}

	config, err := NewConfig(overrides)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}

	if debugMode {
		SetDebugMode(true)
	}

	pipeline, err := NewPipeline(context.Background(), config, anthropicKey, searchKey, genaiKey)
	if err != nil {
		log.Fatalf("Creating pipeline: %v", err)
	}
	return config, pipeline
}

func init() {
	rootCmd.PersistentFlags().StringVar(&anthropicKey, "api-key", "", "Anthropic API key")
	rootCmd.PersistentFlags().StringVar(&searchKey, "search-key", "", "Bing Web Search API key")
	rootCmd.PersistentFlags().StringVar(&genaiKey, "genai-key", "", "Google GenAI API key for image generation")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to custom settings file")
	rootCmd.PersistentFlags().StringVar(&templatePath, "template", "", "Path to custom post template file")
	rootCmd.PersistentFlags().StringVar(&promptDir, "prompt-dir", "", "Directory with custom prompt files")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	runCmd.Flags().StringVar(&noteFile, "input", "", "Note file to process")

	reviseCmd.Flags().StringVar(&reviseFile, "file", "", "Path to the post to revise")
	reviseCmd.Flags().IntVar(&reviseLine, "line", 1, "Line number the comment was made on")
	reviseCmd.Flags().StringVar(&commentText, "comment", "", "The revision comment/instruction")
	reviseCmd.Flags().StringVar(&commentFile, "comment-file", "", "File containing the revision comment")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reviseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
