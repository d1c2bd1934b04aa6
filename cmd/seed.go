package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hmorsi/coursewright/internal/retrieval"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Index the knowledge-base corpus into the vector store",
	Long: `Reads the corpus YAML file, embeds every source document, and persists
the vector store into the data directory for generation to retrieve from.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("corpus", "", "corpus file (overrides config)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	corpusPath, _ := cmd.Flags().GetString("corpus")
	if corpusPath == "" {
		corpusPath = cfg.CorpusFile
	}

	docs, err := retrieval.LoadCorpus(corpusPath)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("corpus %s contains no sources", corpusPath)
	}

	c := buildCache(ctx, cfg, log)
	embedder, err := buildEmbedder(cfg, c)
	if err != nil {
		return err
	}
	store, err := retrieval.NewChromemStore(embedder)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetDescription("Indexing sources"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	for _, doc := range docs {
		if err := store.Add(ctx, []retrieval.SourceDocument{doc}); err != nil {
			return fmt.Errorf("indexing %s: %w", doc.ID, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := store.Persist(cfg.DataDir); err != nil {
		return fmt.Errorf("persisting knowledge base: %w", err)
	}

	fmt.Printf("Indexed %d sources into %s\n", store.Count(), cfg.DataDir)
	return nil
}
