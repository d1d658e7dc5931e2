// Package cli wires the corpus services into cobra commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nimbus-labs/corpus/internal/adapters/driven/config/file"
	embollama "github.com/nimbus-labs/corpus/internal/adapters/driven/embedding/ollama"
	embopenai "github.com/nimbus-labs/corpus/internal/adapters/driven/embedding/openai"
	llmollama "github.com/nimbus-labs/corpus/internal/adapters/driven/llm/ollama"
	llmopenai "github.com/nimbus-labs/corpus/internal/adapters/driven/llm/openai"
	"github.com/nimbus-labs/corpus/internal/adapters/driven/storage/memory"
	"github.com/nimbus-labs/corpus/internal/adapters/driven/storage/sqlite"
	"github.com/nimbus-labs/corpus/internal/chunker"
	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
	"github.com/nimbus-labs/corpus/internal/core/services"
	"github.com/nimbus-labs/corpus/internal/logger"
)

// Persistent flags.
var (
	configPath string
	verbose    bool
)

// app holds the wired services for the lifetime of one command.
type app struct {
	cfg       *file.Config
	store     *sqlite.Store
	transient *memory.ConversationStore
	ingestor  *services.IngestService
	rag       *services.RAGService
	chat      *services.ChatService
}

var rootCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Knowledge ingestion and retrieval-augmented question answering",
	Long: `corpus ingests textual knowledge into a local vector store and answers
questions over it, with optional multi-turn chat. It talks to OpenAI or a
local Ollama server for embeddings and generation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context, so
// commands stop when the process receives an interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.corpus/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
}

// newApp loads configuration and wires stores, providers and services.
// Callers must close the returned app.
func newApp() (*app, error) {
	cfg, err := file.Load(configPath)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	embedding, err := buildEmbedding(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	generation, err := buildGeneration(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	chunkOpts := []chunker.Option{}
	if cfg.Chunk.TargetSize > 0 {
		chunkOpts = append(chunkOpts, chunker.WithTargetSize(cfg.Chunk.TargetSize))
	}
	if cfg.Chunk.Overlap > 0 {
		chunkOpts = append(chunkOpts, chunker.WithOverlap(cfg.Chunk.Overlap))
	}
	if cfg.Chunk.Separator != "" {
		chunkOpts = append(chunkOpts, chunker.WithSeparator(cfg.Chunk.Separator))
	}

	ingestor := services.NewIngestService(
		store.DocumentStore(),
		store.VectorStore(),
		embedding,
		services.WithChunker(chunker.New(chunkOpts...)),
	)

	ragOpts := []services.RAGOption{}
	if cfg.Chat.SystemPrompt != "" {
		ragOpts = append(ragOpts, services.WithSystemPrompt(cfg.Chat.SystemPrompt))
	}
	rag := services.NewRAGService(
		store.DocumentStore(),
		store.VectorStore(),
		embedding,
		generation,
		ragOpts...,
	)

	transientOpts := []memory.ConversationStoreOption{}
	if ttl := cfg.Chat.TransientTTL.Duration(); ttl > 0 {
		transientOpts = append(transientOpts, memory.WithTTL(ttl))
	}
	if sweep := cfg.Chat.SweepInterval.Duration(); sweep > 0 {
		transientOpts = append(transientOpts, memory.WithSweepInterval(sweep))
	}
	transient := memory.NewConversationStore(transientOpts...)

	selector := services.NewStoreSelector(
		domain.StorageMode(cfg.Chat.StorageMode),
		transient,
		store.ConversationStore(),
	)

	chatOpts := []services.ChatOption{}
	if cfg.Chat.SystemPrompt != "" {
		chatOpts = append(chatOpts, services.WithChatSystemPrompt(cfg.Chat.SystemPrompt))
	}
	chat := services.NewChatService(selector, rag, generation, chatOpts...)

	return &app{
		cfg:       cfg,
		store:     store,
		transient: transient,
		ingestor:  ingestor,
		rag:       rag,
		chat:      chat,
	}, nil
}

// close releases the app's resources.
func (a *app) close() {
	a.transient.Close()
	if err := a.store.Close(); err != nil {
		logger.Warn("closing store: %v", err)
	}
}

// buildEmbedding constructs the configured embedding provider.
func buildEmbedding(cfg *file.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embopenai.NewEmbeddingService(embopenai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	case "ollama", "":
		return embollama.NewEmbeddingService(embollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// buildGeneration constructs the configured generation provider.
func buildGeneration(cfg *file.Config) (driven.GenerationService, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llmopenai.NewGenerationService(llmopenai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
	case "ollama", "":
		return llmollama.NewGenerationService(llmollama.Config{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// retrieveOptions builds retrieval options from config defaults plus
// command-level overrides.
func (a *app) retrieveOptions(topK int, minScore float64) domain.RetrieveOptions {
	opts := domain.RetrieveOptions{
		TopK:     a.cfg.Retrieval.TopK,
		MinScore: a.cfg.Retrieval.MinScore,
	}
	if topK > 0 {
		opts.TopK = topK
	}
	if minScore > 0 {
		opts.MinScore = minScore
	}
	return opts
}
