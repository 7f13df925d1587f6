// Command embedcheck exercises the full pipeline against the configured
// embedding provider: add sample text, retrieve ranked context, and print
// what the provider produced. Useful for verifying API keys and provider
// connectivity before wiring the library into a game session.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mysteryforge/gamecontext/internal/embedder"
	"github.com/mysteryforge/gamecontext/internal/manager"
	"github.com/mysteryforge/gamecontext/internal/storage"
)

func main() {
	fmt.Println("Checking embedding integration...")

	emb, err := embedder.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	fmt.Printf("Provider: %s (model %s, dimension %d)\n", emb.Provider(), emb.Model(), emb.Dimension())

	store, err := storage.NewSQLiteStorage()
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	mgr, err := manager.New(store, manager.Config{Embedder: emb})
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	defer func() { _ = mgr.Close() }()

	ctx := context.Background()

	sample := "The old lighthouse keeper knows every ship that passes the cape. " +
		"He keeps a logbook of storms going back forty years. " +
		"Sailors trade him news from distant ports in exchange for weather warnings."

	n, err := mgr.AddText(ctx, "lighthouse-keeper", sample, 80, 10)
	if err != nil {
		log.Fatalf("Failed to add text: %v", err)
	}
	fmt.Printf("Stored %d chunks\n", n)

	stats, err := mgr.EntityStats(ctx, "lighthouse-keeper")
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	if stats.FallbackActive {
		fmt.Println("WARNING: embedding provider failed, entity is in lexical fallback mode")
	}

	result, err := mgr.GetContext(ctx, "lighthouse-keeper", "storm warnings for sailors", 2, 0)
	if err != nil {
		log.Fatalf("Failed to get context: %v", err)
	}

	mode := "similarity"
	if result.Fallback {
		mode = "lexical fallback"
	}
	fmt.Printf("Retrieved %d chunks via %s:\n", len(result.Chunks), mode)
	for _, chunk := range result.Chunks {
		fmt.Printf("  [%d] score=%.4f %q\n", chunk.Rank, chunk.Score, chunk.Chunk.Content)
	}

	if result.Fallback && emb.Provider() != embedder.ProviderLocal {
		fmt.Println("Embedding check FAILED (fell back to lexical retrieval)")
		os.Exit(1)
	}
	fmt.Println("Embedding check passed")
}
