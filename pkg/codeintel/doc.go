// Package codeintel is the public entry point to the semantic code
// intelligence engine. It follows Black Box Design principles: callers
// see one Engine type and its query API, never the store, index
// manager, retriever, or analyzer that implement it underneath.
//
// # Architecture
//
//	┌─────────────────────────────────────────────┐
//	│                  codeintel.Engine            │
//	│  ┌──────────┐  ┌───────────┐  ┌───────────┐  │
//	│  │  index   │  │ retrieval │  │ analysis  │  │
//	│  │ (update, │  │ (search,  │  │ (impact,  │  │
//	│  │ rebuild) │  │find_similar)│ (diff)     │  │
//	│  └────┬─────┘  └─────┬─────┘  └─────┬─────┘  │
//	│       └──────────────┴──────────────┘        │
//	│                     store                     │
//	└─────────────────────────────────────────────┘
//
// # Usage
//
//	eng, err := codeintel.Open(ctx, codeintel.Options{
//	    RootDir:  "/path/to/project",
//	    Branch:   "main",
//	    Embedder: embed.NewStaticEmbedder(embed.StaticDimensions),
//	})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	if _, err := eng.Update(ctx); err != nil {
//	    return err
//	}
//	result, err := eng.Search(ctx, codeintel.Query{QueryText: "rate limiter", Branch: "main"})
package codeintel
