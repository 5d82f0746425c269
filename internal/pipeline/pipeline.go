// Package pipeline wires parse → embed → upsert into a single per-file
// operation shared by the indexing queue and the priority indexer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vectralab/codelens/internal/embedder"
	"github.com/vectralab/codelens/internal/parser"
	"github.com/vectralab/codelens/internal/storage"
	"github.com/vectralab/codelens/pkg/types"
)

// ErrSkipFile marks a file the pipeline chose not to index (unreadable,
// unparseable). Distinguishable from a hard failure: callers count it and
// move on instead of retrying.
var ErrSkipFile = errors.New("file skipped")

// Pipeline indexes individual files into one collection.
type Pipeline struct {
	parser     parser.Parser
	provider   embedder.Provider
	gateway    storage.Gateway
	collection string
	log        *zap.Logger
}

// New constructs a pipeline bound to a collection.
func New(p parser.Parser, provider embedder.Provider, gateway storage.Gateway, collection string, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		parser:     p,
		provider:   provider,
		gateway:    gateway,
		collection: collection,
		log:        log,
	}
}

// Collection returns the collection this pipeline writes to.
func (p *Pipeline) Collection() string { return p.collection }

// IndexPath reads, parses, embeds, and upserts one file. The upsert is
// idempotent: the record key is derived from the path.
func (p *Pipeline) IndexPath(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSkipFile, path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSkipFile, path, err)
	}

	parsed, err := p.parser.Parse(path, content)
	if err != nil || !parsed.OK {
		detail := ""
		if err != nil {
			detail = err.Error()
		} else {
			detail = parsed.Err
		}
		p.log.Debug("parse failed, skipping", zap.String("path", path), zap.String("error", detail))
		return fmt.Errorf("%w: %s: parse failed", ErrSkipFile, path)
	}

	emb, err := p.provider.Embed(ctx, buildEmbedText(path, parsed))
	if err != nil {
		// No embedding, no index entry. This is the transient class the
		// priority indexer retries.
		return fmt.Errorf("%w: %s: %v", types.ErrEmbeddingUnavailable, path, err)
	}

	rec := storage.Record{
		Path:   path,
		Vector: emb.Vector,
		Payload: types.VectorPayload{
			Path:       path,
			Name:       parsed.Name,
			FileType:   parsed.FileType,
			Size:       info.Size(),
			Snippet:    parsed.Snippet,
			ModifiedAt: info.ModTime(),
			IndexedAt:  time.Now(),
		},
	}
	if err := p.gateway.Upsert(ctx, p.collection, rec); err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}
	return nil
}

// RemovePath deletes a file's record from the store.
func (p *Pipeline) RemovePath(ctx context.Context, path string) error {
	return p.gateway.Delete(ctx, p.collection, path)
}

// buildEmbedText assembles the text handed to the embedding provider:
// path, extracted names, then the leading snippet.
func buildEmbedText(path string, parsed *parser.Result) string {
	var b strings.Builder
	b.WriteString(path)
	b.WriteString("\n")
	if len(parsed.Symbols) > 0 {
		b.WriteString(strings.Join(parsed.Symbols, " "))
		b.WriteString("\n")
	}
	if len(parsed.Classes) > 0 {
		b.WriteString(strings.Join(parsed.Classes, " "))
		b.WriteString("\n")
	}
	b.WriteString(parsed.Snippet)
	return b.String()
}
