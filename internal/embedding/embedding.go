// Package embedding defines the text-to-vector contract used by the
// matching pipeline and its provider implementations.
package embedding

import "context"

// Provider turns text into fixed-dimension vectors. A nil/empty vector or an
// error both mean "no embedding available for this text"; the pipeline skips
// such items instead of failing the run.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
