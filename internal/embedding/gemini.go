package embedding

import (
	"context"

	"github.com/spigell/job-radar/internal/gemini"
)

// Gemini embeds text through the Gemini API.
type Gemini struct {
	client *gemini.Client
}

func NewGemini(client *gemini.Client) *Gemini {
	return &Gemini{client: client}
}

func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.client.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return g.client.EmbedBatch(ctx, texts)
}
