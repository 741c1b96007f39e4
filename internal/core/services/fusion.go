package services

import (
	"sort"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// FusionConfig configures rank fusion
type FusionConfig struct {
	// K is the rank-smoothing constant in 1/(K+rank). Larger values
	// flatten the difference between adjacent ranks.
	K int

	// FinalK is the number of fused results to keep
	FinalK int
}

// DefaultFusionConfig returns sensible defaults
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		K:      60,
		FinalK: 5,
	}
}

// Fuser merges the semantic and lexical rankings with reciprocal rank
// fusion. Only ranks matter: the backends' raw scores are on incomparable
// scales and are discarded.
type Fuser struct {
	config FusionConfig
}

// NewFuser creates a new Fuser
func NewFuser(config FusionConfig) *Fuser {
	def := DefaultFusionConfig()
	if config.K <= 0 {
		config.K = def.K
	}
	if config.FinalK <= 0 {
		config.FinalK = def.FinalK
	}
	return &Fuser{config: config}
}

// Fuse merges both result lists. A chunk found by both backends sums its
// two contributions; a chunk found by one keeps its single contribution
// and competes on equal terms. Ties break on chunk ID ascending so the
// ordering is fully deterministic. finalK <= 0 uses the configured default.
func (f *Fuser) Fuse(vector []domain.VectorMatch, keyword []domain.KeywordMatch, finalK int) []domain.FusedResult {
	if finalK <= 0 {
		finalK = f.config.FinalK
	}

	fused := make(map[string]*domain.FusedResult)

	for rank, m := range vector {
		r := &domain.FusedResult{
			ChunkID:    m.ChunkID,
			DocumentID: m.DocumentID,
			Source:     m.Source,
			Content:    m.Content,
			ChunkIndex: m.ChunkIndex,
			Score:      f.contribution(rank),
			Backends:   []domain.Backend{domain.BackendSemantic},
		}
		fused[m.ChunkID] = r
	}

	for rank, m := range keyword {
		if r, ok := fused[m.ChunkID]; ok {
			r.Score += f.contribution(rank)
			r.Backends = append(r.Backends, domain.BackendLexical)
			// The lexical index always stores text; prefer it when the
			// semantic hit came back without content
			if r.Content == "" {
				r.Content = m.Content
			}
			continue
		}
		fused[m.ChunkID] = &domain.FusedResult{
			ChunkID:    m.ChunkID,
			DocumentID: m.DocumentID,
			Source:     m.Source,
			Content:    m.Content,
			ChunkIndex: m.ChunkIndex,
			Score:      f.contribution(rank),
			Backends:   []domain.Backend{domain.BackendLexical},
		}
	}

	results := make([]domain.FusedResult, 0, len(fused))
	for _, r := range fused {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > finalK {
		results = results[:finalK]
	}
	return results
}

// contribution computes the reciprocal-rank score for a 0-based list index
func (f *Fuser) contribution(index int) float64 {
	return 1.0 / float64(f.config.K+index+1)
}
