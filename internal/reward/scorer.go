package reward

import (
	"context"
	"log/slog"
	"strings"

	"bookforge/internal/semindex"
)

const (
	similarityWeight   = 0.2
	contractionRatio   = 0.7
	contractionPenalty = 0.1
)

// Sentiment is the feedback classification driving the largest score term.
type Sentiment string

const (
	SentimentApproval Sentiment = "approval"
	SentimentReject   Sentiment = "reject"
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// sentimentRules is ordered by priority; the first rule whose phrases match
// wins and rules never accumulate.
var sentimentRules = []struct {
	sentiment Sentiment
	weight    float64
	phrases   []string
}{
	{SentimentApproval, 1.0, []string{"approve"}},
	{SentimentReject, -1.0, []string{"reject", "poor"}},
	{SentimentPositive, 0.5, []string{"good", "minor"}},
	{SentimentNegative, -0.5, []string{"needs work", "major"}},
}

// Classify matches feedback text against the sentiment rules.
func Classify(feedback string) (Sentiment, float64) {
	lower := strings.ToLower(feedback)
	for _, rule := range sentimentRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				return rule.sentiment, rule.weight
			}
		}
	}
	return SentimentNeutral, 0
}

// Embedder is the capability the similarity term depends on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Breakdown records the individual terms behind a score.
type Breakdown struct {
	Score      float64
	Sentiment  Sentiment
	Feedback   float64
	Similarity float64
	Penalty    float64
}

// Scorer combines the sentiment, similarity, and length-contraction terms.
type Scorer struct {
	embedder Embedder
	logger   *slog.Logger
}

func NewScorer(embedder Embedder, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{embedder: embedder, logger: logger}
}

// Score returns the quality signal for a rewrite. If the embedding backend
// is unavailable the similarity term contributes zero rather than failing
// the whole call.
func (s *Scorer) Score(ctx context.Context, original, rewritten, feedback string) (Breakdown, error) {
	sentiment, weight := Classify(feedback)
	breakdown := Breakdown{Sentiment: sentiment, Feedback: weight}

	if s.embedder != nil {
		originalVec, err := s.embedder.Embed(ctx, original)
		if err == nil {
			var rewrittenVec []float32
			rewrittenVec, err = s.embedder.Embed(ctx, rewritten)
			if err == nil {
				breakdown.Similarity = semindex.CosineSimilarity(originalVec, rewrittenVec) * similarityWeight
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return Breakdown{}, ctx.Err()
			}
			s.logger.Warn("similarity term skipped", "error", err)
		}
	}

	if float64(len(rewritten)) < float64(len(original))*contractionRatio && sentiment != SentimentApproval {
		breakdown.Penalty = -contractionPenalty
	}

	breakdown.Score = breakdown.Feedback + breakdown.Similarity + breakdown.Penalty
	return breakdown, nil
}
