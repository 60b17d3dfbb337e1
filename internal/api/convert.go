package api

import (
	"time"

	"bookforge/internal/reward"
	"bookforge/internal/semindex"
	"bookforge/internal/versions"
)

// FromVersion converts a stored version to its wire form.
func FromVersion(v *versions.Version) VersionPayload {
	payload := VersionPayload{
		ChapterID:    v.ChapterID,
		Type:         string(v.Type),
		Sequence:     v.Sequence,
		Content:      v.Content,
		AuxReference: v.AuxReference,
	}
	if !v.CreatedAt.IsZero() {
		payload.CreatedAt = v.CreatedAt.Format(time.RFC3339Nano)
	}
	return payload
}

// FromVersions converts a history slice, preserving order.
func FromVersions(list []*versions.Version) []VersionPayload {
	payloads := make([]VersionPayload, len(list))
	for i, v := range list {
		payloads[i] = FromVersion(v)
	}
	return payloads
}

// FromMatch converts a similarity match to its wire form.
func FromMatch(m semindex.Match) SearchMatch {
	return SearchMatch{
		ChapterID:   m.Key.ChapterID,
		Sequence:    m.Key.Sequence,
		Distance:    m.Distance,
		VersionType: string(m.VersionType),
		Snippet:     m.Snippet,
	}
}

// FromMatches converts a match slice, preserving order.
func FromMatches(matches []semindex.Match) []SearchMatch {
	converted := make([]SearchMatch, len(matches))
	for i, m := range matches {
		converted[i] = FromMatch(m)
	}
	return converted
}

// FromBreakdown converts a reward breakdown to its wire form.
func FromBreakdown(b reward.Breakdown) ScoreResponse {
	return ScoreResponse{
		Score:      b.Score,
		Sentiment:  string(b.Sentiment),
		Feedback:   b.Feedback,
		Similarity: b.Similarity,
		Penalty:    b.Penalty,
	}
}
