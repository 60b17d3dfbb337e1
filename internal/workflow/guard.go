package workflow

import (
	"context"
	"fmt"

	"bookforge/internal/versions"
)

// Stage names how far a chapter has progressed through the pipeline.
type Stage string

const (
	StageEmpty      Stage = "empty"
	StageScraped    Stage = "scraped"
	StageDrafted    Stage = "drafted"
	StageDecided    Stage = "decided"
	StageSummarized Stage = "summarized"
)

// Ledger is the slice of the version store the guard reads.
type Ledger interface {
	ListVersions(ctx context.Context, chapterID string) ([]*versions.Version, error)
}

// Decision is the outcome of an authorization check. A disallowed append is a
// normal result carrying the violated rule, not an error.
type Decision struct {
	Allowed bool
	Reason  string
	Stage   Stage
}

// Guard authorizes version appends against a chapter's history.
type Guard struct {
	ledger Ledger
}

func NewGuard(ledger Ledger) *Guard {
	return &Guard{ledger: ledger}
}

// CurrentStage reads the chapter history and derives its stage.
func (g *Guard) CurrentStage(ctx context.Context, chapterID string) (Stage, error) {
	history, err := g.ledger.ListVersions(ctx, chapterID)
	if err != nil {
		return StageEmpty, fmt.Errorf("load history for %s: %w", chapterID, err)
	}
	return StageFromHistory(history), nil
}

// Authorize decides whether versionType may be appended to the chapter.
// Callers that need the decision to be atomic with the append hold the
// store's chapter lock around both.
func (g *Guard) Authorize(ctx context.Context, chapterID string, versionType versions.Type) (Decision, error) {
	history, err := g.ledger.ListVersions(ctx, chapterID)
	if err != nil {
		return Decision{}, fmt.Errorf("load history for %s: %w", chapterID, err)
	}
	return Evaluate(history, versionType), nil
}

// StageFromHistory derives the stage from which version types are present.
// Appends only ever move the derived stage forward.
func StageFromHistory(history []*versions.Version) Stage {
	present := typesPresent(history)
	switch {
	case present[versions.TypeSummary]:
		return StageSummarized
	case present[versions.TypeFinalDraft] || present[versions.TypeHumanEdited]:
		return StageDecided
	case present[versions.TypeAIDraft]:
		return StageDrafted
	case present[versions.TypeOriginal]:
		return StageScraped
	default:
		return StageEmpty
	}
}

// Evaluate applies the transition rules to a history snapshot.
func Evaluate(history []*versions.Version, versionType versions.Type) Decision {
	stage := StageFromHistory(history)
	present := typesPresent(history)

	decision := Decision{Stage: stage}
	switch versionType {
	case versions.TypeOriginal:
		if present[versions.TypeOriginal] {
			decision.Reason = "original already present"
			return decision
		}
		if len(history) > 0 {
			decision.Reason = "chapter history is not empty"
			return decision
		}
	case versions.TypeAIDraft:
		if !present[versions.TypeOriginal] {
			decision.Reason = "ai_draft requires an original"
			return decision
		}
	case versions.TypeHumanEdited, versions.TypeFinalDraft:
		if !present[versions.TypeAIDraft] {
			decision.Reason = fmt.Sprintf("%s requires an ai_draft", versionType)
			return decision
		}
	case versions.TypeSummary:
		if !present[versions.TypeFinalDraft] {
			decision.Reason = "summary requires a final_draft"
			return decision
		}
	default:
		decision.Reason = fmt.Sprintf("unknown version type %q", versionType)
		return decision
	}

	decision.Allowed = true
	return decision
}

func typesPresent(history []*versions.Version) map[versions.Type]bool {
	present := make(map[versions.Type]bool, len(history))
	for _, version := range history {
		present[version.Type] = true
	}
	return present
}
