package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"bookforge/internal/reward"
	"bookforge/internal/semindex"
	"bookforge/internal/services"
	"bookforge/internal/services/scrape"
	"bookforge/internal/textutil"
	"bookforge/internal/versions"
	"bookforge/internal/workflow"
)

const summaryWordCount = 100

// ContentAcquirer fetches raw chapter text for a source locator.
type ContentAcquirer interface {
	Fetch(ctx context.Context, locator string) (scrape.Result, error)
}

// Generator produces rewrites and editorial reviews.
type Generator interface {
	Rewrite(ctx context.Context, text string) (string, error)
	Review(ctx context.Context, original, rewritten string) (string, error)
}

// RejectedError surfaces a workflow guard rejection through an operation's
// error return. The decision inside is the normal-result form.
type RejectedError struct {
	Decision workflow.Decision
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("workflow rejected (stage %s): %s", e.Decision.Stage, e.Decision.Reason)
}

// Draft pairs an appended ai_draft with the advisory review feedback, which
// is returned to the caller but never persisted.
type Draft struct {
	Version        *versions.Version
	ReviewFeedback string
}

// Pipeline is the orchestration layer over the core components.
type Pipeline struct {
	store     *versions.Store
	guard     *workflow.Guard
	index     *semindex.Index
	scorer    *reward.Scorer
	acquirer  ContentAcquirer
	generator Generator
	logger    *slog.Logger
}

func New(store *versions.Store, index *semindex.Index, scorer *reward.Scorer, acquirer ContentAcquirer, generator Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		guard:     workflow.NewGuard(store),
		index:     index,
		scorer:    scorer,
		acquirer:  acquirer,
		generator: generator,
		logger:    logger,
	}
}

// StartChapter fetches the locator, derives a chapter id from the page
// title, and appends the original version.
func (p *Pipeline) StartChapter(ctx context.Context, locator string) (*versions.Version, error) {
	result, err := p.acquirer.Fetch(ctx, locator)
	if err != nil {
		return nil, err
	}

	chapterID := fmt.Sprintf("%s-%.8s", textutil.Slug(result.Title), uuid.NewString())
	version, err := p.appendAuthorized(ctx, chapterID, versions.TypeOriginal, result.Text, result.AuxReference)
	if err != nil {
		return nil, err
	}
	p.logger.Info("chapter started",
		"chapter", chapterID,
		"title", result.Title,
		"locator", locator)
	return version, nil
}

// RequestDraft rewrites the chapter's original, appends the draft, then asks
// the generator for advisory review feedback. A review failure degrades to
// an empty feedback string since the draft is already committed.
func (p *Pipeline) RequestDraft(ctx context.Context, chapterID string) (*Draft, error) {
	original, err := p.store.GetLatest(ctx, chapterID, versions.TypeOriginal)
	if err != nil {
		return nil, err
	}

	rewritten, err := p.generator.Rewrite(ctx, original.Content)
	if err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "generator", "rewrite", "chapter "+chapterID, err)
	}

	version, err := p.appendAuthorized(ctx, chapterID, versions.TypeAIDraft, rewritten, "")
	if err != nil {
		return nil, err
	}

	feedback, err := p.generator.Review(ctx, original.Content, rewritten)
	if err != nil {
		p.logger.Warn("review feedback unavailable", "chapter", chapterID, "error", err)
		feedback = ""
	}
	p.logger.Info("draft appended", "chapter", chapterID, "sequence", version.Sequence)
	return &Draft{Version: version, ReviewFeedback: feedback}, nil
}

// SubmitHumanDecision records the human decision as a final draft. The exact
// text "approve" (case-insensitive) promotes the latest ai_draft content;
// anything else (a rejection, revision notes) is stored verbatim as the
// final_draft text. A non-approval does not dead-end the chapter: appending
// another ai_draft stays legal, and a later decision appends a new
// final_draft that supersedes the earlier one, since readers take the
// greatest sequence per type.
func (p *Pipeline) SubmitHumanDecision(ctx context.Context, chapterID, decision string) (*versions.Version, error) {
	decision = strings.TrimSpace(decision)
	if decision == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "decision", "decision text is empty", nil)
	}

	unlock := p.store.LockChapter(chapterID)
	defer unlock()

	content := decision
	if strings.EqualFold(decision, "approve") {
		draft, err := p.store.GetLatest(ctx, chapterID, versions.TypeAIDraft)
		if err != nil {
			return nil, err
		}
		content = draft.Content
	}

	version, err := p.appendLocked(ctx, chapterID, versions.TypeFinalDraft, content, "")
	if err != nil {
		return nil, err
	}
	p.logger.Info("decision recorded",
		"chapter", chapterID,
		"approved", strings.EqualFold(decision, "approve"),
		"sequence", version.Sequence)
	return version, nil
}

// ArchiveSummary appends a leading-words extract of the chapter's original
// as the summary version. The guard only allows it once a final draft
// exists.
func (p *Pipeline) ArchiveSummary(ctx context.Context, chapterID string) (*versions.Version, error) {
	original, err := p.store.GetLatest(ctx, chapterID, versions.TypeOriginal)
	if err != nil {
		return nil, err
	}

	summary := textutil.LeadingWords(original.Content, summaryWordCount)
	version, err := p.appendAuthorized(ctx, chapterID, versions.TypeSummary, summary, "")
	if err != nil {
		return nil, err
	}
	p.logger.Info("summary archived", "chapter", chapterID, "sequence", version.Sequence)
	return version, nil
}

// ListVersions returns the chapter's full history.
func (p *Pipeline) ListVersions(ctx context.Context, chapterID string) ([]*versions.Version, error) {
	return p.store.ListVersions(ctx, chapterID)
}

// Search runs a similarity query over the semantic index.
func (p *Pipeline) Search(ctx context.Context, query string, k int) ([]semindex.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "search", "query is empty", nil)
	}
	return p.index.Search(ctx, query, k)
}

// Score computes the quality signal for the chapter's latest draft against
// its original, given human feedback text.
func (p *Pipeline) Score(ctx context.Context, chapterID, feedback string) (reward.Breakdown, error) {
	original, err := p.store.GetLatest(ctx, chapterID, versions.TypeOriginal)
	if err != nil {
		return reward.Breakdown{}, err
	}
	draft, err := p.store.GetLatest(ctx, chapterID, versions.TypeAIDraft)
	if err != nil {
		return reward.Breakdown{}, err
	}
	return p.scorer.Score(ctx, original.Content, draft.Content, feedback)
}

// Stage reports the chapter's derived workflow stage.
func (p *Pipeline) Stage(ctx context.Context, chapterID string) (workflow.Stage, error) {
	return p.guard.CurrentStage(ctx, chapterID)
}

// appendAuthorized runs authorize-then-append under the chapter lock.
func (p *Pipeline) appendAuthorized(ctx context.Context, chapterID string, versionType versions.Type, content, auxReference string) (*versions.Version, error) {
	unlock := p.store.LockChapter(chapterID)
	defer unlock()
	return p.appendLocked(ctx, chapterID, versionType, content, auxReference)
}

// appendLocked assumes the caller already holds the chapter lock.
func (p *Pipeline) appendLocked(ctx context.Context, chapterID string, versionType versions.Type, content, auxReference string) (*versions.Version, error) {
	decision, err := p.guard.Authorize(ctx, chapterID, versionType)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &RejectedError{Decision: decision}
	}
	return p.store.Append(ctx, chapterID, versionType, content, auxReference)
}
