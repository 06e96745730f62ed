package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/mailnote/internal/model"
)

// tagCandidates assembles the ordered candidate list: the configured
// comma separated tags first, then the mail's own tag keys resolved
// through the host's tag definitions when enabled. Keys without a
// definition fall back to the key itself.
func (e *Exporter) tagCandidates(
	ctx context.Context, header model.MailHeader,
) []string {
	var tags []string
	if e.cfg.Tags != "" {
		tags = strings.Split(e.cfg.Tags, ",")
	}

	if !e.cfg.TagsFromEmail || len(header.TagKeys) == 0 {
		return tags
	}

	defs, err := e.host.ListTagDefinitions(ctx)
	if err != nil {
		e.log.Warn("listing tag definitions", "error", err)
		return tags
	}

	labels := make(map[string]string, len(defs))
	for _, def := range defs {
		labels[def.Key] = def.Tag
	}

	for _, key := range header.TagKeys {
		if label, ok := labels[key]; ok {
			tags = append(tags, label)
		} else {
			tags = append(tags, key)
		}
	}
	return tags
}

// resolveTags resolves and attaches every candidate independently. Tag
// errors never fail the mail's pipeline; each candidate yields an
// explicit outcome instead.
func (e *Exporter) resolveTags(
	ctx context.Context, noteID string, candidates []string,
) []model.TagOutcome {
	outcomes := make([]model.TagOutcome, 0, len(candidates))
	for _, candidate := range candidates {
		outcomes = append(outcomes, e.resolveTag(ctx, noteID, strings.TrimSpace(candidate)))
	}
	return outcomes
}

// resolveTag handles one candidate: search, then create or reuse, then
// attach. Ambiguous matches are skipped so an arbitrary tag is never
// assigned.
func (e *Exporter) resolveTag(
	ctx context.Context, noteID, candidate string,
) model.TagOutcome {
	outcome := model.TagOutcome{Candidate: candidate}

	matches, err := e.notes.SearchTags(ctx, candidate)
	if err != nil {
		e.log.Warn("tag search failed", "tag", candidate, "error", err)
		outcome.Reason = fmt.Sprintf("search failed: %v", err)
		return outcome
	}

	var tagID string
	switch {
	case len(matches) == 0:
		created, err := e.notes.CreateTag(ctx, candidate)
		if err != nil {
			e.log.Warn("creating tag failed", "tag", candidate, "error", err)
			outcome.Reason = fmt.Sprintf("create failed: %v", err)
			return outcome
		}
		tagID = created.ID
	case len(matches) == 1:
		tagID = matches[0].ID
	default:
		titles := make([]string, 0, len(matches))
		for _, match := range matches {
			titles = append(titles, match.Title)
		}
		joined := strings.Join(titles, ", ")
		e.log.Warn("too many matching tags", "tag", candidate, "matches", joined)
		outcome.Reason = fmt.Sprintf("ambiguous, matches: %s", joined)
		return outcome
	}

	if err := e.notes.AttachTag(ctx, tagID, noteID); err != nil {
		e.log.Warn("attaching tag to note failed",
			"tag", candidate, "note", noteID, "error", err)
		outcome.TagID = tagID
		outcome.Reason = fmt.Sprintf("attach failed: %v", err)
		return outcome
	}

	outcome.Attached = true
	outcome.TagID = tagID
	return outcome
}
