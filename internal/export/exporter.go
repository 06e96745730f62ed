// Package export implements the mail-to-note pipeline: content selection,
// template rendering, note creation, tag resolution and attachment upload
// against the remote note service.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/mailnote/internal/host"
	"github.com/nhle/mailnote/internal/joplin"
	"github.com/nhle/mailnote/internal/model"
)

// NoteService is the subset of the remote API the exporter calls.
// *joplin.Client implements it; tests substitute fakes.
type NoteService interface {
	CreateNote(ctx context.Context, note joplin.NewNote) (joplin.Note, error)
	UpdateNoteBody(ctx context.Context, noteID, body string) (joplin.Note, error)
	SetNoteBody(ctx context.Context, noteID, body string) error
	SearchTags(ctx context.Context, query string) ([]joplin.Tag, error)
	CreateTag(ctx context.Context, title string) (joplin.Tag, error)
	AttachTag(ctx context.Context, tagID, noteID string) error
	CreateResource(ctx context.Context, title string, data []byte) (joplin.Resource, error)
}

// HistoryRecorder persists per-mail outcomes. A nil recorder disables
// history; recording failures are warnings.
type HistoryRecorder interface {
	RecordExport(ctx context.Context, rec model.ExportRecord) error
}

// Exporter orchestrates one pipeline per displayed mail and folds the
// outcomes into a single report.
type Exporter struct {
	host    host.Host
	notes   NoteService
	cfg     model.JoplinConfig
	token   string
	log     *slog.Logger
	history HistoryRecorder
}

// New creates an Exporter. history may be nil.
func New(
	h host.Host,
	notes NoteService,
	cfg model.JoplinConfig,
	token string,
	log *slog.Logger,
	history HistoryRecorder,
) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{
		host:    h,
		notes:   notes,
		cfg:     cfg,
		token:   token,
		log:     log,
		history: history,
	}
}

// ExportDisplayed runs the export pipeline for every displayed mail
// concurrently and returns the aggregate report. A missing API token
// short-circuits before any host or remote call.
func (e *Exporter) ExportDisplayed(ctx context.Context) model.Report {
	report := model.Report{RunID: uuid.New().String()}

	if strings.TrimSpace(e.token) == "" {
		report.Message = "API token missing."
		return report
	}

	headers, err := e.host.DisplayedMessages(ctx)
	if err != nil {
		e.log.Error("listing displayed messages", "error", err)
		report.Message = "Please check the logs."
		return report
	}
	e.log.Debug("got displayed messages", "count", len(headers))

	// One pipeline per mail; mails are independent and each goroutine
	// owns its result slot.
	results := make([]model.MailResult, len(headers))
	var wg sync.WaitGroup
	for i, header := range headers {
		wg.Add(1)
		go func(i int, header model.MailHeader) {
			defer wg.Done()
			results[i] = e.processMail(ctx, header)
		}(i, header)
	}
	wg.Wait()

	report.Results = results
	report.Success = true
	for _, result := range results {
		if result.Err != "" {
			e.log.Error("export failed",
				"mail", result.MailID, "error", result.Err)
			report.Success = false
		}
	}

	e.record(ctx, report)

	if report.Success {
		if len(results) == 1 {
			report.Message = "Exported one email."
		} else {
			report.Message = fmt.Sprintf("Exported %d emails.", len(results))
		}
	} else {
		report.Message = "Please check the logs."
	}
	return report
}

// processMail is the sequential pipeline for a single mail. Critical path
// failures abort it; tag and attachment errors only warn.
func (e *Exporter) processMail(
	ctx context.Context, header model.MailHeader,
) model.MailResult {
	result := model.MailResult{MailID: header.ID, Subject: header.Subject}

	if header.ID == "" {
		result.Err = "mail header is empty"
		return result
	}

	parentID := e.cfg.ParentFolder
	if parentID == "" {
		result.Err = fmt.Sprintf("invalid destination notebook: %q", parentID)
		return result
	}

	renderCtx := renderingContext(header, e.cfg, e.log)

	draft := joplin.NewNote{
		Title:    RenderTemplate(e.cfg.TitleTemplate, renderCtx),
		ParentID: parentID,
		IsTodo:   boolToInt(e.cfg.ExportAsTodo),
		Author:   header.Author,
	}
	if !header.Date.IsZero() {
		draft.UserCreatedTime = header.Date.UnixMilli()
	}

	if err := e.selectContent(ctx, header, &draft); err != nil {
		result.Err = err.Error()
		return result
	}

	note, err := e.createNote(ctx, draft)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	result.NoteID = note.ID

	note, err = e.appendHeader(ctx, note, renderCtx)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	result.Tags = e.resolveTags(ctx, note.ID, e.tagCandidates(ctx, header))

	e.uploadAttachments(ctx, header, note)

	return result
}

// selectContent fills exactly one body field of the draft: the user's
// selection when present, otherwise the extracted mail content per the
// preferred-format fallback rules.
func (e *Exporter) selectContent(
	ctx context.Context,
	header model.MailHeader,
	draft *joplin.NewNote,
) error {
	selection, err := e.host.SelectedText(ctx)
	if err != nil {
		e.log.Warn("reading selected text", "mail", header.ID, "error", err)
		selection = ""
	}
	if strings.TrimSpace(selection) != "" {
		e.log.Info("sending selection in plain format", "mail", header.ID)
		draft.Body = selection
		return nil
	}

	tree, err := e.host.FullBody(ctx, header.ID)
	if err != nil {
		return fmt.Errorf("fetching mail body: %w", err)
	}

	htmlContent := ContentForType(tree, model.ContentTypeHTML)
	plainContent := ContentForType(tree, model.ContentTypePlain)

	body, bodyHTML, err := SelectBody(e.cfg.NoteFormat, htmlContent, plainContent)
	if err != nil {
		return err
	}

	if bodyHTML != "" {
		e.log.Info("sending complete email in html format", "mail", header.ID)
	}
	if body != "" {
		e.log.Info("sending complete email in plain format", "mail", header.ID)
	}

	draft.Body = body
	draft.BodyHTML = bodyHTML
	return nil
}

// record writes one history row per processed mail, best effort.
func (e *Exporter) record(ctx context.Context, report model.Report) {
	if e.history == nil {
		return
	}
	now := time.Now().UTC()
	for _, result := range report.Results {
		rec := model.ExportRecord{
			RunID:      report.RunID,
			MailID:     result.MailID,
			Subject:    result.Subject,
			NoteID:     result.NoteID,
			Error:      result.Err,
			ExportedAt: now,
		}
		if err := e.history.RecordExport(ctx, rec); err != nil {
			e.log.Warn("recording export history", "mail", result.MailID, "error", err)
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
