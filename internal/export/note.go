package export

import (
	"context"
	"fmt"

	"github.com/nhle/mailnote/internal/joplin"
)

// createNote submits the draft to the note creation endpoint. The remote
// error text rides along verbatim on failure.
func (e *Exporter) createNote(
	ctx context.Context, draft joplin.NewNote,
) (joplin.Note, error) {
	note, err := e.notes.CreateNote(ctx, draft)
	if err != nil {
		return joplin.Note{}, fmt.Errorf("creating note: %w", err)
	}
	return note, nil
}

// appendHeader renders the configured header template and prefixes it to
// the note body, returning the refreshed note. With no header template
// configured the note passes through untouched. A failure here aborts the
// mail's pipeline before any tag or attachment work.
func (e *Exporter) appendHeader(
	ctx context.Context,
	note joplin.Note,
	renderCtx map[string]interface{},
) (joplin.Note, error) {
	if e.cfg.HeaderTemplate == "" {
		return note, nil
	}

	headerInfo := RenderTemplate(e.cfg.HeaderTemplate, renderCtx)
	updated, err := e.notes.UpdateNoteBody(ctx, note.ID, headerInfo+note.Body)
	if err != nil {
		return note, fmt.Errorf("adding header info to note: %w", err)
	}
	return updated, nil
}
