package export

import (
	"context"
	"fmt"

	"github.com/nhle/mailnote/internal/joplin"
	"github.com/nhle/mailnote/internal/model"
)

// uploadAttachments uploads every attachment as a resource and appends a
// markdown reference list to the note body. All failures here are
// warnings; the mail's pipeline has already succeeded.
func (e *Exporter) uploadAttachments(
	ctx context.Context,
	header model.MailHeader,
	note joplin.Note,
) {
	if e.cfg.Attachments == model.AttachmentsIgnore {
		return
	}

	attachments, err := e.host.ListAttachments(ctx, header.ID)
	if err != nil {
		e.log.Warn("listing attachments", "mail", header.ID, "error", err)
		return
	}
	if len(attachments) == 0 {
		return
	}

	summary := "\n\n**Attachments**: "
	for _, attachment := range attachments {
		data, err := e.host.AttachmentFile(ctx, header.ID, attachment.PartName)
		if err != nil {
			e.log.Warn("fetching attachment",
				"mail", header.ID, "attachment", attachment.Name, "error", err)
			continue
		}

		resource, err := e.notes.CreateResource(ctx, attachment.Name, data)
		if err != nil {
			e.log.Warn("creating resource",
				"attachment", attachment.Name, "error", err)
			continue
		}

		summary += fmt.Sprintf("\n[%s](:/%s)", attachment.Name, resource.ID)
	}

	// Always operate on body, even when the note was created with body_html.
	if err := e.notes.SetNoteBody(ctx, note.ID, note.Body+summary); err != nil {
		e.log.Warn("attaching resources to note", "note", note.ID, "error", err)
	}
}
