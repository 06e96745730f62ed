// Package host defines the mail-client collaborator the exporter runs
// against, and ships an IMAP mailbox implementation of it.
package host

import (
	"context"

	"github.com/nhle/mailnote/internal/model"
)

// Host supplies displayed-message metadata, body trees, attachments and
// tag definitions. Implementations are substituted with test doubles in
// the exporter's tests.
type Host interface {
	// DisplayedMessages returns the headers of the currently displayed
	// messages, each of which gets its own export pipeline.
	DisplayedMessages(ctx context.Context) ([]model.MailHeader, error)

	// FullBody returns the message's MIME body tree. The tree is acyclic.
	FullBody(ctx context.Context, mailID string) (*model.MailBody, error)

	// SelectedText returns the user's current text selection, or the
	// empty string when the host has no selection facility.
	SelectedText(ctx context.Context) (string, error)

	// ListAttachments returns the attachment listing for a message.
	ListAttachments(ctx context.Context, mailID string) ([]model.AttachmentInfo, error)

	// AttachmentFile returns the binary content of one attachment.
	AttachmentFile(ctx context.Context, mailID, partName string) ([]byte, error)

	// ListTagDefinitions returns the host's tag-key to label mapping.
	ListTagDefinitions(ctx context.Context) ([]model.TagDefinition, error)
}
