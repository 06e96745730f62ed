package model

import "time"

// MailHeader identifies one displayed message and its envelope fields.
// It is supplied by the host and immutable for the duration of one export.
type MailHeader struct {
	// ID is the host's identifier for the message.
	ID string

	Subject string

	// Author is the display form of the sender, e.g. "Name <addr>".
	Author string

	// Date is the message date; the zero value means the host supplied none.
	Date time.Time

	// TagKeys are the host's opaque tag keys attached to the message.
	TagKeys []string
}

// MailBody is one node of the MIME body tree: a content type, a text
// payload and the ordered child parts.
type MailBody struct {
	ContentType string
	Body        string
	Parts       []*MailBody
}

// AttachmentInfo describes one attachment of a message, addressable via
// its part name.
type AttachmentInfo struct {
	Name     string
	PartName string
}

// TagDefinition maps an opaque tag key to its human readable label.
type TagDefinition struct {
	Key string
	Tag string
}
