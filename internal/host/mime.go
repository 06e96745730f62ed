package host

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailnote/internal/model"
)

// buildBodyTree parses a raw RFC 2822 message into the recursive body
// tree the content selector walks. Messages that cannot be parsed at all
// are treated as a single plain text payload.
func buildBodyTree(raw []byte) *model.MailBody {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return &model.MailBody{
			ContentType: model.ContentTypePlain,
			Body:        string(raw),
		}
	}
	return bodyNode(entity)
}

// bodyNode converts one MIME entity into a tree node, descending into
// multipart children in document order.
func bodyNode(entity *message.Entity) *model.MailBody {
	contentType, _, err := entity.Header.ContentType()
	if err != nil || contentType == "" {
		contentType = model.ContentTypePlain
	}

	node := &model.MailBody{ContentType: contentType}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				break
			}
			node.Parts = append(node.Parts, bodyNode(part))
		}
		return node
	}

	// Attachment payloads are fetched separately; only textual inline
	// parts carry a payload in the tree.
	disposition, _, _ := entity.Header.ContentDisposition()
	if disposition == "attachment" {
		return node
	}
	if strings.HasPrefix(contentType, "text/") {
		if body, err := io.ReadAll(entity.Body); err == nil {
			node.Body = string(body)
		}
	}
	return node
}

// attachmentPart is one decoded attachment of a message.
type attachmentPart struct {
	name     string
	partName string
	data     []byte
}

// collectAttachments extracts all attachment parts of a raw message.
// Part names are 1-based position indexes, stable across the listing and
// the per-file fetch.
func collectAttachments(raw []byte) []attachmentPart {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	defer mr.Close()

	var parts []attachmentPart
	index := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}

		index++
		filename, _ := header.Filename()
		if filename == "" {
			filename = fmt.Sprintf("attachment-%d", index)
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		parts = append(parts, attachmentPart{
			name:     filename,
			partName: strconv.Itoa(index),
			data:     data,
		})
	}
	return parts
}
