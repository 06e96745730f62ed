package export

import (
	"errors"
	"strings"

	"github.com/nhle/mailnote/internal/model"
)

// ErrEmptyBody terminates a mail's pipeline when neither content kind
// yields any text.
var ErrEmptyBody = errors.New("mail body is empty")

// ContentForType walks the body tree depth-first in document order and
// concatenates the payloads of every node matching the content type.
// A nil tree or node yields the empty string.
func ContentForType(body *model.MailBody, contentType string) string {
	var sb strings.Builder
	collectContent(body, contentType, &sb)
	return sb.String()
}

func collectContent(node *model.MailBody, contentType string, sb *strings.Builder) {
	if node == nil {
		return
	}
	if node.Body != "" && node.ContentType == contentType {
		sb.WriteString(node.Body)
	}
	for _, part := range node.Parts {
		collectContent(part, contentType, sb)
	}
}

// SelectBody chooses which extracted content goes into the note. The
// preferred kind wins when it has content; the other kind is included
// exactly when the preferred one is empty, so at most one of the returned
// fields is populated. Both empty is an ErrEmptyBody failure.
func SelectBody(
	preferred, htmlContent, plainContent string,
) (body, bodyHTML string, err error) {
	if htmlContent == "" && plainContent == "" {
		return "", "", ErrEmptyBody
	}

	if (preferred == model.ContentTypeHTML && htmlContent != "") || plainContent == "" {
		bodyHTML = htmlContent
	}
	if (preferred == model.ContentTypePlain && plainContent != "") || htmlContent == "" {
		body = plainContent
	}
	return body, bodyHTML, nil
}
