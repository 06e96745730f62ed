package export

import (
	"log/slog"
	"regexp"
	"time"

	"github.com/nhle/mailnote/internal/model"
)

// trimField removes the first substring of value matching pattern. An
// empty pattern leaves the value unchanged; an invalid pattern is logged
// and the value passes through.
func trimField(value, pattern string, log *slog.Logger) string {
	if pattern == "" {
		return value
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		log.Warn("invalid trim pattern", "pattern", pattern, "error", err)
		return value
	}

	loc := re.FindStringIndex(value)
	if loc == nil {
		return value
	}
	return value[:loc[0]] + value[loc[1]:]
}

// formatDate renders the date with the configured layout for template
// use. An empty layout passes the date object through for default string
// interpolation.
func formatDate(date time.Time, layout string) interface{} {
	if layout == "" {
		return date
	}
	return date.Format(layout)
}

// renderingContext builds the placeholder context for one mail. Trimming
// and date formatting apply only here; stored note metadata keeps the raw
// header values.
func renderingContext(
	header model.MailHeader,
	cfg model.JoplinConfig,
	log *slog.Logger,
) map[string]interface{} {
	return map[string]interface{}{
		"id":      header.ID,
		"subject": trimField(header.Subject, cfg.SubjectTrimRegex, log),
		"author":  trimField(header.Author, cfg.AuthorTrimRegex, log),
		"date":    formatDate(header.Date, cfg.DateFormat),
		"tags":    header.TagKeys,
	}
}
