package export

import (
	"testing"
	"time"
)

func TestRenderTemplate(t *testing.T) {
	context := map[string]interface{}{
		"subject": "Hello",
		"author":  "Ann <ann@example.com>",
		"tags":    []string{"work", "urgent"},
		"flagged": true,
		"count":   3,
	}

	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"empty template", "", ""},
		{"single key", "Re: {{subject}}", "Re: Hello"},
		{"multiple occurrences", "{{subject}} and {{subject}}", "Hello and Hello"},
		{"whitespace in braces", "{{  subject  }}", "Hello"},
		{"unknown key left verbatim", "{{missing}} {{subject}}", "{{missing}} Hello"},
		{"doubled braces not replaced", "{{{{subject}}}}", "{{{{subject}}}}"},
		{"array joins with commas", "tags: {{tags}}", "tags: work,urgent"},
		{"bool renders as word", "flagged={{flagged}}", "flagged=true"},
		{"other scalars via default format", "{{count}} mails", "3 mails"},
		{"two keys", "{{subject}} from {{author}}", "Hello from Ann <ann@example.com>"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RenderTemplate(tc.template, context)
			if got != tc.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tc.template, got, tc.want)
			}
		})
	}
}

func TestRenderTemplateEmptyContext(t *testing.T) {
	got := RenderTemplate("{{subject}}", map[string]interface{}{})
	if got != "{{subject}}" {
		t.Errorf("got %q, want placeholder untouched", got)
	}
}

func TestRenderTemplateNoRescan(t *testing.T) {
	context := map[string]interface{}{
		"a": "{{b}}",
		"b": "never",
	}
	got := RenderTemplate("{{a}}", context)
	if got != "{{b}}" {
		t.Errorf("got %q, replacement values must not be re-rendered", got)
	}
}

func TestRenderTemplateDateValue(t *testing.T) {
	date := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got := RenderTemplate("{{date}}", map[string]interface{}{"date": date})
	if got == "{{date}}" || got == "" {
		t.Errorf("got %q, want the date's default string form", got)
	}
}
