package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nhle/mailnote/internal/joplin"
	"github.com/nhle/mailnote/internal/model"
)

type fakeHost struct {
	mu             sync.Mutex
	headers        []model.MailHeader
	headersErr     error
	bodies         map[string]*model.MailBody
	selection      string
	attachments    map[string][]model.AttachmentInfo
	files          map[string][]byte
	fileErrs       map[string]error
	tagDefs        []model.TagDefinition
	displayedCalls int
	fullBodyCalls  int
}

func (f *fakeHost) DisplayedMessages(_ context.Context) ([]model.MailHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displayedCalls++
	return f.headers, f.headersErr
}

func (f *fakeHost) FullBody(_ context.Context, mailID string) (*model.MailBody, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullBodyCalls++
	return f.bodies[mailID], nil
}

func (f *fakeHost) SelectedText(_ context.Context) (string, error) {
	return f.selection, nil
}

func (f *fakeHost) ListAttachments(
	_ context.Context, mailID string,
) ([]model.AttachmentInfo, error) {
	return f.attachments[mailID], nil
}

func (f *fakeHost) AttachmentFile(
	_ context.Context, mailID, partName string,
) ([]byte, error) {
	if err := f.fileErrs[mailID+"/"+partName]; err != nil {
		return nil, err
	}
	return f.files[mailID+"/"+partName], nil
}

func (f *fakeHost) ListTagDefinitions(_ context.Context) ([]model.TagDefinition, error) {
	return f.tagDefs, nil
}

type noteUpdate struct {
	noteID string
	body   string
}

type fakeNotes struct {
	mu sync.Mutex

	noteBody      string
	createNoteErr error
	created       []joplin.NewNote

	updateErr error
	updates   []noteUpdate

	setBodies  []noteUpdate
	setBodyErr error

	searchResults map[string][]joplin.Tag
	searchErr     error
	searches      []string

	createTagErr error
	createdTags  []string

	attachErr error
	attached  []noteUpdate // noteID + tag id in body field

	resourceErr error
	resources   []string
}

func (f *fakeNotes) CreateNote(_ context.Context, note joplin.NewNote) (joplin.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createNoteErr != nil {
		return joplin.Note{}, f.createNoteErr
	}
	f.created = append(f.created, note)
	return joplin.Note{
		ID:   fmt.Sprintf("note-%d", len(f.created)),
		Body: f.noteBody,
	}, nil
}

func (f *fakeNotes) UpdateNoteBody(_ context.Context, noteID, body string) (joplin.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return joplin.Note{}, f.updateErr
	}
	f.updates = append(f.updates, noteUpdate{noteID: noteID, body: body})
	return joplin.Note{ID: noteID, Body: body}, nil
}

func (f *fakeNotes) SetNoteBody(_ context.Context, noteID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setBodyErr != nil {
		return f.setBodyErr
	}
	f.setBodies = append(f.setBodies, noteUpdate{noteID: noteID, body: body})
	return nil
}

func (f *fakeNotes) SearchTags(_ context.Context, query string) ([]joplin.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults[query], nil
}

func (f *fakeNotes) CreateTag(_ context.Context, title string) (joplin.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createTagErr != nil {
		return joplin.Tag{}, f.createTagErr
	}
	f.createdTags = append(f.createdTags, title)
	return joplin.Tag{ID: "tag-" + title, Title: title}, nil
}

func (f *fakeNotes) AttachTag(_ context.Context, tagID, noteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached = append(f.attached, noteUpdate{noteID: noteID, body: tagID})
	return nil
}

func (f *fakeNotes) CreateResource(_ context.Context, title string, _ []byte) (joplin.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resourceErr != nil {
		return joplin.Resource{}, f.resourceErr
	}
	f.resources = append(f.resources, title)
	return joplin.Resource{ID: "res-" + title}, nil
}

func plainTree(text string) *model.MailBody {
	return &model.MailBody{
		ContentType: "multipart/alternative",
		Parts: []*model.MailBody{
			{ContentType: model.ContentTypePlain, Body: text},
		},
	}
}

func baseConfig() model.JoplinConfig {
	return model.JoplinConfig{
		ParentFolder:  "folder-1",
		TitleTemplate: "{{subject}} from {{author}}",
		NoteFormat:    model.ContentTypeHTML,
		Attachments:   model.AttachmentsIgnore,
	}
}

func newTestExporter(h *fakeHost, n *fakeNotes, cfg model.JoplinConfig, token string) *Exporter {
	return New(h, n, cfg, token, discardLogger(), nil)
}

func TestExportMissingToken(t *testing.T) {
	h := &fakeHost{}
	n := &fakeNotes{}
	e := newTestExporter(h, n, baseConfig(), "")

	report := e.ExportDisplayed(context.Background())

	if report.Success {
		t.Error("report.Success = true, want failure")
	}
	if report.Message != "API token missing." {
		t.Errorf("message = %q, want %q", report.Message, "API token missing.")
	}
	if h.displayedCalls != 0 || len(n.created) != 0 {
		t.Error("no host or remote calls may happen without a token")
	}
}

func TestExportSingleMail(t *testing.T) {
	date := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h := &fakeHost{
		headers: []model.MailHeader{{
			ID:      "1",
			Subject: "Hi",
			Author:  "Ann <ann@example.com>",
			Date:    date,
		}},
		bodies: map[string]*model.MailBody{
			"1": {
				ContentType: "multipart/alternative",
				Parts: []*model.MailBody{
					{ContentType: model.ContentTypePlain, Body: "plain body"},
					{ContentType: model.ContentTypeHTML, Body: "<p>html body</p>"},
				},
			},
		},
	}
	n := &fakeNotes{}
	e := newTestExporter(h, n, baseConfig(), "token")

	report := e.ExportDisplayed(context.Background())

	if !report.Success {
		t.Fatalf("export failed: %+v", report.Results)
	}
	if report.Message != "Exported one email." {
		t.Errorf("message = %q, want %q", report.Message, "Exported one email.")
	}
	if len(n.created) != 1 {
		t.Fatalf("created %d notes, want 1", len(n.created))
	}

	draft := n.created[0]
	if draft.Title != "Hi from Ann <ann@example.com>" {
		t.Errorf("title = %q", draft.Title)
	}
	if draft.ParentID != "folder-1" {
		t.Errorf("parent id = %q", draft.ParentID)
	}
	if draft.BodyHTML != "<p>html body</p>" || draft.Body != "" {
		t.Errorf("body selection = (body %q, html %q), want html only",
			draft.Body, draft.BodyHTML)
	}
	if draft.Author != "Ann <ann@example.com>" {
		t.Errorf("author = %q, want the raw header value", draft.Author)
	}
	if draft.UserCreatedTime != date.UnixMilli() {
		t.Errorf("user_created_time = %d, want %d", draft.UserCreatedTime, date.UnixMilli())
	}
}

func TestExportHeaderTemplate(t *testing.T) {
	cfg := baseConfig()
	cfg.HeaderTemplate = "Subject: {{subject}}\n\n"

	h := &fakeHost{
		headers: []model.MailHeader{{ID: "1", Subject: "Hi"}},
		bodies:  map[string]*model.MailBody{"1": plainTree("text")},
	}
	n := &fakeNotes{noteBody: "original body"}
	e := newTestExporter(h, n, cfg, "token")

	report := e.ExportDisplayed(context.Background())

	if !report.Success {
		t.Fatalf("export failed: %+v", report.Results)
	}
	if len(n.updates) != 1 {
		t.Fatalf("got %d body updates, want 1", len(n.updates))
	}
	update := n.updates[0]
	if !strings.Contains(update.body, "Subject: Hi") {
		t.Errorf("updated body %q does not contain the rendered header", update.body)
	}
	if !strings.HasSuffix(update.body, "original body") {
		t.Errorf("updated body %q must keep the original body after the header", update.body)
	}
}

func TestExportHeaderAppendFailureAborts(t *testing.T) {
	cfg := baseConfig()
	cfg.HeaderTemplate = "{{subject}}"
	cfg.Tags = "email"

	h := &fakeHost{
		headers: []model.MailHeader{{ID: "1", Subject: "Hi"}},
		bodies:  map[string]*model.MailBody{"1": plainTree("text")},
	}
	n := &fakeNotes{updateErr: errors.New("boom")}
	e := newTestExporter(h, n, cfg, "token")

	report := e.ExportDisplayed(context.Background())

	if report.Success {
		t.Error("report.Success = true, want failure")
	}
	if len(n.searches) != 0 {
		t.Error("tag work must be skipped after a header append failure")
	}
}

func TestTagResolution(t *testing.T) {
	run := func(t *testing.T, n *fakeNotes) model.Report {
		t.Helper()
		cfg := baseConfig()
		cfg.Tags = "email"
		h := &fakeHost{
			headers: []model.MailHeader{{ID: "1", Subject: "Hi"}},
			bodies:  map[string]*model.MailBody{"1": plainTree("text")},
		}
		return newTestExporter(h, n, cfg, "token").ExportDisplayed(context.Background())
	}

	t.Run("no match creates and attaches", func(t *testing.T) {
		n := &fakeNotes{}
		report := run(t, n)
		if !report.Success {
			t.Fatalf("export failed: %+v", report.Results)
		}
		if len(n.createdTags) != 1 || n.createdTags[0] != "email" {
			t.Errorf("created tags = %v, want [email]", n.createdTags)
		}
		if len(n.attached) != 1 || n.attached[0].body != "tag-email" {
			t.Errorf("attached = %v, want the new tag", n.attached)
		}
	})

	t.Run("single match attaches without create", func(t *testing.T) {
		n := &fakeNotes{searchResults: map[string][]joplin.Tag{
			"email": {{ID: "t1", Title: "email"}},
		}}
		report := run(t, n)
		if !report.Success {
			t.Fatalf("export failed: %+v", report.Results)
		}
		if len(n.createdTags) != 0 {
			t.Errorf("created tags = %v, want none", n.createdTags)
		}
		if len(n.attached) != 1 || n.attached[0].body != "t1" {
			t.Errorf("attached = %v, want the existing tag", n.attached)
		}
	})

	t.Run("ambiguous match skips", func(t *testing.T) {
		n := &fakeNotes{searchResults: map[string][]joplin.Tag{
			"email": {{ID: "t1", Title: "email"}, {ID: "t2", Title: "Email"}},
		}}
		report := run(t, n)
		if !report.Success {
			t.Fatal("ambiguous tags must not fail the mail's pipeline")
		}
		if len(n.createdTags) != 0 || len(n.attached) != 0 {
			t.Error("ambiguous candidates must neither create nor attach")
		}
		outcome := report.Results[0].Tags[0]
		if outcome.Attached || outcome.Reason == "" {
			t.Errorf("outcome = %+v, want skipped with a reason", outcome)
		}
	})

	t.Run("search failure skips", func(t *testing.T) {
		n := &fakeNotes{searchErr: errors.New("search down")}
		report := run(t, n)
		if !report.Success {
			t.Fatal("tag search failures must not fail the mail's pipeline")
		}
		if len(n.attached) != 0 {
			t.Error("no tag may be attached after a failed search")
		}
	})
}

func TestMailTagsResolvedThroughDefinitions(t *testing.T) {
	cfg := baseConfig()
	cfg.Tags = "email"
	cfg.TagsFromEmail = true

	h := &fakeHost{
		headers: []model.MailHeader{{ID: "1", Subject: "Hi", TagKeys: []string{"$label1", "unknown"}}},
		bodies:  map[string]*model.MailBody{"1": plainTree("text")},
		tagDefs: []model.TagDefinition{{Key: "$label1", Tag: "Work"}},
	}
	n := &fakeNotes{}
	report := newTestExporter(h, n, cfg, "token").ExportDisplayed(context.Background())

	if !report.Success {
		t.Fatalf("export failed: %+v", report.Results)
	}
	want := []string{"email", "Work", "unknown"}
	if len(n.searches) != len(want) {
		t.Fatalf("searches = %v, want %v", n.searches, want)
	}
	for i, query := range want {
		if n.searches[i] != query {
			t.Errorf("search[%d] = %q, want %q", i, n.searches[i], query)
		}
	}
}

func TestAttachmentsIgnored(t *testing.T) {
	cfg := baseConfig()
	cfg.Attachments = model.AttachmentsIgnore

	h := &fakeHost{
		headers: []model.MailHeader{{ID: "1", Subject: "Hi"}},
		bodies:  map[string]*model.MailBody{"1": plainTree("text")},
		attachments: map[string][]model.AttachmentInfo{
			"1": {{Name: "a.txt", PartName: "1"}},
		},
	}
	n := &fakeNotes{}
	report := newTestExporter(h, n, cfg, "token").ExportDisplayed(context.Background())

	if !report.Success {
		t.Fatalf("export failed: %+v", report.Results)
	}
	if len(n.resources) != 0 || len(n.setBodies) != 0 {
		t.Error("policy ignore must not touch resources or the note body")
	}
}

func TestAttachmentsUploaded(t *testing.T) {
	cfg := baseConfig()
	cfg.Attachments = model.AttachmentsAttach

	h := &fakeHost{
		headers: []model.MailHeader{{ID: "1", Subject: "Hi"}},
		bodies:  map[string]*model.MailBody{"1": plainTree("text")},
		attachments: map[string][]model.AttachmentInfo{
			"1": {
				{Name: "a.txt", PartName: "1"},
				{Name: "b.png", PartName: "2"},
			},
		},
		files: map[string][]byte{
			"1/1": []byte("alpha"),
		},
		fileErrs: map[string]error{
			"1/2": errors.New("part missing"),
		},
	}
	n := &fakeNotes{noteBody: "note body"}
	report := newTestExporter(h, n, cfg, "token").ExportDisplayed(context.Background())

	if !report.Success {
		t.Fatalf("export failed: %+v", report.Results)
	}
	if len(n.resources) != 1 || n.resources[0] != "a.txt" {
		t.Fatalf("resources = %v, want only a.txt", n.resources)
	}
	if len(n.setBodies) != 1 {
		t.Fatalf("got %d body updates, want 1", len(n.setBodies))
	}
	want := "note body\n\n**Attachments**: \n[a.txt](:/res-a.txt)"
	if n.setBodies[0].body != want {
		t.Errorf("body = %q, want %q", n.setBodies[0].body, want)
	}
}

func TestEmptyBodyFails(t *testing.T) {
	h := &fakeHost{
		headers: []model.MailHeader{{ID: "1", Subject: "Hi"}},
		bodies:  map[string]*model.MailBody{"1": {ContentType: "multipart/alternative"}},
	}
	n := &fakeNotes{}
	report := newTestExporter(h, n, baseConfig(), "token").ExportDisplayed(context.Background())

	if report.Success {
		t.Error("report.Success = true, want failure")
	}
	if len(n.created) != 0 {
		t.Error("no note may be created for an empty body")
	}
	if report.Results[0].Err != "mail body is empty" {
		t.Errorf("err = %q, want %q", report.Results[0].Err, "mail body is empty")
	}
}

func TestMissingParentFolderFailsBeforeRemoteCalls(t *testing.T) {
	cfg := baseConfig()
	cfg.ParentFolder = ""

	h := &fakeHost{
		headers: []model.MailHeader{{ID: "1", Subject: "Hi"}},
		bodies:  map[string]*model.MailBody{"1": plainTree("text")},
	}
	n := &fakeNotes{}
	report := newTestExporter(h, n, cfg, "token").ExportDisplayed(context.Background())

	if report.Success {
		t.Error("report.Success = true, want failure")
	}
	if len(n.created) != 0 {
		t.Error("no remote call may happen without a destination folder")
	}
}

func TestSelectionPreferredOverFullBody(t *testing.T) {
	h := &fakeHost{
		headers:   []model.MailHeader{{ID: "1", Subject: "Hi"}},
		selection: "the selected passage",
	}
	n := &fakeNotes{}
	report := newTestExporter(h, n, baseConfig(), "token").ExportDisplayed(context.Background())

	if !report.Success {
		t.Fatalf("export failed: %+v", report.Results)
	}
	if h.fullBodyCalls != 0 {
		t.Error("full body must not be fetched when a selection exists")
	}
	if n.created[0].Body != "the selected passage" || n.created[0].BodyHTML != "" {
		t.Errorf("draft body = (%q, html %q), want the selection as plain",
			n.created[0].Body, n.created[0].BodyHTML)
	}
}

func TestConcurrentMailsRunIndependently(t *testing.T) {
	h := &fakeHost{
		headers: []model.MailHeader{
			{ID: "1", Subject: "one"},
			{ID: "2", Subject: "two"},
			{ID: "3", Subject: "three"},
		},
		bodies: map[string]*model.MailBody{
			"1": plainTree("alpha"),
			// mail 2 has an empty tree and fails on content selection
			"2": {ContentType: "multipart/alternative"},
			"3": plainTree("gamma"),
		},
	}
	n := &fakeNotes{}
	report := newTestExporter(h, n, baseConfig(), "token").ExportDisplayed(context.Background())

	if report.Success {
		t.Error("aggregate must fail when any mail fails")
	}
	if report.Message != "Please check the logs." {
		t.Errorf("message = %q", report.Message)
	}
	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(report.Results))
	}
	if len(n.created) != 2 {
		t.Errorf("created %d notes, want 2; one mail's failure must not block the others", len(n.created))
	}
	if report.Results[1].Err == "" {
		t.Error("mail 2 must carry its failure")
	}
	if report.Results[0].Err != "" || report.Results[2].Err != "" {
		t.Error("mails 1 and 3 must succeed")
	}
}

func TestExportHistoryRecorded(t *testing.T) {
	recorder := &fakeRecorder{}
	h := &fakeHost{
		headers: []model.MailHeader{{ID: "1", Subject: "Hi"}},
		bodies:  map[string]*model.MailBody{"1": plainTree("text")},
	}
	e := New(h, &fakeNotes{}, baseConfig(), "token", discardLogger(), recorder)

	report := e.ExportDisplayed(context.Background())

	if !report.Success {
		t.Fatalf("export failed: %+v", report.Results)
	}
	if len(recorder.records) != 1 {
		t.Fatalf("got %d history rows, want 1", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.RunID != report.RunID || rec.MailID != "1" || rec.Error != "" {
		t.Errorf("record = %+v", rec)
	}
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []model.ExportRecord
}

func (f *fakeRecorder) RecordExport(_ context.Context, rec model.ExportRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}
