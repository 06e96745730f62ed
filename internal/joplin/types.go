package joplin

// Note is the remote note state the exporter tracks: the id plus the
// current body text, refreshed after each mutating call that returns it.
type Note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// NewNote is the note creation payload. Exactly one of Body and BodyHTML
// is populated by content selection.
type NewNote struct {
	Title           string `json:"title"`
	ParentID        string `json:"parent_id"`
	IsTodo          int    `json:"is_todo"`
	Author          string `json:"author"`
	UserCreatedTime int64  `json:"user_created_time"`
	Body            string `json:"body,omitempty"`
	BodyHTML        string `json:"body_html,omitempty"`
}

// Tag is a remote label entity, many-to-many linkable to notes.
type Tag struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Resource is a remote binary attachment entity.
type Resource struct {
	ID string `json:"id"`
}

// tagSearchResult is the paged search response for type=tag queries.
type tagSearchResult struct {
	Items []Tag `json:"items"`
}

// noteBody is the body-only update payload.
type noteBody struct {
	Body string `json:"body"`
}

// noteRef references an existing note, used when attaching tags.
type noteRef struct {
	ID string `json:"id"`
}

// newTag is the tag creation payload.
type newTag struct {
	Title string `json:"title"`
}
