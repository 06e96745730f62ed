package joplin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response from the note service. The response body
// is human readable error text and is surfaced verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is a thin HTTP client for the Joplin data REST API. Every request
// authenticates via a token query parameter; error responses carry the
// service's error text.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the service at scheme://host:port.
func NewClient(scheme, host string, port int, token string) *Client {
	return &Client{
		baseURL: fmt.Sprintf("%s://%s:%d", scheme, host, port),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// endpoint builds the full URL for path, appending the auth token and any
// extra query parameters.
func (c *Client) endpoint(path string, query url.Values) string {
	values := url.Values{}
	for key, vs := range query {
		for _, v := range vs {
			values.Add(key, v)
		}
	}
	values.Set("token", c.token)
	return c.baseURL + "/" + path + "?" + values.Encode()
}

// do performs an HTTP request with an optional JSON body and unmarshals
// the JSON response into result when non-nil.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
	result interface{},
) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, c.endpoint(path, query), bodyReader,
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, result)
}

// send executes a prepared request and decodes the response.
func (c *Client) send(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", req.Method, req.URL.Path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response body: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from %s %s: %w",
			req.Method, req.URL.Path, err,
		)
	}

	return nil
}

// Ping checks connectivity to the service.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "ping", nil, nil, nil)
}

// CreateNote creates a note and returns its id and body.
func (c *Client) CreateNote(ctx context.Context, note NewNote) (Note, error) {
	var created Note
	err := c.do(ctx, http.MethodPost, "notes",
		url.Values{"fields": {"id,body"}}, note, &created)
	return created, err
}

// UpdateNoteBody replaces the note's body and returns the refreshed note.
func (c *Client) UpdateNoteBody(
	ctx context.Context, noteID, body string,
) (Note, error) {
	var updated Note
	err := c.do(ctx, http.MethodPut, "notes/"+noteID,
		url.Values{"fields": {"id,body"}}, noteBody{Body: body}, &updated)
	return updated, err
}

// SetNoteBody replaces the note's body without requesting any fields back.
func (c *Client) SetNoteBody(ctx context.Context, noteID, body string) error {
	return c.do(ctx, http.MethodPut, "notes/"+noteID,
		nil, noteBody{Body: body}, nil)
}

// SearchTags returns all tags whose title matches the query.
func (c *Client) SearchTags(ctx context.Context, query string) ([]Tag, error) {
	var result tagSearchResult
	err := c.do(ctx, http.MethodGet, "search",
		url.Values{"query": {query}, "type": {"tag"}}, nil, &result)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// CreateTag creates a tag with the given title.
func (c *Client) CreateTag(ctx context.Context, title string) (Tag, error) {
	var created Tag
	err := c.do(ctx, http.MethodPost, "tags", nil, newTag{Title: title}, &created)
	return created, err
}

// AttachTag links an existing tag to a note.
func (c *Client) AttachTag(ctx context.Context, tagID, noteID string) error {
	return c.do(ctx, http.MethodPost, "tags/"+tagID+"/notes",
		nil, noteRef{ID: noteID}, nil)
}

// CreateResource uploads binary content as a resource. The multipart form
// carries the data under "data" and a JSON props document with the title.
func (c *Client) CreateResource(
	ctx context.Context, title string, data []byte,
) (Resource, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("data", title)
	if err != nil {
		return Resource{}, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Resource{}, fmt.Errorf("writing resource data: %w", err)
	}

	props, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return Resource{}, fmt.Errorf("marshaling resource props: %w", err)
	}
	if err := writer.WriteField("props", string(props)); err != nil {
		return Resource{}, fmt.Errorf("writing resource props: %w", err)
	}

	if err := writer.Close(); err != nil {
		return Resource{}, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.endpoint("resources", nil), &buf,
	)
	if err != nil {
		return Resource{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var created Resource
	if err := c.send(req, &created); err != nil {
		return Resource{}, err
	}
	return created, nil
}
