package host

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailnote/internal/model"
)

// displayedWindow bounds the envelope search when no explicit UIDs are
// given: only messages from the last 7 days are considered.
const displayedWindow = 7 * 24 * time.Hour

// IMAPHost implements Host over an IMAP mailbox. "Displayed" messages are
// either the UIDs named on the command line or the newest messages of the
// configured mailbox.
type IMAPHost struct {
	cfg  model.MailConfig
	uids []imap.UID
}

// NewIMAPHost creates an IMAP-backed host. uids may be empty, in which
// case DisplayedMessages falls back to the newest cfg.Recent messages.
func NewIMAPHost(cfg model.MailConfig, uids []uint32) *IMAPHost {
	h := &IMAPHost{cfg: cfg}
	for _, uid := range uids {
		h.uids = append(h.uids, imap.UID(uid))
	}
	return h
}

// connect establishes a connection, authenticates and selects the
// configured mailbox. The caller is responsible for calling Logout on the
// returned client.
func (h *IMAPHost) connect(_ context.Context) (*imapclient.Client, error) {
	addr := h.cfg.Host + ":" + h.cfg.Port

	var client *imapclient.Client
	var err error

	if h.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(h.cfg.Username, h.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf(
			"authentication failed for %s: %w", h.cfg.Username, err,
		)
	}

	if _, err := client.Select(h.mailbox(), nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", h.mailbox(), err)
	}

	return client, nil
}

func (h *IMAPHost) mailbox() string {
	if h.cfg.Mailbox == "" {
		return "INBOX"
	}
	return h.cfg.Mailbox
}

// DisplayedMessages fetches the envelopes of the explicit UIDs, or of the
// newest messages when none were given.
func (h *IMAPHost) DisplayedMessages(
	ctx context.Context,
) ([]model.MailHeader, error) {
	client, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	uids := h.uids
	if len(uids) == 0 {
		uids, err = h.recentUIDs(client)
		if err != nil {
			return nil, err
		}
		if len(uids) == 0 {
			return nil, nil
		}
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	})
	defer fetchCmd.Close()

	var headers []model.MailHeader
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		headers = append(headers, headerFromBuffer(buf))
	}

	if err := fetchCmd.Close(); err != nil {
		return headers, fmt.Errorf("fetching envelopes: %w", err)
	}

	return headers, nil
}

// recentUIDs searches the displayed window and returns the newest
// cfg.Recent message UIDs.
func (h *IMAPHost) recentUIDs(client *imapclient.Client) ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{
		Since: time.Now().Add(-displayedWindow),
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	recent := h.cfg.Recent
	if recent < 1 {
		recent = 1
	}
	if len(uids) > recent {
		uids = uids[len(uids)-recent:]
	}
	return uids, nil
}

// FullBody fetches the raw message and parses it into the MIME body tree.
func (h *IMAPHost) FullBody(
	ctx context.Context, mailID string,
) (*model.MailBody, error) {
	raw, err := h.fetchRaw(ctx, mailID)
	if err != nil {
		return nil, err
	}
	return buildBodyTree(raw), nil
}

// SelectedText always returns empty: IMAP has no selection facility.
// The selection branch of the pipeline stays reachable through the Host
// port for hosts that do.
func (h *IMAPHost) SelectedText(_ context.Context) (string, error) {
	return "", nil
}

// ListAttachments returns the attachment listing of a message.
func (h *IMAPHost) ListAttachments(
	ctx context.Context, mailID string,
) ([]model.AttachmentInfo, error) {
	raw, err := h.fetchRaw(ctx, mailID)
	if err != nil {
		return nil, err
	}

	parts := collectAttachments(raw)
	infos := make([]model.AttachmentInfo, 0, len(parts))
	for _, part := range parts {
		infos = append(infos, model.AttachmentInfo{
			Name:     part.name,
			PartName: part.partName,
		})
	}
	return infos, nil
}

// AttachmentFile returns the binary content of the attachment addressed
// by partName.
func (h *IMAPHost) AttachmentFile(
	ctx context.Context, mailID, partName string,
) ([]byte, error) {
	raw, err := h.fetchRaw(ctx, mailID)
	if err != nil {
		return nil, err
	}

	for _, part := range collectAttachments(raw) {
		if part.partName == partName {
			return part.data, nil
		}
	}
	return nil, fmt.Errorf("attachment %q not found in message %s", partName, mailID)
}

// ListTagDefinitions returns the configured keyword-to-label mapping.
func (h *IMAPHost) ListTagDefinitions(
	_ context.Context,
) ([]model.TagDefinition, error) {
	keys := make([]string, 0, len(h.cfg.TagLabels))
	for key := range h.cfg.TagLabels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	defs := make([]model.TagDefinition, 0, len(keys))
	for _, key := range keys {
		defs = append(defs, model.TagDefinition{
			Key: key,
			Tag: h.cfg.TagLabels[key],
		})
	}
	return defs, nil
}

// fetchRaw fetches the full RFC 2822 message for a mail id.
func (h *IMAPHost) fetchRaw(ctx context.Context, mailID string) ([]byte, error) {
	uid, err := parseUID(mailID)
	if err != nil {
		return nil, err
	}

	client, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	bodySection := &imap.FetchItemBodySection{Peek: true}

	fetchCmd := client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message UID %d has no body", uid)
	}

	if err := fetchCmd.Close(); err != nil {
		return raw, fmt.Errorf("closing fetch: %w", err)
	}

	return raw, nil
}

// headerFromBuffer maps an IMAP fetch buffer to a MailHeader.
func headerFromBuffer(buf *imapclient.FetchMessageBuffer) model.MailHeader {
	header := model.MailHeader{
		ID: strconv.FormatUint(uint64(buf.UID), 10),
	}

	if buf.Envelope != nil {
		header.Subject = buf.Envelope.Subject
		header.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				header.Author = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else {
				header.Author = from.Addr()
			}
		}
	}

	// Keyword flags double as tag keys; system flags are not tags.
	for _, flag := range buf.Flags {
		if strings.HasPrefix(string(flag), `\`) {
			continue
		}
		header.TagKeys = append(header.TagKeys, string(flag))
	}

	return header
}

// parseUID converts a mail id string to a uint32 UID.
func parseUID(mailID string) (uint32, error) {
	uid, err := strconv.ParseUint(mailID, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mail UID %q: %w", mailID, err)
	}
	return uint32(uid), nil
}
