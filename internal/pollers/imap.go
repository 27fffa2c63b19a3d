package pollers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"golang.org/x/oauth2"

	"github.com/jobops/triage/internal/common"
)

// Email is one fetched, unread mailbox message.
type Email struct {
	SeqNum  uint32
	From    string
	Subject string
	Body    string
	Date    time.Time
}

// FetchUnreadEmails connects to the configured IMAP mailbox, selects the
// configured mailbox (defaulting to INBOX), and returns every unseen message.
// Messages are left unseen here; the caller marks each one read only after
// its ingestion run returns, so a crash mid-poll re-processes the mail next cycle
// (ingestion's own upsert idempotency makes that safe).
func FetchUnreadEmails(cfg common.IMAPPollerConfig) ([]Email, error) {
	if cfg.Host == "" || cfg.Username == "" || (cfg.Password == "" && !cfg.UsesOAuth2()) {
		return nil, fmt.Errorf("imap poller not configured")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var c *client.Client
	var err error
	if cfg.UseTLS {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w", err)
	}
	defer c.Logout()

	if err := authenticate(c, cfg); err != nil {
		return nil, err
	}

	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	mbox, err := c.Select(mailbox, false)
	if err != nil {
		return nil, fmt.Errorf("imap select %s: %w", mailbox, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, section.FetchItem()}, messages)
	}()

	var emails []Email
	for msg := range messages {
		if msg == nil {
			continue
		}
		body, err := parseMessageBody(msg, section)
		if err != nil {
			continue
		}
		from := ""
		if len(msg.Envelope.From) > 0 {
			from = msg.Envelope.From[0].Address()
		}
		emails = append(emails, Email{
			SeqNum:  msg.SeqNum,
			From:    from,
			Subject: msg.Envelope.Subject,
			Body:    body,
			Date:    msg.Envelope.Date,
		})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	return emails, nil
}

// MarkSeen flags a message as read so the next poll does not refetch it.
func MarkSeen(cfg common.IMAPPollerConfig, seqNum uint32) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var c *client.Client
	var err error
	if cfg.UseTLS {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("imap dial: %w", err)
	}
	defer c.Logout()

	if err := authenticate(c, cfg); err != nil {
		return err
	}
	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, false); err != nil {
		return fmt.Errorf("imap select %s: %w", mailbox, err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNum)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	return c.Store(seqSet, item, flags, nil)
}

// authenticate logs into the mailbox, using XOAUTH2 with a refreshed access
// token when the poller is configured for OAuth2 (Gmail and similar
// providers that have disabled plain password login), or a plain LOGIN
// otherwise.
func authenticate(c *client.Client, cfg common.IMAPPollerConfig) error {
	if !cfg.UsesOAuth2() {
		if err := c.Login(cfg.Username, cfg.Password); err != nil {
			return fmt.Errorf("imap login: %w", err)
		}
		return nil
	}

	token, err := oauth2Conf(cfg).TokenSource(context.Background(), &oauth2.Token{
		RefreshToken: cfg.OAuth2RefreshToken,
	}).Token()
	if err != nil {
		return fmt.Errorf("imap oauth2 token refresh: %w", err)
	}

	auth := sasl.NewXoauth2Client(cfg.Username, token.AccessToken)
	if err := c.Authenticate(auth); err != nil {
		return fmt.Errorf("imap xoauth2 authenticate: %w", err)
	}
	return nil
}

func oauth2Conf(cfg common.IMAPPollerConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.OAuth2ClientID,
		ClientSecret: cfg.OAuth2ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.OAuth2TokenURL},
	}
}

func parseMessageBody(msg *imap.Message, section *imap.BodySectionName) (string, error) {
	literal := msg.GetBody(section)
	if literal == nil {
		return "", fmt.Errorf("no message body literal")
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return "", fmt.Errorf("create mail reader: %w", err)
	}

	var plain, html string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			raw, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			if contentType == "text/html" {
				html = string(raw)
			} else {
				plain = string(raw)
			}
		}
	}

	if plain != "" {
		return plain, nil
	}
	return html, nil
}
