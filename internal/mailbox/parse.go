// Package mailbox polls an IMAP inbox for unseen replies and parses them into
// the sender/subject/body triples consumed by reply correlation.
package mailbox

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // decode non UTF-8 bodies
	gomail "github.com/emersion/go-message/mail"
)

// ErrNoSender is returned when a message has no parseable From address.
var ErrNoSender = errors.New("message has no sender")

// Message is an inbound reply.
type Message struct {
	UID     uint32
	From    string // bare address, as sent
	Subject string
	Date    time.Time

	// Body is the first text/plain part, decoded. Empty when the message has
	// no plain-text part.
	Body         string
	HasPlainText bool
}

// Parse reads an RFC 5322 message and extracts the sender address, subject
// and the first text/plain body part.
func Parse(r io.Reader) (Message, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return Message{}, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	var m Message
	addrs, err := mr.Header.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return Message{}, ErrNoSender
	}
	m.From = addrs[0].Address
	if subj, err := mr.Header.Subject(); err == nil {
		m.Subject = subj
	}
	if d, err := mr.Header.Date(); err == nil {
		m.Date = d.UTC()
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return m, fmt.Errorf("read part: %w", err)
		}
		h, ok := p.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		if ct != "" && !strings.EqualFold(ct, "text/plain") {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return m, fmt.Errorf("read body: %w", err)
		}
		m.Body = string(b)
		m.HasPlainText = true
		break
	}
	return m, nil
}
