package mailbox

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog"
)

// IMAPPoller fetches unseen messages over IMAPS. Bodies are fetched with
// BODY.PEEK so reading never changes flags; a caller marks a message seen with
// MarkSeen once it has been handled, and anything left unmarked is offered
// again on the next poll.
type IMAPPoller struct {
	Addr     string // host:port, implicit TLS
	Username string
	Password string
	Mailbox  string
	Timeout  time.Duration

	Log zerolog.Logger
}

func (p *IMAPPoller) mailbox() string {
	if p.Mailbox == "" {
		return "INBOX"
	}
	return p.Mailbox
}

// session dials, logs in and selects the mailbox read-write. The returned
// func logs out and must always be called.
func (p *IMAPPoller) session(ctx context.Context) (*client.Client, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c, err := client.DialWithDialerTLS(&net.Dialer{Timeout: timeout}, p.Addr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("imap dial %s: %w", p.Addr, err)
	}
	c.Timeout = timeout
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	done := func() {
		stop()
		_ = c.Logout()
	}

	if err := c.Login(p.Username, p.Password); err != nil {
		done()
		return nil, nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(p.mailbox(), false); err != nil {
		done()
		return nil, nil, fmt.Errorf("imap select %s: %w", p.mailbox(), err)
	}
	return c, done, nil
}

// FetchUnseen returns every unseen message that parses without marking any
// of them seen. Unparseable messages are logged and marked seen so they are
// not fetched forever.
func (p *IMAPPoller) FetchUnseen(ctx context.Context) ([]Message, error) {
	c, done, err := p.session(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	crit := imap.NewSearchCriteria()
	crit.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(crit)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seq := new(imap.SeqSet)
	seq.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, 16)
	fetched := make(chan error, 1)
	go func() { fetched <- c.UidFetch(seq, items, ch) }()

	out := make([]Message, 0, len(uids))
	var junk []uint32
	for msg := range ch {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		m, err := Parse(body)
		if err != nil {
			p.Log.Warn().Err(err).Uint32("uid", msg.Uid).Msg("skip unparseable message")
			junk = append(junk, msg.Uid)
			continue
		}
		m.UID = msg.Uid
		out = append(out, m)
	}
	if err := <-fetched; err != nil {
		return out, fmt.Errorf("imap fetch: %w", err)
	}
	if len(junk) > 0 {
		if err := storeSeen(c, junk); err != nil {
			p.Log.Warn().Err(err).Int("count", len(junk)).Msg("mark unparseable messages seen")
		}
	}
	return out, ctx.Err()
}

// MarkSeen sets \Seen on the given UIDs.
func (p *IMAPPoller) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	c, done, err := p.session(ctx)
	if err != nil {
		return err
	}
	defer done()
	if err := storeSeen(c, uids); err != nil {
		return err
	}
	return ctx.Err()
}

func storeSeen(c *client.Client, uids []uint32) error {
	seq := new(imap.SeqSet)
	seq.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seq, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("imap store seen: %w", err)
	}
	return nil
}
