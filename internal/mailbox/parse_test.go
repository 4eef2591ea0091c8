package mailbox

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func crlf(s string) string { return strings.ReplaceAll(s, "\n", "\r\n") }

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Message
	}{
		{
			name: "single part",
			raw: crlf(`From: Alice <Alice@Example.com>
Subject: Re: Suspicious Activity Detected
Date: Wed, 04 Jun 2025 10:00:00 +0000
Content-Type: text/plain; charset=utf-8

It was a joke, sorry.
`),
			want: Message{From: "Alice@Example.com", Subject: "Re: Suspicious Activity Detected", Body: "It was a joke, sorry.\r\n", HasPlainText: true,
				Date: time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)},
		},
		{
			name: "multipart picks first plain part",
			raw: crlf(`From: bob@example.com
Subject: reply
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary=XX

--XX
Content-Type: text/html; charset=utf-8

<p>html</p>
--XX
Content-Type: text/plain; charset=utf-8

plain one
--XX
Content-Type: text/plain; charset=utf-8

plain two
--XX--
`),
			want: Message{From: "bob@example.com", Subject: "reply", Body: "plain one", HasPlainText: true},
		},
		{
			name: "html only leaves body empty",
			raw: crlf(`From: carol@example.com
Subject: html
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary=YY

--YY
Content-Type: text/html; charset=utf-8

<p>only html</p>
--YY--
`),
			want: Message{From: "carol@example.com", Subject: "html"},
		},
		{
			name: "latin1 quoted printable",
			raw: crlf(`From: dan@example.com
Subject: =?utf-8?q?r=C3=A9ponse?=
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

d=E9sol=E9
`),
			want: Message{From: "dan@example.com", Subject: "réponse", Body: "désolé\r\n", HasPlainText: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tc.raw))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("Parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_NoSender(t *testing.T) {
	raw := crlf("Subject: anonymous\nContent-Type: text/plain\n\nhello\n")
	if _, err := Parse(strings.NewReader(raw)); !errors.Is(err, ErrNoSender) {
		t.Fatalf("expected ErrNoSender, got %v", err)
	}
}
