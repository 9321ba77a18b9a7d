package email

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

type SMTP struct {
	host string
	port string
	from string
	auth smtp.Auth

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(host, port, user, password, from string) *SMTP {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTP{host: host, port: port, from: from, auth: auth, sendMail: smtp.SendMail}
}

func (m *SMTP) Provider() string { return "smtp" }

// Send writes a multipart/alternative message. net/smtp has no context support,
// so ctx is only checked before dialing.
func (m *SMTP) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, &SendError{Provider: m.Provider(), Reason: "canceled", Err: err}
	}

	envelopeFrom := m.from
	if addr, err := mail.ParseAddress(m.from); err == nil {
		envelopeFrom = addr.Address
	}
	messageID, err := newMessageID(envelopeFrom)
	if err != nil {
		return Receipt{}, &SendError{Provider: m.Provider(), Reason: "message id", Err: err}
	}

	body := buildMIME(m.from, msg, messageID)
	addr := net.JoinHostPort(m.host, m.port)
	if err := m.sendMail(addr, m.auth, envelopeFrom, []string{msg.To}, body); err != nil {
		return Receipt{}, &SendError{Provider: m.Provider(), Reason: err.Error(), Err: err}
	}
	return Receipt{Provider: m.Provider(), MessageID: messageID}, nil
}

func newMessageID(from string) (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	domain := "localhost"
	if i := strings.LastIndexByte(from, '@'); i >= 0 {
		domain = from[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", hex.EncodeToString(b), domain), nil
}

func buildMIME(from string, msg Message, messageID string) []byte {
	const boundary = "quiet-curation-alt"

	var b bytes.Buffer
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	if msg.Text != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, msg.Text)
	}
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes()
}
