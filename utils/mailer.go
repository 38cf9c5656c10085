package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/postfeed/config"
)

// ErrMailerDisabled is returned when SMTP is not configured.
var ErrMailerDisabled = errors.New("smtp not configured")

// Mailer sends plain text email over SMTP.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	startTLS bool
}

// NewMailer builds a Mailer from the SMTP settings.
func NewMailer(cfg config.AppConfig) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
		startTLS: cfg.SMTPTLS,
	}
}

// Enabled reports whether enough settings exist to attempt delivery.
func (m *Mailer) Enabled() bool {
	return m != nil && m.host != "" && m.from != ""
}

// SendCommentEmail tells a post author that someone commented on their post.
func (m *Mailer) SendCommentEmail(toEmail, toName, fromName, postURL, commentBody string) error {
	subject := fmt.Sprintf("%s commented on your post", fromName)
	return m.SendMail(toEmail, subject, CommentEmailBody(toName, fromName, postURL, commentBody))
}

// CommentEmailBody renders the plain text body of a comment notification.
func CommentEmailBody(toName, fromName, postURL, commentBody string) string {
	var b strings.Builder
	if toName != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", toName)
	} else {
		b.WriteString("Hi,\n\n")
	}
	fmt.Fprintf(&b, "%s commented on your post:\n\n", fromName)
	for _, line := range strings.Split(commentBody, "\n") {
		fmt.Fprintf(&b, "> %s\n", line)
	}
	fmt.Fprintf(&b, "\nView the conversation: %s\n", postURL)
	return b.String()
}

// SendMail sends a plain text email.
func (m *Mailer) SendMail(to, subject, body string) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	if to == "" {
		return errors.New("empty recipient")
	}
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	msg := m.buildMessage(to, subject, body)

	if !m.startTLS {
		// Plain SMTP without TLS (not recommended)
		return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
	}

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	// ensure we don't hang forever
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return err
		}
	}
	if m.username != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (m *Mailer) buildMessage(to, subject, body string) []byte {
	fromName := m.fromName
	if fromName == "" {
		fromName = "Postfeed"
	}
	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", fromName), m.from)},
		{"To", to},
		{"Subject", mime.BEncoding.Encode("UTF-8", subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}
	var msg strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", h[0], h[1])
	}
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(msg.String())
}
