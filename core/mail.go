package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
)

type (
	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain content
		TextContent string
		HTMLContent string
		Attachments []Attachment
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently; failures are logged, not returned.
		SendMessages(messages ...*EmailMessage)
		// Send delivers a single message and reports the outcome.
		Send(ctx context.Context, msg *EmailMessage) SendResult
	}
)

// DeliveryErrorKind classifies why an email provider refused a message.
type DeliveryErrorKind string

const (
	ErrKindMessageRejected     DeliveryErrorKind = "MessageRejected"
	ErrKindSenderNotVerified   DeliveryErrorKind = "SenderNotVerified"
	ErrKindQuotaExceeded       DeliveryErrorKind = "QuotaExceeded"
	ErrKindUnauthorized        DeliveryErrorKind = "Unauthorized"
	ErrKindProviderUnavailable DeliveryErrorKind = "ProviderUnavailable"
	ErrKindInvalidMessage      DeliveryErrorKind = "InvalidMessage"
)

type DeliveryError struct {
	Kind    DeliveryErrorKind
	Message string
}

func (err *DeliveryError) Error() string {
	return string(err.Kind) + ": " + err.Message
}

// SendResult is the outcome of a single delivery attempt.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Err       error  `json:"-"`
}

func (r SendResult) ErrorKind() DeliveryErrorKind {
	if de, ok := errors.Cause(r.Err).(*DeliveryError); ok {
		return de.Kind
	}
	return ""
}

func (m *EmailMessage) Render() error {
	if m.TextContent == "" && m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	return nil
}

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading attachment")
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err := encoder.Write(content); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}
	if err := encoder.Close(); err != nil {
		return errors.Wrap(err, "encoding attachment")
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
