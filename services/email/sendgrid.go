package emailsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridService struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	from := conf.DefaultFrom()
	return &sendgridService{
		key:        conf.SendgridApiKey,
		host:       host,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			res := svc.Send(context.Background(), msg)
			if res.Err != nil {
				svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.Subject, res.Err), res.Err,
					map[string]interface{}{"kind": string(res.ErrorKind())})
			}
		}()
	}
}

// Send delivers `msg` and classifies a refusal by SendGrid into a *core.DeliveryError.
func (svc sendgridService) Send(ctx context.Context, msg *core.EmailMessage) core.SendResult {
	if err := msg.Render(); err != nil {
		return core.SendResult{Err: errors.Wrap(err, "rendering email")}
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return core.SendResult{Err: &core.DeliveryError{Kind: core.ErrKindInvalidMessage, Message: "no recipients or content"}}
	}

	req := sendgrid.GetRequest(svc.key, endpoint, svc.host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(svc.prepare(*msg))

	res, err := rest.SendWithContext(ctx, req)
	if err != nil {
		return core.SendResult{Err: &core.DeliveryError{Kind: core.ErrKindProviderUnavailable, Message: err.Error()}}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return core.SendResult{Err: classify(res.StatusCode, res.Body)}
	}
	return core.SendResult{Success: true, MessageID: header(res.Headers, "X-Message-Id")}
}

func (svc sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(sgEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(sgEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(sgEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     a.Content.String(),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

type sgErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

// classify maps a SendGrid error response to a delivery error kind.
func classify(status int, body string) *core.DeliveryError {
	msg := fmt.Sprintf("status %d", status)
	var parsed sgErrorBody
	if err := json.Unmarshal([]byte(body), &parsed); err == nil && len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			msgs = append(msgs, e.Message)
		}
		msg = strings.Join(msgs, "; ")
	}

	var kind core.DeliveryErrorKind
	switch {
	case status == http.StatusUnauthorized:
		kind = core.ErrKindUnauthorized
	case status == http.StatusForbidden:
		kind = core.ErrKindSenderNotVerified
	case status == http.StatusTooManyRequests:
		kind = core.ErrKindQuotaExceeded
	case status >= http.StatusInternalServerError:
		kind = core.ErrKindProviderUnavailable
	default:
		kind = core.ErrKindMessageRejected
	}
	return &core.DeliveryError{Kind: kind, Message: msg}
}

func header(headers map[string][]string, key string) string {
	for k, vals := range headers {
		if strings.EqualFold(k, key) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}
