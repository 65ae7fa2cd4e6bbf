// Package notify renders the transactional e-mails of the platform.
package notify

import (
	"bytes"
	htmltemplate "html/template"
	"net/mail"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	appfs "github.com/malekai-gauntlet/tsa-platform-sub001/fs"
)

const (
	tmplDir      = "templates/email/"
	baseHTML     = "_base.gohtml"
	baseText     = "_base.txt"
	dateLayout   = "January 2, 2006"
	dateTimeLyt  = "Mon, Jan 2, 2006 at 3:04 PM MST"
	subjectBlock = "subject"
)

const (
	tmplCoachInvitation         = "coach_invitation"
	tmplParentInvitation        = "parent_invitation"
	tmplWelcome                 = "welcome"
	tmplOnboardingCompleteAdmin = "onboarding_complete_admin"
	tmplEventNotification       = "event_notification"
	tmplRegistrationConfirm     = "registration_confirmation"
)

var allTemplates = []string{
	tmplCoachInvitation,
	tmplParentInvitation,
	tmplWelcome,
	tmplOnboardingCompleteAdmin,
	tmplEventNotification,
	tmplRegistrationConfirm,
}

var funcs = map[string]interface{}{
	"formatDate":     func(t time.Time) string { return t.Format(dateLayout) },
	"formatDateTime": func(t time.Time) string { return t.Format(dateTimeLyt) },
	"lower":          strings.ToLower,
}

// Rendered is a ready to send e-mail body.
type Rendered struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Message builds an e-mail message addressed to `to`.
func (r Rendered) Message(to ...mail.Address) *core.EmailMessage {
	return &core.EmailMessage{
		To:          to,
		Subject:     r.Subject,
		TextContent: r.Text,
		HTMLContent: r.HTML,
	}
}

type templateSet struct {
	html *htmltemplate.Template
	text *template.Template
}

type contextData struct {
	AppName         string
	FrontendBaseURL string
	Data            interface{}
}

// Generator renders the e-mail templates embedded in the binary.
// Rendering is deterministic: the same data always yields the same output.
type Generator struct {
	appName         string
	frontendBaseURL string
	templates       map[string]templateSet
}

// NewGenerator parses every template once; a broken template is reported here rather than
// at send time.
func NewGenerator(conf *core.Config) (*Generator, error) {
	g := &Generator{
		appName:         conf.AppName,
		frontendBaseURL: conf.FrontendBaseURL,
		templates:       make(map[string]templateSet, len(allTemplates)),
	}
	for _, name := range allTemplates {
		html, err := htmltemplate.New(baseHTML).
			Funcs(funcs).
			Option("missingkey=error").
			ParseFS(appfs.FS, tmplDir+baseHTML, tmplDir+name+".gohtml")
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s.gohtml", name)
		}
		text, err := template.New(baseText).
			Funcs(funcs).
			Option("missingkey=error").
			ParseFS(appfs.FS, tmplDir+baseText, tmplDir+name+".txt")
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s.txt", name)
		}
		g.templates[name] = templateSet{html: html, text: text}
	}
	return g, nil
}

// URL joins `path` to the frontend base URL.
func (g *Generator) URL(path string) string {
	return g.frontendBaseURL + "/" + strings.TrimLeft(path, "/")
}

func (g *Generator) render(name string, data interface{}) (Rendered, error) {
	set, ok := g.templates[name]
	if !ok {
		return Rendered{}, errors.Errorf("unknown email template %q", name)
	}
	ctx := contextData{AppName: g.appName, FrontendBaseURL: g.frontendBaseURL, Data: data}

	var subj, html, text bytes.Buffer
	if err := set.text.ExecuteTemplate(&subj, subjectBlock, ctx); err != nil {
		return Rendered{}, errors.Wrapf(err, "rendering %s subject", name)
	}
	if err := set.html.ExecuteTemplate(&html, baseHTML, ctx); err != nil {
		return Rendered{}, errors.Wrapf(err, "rendering %s.gohtml", name)
	}
	if err := set.text.ExecuteTemplate(&text, baseText, ctx); err != nil {
		return Rendered{}, errors.Wrapf(err, "rendering %s.txt", name)
	}

	return Rendered{
		Subject: strings.TrimSpace(subj.String()),
		HTML:    strings.TrimSpace(html.String()),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}
