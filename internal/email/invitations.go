package email

import (
	"bytes"
	"fmt"
	htemplate "html/template"
	ttemplate "text/template"

	"github.com/authhub/authhub/internal/observability/logger"
	"github.com/authhub/authhub/internal/util"
)

// InvitationVars fill the access-request invitation templates.
type InvitationVars struct {
	AgencyName string
	Platform   string
	Link       string
}

const invitationHTMLTmpl = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>{{.AgencyName}} is requesting access</h2>
  <p>{{.AgencyName}} would like to connect to your <strong>{{.Platform}}</strong> account
  to manage campaigns on your behalf.</p>
  <p><a href="{{.Link}}" style="display:inline-block;padding:10px 20px;background:#2563eb;color:#fff;border-radius:6px;text-decoration:none;">Grant access</a></p>
  <p>If you weren't expecting this, you can ignore this email. The link grants
  nothing until you approve it on the platform's own consent screen.</p>
</body>
</html>`

const invitationTextTmpl = `{{.AgencyName}} is requesting access to your {{.Platform}} account.

Grant access here: {{.Link}}

If you weren't expecting this, ignore this email. The link grants nothing
until you approve it on the platform's own consent screen.`

// Invitations renders and sends access-request invitations.
type Invitations struct {
	sender Sender
	html   *htemplate.Template
	text   *ttemplate.Template
}

// NewInvitations compiles the built-in templates.
func NewInvitations(sender Sender) (*Invitations, error) {
	h, err := htemplate.New("invitation_html").Parse(invitationHTMLTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse invitation HTML template: %w", err)
	}
	t, err := ttemplate.New("invitation_text").Parse(invitationTextTmpl)
	if err != nil {
		return nil, fmt.Errorf("parse invitation text template: %w", err)
	}
	return &Invitations{sender: sender, html: h, text: t}, nil
}

// SendAccessRequest emails a client the link to start the connect flow.
func (i *Invitations) SendAccessRequest(to string, vars InvitationVars) error {
	var htmlBuf, textBuf bytes.Buffer
	if err := i.html.Execute(&htmlBuf, vars); err != nil {
		return fmt.Errorf("render invitation HTML: %w", err)
	}
	if err := i.text.Execute(&textBuf, vars); err != nil {
		return fmt.Errorf("render invitation text: %w", err)
	}

	subject := fmt.Sprintf("%s is requesting access to your %s account", vars.AgencyName, vars.Platform)
	if err := i.sender.Send(to, subject, htmlBuf.String(), textBuf.String()); err != nil {
		return err
	}

	logger.L().Info("access request invitation sent",
		logger.String("to", util.MaskEmail(to)),
		logger.Platform(vars.Platform),
	)
	return nil
}
