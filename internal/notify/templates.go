package notify

import (
	"bytes"
	"fmt"
	htmltpl "html/template"
	texttpl "text/template"
)

// Rendered es un mensaje listo para enviar.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type emailTemplate struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmltpl.Template
}

// Templates renderiza los mensajes por key.
type Templates struct {
	email map[string]emailTemplate
	sms   map[string]*texttpl.Template
}

type emailSource struct{ subject, text, html string }

var defaultEmail = map[string]emailSource{
	TemplateVerifyEmail: {
		subject: "Verify your email",
		text:    "Hi {{.Email}},\n\nConfirm your email by opening:\n{{.Link}}\n\nThe link expires in {{.TTL}}.\n",
		html:    `<p>Hi {{.Email}},</p><p><a href="{{.Link}}">Confirm your email</a></p><p>The link expires in {{.TTL}}.</p>`,
	},
	TemplateResetPassword: {
		subject: "Reset your password",
		text:    "Hi {{.Email}},\n\nReset your password here:\n{{.Link}}\n\nThe link expires in {{.TTL}}. If you did not ask for this, ignore this email.\n",
		html:    `<p>Hi {{.Email}},</p><p><a href="{{.Link}}">Reset your password</a></p><p>The link expires in {{.TTL}}. If you did not ask for this, ignore this email.</p>`,
	},
	TemplateMagicLink: {
		subject: "Your sign-in link",
		text:    "Sign in by opening:\n{{.Link}}\n\nThe link can be used once and expires in {{.TTL}}.\n",
		html:    `<p><a href="{{.Link}}">Sign in</a></p><p>The link can be used once and expires in {{.TTL}}.</p>`,
	},
	TemplateUserLocked: {
		subject: "Your account was locked",
		text:    "Hi {{.Email}},\n\nYour account was locked after too many failed sign-in attempts. Reset your password to unlock it.\n",
		html:    `<p>Hi {{.Email}},</p><p>Your account was locked after too many failed sign-in attempts. Reset your password to unlock it.</p>`,
	},
}

var defaultSMS = map[string]string{
	TemplateSMSCode:   "Your verification code is {{.Code}}. It expires in {{.TTL}}.",
	TemplateMagicLink: "Sign in: {{.Link}}",
}

// DefaultTemplates parsea los templates embebidos.
func DefaultTemplates() *Templates {
	t, err := NewTemplates(nil, nil)
	if err != nil {
		// los defaults son constantes; un error acá es un bug
		panic(err)
	}
	return t
}

// NewTemplates parsea los defaults más overrides (misma key pisa).
func NewTemplates(emailOverrides map[string][3]string, smsOverrides map[string]string) (*Templates, error) {
	t := &Templates{email: map[string]emailTemplate{}, sms: map[string]*texttpl.Template{}}
	sources := map[string]emailSource{}
	for k, v := range defaultEmail {
		sources[k] = v
	}
	for k, v := range emailOverrides {
		sources[k] = emailSource{subject: v[0], text: v[1], html: v[2]}
	}
	for k, src := range sources {
		var et emailTemplate
		var err error
		if et.subject, err = texttpl.New(k + "_subject").Option("missingkey=zero").Parse(src.subject); err != nil {
			return nil, fmt.Errorf("notify: parse %s subject: %w", k, err)
		}
		if et.text, err = texttpl.New(k + "_text").Option("missingkey=zero").Parse(src.text); err != nil {
			return nil, fmt.Errorf("notify: parse %s text: %w", k, err)
		}
		if et.html, err = htmltpl.New(k + "_html").Option("missingkey=zero").Parse(src.html); err != nil {
			return nil, fmt.Errorf("notify: parse %s html: %w", k, err)
		}
		t.email[k] = et
	}
	smsSrc := map[string]string{}
	for k, v := range defaultSMS {
		smsSrc[k] = v
	}
	for k, v := range smsOverrides {
		smsSrc[k] = v
	}
	for k, src := range smsSrc {
		tpl, err := texttpl.New(k + "_sms").Option("missingkey=zero").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("notify: parse %s sms: %w", k, err)
		}
		t.sms[k] = tpl
	}
	return t, nil
}

// RenderEmail arma subject, texto y html.
func (t *Templates) RenderEmail(key string, params map[string]string) (Rendered, error) {
	et, ok := t.email[key]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, key)
	}
	var subj, txt, html bytes.Buffer
	if err := et.subject.Execute(&subj, params); err != nil {
		return Rendered{}, err
	}
	if err := et.text.Execute(&txt, params); err != nil {
		return Rendered{}, err
	}
	if err := et.html.Execute(&html, params); err != nil {
		return Rendered{}, err
	}
	return Rendered{Subject: subj.String(), Text: txt.String(), HTML: html.String()}, nil
}

// RenderSMS arma el cuerpo del SMS.
func (t *Templates) RenderSMS(key string, params map[string]string) (string, error) {
	tpl, ok := t.sms[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, key)
	}
	var b bytes.Buffer
	if err := tpl.Execute(&b, params); err != nil {
		return "", err
	}
	return b.String(), nil
}
