package htmltemplate

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed tmpl/*.tmpl
var Tmpl embed.FS

func ExecuteHTMLTemplate(templateName string, data interface{}) (string, error) {
	funcMap := template.FuncMap{
		"EmailStyle": func() template.HTML {
			return emailStyle
		},
	}

	t, err := template.New("").Funcs(funcMap).ParseFS(Tmpl, "tmpl/*.tmpl")
	if err != nil {
		return "", fmt.Errorf("error parsing embedded template files: %w", err)
	}

	var executedTemplate bytes.Buffer
	err = t.ExecuteTemplate(&executedTemplate, templateName, data)
	if err != nil {
		return "", fmt.Errorf("executing html template: %w", err)
	}

	return executedTemplate.String(), nil
}

type EmptyBodyEmailTemplate struct {
	Body template.HTML
}

func ExecuteHTMLTemplateForEmailEmptyBody(data EmptyBodyEmailTemplate) (string, error) {
	return ExecuteHTMLTemplate("empty_body.tmpl", data)
}

type PaymentConfirmationEmailTemplate struct {
	SenderName  string
	Reference   string
	Amount      string
	Currency    string
	PaidAt      string
	ServiceName string
}

func ExecuteHTMLTemplateForPaymentConfirmationEmail(data PaymentConfirmationEmailTemplate) (string, error) {
	return ExecuteHTMLTemplate("payment_confirmation_message.tmpl", data)
}

type PaymentExpirationEmailTemplate struct {
	SenderName  string
	Reference   string
	Amount      string
	Currency    string
	ServiceName string
}

func ExecuteHTMLTemplateForPaymentExpirationEmail(data PaymentExpirationEmailTemplate) (string, error) {
	return ExecuteHTMLTemplate("payment_expiration_message.tmpl", data)
}

// emailStyle is the CSS style that will be included in the email templates.
const emailStyle = template.HTML(`
    <style>
        body {
			font-family: Arial, sans-serif;
			line-height: 1.6;
			color: #000000;
			background-color: #f4f4f4;
			margin: 0;
			padding: 0;
        }
        .container {
			max-width: 600px;
			margin: 20px auto;
			padding: 20px;
			background-color: #ffffff;
			border-radius: 6px;
        }
        .footer {
			font-size: 12px;
			color: #888888;
			margin-top: 24px;
        }
    </style>`)
