package email

import (
	"context"
	"net/mail"
)

type SendGrid struct {
	httpSender
	apiKey string
	from   string
}

func NewSendGrid(apiKey, from string, opts ...Option) *SendGrid {
	return &SendGrid{
		httpSender: newHTTPSender("https://api.sendgrid.com", opts),
		apiKey:     apiKey,
		from:       from,
	}
}

func (c *SendGrid) Provider() string { return "sendgrid" }

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridEmail struct {
	Personalizations []struct {
		To []sendGridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendGridAddress   `json:"from"`
	Subject string            `json:"subject"`
	Content []sendGridContent `json:"content"`
}

// Send posts to v3/mail/send. SendGrid answers 202 with no body and reports
// the message id in the X-Message-Id header.
func (c *SendGrid) Send(ctx context.Context, msg Message) (Receipt, error) {
	var payload sendGridEmail
	payload.Personalizations = make([]struct {
		To []sendGridAddress `json:"to"`
	}, 1)
	payload.Personalizations[0].To = []sendGridAddress{{Email: msg.To}}
	payload.From = sendGridAddress{Email: c.from}
	if addr, err := mail.ParseAddress(c.from); err == nil {
		payload.From = sendGridAddress{Email: addr.Address, Name: addr.Name}
	}
	payload.Subject = msg.Subject
	if msg.Text != "" {
		payload.Content = append(payload.Content, sendGridContent{Type: "text/plain", Value: msg.Text})
	}
	payload.Content = append(payload.Content, sendGridContent{Type: "text/html", Value: msg.HTML})

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	respHeader, err := c.postJSON(ctx, c.Provider(), "/v3/mail/send", headers, payload, nil)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Provider: c.Provider(), MessageID: respHeader.Get("X-Message-Id")}, nil
}
