package email

import "context"

type Resend struct {
	httpSender
	apiKey string
	from   string
}

func NewResend(apiKey, from string, opts ...Option) *Resend {
	return &Resend{
		httpSender: newHTTPSender("https://api.resend.com", opts),
		apiKey:     apiKey,
		from:       from,
	}
}

func (c *Resend) Provider() string { return "resend" }

type resendEmail struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

func (c *Resend) Send(ctx context.Context, msg Message) (Receipt, error) {
	payload := resendEmail{From: c.from, To: msg.To, Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text}
	var out struct {
		ID string `json:"id"`
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if _, err := c.postJSON(ctx, c.Provider(), "/emails", headers, payload, &out); err != nil {
		return Receipt{}, err
	}
	return Receipt{Provider: c.Provider(), MessageID: out.ID}, nil
}
