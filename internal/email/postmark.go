package email

import "context"

type Postmark struct {
	httpSender
	serverToken string
	fromEmail   string
}

func NewPostmark(serverToken, fromEmail string, opts ...Option) *Postmark {
	return &Postmark{
		httpSender:  newHTTPSender("https://api.postmarkapp.com", opts),
		serverToken: serverToken,
		fromEmail:   fromEmail,
	}
}

func (c *Postmark) Provider() string { return "postmark" }

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody,omitempty"`
}

func (c *Postmark) Send(ctx context.Context, msg Message) (Receipt, error) {
	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTML,
		TextBody: msg.Text,
	}
	var out struct {
		MessageID string `json:"MessageID"`
	}
	headers := map[string]string{"X-Postmark-Server-Token": c.serverToken}
	if _, err := c.postJSON(ctx, c.Provider(), "/email", headers, payload, &out); err != nil {
		return Receipt{}, err
	}
	return Receipt{Provider: c.Provider(), MessageID: out.MessageID}, nil
}
