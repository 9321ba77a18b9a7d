package invite

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/quietcuration/internal/dates"
	"github.com/dukerupert/quietcuration/internal/email"
	"github.com/dukerupert/quietcuration/internal/model"
)

const defaultExcerpt = "Open the app to read today's curation."

// DeepLink is the sign-in link that lands on the curation page.
func DeepLink(siteURL, curationID string) string {
	return strings.TrimRight(siteURL, "/") + "/login?redirect=/c/" + url.PathEscape(curationID)
}

type emailView struct {
	Subject     string
	Title       string
	DateLine    string
	Excerpt     string
	VerseRef    string
	VerseText   string
	Translation string
	ReadingLine string
	ReadingText string
	Link        string
	HasPairing  bool
	HasVerse    bool
	HasReading  bool
}

var htmlTemplate = template.Must(template.New("invite").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="margin:0;padding:0;background-color:#f7f3ef;font-family:Helvetica,Arial,sans-serif;color:#2d2721;">
<div style="max-width:640px;margin:0 auto;padding:28px;">
<p style="font-size:12px;letter-spacing:0.28em;text-transform:uppercase;color:#8c7f76;">Quiet Curation</p>
<h1 style="font-size:28px;color:#1f1a16;">{{.Title}}</h1>
{{if .DateLine}}<p style="font-size:14px;color:#8c7f76;">{{.DateLine}}</p>{{end}}
<p style="font-size:16px;line-height:1.6;">{{.Excerpt}}</p>
{{if .HasPairing}}<div style="border:1px solid #eadfd7;background-color:#fff7f1;border-radius:16px;padding:18px;">
{{if .HasVerse}}<div style="margin-bottom:16px;">
<div style="font-size:12px;text-transform:uppercase;color:#8c7f76;">Verse</div>
{{if .VerseRef}}<div style="font-weight:600;">{{.VerseRef}}{{if .Translation}} ({{.Translation}}){{end}}</div>{{end}}
{{if .VerseText}}<div>{{.VerseText}}</div>{{end}}
</div>{{end}}
{{if .HasReading}}<div>
<div style="font-size:12px;text-transform:uppercase;color:#8c7f76;">Reading</div>
{{if .ReadingLine}}<div style="font-weight:600;">{{.ReadingLine}}</div>{{end}}
{{if .ReadingText}}<div>{{.ReadingText}}</div>{{end}}
</div>{{end}}
{{if not (or .HasVerse .HasReading)}}<div>Open the app for the full pairing.</div>{{end}}
</div>{{end}}
<a href="{{.Link}}" style="display:inline-block;margin-top:24px;background-color:#1f1a16;color:#f7f3ef;text-decoration:none;padding:12px 18px;border-radius:999px;">Open today's reading</a>
<p style="font-size:12px;color:#8c7f76;">If the button doesn't work, paste this link into your browser:<br>{{.Link}}</p>
</div>
</body>
</html>
`))

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil {
			if s := strings.TrimSpace(*v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Render builds the invite for curationID. p may be nil when the curation id
// does not name a stored pairing.
func Render(curationID string, p *model.PairingWithVerse, siteURL string) (email.Message, error) {
	view := emailView{
		Title:   "Today's Quiet Curation",
		Excerpt: defaultExcerpt,
		Link:    DeepLink(siteURL, curationID),
	}

	if p != nil {
		view.Title = p.Title()
		rationale := p.RationaleShort
		if s := firstNonEmpty(&rationale, p.LiteratureText); s != "" {
			view.Excerpt = s
		}
		if d, err := time.Parse(dates.Layout, p.PairingDate); err == nil {
			view.DateLine = "For " + d.Format("January 2, 2006")
		}

		view.HasPairing = true
		if p.Verse != nil {
			view.VerseRef = p.Verse.Reference()
			view.VerseText = strings.TrimSpace(p.Verse.Text)
			view.Translation = strings.TrimSpace(p.Verse.Translation)
			view.HasVerse = view.VerseRef != "" || view.VerseText != ""
		}

		var parts []string
		if s := firstNonEmpty(p.LiteratureTitle, p.LiteratureWork); s != "" {
			parts = append(parts, s)
		}
		if s := firstNonEmpty(p.LiteratureAuthor, p.LiteratureSource); s != "" {
			parts = append(parts, s)
		}
		view.ReadingLine = strings.Join(parts, " · ")
		view.ReadingText = firstNonEmpty(p.LiteratureText)
		view.HasReading = view.ReadingLine != "" || view.ReadingText != ""
	}
	view.Subject = "Quiet Curation: " + view.Title

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return email.Message{}, fmt.Errorf("render invite: %w", err)
	}

	return email.Message{
		Subject: view.Subject,
		HTML:    buf.String(),
		Text:    renderText(view),
	}, nil
}

func renderText(v emailView) string {
	var b strings.Builder
	b.WriteString(v.Title + "\n")
	if v.DateLine != "" {
		b.WriteString(v.DateLine + "\n")
	}
	b.WriteString("\n" + v.Excerpt + "\n")
	if v.HasVerse {
		ref := v.VerseRef
		if v.Translation != "" {
			ref += " (" + v.Translation + ")"
		}
		b.WriteString("\n" + strings.TrimSpace(ref+"\n"+v.VerseText) + "\n")
	}
	if v.HasReading {
		b.WriteString("\n" + strings.TrimSpace(v.ReadingLine+"\n"+v.ReadingText) + "\n")
	}
	b.WriteString("\nOpen today's reading: " + v.Link + "\n")
	return b.String()
}
