package enrich

import (
	"strings"

	"github.com/lysyi3m/feed-digest/app/feed"
)

const promptTemplate = `
Du bist ein JSON-Generator. Antworte ausschließlich mit einem einzelnen JSON-Objekt ohne Erklärtext oder Markdown.
Schlüssel:
1) "summary_ai": max. 2 Sätze (Deutsch).
2) "topics": genau 3 Schlagwörter (Array aus Strings, Deutsch).
3) "sentiment": einer von ["positiv","neutral","negativ"].

Eingang:
---
Titel: {title}
Text: {content}
---
`

func BuildPrompt(item feed.Item) string {
	r := strings.NewReplacer("{title}", item.Title, "{content}", item.ContentRaw)
	return r.Replace(promptTemplate)
}
