package richtext

import (
	"strings"

	"golang.org/x/net/html"
)

// SpoilerCSS is the stylesheet the host page needs for rendered spoilers.
const SpoilerCSS = `.spoiler{cursor:pointer;border-radius:4px;transition:all .2s}
.spoiler:not(.revealed) *{color:inherit!important}
.spoiler.revealed{color:inherit!important;background-color:transparent!important}`

const spoilerToggle = `this.classList.toggle('revealed');this.dataset.revealed=this.classList.contains('revealed')`

// Render turns a stored message body into display HTML for a bubble with the
// given background colour. Only the supported formatting survives; spoilers
// become click-to-reveal spans coloured to blend into the bubble.
func Render(text FormattedMessageText, bubbleBackground string) string {
	patch := SpoilerColor(bubbleBackground)

	var b strings.Builder
	renderNode(&b, Decode(text), patch)
	return b.String()
}

func renderNode(b *strings.Builder, n *Node, patch string) {
	var open, closing string
	switch n.Kind {
	case Text:
		writeText(b, n.Text)
		return
	case Bold:
		open, closing = "<b>", "</b>"
	case Italic:
		open, closing = "<i>", "</i>"
	case Underline:
		open, closing = "<u>", "</u>"
	case Strike:
		open, closing = "<s>", "</s>"
	case Color:
		open, closing = `<span style="color:`+html.EscapeString(n.Color)+`">`, "</span>"
	case Spoiler:
		open = `<span class="spoiler" data-revealed="false" role="button" tabindex="0" style="background-color:` +
			patch + `;color:` + patch + `" onclick="` + html.EscapeString(spoilerToggle) + `">`
		closing = "</span>"
	}

	b.WriteString(open)
	for _, c := range n.Children {
		renderNode(b, c, patch)
	}
	b.WriteString(closing)
}
