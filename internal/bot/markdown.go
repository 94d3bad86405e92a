package bot

import "strings"

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`,
	"*", `\*`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"~", `\~`,
	"`", "\\`",
	">", `\>`,
	"#", `\#`,
	"+", `\+`,
	"-", `\-`,
	"=", `\=`,
	"|", `\|`,
	"{", `\{`,
	"}", `\}`,
	".", `\.`,
	"!", `\!`,
)

// escapeMarkdown escapes every MarkdownV2 special character.
func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// renderMarkdown turns reply text using **bold** into Telegram MarkdownV2.
// An unclosed ** is kept literally.
func renderMarkdown(text string) string {
	parts := strings.Split(text, "**")
	balanced := len(parts)%2 == 1

	var sb strings.Builder
	for i, p := range parts {
		switch {
		case i%2 == 0:
			sb.WriteString(escapeMarkdown(p))
		case !balanced && i == len(parts)-1:
			sb.WriteString(escapeMarkdown("**" + p))
		case p == "":
		default:
			sb.WriteString("*" + escapeMarkdown(p) + "*")
		}
	}
	return sb.String()
}
