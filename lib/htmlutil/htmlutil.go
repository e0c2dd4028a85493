package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText collapses whitespace runs and strips non-printable runes,
// producing the single-line form used for names and labels.
func CleanText(s string) string {
	cleaned := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			cleaned.WriteRune(c)
		}
	}
	out := strings.Trim(cleaned.String(), " \t\n")
	return innerWhitespace.ReplaceAllString(out, " ")
}

// AbsURL rewrites protocol-relative and root-relative URLs against the
// given base origin. Already-absolute URLs pass through unchanged.
func AbsURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	baseUrl, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseUrl.ResolveReference(ref).String()
}

var (
	scriptBlockRegex  = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleBlockRegex   = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	eventHandlerRegex = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	jsSchemeRegex     = regexp.MustCompile(`(?i)(href|src)\s*=\s*("javascript:[^"]*"|'javascript:[^']*')`)
)

// Sanitize strips active content from an HTML fragment so it can be
// passed through to a consumer as a rich description: script and style
// blocks, inline event-handler attributes and javascript: URLs.
func Sanitize(fragment string) string {
	fragment = scriptBlockRegex.ReplaceAllString(fragment, "")
	fragment = styleBlockRegex.ReplaceAllString(fragment, "")
	fragment = eventHandlerRegex.ReplaceAllString(fragment, "")
	fragment = jsSchemeRegex.ReplaceAllString(fragment, `$1="#"`)
	return strings.TrimSpace(fragment)
}

var tagRegex = regexp.MustCompile(`(?s)<[^>]*>`)

// StripTags reduces an HTML fragment to its text content.
func StripTags(fragment string) string {
	return CleanText(tagRegex.ReplaceAllString(fragment, " "))
}
