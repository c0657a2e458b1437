// ABOUTME: Converts standard Markdown to Slack-flavored mrkdwn.
// ABOUTME: Pipeline of independent rewrite stages over a code-span-masked string.

package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

// boldMark is a temporary stand-in for bold delimiters so the italic
// stage does not see the asterisks the bold stage just emitted.
const boldMark = "\x02"

var (
	// Fenced blocks and inline spans are masked before any other stage runs.
	codeSpanRe = regexp.MustCompile("(?s)```.*?```|`[^`]+`")

	headerRe    = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+?)[ \t]*$`)
	boldStarRe  = regexp.MustCompile(`\*\*(\S|\S[\s\S]*?\S)\*\*`)
	boldUnderRe = regexp.MustCompile(`__(\S|\S[\s\S]*?\S)__`)
	italicRe    = regexp.MustCompile(`\*(\S|\S[^*]*\S)\*`)
	strikeRe    = regexp.MustCompile(`~~(\S|\S[\s\S]*?\S)~~`)
	linkRe      = regexp.MustCompile(`!?\[([^\]]+)\]\(([^)]+)\)`)
)

// stage is one pure rewrite step in the conversion pipeline.
type stage func(string) string

// stages run in order on the masked text. Header and bold output is held
// as boldMark until the italic stage has run, otherwise the italic rule
// would consume the single asterisks they emit.
var stages = []stage{
	rewriteHeaders,
	rewriteBold,
	rewriteItalic,
	restoreBoldMarks,
	rewriteStrikethrough,
	rewriteLinks,
}

// ToSlack rewrites standard Markdown into Slack mrkdwn. Code fences and
// inline code spans pass through untouched.
func ToSlack(text string) string {
	if text == "" {
		return text
	}

	masked, spans := maskCodeSpans(text)
	for _, s := range stages {
		masked = s(masked)
	}
	return restoreCodeSpans(masked, spans)
}

// maskCodeSpans replaces code spans with placeholder tokens and returns
// the masked text plus the spans in order of appearance. The tokens use
// \x00 delimiters, which cannot occur in channel message text.
func maskCodeSpans(text string) (string, []string) {
	var spans []string
	masked := codeSpanRe.ReplaceAllStringFunc(text, func(m string) string {
		spans = append(spans, m)
		return fmt.Sprintf("\x00%d\x00", len(spans)-1)
	})
	return masked, spans
}

// restoreCodeSpans substitutes the original code spans back in.
func restoreCodeSpans(text string, spans []string) string {
	for i, span := range spans {
		text = strings.Replace(text, fmt.Sprintf("\x00%d\x00", i), span, 1)
	}
	return text
}

// rewriteHeaders turns ATX headers into bold lines; Slack has no headers.
func rewriteHeaders(text string) string {
	return headerRe.ReplaceAllString(text, boldMark+"$1"+boldMark)
}

// rewriteBold converts **x** and __x__ to boldMark-wrapped text. The real
// asterisks appear only after the italic stage has run.
func rewriteBold(text string) string {
	text = boldStarRe.ReplaceAllString(text, boldMark+"$1"+boldMark)
	return boldUnderRe.ReplaceAllString(text, boldMark+"$1"+boldMark)
}

// rewriteItalic converts *x* to _x_. Underscore italics are already valid
// mrkdwn, so only the asterisk form needs rewriting.
func rewriteItalic(text string) string {
	return italicRe.ReplaceAllString(text, "_${1}_")
}

// restoreBoldMarks swaps the temporary bold markers for single asterisks.
func restoreBoldMarks(text string) string {
	return strings.ReplaceAll(text, boldMark, "*")
}

// rewriteStrikethrough converts ~~x~~ to ~x~.
func rewriteStrikethrough(text string) string {
	return strikeRe.ReplaceAllString(text, "~$1~")
}

// rewriteLinks converts [text](url) to <url|text>. Image links ("![..")
// are left alone; RE2 has no lookbehind, so the optional bang is matched
// and checked in the replace func.
func rewriteLinks(text string) string {
	return linkRe.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasPrefix(m, "!") {
			return m
		}
		sub := linkRe.FindStringSubmatch(m)
		return "<" + sub[2] + "|" + sub[1] + ">"
	})
}
