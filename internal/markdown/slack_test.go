// ABOUTME: Tests for the Markdown-to-mrkdwn rewrite pipeline.
// ABOUTME: Covers each stage, code-span protection, and combined documents.

package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSlack_Headers(t *testing.T) {
	assert.Equal(t, "*Title*", ToSlack("# Title"))
	assert.Equal(t, "*Deep*", ToSlack("###### Deep"))
	assert.Equal(t, "*One*\nbody\n*Two*", ToSlack("# One\nbody\n## Two"))
}

func TestToSlack_Bold(t *testing.T) {
	assert.Equal(t, "*bold*", ToSlack("**bold**"))
	assert.Equal(t, "*bold*", ToSlack("__bold__"))
	assert.Equal(t, "say *it* loud", ToSlack("say **it** loud"))
}

func TestToSlack_Italic(t *testing.T) {
	assert.Equal(t, "_slanted_", ToSlack("*slanted*"))
	// Underscore italics are already valid mrkdwn and pass through.
	assert.Equal(t, "_kept_", ToSlack("_kept_"))
}

func TestToSlack_BoldAndItalicTogether(t *testing.T) {
	assert.Equal(t, "*bold* and _italic_", ToSlack("**bold** and *italic*"))
}

func TestToSlack_Strikethrough(t *testing.T) {
	assert.Equal(t, "~gone~", ToSlack("~~gone~~"))
}

func TestToSlack_Links(t *testing.T) {
	assert.Equal(t, "<http://x|see>", ToSlack("[see](http://x)"))
	assert.Equal(t, "go <https://a.example/b|here> now", ToSlack("go [here](https://a.example/b) now"))
}

func TestToSlack_ImageLinksUntouched(t *testing.T) {
	assert.Equal(t, "![alt](http://img)", ToSlack("![alt](http://img)"))
}

func TestToSlack_InlineCodeProtected(t *testing.T) {
	assert.Equal(t, "`code **not bold**`", ToSlack("`code **not bold**`"))
	assert.Equal(t, "before `# keep` after", ToSlack("before `# keep` after"))
}

func TestToSlack_FencedBlockProtected(t *testing.T) {
	in := "```\n# not a header\n**not bold**\n```"
	assert.Equal(t, in, ToSlack(in))
}

func TestToSlack_MixedDocument(t *testing.T) {
	in := "# Report\n\n**Done:** *almost* everything, see [notes](http://n).\n\n`x := **raw**`"
	want := "*Report*\n\n*Done:* _almost_ everything, see <http://n|notes>.\n\n`x := **raw**`"
	assert.Equal(t, want, ToSlack(in))
}

func TestToSlack_Empty(t *testing.T) {
	assert.Equal(t, "", ToSlack(""))
}

func TestStages_Independent(t *testing.T) {
	// Each stage is pure and usable on its own.
	assert.Equal(t, boldMark+"H"+boldMark, rewriteHeaders("# H"))
	assert.Equal(t, "~x~", rewriteStrikethrough("~~x~~"))
	assert.Equal(t, "<u|t>", rewriteLinks("[t](u)"))
	assert.Equal(t, "_i_", rewriteItalic("*i*"))
}
