// Package chunker splits long text into bounded segments for embedding.
package chunker

import (
	"iter"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars is the default maximum number of characters per chunk.
const DefaultMaxChars = 2000

// DefaultOverlap is the default number of characters carried between chunks.
const DefaultOverlap = 0

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// Chunker packs paragraphs, then sentences, into chunks of at most maxChars
// characters. Text is only cut mid-sentence when a sentence alone is too long.
type Chunker struct {
	maxChars int
	overlap  int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChars sets the chunk size bound in characters.
func WithMaxChars(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithOverlap sets how many trailing characters of a chunk are repeated at
// the start of the next one.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.maxChars {
		c.overlap = c.maxChars / 4
	}
	return c
}

// MaxChars returns the chunk size bound.
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// Split returns a lazy sequence of chunks. The sequence can be ranged over
// any number of times and always yields the same chunks.
// Empty or whitespace-only text yields nothing.
func (c *Chunker) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var buf strings.Builder
		bufLen := 0
		// carried is true while buf holds only the previous chunk's overlap tail.
		carried := false

		reset := func() {
			buf.Reset()
			bufLen = 0
			carried = false
		}

		add := func(u unit) bool {
			n := utf8.RuneCountInString(u.text)
			if carried && bufLen+1+n > c.maxChars {
				reset()
			}
			if bufLen > 0 && !carried && bufLen+len(u.sep)+n > c.maxChars {
				out := buf.String()
				reset()
				if !yield(out) {
					return false
				}
				if tail := c.overlapTail(out); tail != "" && utf8.RuneCountInString(tail)+1+n <= c.maxChars {
					buf.WriteString(tail)
					bufLen = utf8.RuneCountInString(tail)
					carried = true
				}
			}
			if bufLen > 0 {
				sep := u.sep
				if carried {
					sep = " "
				}
				buf.WriteString(sep)
				bufLen += len(sep)
			}
			buf.WriteString(u.text)
			bufLen += n
			carried = false
			return true
		}

		for u := range c.units(text) {
			if !add(u) {
				return
			}
		}
		if bufLen > 0 && !carried {
			yield(buf.String())
		}
	}
}

// Chunks collects Split into a slice.
func (c *Chunker) Chunks(text string) []string {
	return slices.Collect(c.Split(text))
}

const paragraphSep = "\n\n"

type unit struct {
	text string
	sep  string
}

// units yields paragraphs that fit, sentences of paragraphs that don't, and
// hard-cut pieces of sentences that still don't.
func (c *Chunker) units(text string) iter.Seq[unit] {
	return func(yield func(unit) bool) {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		for _, para := range paragraphBreak.Split(text, -1) {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			if utf8.RuneCountInString(para) <= c.maxChars {
				if !yield(unit{text: para, sep: paragraphSep}) {
					return
				}
				continue
			}
			sep := paragraphSep
			for _, sentence := range splitSentences(para) {
				for _, piece := range hardSplit(sentence, c.maxChars) {
					if !yield(unit{text: piece, sep: sep}) {
						return
					}
					sep = " "
				}
			}
		}
	}
}

// overlapTail returns the last overlap characters of s, starting at a word.
func (c *Chunker) overlapTail(s string) string {
	if c.overlap == 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= c.overlap {
		return ""
	}
	tail := runes[len(runes)-c.overlap:]
	for i, r := range tail {
		if unicode.IsSpace(r) {
			return strings.TrimSpace(string(tail[i:]))
		}
	}
	return ""
}

// splitSentences cuts a paragraph after '.', '!' or '?' followed by whitespace.
func splitSentences(p string) []string {
	var out []string
	runes := []rune(p)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// hardSplit cuts s into pieces of at most limit characters, preferring the
// last whitespace in the second half of each window.
func hardSplit(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}
	var out []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			out = append(out, piece)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if piece := strings.TrimSpace(string(runes)); piece != "" {
		out = append(out, piece)
	}
	return out
}
