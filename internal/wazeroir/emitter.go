package wazeroir

import "strings"

// buffer is an append-only line buffer (spec.md §4.E): the translator
// writes host-language statements into it one line at a time and never
// rewinds or edits a previously written line. Each translated function
// owns two buffers, a header (local/register declarations) and a body
// (the statements themselves), concatenated at the end.
type buffer struct {
	b strings.Builder
}

func newBuffer() *buffer {
	return &buffer{}
}

// line appends one statement, indented by depth levels of two spaces, and
// terminated by a newline. Indentation is cosmetic only: it has no effect
// on the generated semantics, but matches the nesting of the host-language
// control constructs being emitted so the output stays readable.
func (b *buffer) line(depth int, text string) {
	if depth > 0 {
		b.b.WriteString(strings.Repeat("  ", depth))
	}
	b.b.WriteString(text)
	b.b.WriteByte('\n')
}

func (b *buffer) String() string {
	return b.b.String()
}
