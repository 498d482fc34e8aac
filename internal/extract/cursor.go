package extract

import "strings"

// lineCursor is an index-based cursor over a document's lines. Consuming a
// record advances the same cursor the classifier reads from, so consumed
// lines are never classified again.
type lineCursor struct {
	lines []string
	pos   int
}

func newLineCursor(text string) *lineCursor {
	return &lineCursor{lines: splitLines(text)}
}

func (c *lineCursor) more() bool {
	return c.pos < len(c.lines)
}

// next returns the current line and advances past it.
func (c *lineCursor) next() string {
	line := c.lines[c.pos]
	c.pos++
	return line
}

// splitLines splits on LF or CRLF and drops trailing empty lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return lines[:end]
}
