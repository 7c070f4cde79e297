// Package markdown assembles Markdown documents from typed blocks.
package markdown

import (
	"fmt"
	"strings"
)

// Builder collects blocks and renders them separated by blank lines. Each
// block is rendered independently, so the order of calls is the only thing
// that decides the layout.
type Builder struct {
	blocks []string
}

// Heading adds an ATX heading of the given level (1-6).
func (b *Builder) Heading(level int, text string) *Builder {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return b.add(strings.Repeat("#", level) + " " + singleLine(text))
}

// Paragraph adds free text. Blank input is dropped.
func (b *Builder) Paragraph(text string) *Builder {
	text = strings.TrimRight(text, " \t\n")
	if strings.TrimSpace(text) == "" {
		return b
	}
	return b.add(strings.TrimLeft(text, "\n"))
}

// Emphasis adds an italic single-line paragraph.
func (b *Builder) Emphasis(text string) *Builder {
	return b.add("*" + singleLine(text) + "*")
}

// Field adds a "**Label:** value" line.
func (b *Builder) Field(label, value string) *Builder {
	return b.add(fmt.Sprintf("**%s:** %s", label, singleLine(value)))
}

// OrderedList adds a numbered list. Continuation lines of multi-line items are
// indented so they stay inside their item.
func (b *Builder) OrderedList(items []string) *Builder {
	if len(items) == 0 {
		return b
	}
	lines := make([]string, 0, len(items))
	for i, item := range items {
		marker := fmt.Sprintf("%d. ", i+1)
		indent := strings.Repeat(" ", len(marker))
		parts := strings.Split(strings.TrimSpace(item), "\n")
		for j, part := range parts {
			if j == 0 {
				lines = append(lines, marker+part)
				continue
			}
			if strings.TrimSpace(part) == "" {
				lines = append(lines, "")
				continue
			}
			lines = append(lines, indent+part)
		}
	}
	return b.add(strings.Join(lines, "\n"))
}

// Rule adds a horizontal rule.
func (b *Builder) Rule() *Builder {
	return b.add("---")
}

// Len returns the number of blocks added so far.
func (b *Builder) Len() int {
	return len(b.blocks)
}

// String renders the document with a trailing newline.
func (b *Builder) String() string {
	if len(b.blocks) == 0 {
		return ""
	}
	return strings.Join(b.blocks, "\n\n") + "\n"
}

func (b *Builder) add(block string) *Builder {
	b.blocks = append(b.blocks, block)
	return b
}

func singleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
