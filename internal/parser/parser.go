package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/venkatbhat62/JaaduConfig/internal/logging"
)

// frame is one open nesting level: the indentation width of the key that
// opened it, the key itself, and the mapping its children go into.
type frame struct {
	indent int
	key    string
	m      *Mapping
	parent *Mapping
}

// IndentParser reads the restricted indentation-based format used by
// environment spec files on hosts where the YAML loader is not selected.
//
// Supported per line: blank lines, `#` comments, `---` separators and
// `<indent><key>:<value>`. A key with an empty value opens a nesting level
// for the more-indented lines that follow it. Sequences, multi-line scalars
// and anchors are not supported. Nesting depth is not limited.
type IndentParser struct {
	lineNum int
	stack   []frame
	root    *Mapping
}

// ParseIndented parses r into a Mapping mirroring its indentation.
// Values are always returned as strings.
func ParseIndented(r io.Reader) (*Mapping, error) {
	p := &IndentParser{root: NewMapping()}
	p.stack = []frame{{indent: -1, m: p.root}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		p.lineNum++
		p.parseLine(scanner.Text())
	}
	for len(p.stack) > 1 {
		p.pop()
	}
	return p.root, scanner.Err()
}

// LoadIndented parses the file at path. A file that cannot be opened is
// logged and yields an empty mapping; callers treat an empty result as
// "could not load".
func LoadIndented(fsys afero.Fs, path string) *Mapping {
	logger := logging.GetLogger("parser")

	file, err := fsys.Open(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Cannot open spec file")
		return NewMapping()
	}
	defer file.Close()

	doc, err := ParseIndented(file)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Error reading spec file")
	}
	return doc
}

func (p *IndentParser) parseLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimLeft(line, " \t")

	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(line, "---") {
		return
	}

	key, value, found := strings.Cut(trimmed, ":")
	if !found {
		logger := logging.GetLogger("parser")
		logger.Debug().
			Int("line", p.lineNum).
			Str("text", line).
			Msg("Skipping line without key separator")
		return
	}
	key = strings.TrimSpace(key)
	value, quoted := cleanValue(value)

	indent := len(line) - len(trimmed)

	// Leave every level opened at this width or deeper.
	for len(p.stack) > 1 && p.stack[len(p.stack)-1].indent >= indent {
		p.pop()
	}
	parent := p.stack[len(p.stack)-1].m

	if value == "" && !quoted {
		p.stack = append(p.stack, frame{
			indent: indent,
			key:    key,
			m:      parent.ensureMapping(key),
			parent: parent,
		})
		return
	}
	parent.Set(key, value)
}

// pop closes the innermost level. A key that opened a level but received no
// children is dropped, matching files where `Key:` is left empty.
func (p *IndentParser) pop() {
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if top.m.Len() == 0 {
		top.parent.Delete(top.key)
	}
}

// cleanValue strips surrounding whitespace and one pair of matching quotes.
// A ` #` inside a value is kept, since commands and patterns use it. quoted
// reports whether quotes were removed, so `Key: ""` stays an empty scalar.
func cleanValue(v string) (value string, quoted bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return v, false
	}
	if q := v[0]; q == '"' || q == '\'' {
		if len(v) >= 2 && v[len(v)-1] == q {
			return v[1 : len(v)-1], true
		}
		return v, false
	}
	return v, false
}
