// Package trace decodes the indentation-encoded call tree dumps produced by
// GraalVM native-image (call_tree_*.txt).
//
// A dump starts with a header line followed by one line per call:
//
//	VM Entry Points
//	├── entry java.lang.Thread.run():void id=1
//	│   ├── directly calls java.lang.Thread.runWith(java.lang.Object, java.lang.Runnable):void id=2
//	│   │   └── virtually calls java.lang.Runnable.run():void id=3
//
// Every 4 columns of prefix (spaces or box-drawing characters) is one level of
// nesting.
package trace

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	// IndentWidth is the number of columns per nesting level.
	IndentWidth = 4

	// AutoEntryLevel makes the parser take the entry level from the first
	// "entry" record. Lines before it are read at DefaultEntryLevel.
	AutoEntryLevel = -1

	// DefaultEntryLevel matches the native-image layout, where entry lines are
	// prefixed by one "├── " step.
	DefaultEntryLevel = 1

	maxLineSize = 16 * 1024 * 1024
)

// Parser decodes single trace lines. It is stateful only in the entry level,
// which may be calibrated from the first well-formed entry line.
type Parser struct {
	entryLevel int
}

// ParserOption configures the parser
type ParserOption func(*Parser)

// WithEntryLevel sets the indentation level of depth-0 lines.
// AutoEntryLevel (the default) derives it from the first entry record.
func WithEntryLevel(level int) ParserOption {
	return func(p *Parser) {
		p.entryLevel = level
	}
}

// NewParser creates a new Parser
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{entryLevel: AutoEntryLevel}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EntryLevel returns the current entry level, AutoEntryLevel if not yet known.
func (p *Parser) EntryLevel() int {
	return p.entryLevel
}

// Parse decodes one line. lineNo is only used for diagnostics.
// Lines without the expected delimiters yield a *MalformedError.
func (p *Parser) Parse(lineNo int, line string) (Record, error) {
	line = strings.TrimRight(line, "\r")

	// Indentation is counted in characters: box-drawing prefixes are
	// multi-byte in UTF-8 but take one column each.
	start, column := -1, 0
	for i, r := range line {
		if r != ' ' && r < utf8.RuneSelf {
			start = i
			break
		}
		column++
	}
	if start < 0 {
		return Record{}, malformed(lineNo, line, "no content")
	}

	dot := strings.IndexByte(line[start:], '.')
	if dot < 0 {
		return Record{}, malformed(lineNo, line, "missing '.' in qualified name")
	}
	dot += start

	typeEnd := strings.LastIndexByte(line[:dot], ' ')
	if typeEnd <= start {
		return Record{}, malformed(lineNo, line, "missing call type")
	}

	paren := strings.IndexByte(line[typeEnd:], '(')
	if paren < 0 {
		return Record{}, malformed(lineNo, line, "missing '(' in method")
	}
	paren += typeEnd

	methodStart := strings.LastIndexByte(line[:paren], '.')
	if methodStart <= typeEnd+1 {
		return Record{}, malformed(lineNo, line, "missing class name")
	}

	colon := strings.IndexByte(line[paren:], ':')
	if colon < 0 {
		return Record{}, malformed(lineNo, line, "missing ':' after method")
	}
	colon += paren

	callType := line[start:typeEnd]
	level := column / IndentWidth
	if p.entryLevel == AutoEntryLevel && callType == EntryCallType {
		p.entryLevel = level
	}
	entryLevel := p.entryLevel
	if entryLevel == AutoEntryLevel {
		entryLevel = DefaultEntryLevel
	}
	depth := level - entryLevel
	if depth < 0 {
		return Record{}, malformed(lineNo, line, "indented less than an entry point")
	}

	return Record{
		Line:     lineNo,
		Depth:    depth,
		CallType: callType,
		Class:    line[typeEnd+1 : methodStart],
		Method:   line[methodStart+1 : colon],
	}, nil
}

// Reader yields records from a whole dump, skipping the header line.
type Reader struct {
	sc     *bufio.Scanner
	parser *Parser
	line   int
}

// NewReader creates a Reader over r
func NewReader(r io.Reader, opts ...ParserOption) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{sc: sc, parser: NewParser(opts...)}
}

// Next returns the next record.
// It returns io.EOF at the end of input and a *MalformedError for a skipped
// line; the caller may keep calling Next after a malformed line. Any other
// error comes from the underlying reader and is final.
func (r *Reader) Next() (Record, error) {
	for r.sc.Scan() {
		r.line++
		if r.line == 1 {
			continue // header
		}
		text := r.sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		return r.parser.Parse(r.line, text)
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

// Lines returns the number of lines consumed so far, header included.
func (r *Reader) Lines() int {
	return r.line
}
