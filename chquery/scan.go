// Package chquery implements the two pieces of SQL text plumbing a native
// client needs ahead of the wire protocol: substituting $N placeholders
// with a bound value's literal SQL form, and splitting a multi-statement
// script on top-level semicolons. Both are built on a shared scanner that
// classifies the query into spans — code, quoted strings, identifiers,
// heredocs, and comments — so neither operation is fooled by a semicolon
// or dollar sign sitting inside a string literal or a comment.
package chquery

import "strings"

// spanKind classifies one contiguous range of a query string. Only code
// spans can contain a $N placeholder or a statement-splitting ';'.
type spanKind int

const (
	spanCode spanKind = iota
	spanSingleQuote
	spanDoubleQuote
	spanBacktick
	spanHeredoc
	spanLineComment
	spanBlockComment
)

// span is one classified, half-open range [Start, End) of a query string.
type span struct {
	Kind       spanKind
	Start, End int
}

// scan walks sql once and returns its spans in order, covering every byte
// exactly once.
func scan(sql string) []span {
	var spans []span
	i := 0
	start := 0
	flush := func(end int, kind spanKind) {
		if end > start {
			spans = append(spans, span{Kind: kind, Start: start, End: end})
		}
		start = end
	}

	for i < len(sql) {
		switch {
		case sql[i] == '\'':
			flush(i, spanCode)
			i = scanQuoted(sql, i, '\'')
			flush(i, spanSingleQuote)

		case sql[i] == '"':
			flush(i, spanCode)
			i = scanQuoted(sql, i, '"')
			flush(i, spanDoubleQuote)

		case sql[i] == '`':
			flush(i, spanCode)
			i = scanQuoted(sql, i, '`')
			flush(i, spanBacktick)

		case sql[i] == '-' && i+1 < len(sql) && sql[i+1] == '-':
			flush(i, spanCode)
			i = scanLineComment(sql, i)
			flush(i, spanLineComment)

		case sql[i] == '#':
			flush(i, spanCode)
			i = scanLineComment(sql, i)
			flush(i, spanLineComment)

		case sql[i] == '/' && i+1 < len(sql) && sql[i+1] == '*':
			flush(i, spanCode)
			i = scanBlockComment(sql, i)
			flush(i, spanBlockComment)

		case sql[i] == '$':
			if _, bodyEnd, ok := tryHeredoc(sql, i); ok {
				flush(i, spanCode)
				i = bodyEnd
				flush(i, spanHeredoc)
			} else {
				i++
			}

		default:
			i++
		}
	}
	flush(len(sql), spanCode)
	return spans
}

// scanQuoted consumes a quoted span opened by quote at sql[start], honoring
// both backslash escapes and doubled-quote escapes ('' inside a '...'
// string is a literal quote, matching ClickHouse's SQL dialect), and
// returns the index just past the closing quote (or len(sql) if unterminated).
func scanQuoted(sql string, start int, quote byte) int {
	j := start + 1
	for j < len(sql) {
		if sql[j] == '\\' && j+1 < len(sql) {
			j += 2
			continue
		}
		if sql[j] == quote {
			if j+1 < len(sql) && sql[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return j
}

// scanLineComment consumes "-- ...", "#!...", or "# ..." through the end
// of the line (or end of input), matching all three ClickHouse line-comment
// spellings.
func scanLineComment(sql string, start int) int {
	j := start
	for j < len(sql) && sql[j] != '\n' {
		j++
	}
	return j
}

// scanBlockComment consumes "/* ... */", returning the index just past the
// closing "*/" (or len(sql) if unterminated).
func scanBlockComment(sql string, start int) int {
	j := start + 2
	for j+1 < len(sql) {
		if sql[j] == '*' && sql[j+1] == '/' {
			return j + 2
		}
		j++
	}
	return len(sql)
}

// tryHeredoc recognizes a $TAG$...$TAG$ heredoc opening at sql[start] (which
// must be '$'), where TAG is a non-empty run of letters/underscores (so it
// never collides with $N placeholders or the `$$` escape). It
// returns the index just past the opening tag and the index just past the
// matching closing tag, or ok=false if sql[start] does not open a heredoc
// at all (including the `$$` escape, which this function deliberately does
// not treat as a heredoc).
func tryHeredoc(sql string, start int) (tagEnd, bodyEnd int, ok bool) {
	j := start + 1
	tagStart := j
	for j < len(sql) && isHeredocTagByte(sql[j]) {
		j++
	}
	if j >= len(sql) || sql[j] != '$' || j == tagStart {
		return 0, 0, false
	}
	tag := sql[start : j+1] // "$TAG$"
	tagEnd = j + 1

	idx := indexFrom(sql, tag, tagEnd)
	if idx < 0 {
		return 0, 0, false
	}
	return tagEnd, idx + len(tag), true
}

func isHeredocTagByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	idx := strings.Index(s[from:], substr)
	if idx < 0 {
		return -1
	}
	return from + idx
}
