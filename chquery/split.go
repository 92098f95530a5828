package chquery

import "strings"

// Split splits sql on top-level ';' characters — a ';' inside a string
// literal, a backtick/double-quoted identifier, a heredoc, or a comment is
// not a separator. Each non-empty statement keeps a trailing ';' (except
// a final statement with no terminating ';' in the source); surrounding
// whitespace is trimmed and empty statements are discarded.
func Split(sql string) []string {
	boundaries := topLevelSemicolons(sql)

	var stmts []string
	partStart := 0
	for _, pos := range boundaries {
		appendTrimmed(&stmts, sql[partStart:pos], true)
		partStart = pos + 1
	}
	appendTrimmed(&stmts, sql[partStart:], false)
	return stmts
}

func appendTrimmed(stmts *[]string, part string, terminated bool) {
	trimmed := strings.TrimSpace(part)
	if trimmed == "" {
		return
	}
	if terminated {
		trimmed += ";"
	}
	*stmts = append(*stmts, trimmed)
}

// topLevelSemicolons returns the byte offsets of every ';' that sits in a
// code span (not inside a string, identifier, heredoc, or comment).
func topLevelSemicolons(sql string) []int {
	var positions []int
	for _, s := range scan(sql) {
		if s.Kind != spanCode {
			continue
		}
		for k := s.Start; k < s.End; k++ {
			if sql[k] == ';' {
				positions = append(positions, k)
			}
		}
	}
	return positions
}
