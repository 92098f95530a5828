package chquery

import (
	"strconv"
	"strings"

	"github.com/mickamy/chnative/chvalue"
)

// Bind replaces every $N (N >= 1) placeholder in sql with the literal SQL
// form of args[N-1], leaving placeholders inside string/identifier
// literals, heredocs, and comments untouched. $$ escapes to a single $.
// An out-of-range or zero index (including bare "$" not followed by a
// digit) passes through unchanged.
func Bind(sql string, args []chvalue.Value) string {
	spans := scan(sql)

	var b strings.Builder
	b.Grow(len(sql))
	for _, s := range spans {
		if s.Kind != spanCode {
			b.WriteString(sql[s.Start:s.End])
			continue
		}
		writeBoundCode(&b, sql[s.Start:s.End], args)
	}
	return b.String()
}

func writeBoundCode(b *strings.Builder, code string, args []chvalue.Value) {
	i := 0
	for i < len(code) {
		if code[i] != '$' {
			b.WriteByte(code[i])
			i++
			continue
		}
		if i+1 < len(code) && code[i+1] == '$' {
			b.WriteByte('$')
			i += 2
			continue
		}
		j := i + 1
		for j < len(code) && isDigit(code[j]) {
			j++
		}
		if j == i+1 {
			// Bare '$' with no following digits: pass through literally.
			b.WriteByte('$')
			i++
			continue
		}
		n, err := strconv.Atoi(code[i+1 : j])
		if err != nil || n < 1 || n > len(args) {
			b.WriteString(code[i:j])
			i = j
			continue
		}
		b.WriteString(args[n-1].String())
		i = j
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
