package sql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/veloxql"
	"github.com/syssam/veloxql/dialect"
)

// segment kinds produced by lex.
const (
	segText = iota
	segParam
	segSeparator
)

type segment struct {
	kind int
	text string // parameter name for segParam.
}

// lex splits compiled SQL into text, @name parameters and top-level
// statement separators. Quoted literals and identifiers are copied as
// text, so an @ or ; inside them is never a token. @@ starts a system
// variable, not a parameter.
func lex(d, query string) []segment {
	var (
		segs []segment
		text strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			segs = append(segs, segment{kind: segText, text: text.String()})
			text.Reset()
		}
	}
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'':
			j := skipQuoted(query, i, '\'', d == dialect.MySQL)
			text.WriteString(query[i:j])
			i = j
		case c == '"' || c == '`':
			j := skipQuoted(query, i, c, false)
			text.WriteString(query[i:j])
			i = j
		case c == '[' && d == dialect.SQLServer:
			j := skipQuoted(query, i, ']', false)
			text.WriteString(query[i:j])
			i = j
		case c == '@' && i+1 < len(query) && query[i+1] == '@':
			j := i + 2
			for j < len(query) && isNameByte(query[j]) {
				j++
			}
			text.WriteString(query[i:j])
			i = j
		case c == '@':
			j := i + 1
			for j < len(query) && isNameByte(query[j]) {
				j++
			}
			if j == i+1 {
				text.WriteByte(c)
				i++
				continue
			}
			flush()
			segs = append(segs, segment{kind: segParam, text: query[i+1 : j]})
			i = j
		case c == ';':
			flush()
			segs = append(segs, segment{kind: segSeparator})
			i++
		default:
			text.WriteByte(c)
			i++
		}
	}
	flush()
	return segs
}

// skipQuoted returns the index after the quoted run that starts at i. A
// doubled closing quote is part of the run. Unterminated runs extend to the
// end of the query.
func skipQuoted(query string, i int, closing byte, backslash bool) int {
	for j := i + 1; j < len(query); j++ {
		switch query[j] {
		case '\\':
			if backslash {
				j++
			}
		case closing:
			if j+1 < len(query) && query[j+1] == closing {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(query)
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// Rebind rewrites the @name parameters of one statement to the placeholder
// style of the dialect and returns the driver arguments:
//
//	postgres         $1, $2, ... numbered by first use
//	mysql, sqlite    ? per occurrence
//	sqlserver        @name unchanged, with sql.Named arguments
//
// Only the parameters the statement references are passed.
func Rebind(d, query string, params []veloxql.Parameter) (string, []any, error) {
	return rebind(d, lex(d, query), params)
}

func rebind(d string, segs []segment, params []veloxql.Parameter) (string, []any, error) {
	values := make(map[string]any, len(params))
	for _, p := range params {
		values[p.Name] = p.Value
	}
	var (
		b       strings.Builder
		args    []any
		numbers = make(map[string]int)
	)
	for _, s := range segs {
		switch s.kind {
		case segText:
			b.WriteString(s.text)
			continue
		case segSeparator:
			b.WriteByte(';')
			continue
		}
		v, ok := values[s.text]
		if !ok {
			return "", nil, fmt.Errorf("dialect/sql: unbound parameter @%s", s.text)
		}
		switch d {
		case dialect.Postgres:
			n, seen := numbers[s.text]
			if !seen {
				args = append(args, v)
				n = len(args)
				numbers[s.text] = n
			}
			b.WriteString("$" + strconv.Itoa(n))
		case dialect.SQLServer:
			if _, seen := numbers[s.text]; !seen {
				args = append(args, sql.Named(s.text, v))
				numbers[s.text] = len(args)
			}
			b.WriteString("@" + s.text)
		default:
			args = append(args, v)
			b.WriteByte('?')
		}
	}
	return b.String(), args, nil
}

// split returns the statements of a batch, each as its own segment list.
func split(segs []segment) [][]segment {
	var (
		out [][]segment
		cur []segment
	)
	for _, s := range segs {
		if s.kind == segSeparator {
			out = append(out, cur)
			cur = nil
			continue
		}
		cur = append(cur, s)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
