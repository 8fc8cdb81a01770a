package asm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/liquid600pgm/rod/vm"
)

// token is a word of a listing line with its 1-based column.
type token struct {
	text string
	col  int
}

// tokenize splits a line into words. Commas separate like spaces, quoted
// strings are kept whole, and ';' or '#' start a comment.
func tokenize(line string) ([]token, error) {
	var toks []token
	for i := 0; i < len(line); {
		switch c := line[i]; {
		case c == ' ' || c == '\t' || c == ',' || c == '\r':
			i++
		case c == ';' || c == '#':
			return toks, nil
		case c == '"':
			j := i + 1
			for j < len(line) && line[j] != '"' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				return nil, fmt.Errorf("unterminated string at column %d: %w", i+1, ErrSyntax)
			}
			toks = append(toks, token{text: line[i : j+1], col: i + 1})
			i = j + 1
		default:
			j := i
			for j < len(line) && !strings.ContainsRune(" \t\r,;#\"", rune(line[j])) {
				j++
			}
			toks = append(toks, token{text: line[i:j], col: i + 1})
			i = j
		}
	}
	return toks, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// parseInt parses a non-negative integer operand no larger than max.
// Decimal, 0x hex, 0o octal and 0b binary are accepted.
func parseInt(s string, max int) (int, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", s, ErrSyntax)
	}
	if n < 0 || n > int64(max) {
		return 0, fmt.Errorf("%d not in [0, %d]: %w", n, max, ErrRange)
	}
	return int(n), nil
}

// parseConstant parses a push_number literal: nil, true, false, a quoted
// string, an integer or a float. Integers without a fraction or exponent
// stay ints.
func parseConstant(s string) (vm.Value, error) {
	switch s {
	case "nil":
		return vm.Nil(), nil
	case "true":
		return vm.FromBool(true), nil
	case "false":
		return vm.FromBool(false), nil
	}
	if strings.HasPrefix(s, `"`) {
		str, err := strconv.Unquote(s)
		if err != nil {
			return vm.Nil(), fmt.Errorf("string %s: %w", s, ErrSyntax)
		}
		return vm.FromString(str), nil
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return vm.FromInt(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return vm.FromFloat(f), nil
	}
	return vm.Nil(), fmt.Errorf("bad constant %q: %w", s, ErrSyntax)
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
