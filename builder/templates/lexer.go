package templates

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokString
	tokVariable
	tokAssign
	tokTrim
)

func (k tokenKind) String() string {
	switch k {
	case tokWord:
		return "word"
	case tokString:
		return "string"
	case tokVariable:
		return "variable"
	case tokAssign:
		return "assign"
	case tokTrim:
		return "trim"
	}
	return "unknown"
}

// token is one lexical unit of a tag's argument string. For assign tokens Key
// holds the parameter name and Value is the right hand side.
type token struct {
	Kind  tokenKind
	Text  string
	Key   string
	Value *token
}

// lexArgs splits tag arguments. A bareword may contain '/', '.' and '-', so
// `docs/setup/intro.md` is a single word.
func lexArgs(src string) ([]token, error) {
	l := &argLexer{src: src}
	var out []token
	for {
		l.skipSpace()
		if l.eof() {
			break
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	// A lone trailing '-' is a trim marker left over from `-%}`.
	if n := len(out); n > 0 && out[n-1].Kind == tokWord && out[n-1].Text == "-" {
		out[n-1].Kind = tokTrim
	}
	return out, nil
}

type argLexer struct {
	src string
	pos int
}

func (l *argLexer) eof() bool { return l.pos >= len(l.src) }

func (l *argLexer) skipSpace() {
	for !l.eof() && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

func (l *argLexer) next() (token, error) {
	switch c := l.src[l.pos]; {
	case strings.HasPrefix(l.src[l.pos:], "{{"):
		return l.variable()
	case c == '"' || c == '\'':
		return l.quoted()
	}

	word := l.word()
	if word == "" {
		return token{}, fmt.Errorf("unexpected character %q at offset %d", l.src[l.pos], l.pos)
	}

	// key=value, allowing spaces around '='
	save := l.pos
	l.skipSpace()
	if !l.eof() && l.src[l.pos] == '=' && isIdent(word) {
		l.pos++
		l.skipSpace()
		if l.eof() {
			return token{}, fmt.Errorf("missing value for parameter %q", word)
		}
		val, err := l.value()
		if err != nil {
			return token{}, err
		}
		return token{Kind: tokAssign, Key: word, Text: word, Value: &val}, nil
	}
	l.pos = save
	return token{Kind: tokWord, Text: word}, nil
}

func (l *argLexer) value() (token, error) {
	switch c := l.src[l.pos]; {
	case strings.HasPrefix(l.src[l.pos:], "{{"):
		return l.variable()
	case c == '"' || c == '\'':
		return l.quoted()
	}
	w := l.word()
	if w == "" {
		return token{}, fmt.Errorf("unexpected character %q at offset %d", l.src[l.pos], l.pos)
	}
	return token{Kind: tokWord, Text: w}, nil
}

func (l *argLexer) word() string {
	start := l.pos
	for !l.eof() {
		c := l.src[l.pos]
		if isSpace(c) || c == '=' || c == '"' || c == '\'' || strings.HasPrefix(l.src[l.pos:], "{{") {
			break
		}
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *argLexer) quoted() (token, error) {
	quote := l.src[l.pos]
	end := strings.IndexByte(l.src[l.pos+1:], quote)
	if end < 0 {
		return token{}, fmt.Errorf("unterminated string starting at offset %d", l.pos)
	}
	text := l.src[l.pos+1 : l.pos+1+end]
	l.pos += end + 2
	return token{Kind: tokString, Text: text}, nil
}

func (l *argLexer) variable() (token, error) {
	end := strings.Index(l.src[l.pos+2:], "}}")
	if end < 0 {
		return token{}, fmt.Errorf("unterminated variable starting at offset %d", l.pos)
	}
	expr := strings.TrimSpace(l.src[l.pos+2 : l.pos+2+end])
	l.pos += end + 4
	return token{Kind: tokVariable, Text: expr}, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return s != ""
}
