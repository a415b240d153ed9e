package challenge

import "strings"

// Parser tokenizes challenge header values. The zero value is ready to use
// and a Parser holds no state between calls.
type Parser struct{}

// NewParser creates a new challenge parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse splits value, starting at byte offset pos, into an ordered list of
// challenges. A malformed value yields a *ParseError and no challenges.
func (p *Parser) Parse(value string, pos int) ([]Challenge, error) {
	if pos < 0 || pos > len(value) {
		return nil, &ParseError{Value: value, Pos: pos, Reason: "cursor out of range"}
	}

	c := &cursor{s: value, pos: pos}
	var out []Challenge

	for {
		c.skipSpaceAndCommas()
		if c.atEnd() {
			return out, nil
		}

		scheme := c.readWhile(isTokenChar)
		if scheme == "" {
			return nil, c.errorf("expected auth-scheme")
		}
		ch := Challenge{Scheme: scheme}

		if !c.atEnd() && c.peek() != ',' && !isSpace(c.peek()) {
			return nil, c.errorf("unexpected character after auth-scheme")
		}
		c.skipSpace()

		if c.atEnd() || c.peek() == ',' {
			out = append(out, ch)
			continue
		}

		if c.looksLikeParam() {
			params, err := c.readParams()
			if err != nil {
				return nil, err
			}
			ch.Params = params
		} else {
			token, err := c.readToken68()
			if err != nil {
				return nil, err
			}
			ch.Token68 = token
		}
		out = append(out, ch)
	}
}

type cursor struct {
	s   string
	pos int
}

func (c *cursor) atEnd() bool { return c.pos >= len(c.s) }

func (c *cursor) peek() byte { return c.s[c.pos] }

func (c *cursor) errorf(reason string) *ParseError {
	return &ParseError{Value: c.s, Pos: c.pos, Reason: reason}
}

func (c *cursor) skipSpace() {
	for !c.atEnd() && isSpace(c.peek()) {
		c.pos++
	}
}

func (c *cursor) skipSpaceAndCommas() {
	for !c.atEnd() && (isSpace(c.peek()) || c.peek() == ',') {
		c.pos++
	}
}

func (c *cursor) readWhile(fn func(byte) bool) string {
	start := c.pos
	for !c.atEnd() && fn(c.peek()) {
		c.pos++
	}
	return c.s[start:c.pos]
}

// looksLikeParam reports whether the input at the cursor is `name = value`
// rather than a token68 blob or the start of the next challenge. The cursor
// is left unchanged.
func (c *cursor) looksLikeParam() bool {
	save := c.pos
	defer func() { c.pos = save }()

	if c.readWhile(isTokenChar) == "" {
		return false
	}
	c.skipSpace()
	if c.atEnd() || c.peek() != '=' {
		return false
	}
	// token68 padding ("abc==") is a run of '=' closing the element. A
	// single '=' followed by ',' is a param whose value is missing.
	equals := len(c.readWhile(func(b byte) bool { return b == '=' }))
	c.skipSpace()
	return equals == 1 && !c.atEnd()
}

func (c *cursor) readToken68() (string, error) {
	token := c.readWhile(isToken68Char)
	if token == "" {
		return "", c.errorf("expected token68")
	}
	token += c.readWhile(func(b byte) bool { return b == '=' })
	c.skipSpace()
	if !c.atEnd() && c.peek() != ',' {
		return "", c.errorf("unexpected character after token68")
	}
	return token, nil
}

func (c *cursor) readParams() (map[string]string, error) {
	params := make(map[string]string)
	for {
		name := c.readWhile(isTokenChar)
		if name == "" {
			return nil, c.errorf("expected auth-param name")
		}
		c.skipSpace()
		if c.atEnd() || c.peek() != '=' {
			return nil, c.errorf("expected '=' after auth-param name")
		}
		c.pos++
		c.skipSpace()

		var value string
		if !c.atEnd() && c.peek() == '"' {
			v, err := c.readQuoted()
			if err != nil {
				return nil, err
			}
			value = v
		} else {
			value = c.readWhile(func(b byte) bool { return b != ',' && !isSpace(b) })
			if value == "" {
				return nil, c.errorf("expected auth-param value")
			}
		}

		key := strings.ToLower(name)
		if _, dup := params[key]; !dup {
			params[key] = value
		}

		c.skipSpace()
		if c.atEnd() {
			return params, nil
		}
		if c.peek() != ',' {
			return nil, c.errorf("expected ',' between auth-params")
		}
		c.skipSpaceAndCommas()
		if c.atEnd() || !c.looksLikeParam() {
			return params, nil
		}
	}
}

func (c *cursor) readQuoted() (string, error) {
	c.pos++ // opening quote
	var b strings.Builder
	for {
		if c.atEnd() {
			return "", c.errorf("unterminated quoted-string")
		}
		ch := c.peek()
		switch ch {
		case '\\':
			c.pos++
			if c.atEnd() {
				return "", c.errorf("unterminated quoted-pair")
			}
			b.WriteByte(c.peek())
			c.pos++
		case '"':
			c.pos++
			return b.String(), nil
		default:
			b.WriteByte(ch)
			c.pos++
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

func isTokenChar(b byte) bool {
	if isAlphaNum(b) {
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", b) >= 0
}

func isToken68Char(b byte) bool {
	if isAlphaNum(b) {
		return true
	}
	return strings.IndexByte("-._~+/", b) >= 0
}

func isAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
