package parser

import (
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/panbanda/pqinspect/pkg/ast"
)

// lexer never fails: malformed input becomes TokenInvalid and the parser
// reports it.
type lexer struct {
	src    string
	offset int
	line   int
	char   int
	tokens []Token
}

// Tokenize splits source into tokens. The last token is always TokenEOF.
func Tokenize(src string) []Token {
	l := &lexer{src: src}
	for {
		l.skipTrivia()
		if l.offset >= len(l.src) {
			l.tokens = append(l.tokens, Token{
				Kind: TokenEOF, Index: len(l.tokens),
				Offset: l.offset, EndOffset: l.offset,
				Start: l.pos(), End: l.pos(),
			})
			return l.tokens
		}
		l.next()
	}
}

func (l *lexer) pos() ast.Position { return ast.Position{Line: l.line, Character: l.char} }

func (l *lexer) peekRune(ahead int) rune {
	off := l.offset
	for i := 0; ; i++ {
		if off >= len(l.src) {
			return utf8.RuneError
		}
		r, size := utf8.DecodeRuneInString(l.src[off:])
		if i == ahead {
			return r
		}
		off += size
	}
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.offset:])
	l.offset += size
	if r == '\n' {
		l.line++
		l.char = 0
	} else {
		n := utf16.RuneLen(r)
		if n < 1 {
			n = 1
		}
		l.char += n
	}
	return r
}

func (l *lexer) skipTrivia() {
	for l.offset < len(l.src) {
		r := l.peekRune(0)
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '/' && l.peekRune(1) == '/':
			for l.offset < len(l.src) && l.peekRune(0) != '\n' {
				l.advance()
			}
		case r == '/' && l.peekRune(1) == '*':
			l.advance()
			l.advance()
			for l.offset < len(l.src) && !(l.peekRune(0) == '*' && l.peekRune(1) == '/') {
				l.advance()
			}
			if l.offset < len(l.src) {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lexer) emit(kind TokenKind, startOffset int, start ast.Position) {
	l.tokens = append(l.tokens, Token{
		Kind:      kind,
		Text:      l.src[startOffset:l.offset],
		Index:     len(l.tokens),
		Offset:    startOffset,
		EndOffset: l.offset,
		Start:     start,
		End:       l.pos(),
	})
}

func (l *lexer) next() {
	startOffset, start := l.offset, l.pos()
	r := l.peekRune(0)

	switch {
	case r == '"':
		l.advance()
		if l.quoted() {
			l.emit(TokenText, startOffset, start)
		} else {
			l.emit(TokenInvalid, startOffset, start)
		}
	case r == '#' && l.peekRune(1) == '"':
		l.advance()
		l.advance()
		if l.quoted() {
			l.emit(TokenIdentifier, startOffset, start)
		} else {
			l.emit(TokenInvalid, startOffset, start)
		}
	case r == '#' && isIdentStart(l.peekRune(1)):
		l.advance()
		for isIdentPart(l.peekRune(0)) {
			l.advance()
		}
		switch word := l.src[startOffset:l.offset]; {
		case word == "#infinity" || word == "#nan":
			l.emit(TokenNumber, startOffset, start)
		case keywords[word]:
			l.emit(TokenKeyword, startOffset, start)
		default:
			l.emit(TokenIdentifier, startOffset, start)
		}
	case isIdentStart(r):
		l.identifier()
		if keywords[l.src[startOffset:l.offset]] {
			l.emit(TokenKeyword, startOffset, start)
		} else {
			l.emit(TokenIdentifier, startOffset, start)
		}
	case isDigit(r) || (r == '.' && isDigit(l.peekRune(1))):
		l.number()
		l.emit(TokenNumber, startOffset, start)
	default:
		rest := l.src[l.offset:]
		for _, p := range punctuators {
			if strings.HasPrefix(rest, p) {
				for range p {
					l.advance()
				}
				l.emit(TokenPunct, startOffset, start)
				return
			}
		}
		l.advance()
		l.emit(TokenInvalid, startOffset, start)
	}
}

// quoted consumes the body of a "..." literal after the opening quote.
// Doubled quotes are escapes. It reports whether the literal terminated.
func (l *lexer) quoted() bool {
	for l.offset < len(l.src) {
		r := l.advance()
		if r != '"' {
			continue
		}
		if l.peekRune(0) == '"' {
			l.advance()
			continue
		}
		return true
	}
	return false
}

// identifier consumes a possibly dotted identifier such as Table.AddColumn.
func (l *lexer) identifier() {
	l.advance()
	for {
		r := l.peekRune(0)
		switch {
		case isIdentPart(r):
			l.advance()
		case r == '.' && isIdentStart(l.peekRune(1)):
			l.advance()
		default:
			return
		}
	}
}

func (l *lexer) number() {
	if l.peekRune(0) == '0' && (l.peekRune(1) == 'x' || l.peekRune(1) == 'X') {
		l.advance()
		l.advance()
		for isHexDigit(l.peekRune(0)) {
			l.advance()
		}
		return
	}
	for isDigit(l.peekRune(0)) {
		l.advance()
	}
	if l.peekRune(0) == '.' && isDigit(l.peekRune(1)) {
		l.advance()
		for isDigit(l.peekRune(0)) {
			l.advance()
		}
	}
	if r := l.peekRune(0); r == 'e' || r == 'E' {
		next := l.peekRune(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekRune(2))) {
			l.advance()
			l.advance()
			for isDigit(l.peekRune(0)) {
				l.advance()
			}
		}
	}
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Pc, r)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
