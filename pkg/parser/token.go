package parser

import "github.com/panbanda/pqinspect/pkg/ast"

// TokenKind classifies a lexed token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdentifier
	TokenKeyword
	TokenNumber
	TokenText
	TokenPunct
	TokenInvalid
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier:
		return "identifier"
	case TokenKeyword:
		return "keyword"
	case TokenNumber:
		return "number"
	case TokenText:
		return "text"
	case TokenPunct:
		return "punctuator"
	default:
		return "invalid token"
	}
}

// Token is a lexed token with its zero-based index and positions.
// Offsets are byte offsets into the source; positions count UTF-16 code
// units per line.
type Token struct {
	Kind      TokenKind
	Text      string
	Index     int
	Offset    int
	EndOffset int
	Start     ast.Position
	End       ast.Position
}

var keywords = map[string]bool{
	"and": true, "as": true, "each": true, "else": true, "error": true,
	"false": true, "if": true, "in": true, "is": true, "let": true,
	"meta": true, "not": true, "null": true, "or": true, "otherwise": true,
	"section": true, "shared": true, "then": true, "true": true, "try": true,
	"type": true, "catch": true, "#sections": true, "#shared": true,
}

// Keywords returns the reserved words of the language in sorted order.
func Keywords() []string {
	return []string{
		"and", "as", "catch", "each", "else", "error", "false", "if", "in", "is",
		"let", "meta", "not", "null", "or", "otherwise", "section", "shared",
		"then", "true", "try", "type",
	}
}

// IsKeyword reports whether word is reserved.
func IsKeyword(word string) bool { return keywords[word] }

// PrimitiveTypeNames lists the names accepted where a primitive type is
// expected.
var PrimitiveTypeNames = []string{
	"action", "any", "anynonnull", "binary", "date", "datetime", "datetimezone",
	"duration", "function", "list", "logical", "none", "null", "number",
	"record", "table", "text", "time", "type",
}

func isPrimitiveTypeName(word string) bool {
	for _, n := range PrimitiveTypeNames {
		if n == word {
			return true
		}
	}
	return false
}

// punctuators ordered longest first so the lexer matches greedily.
var punctuators = []string{
	"...", "=>", "<=", ">=", "<>", "??", "..",
	"=", "<", ">", "+", "-", "*", "/", "&", "(", ")", "[", "]", "{", "}",
	",", ";", "?", "@", "!",
}
