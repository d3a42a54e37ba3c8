package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/pqinspect/pkg/ast"
)

// DefaultMaxDepth bounds expression nesting.
const DefaultMaxDepth = 512

// ErrEmptyDocument is the cause of the syntax error reported for a
// document holding only whitespace and comments.
var ErrEmptyDocument = errors.New("empty document")

// Parser turns Power Query M source into a node graph. A document that
// fails to parse still yields a graph: every node the parser had opened
// but not finished stays pending.
type Parser struct {
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth limits expression nesting. Deeper input is a syntax error.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// New creates a new parser instance.
func New(opts ...Option) *Parser {
	p := &Parser{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseResult contains the parsed graph and metadata.
type ParseResult struct {
	Graph  *ast.Graph
	Tokens []Token
	Source []byte
	Path   string
	// Err is the syntax error the parser stopped at, if any.
	Err *SyntaxError
}

// ParseFile parses a source file.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(source, path), nil
}

// Parse parses source. The result is never nil; a syntax error is
// reported through ParseResult.Err alongside the partial graph.
func (p *Parser) Parse(source []byte, path string) *ParseResult {
	tokens := Tokenize(string(source))
	s := &state{
		src:      string(source),
		tokens:   tokens,
		graph:    ast.NewGraph(),
		maxDepth: p.maxDepth,
	}
	err := s.run()
	if err != nil && len(tokens) == 1 {
		err.Err = ErrEmptyDocument
	}
	return &ParseResult{
		Graph:  s.graph,
		Tokens: tokens,
		Source: source,
		Path:   path,
		Err:    err,
	}
}

// Parse parses text with default settings. The graph is returned even
// when err is a *SyntaxError.
func Parse(text string) (*ast.Graph, error) {
	res := New().Parse([]byte(text), "")
	if res.Err != nil {
		return res.Graph, res.Err
	}
	return res.Graph, nil
}

// SyntaxError describes where and why parsing stopped.
type SyntaxError struct {
	Message    string
	Token      string
	TokenIndex int
	Position   ast.Position
	// Err is an underlying cause such as ErrEmptyDocument.
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%d:%d: %s at end of input", e.Position.Line+1, e.Position.Character+1, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s, found %q", e.Position.Line+1, e.Position.Character+1, e.Message, e.Token)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

type bailout struct{ err *SyntaxError }

type state struct {
	src      string
	tokens   []Token
	pos      int
	graph    *ast.Graph
	depth    int
	maxDepth int
}

func (s *state) run() (err *SyntaxError) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()

	if s.isKeyword("section") {
		s.section(0, 0)
	} else {
		s.expression(0, 0)
	}
	if !s.eof() {
		s.fail("expected end of input")
	}
	return nil
}

// Token access.

func (s *state) peek() Token { return s.tokens[s.pos] }

func (s *state) peekAt(n int) Token {
	if i := s.pos + n; i < len(s.tokens) {
		return s.tokens[i]
	}
	return s.tokens[len(s.tokens)-1]
}

func (s *state) eof() bool { return s.peek().Kind == TokenEOF }

func (s *state) isPunct(text string) bool {
	t := s.peek()
	return t.Kind == TokenPunct && t.Text == text
}

func (s *state) isKeyword(text string) bool {
	t := s.peek()
	return t.Kind == TokenKeyword && t.Text == text
}

// isWord matches a contextual keyword such as "optional" or "nullable".
func (s *state) isWord(text string) bool {
	t := s.peek()
	return t.Kind == TokenIdentifier && t.Text == text
}

func (s *state) fail(msg string) {
	t := s.peek()
	err := &SyntaxError{Message: msg, TokenIndex: t.Index, Position: t.Start}
	if t.Kind != TokenEOF {
		err.Token = t.Text
		s.graph.SetTrailing(ast.TrailingToken{
			Text: t.Text,
			Range: ast.TokenRange{
				TokenIndexStart: t.Index, TokenIndexEnd: t.Index + 1,
				Start: t.Start, End: t.End,
			},
		})
	}
	panic(bailout{err: err})
}

func (s *state) enter() {
	s.depth++
	if s.depth > s.maxDepth {
		s.fail("expression nested too deeply")
	}
}

func (s *state) leave() { s.depth-- }

// Node construction.

func (s *state) open(parent, attr int, kind ast.NodeKind) int {
	t := s.peek()
	return s.graph.AddPending(parent, ast.Pending{
		Kind:            kind,
		AttributeIndex:  attr,
		TokenIndexStart: t.Index,
		Start:           t.Start,
	})
}

func (s *state) close(id int) {
	ref, _ := s.graph.Node(id)
	start := ref.TokenIndexStart()
	rng := ast.TokenRange{TokenIndexStart: start, TokenIndexEnd: s.pos}
	if s.pos > start {
		rng.Start = s.tokens[start].Start
		rng.End = s.tokens[s.pos-1].End
	} else {
		rng.Start = s.peek().Start
		rng.End = rng.Start
	}
	if err := s.graph.Materialize(id, rng); err != nil {
		panic(err)
	}
}

// wrap inserts a new pending node of kind between child and its parent;
// child becomes attribute 0 of the new node.
func (s *state) wrap(child int, kind ast.NodeKind) int {
	ref, _ := s.graph.Node(child)
	parent, _ := s.graph.ParentID(child)
	id := s.graph.AddPending(parent, ast.Pending{
		Kind:            kind,
		AttributeIndex:  ref.AttributeIndex(),
		TokenIndexStart: ref.TokenIndexStart(),
		Start:           ref.Start(),
	})
	if err := s.graph.SetParent(child, id, 0); err != nil {
		panic(err)
	}
	return id
}

// leaf consumes the current token as a materialized leaf.
func (s *state) leaf(parent, attr int, kind ast.NodeKind, lk ast.LiteralKind) int {
	t := s.peek()
	s.pos++
	return s.graph.AddMaterialized(parent, ast.Materialized{
		Kind:           kind,
		AttributeIndex: attr,
		Literal:        t.Text,
		LiteralKind:    lk,
		Range: ast.TokenRange{
			TokenIndexStart: t.Index, TokenIndexEnd: t.Index + 1,
			Start: t.Start, End: t.End,
		},
	})
}

// constant consumes the current token, which must have the given text.
func (s *state) constant(parent, attr int, text string) int {
	t := s.peek()
	if t.Text != text || (t.Kind != TokenPunct && t.Kind != TokenKeyword && t.Kind != TokenIdentifier) {
		s.fail(fmt.Sprintf("expected %q", text))
	}
	return s.leaf(parent, attr, ast.KindConstant, "")
}

func (s *state) constantAny(parent, attr int) int {
	return s.leaf(parent, attr, ast.KindConstant, "")
}

func (s *state) identifier(parent, attr int) int {
	t := s.peek()
	if t.Kind != TokenIdentifier && !(t.Kind == TokenKeyword && (t.Text == "#shared" || t.Text == "#sections")) {
		s.fail("expected identifier")
	}
	return s.leaf(parent, attr, ast.KindIdentifier, "")
}

// generalizedIdentifier merges consecutive word tokens, so that
// [Total Sales] names a single field.
func (s *state) generalizedIdentifier(parent, attr int) int {
	first := s.peek()
	if !isWordToken(first) {
		s.fail("expected field name")
	}
	last := first
	s.pos++
	for isWordToken(s.peek()) {
		last = s.peek()
		s.pos++
	}
	return s.graph.AddMaterialized(parent, ast.Materialized{
		Kind:           ast.KindGeneralizedIdentifier,
		AttributeIndex: attr,
		Literal:        s.src[first.Offset:last.EndOffset],
		Range: ast.TokenRange{
			TokenIndexStart: first.Index, TokenIndexEnd: last.Index + 1,
			Start: first.Start, End: last.End,
		},
	})
}

func isWordToken(t Token) bool {
	return t.Kind == TokenIdentifier || t.Kind == TokenKeyword || t.Kind == TokenNumber
}

// SourceExtensions lists the file extensions treated as M documents.
var SourceExtensions = []string{".pq", ".pqm", ".m", ".mout"}

// IsSourceFile reports whether path has an M document extension.
func IsSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
