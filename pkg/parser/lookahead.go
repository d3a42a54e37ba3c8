package parser

import "github.com/panbanda/pqinspect/pkg/ast"

// isFunctionExpression decides whether the "(" at the current token opens
// a parameter list rather than a parenthesized expression.
func (s *state) isFunctionExpression() bool {
	depth := 0
	for i := s.pos; i < len(s.tokens); i++ {
		t := s.tokens[i]
		if t.Kind == TokenEOF {
			return s.looksLikeParameters(s.pos+1, i)
		}
		if t.Kind != TokenPunct {
			continue
		}
		switch t.Text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return s.returnsArrow(i + 1)
			}
		}
	}
	return false
}

// returnsArrow reports whether tokens from i read `=>` or
// `as [nullable] primitive =>`.
func (s *state) returnsArrow(i int) bool {
	at := func(i int) Token {
		if i < len(s.tokens) {
			return s.tokens[i]
		}
		return s.tokens[len(s.tokens)-1]
	}
	if t := at(i); t.Kind == TokenPunct && t.Text == "=>" {
		return true
	}
	if t := at(i); t.Kind != TokenKeyword || t.Text != "as" {
		return false
	}
	i++
	if t := at(i); t.Kind == TokenIdentifier && t.Text == "nullable" {
		i++
	}
	if t := at(i); isPrimitiveTypeName(t.Text) {
		i++
	}
	t := at(i)
	return t.Kind == TokenPunct && t.Text == "=>"
}

// looksLikeParameters handles an unterminated "(": it is a parameter list
// when it already holds a comma, "optional" or "as" between words only.
func (s *state) looksLikeParameters(from, to int) bool {
	marker := false
	for i := from; i < to; i++ {
		t := s.tokens[i]
		switch {
		case t.Kind == TokenPunct && t.Text == ",":
			marker = true
		case t.Kind == TokenKeyword && t.Text == "as":
			marker = true
		case t.Kind == TokenIdentifier && t.Text == "optional":
			marker = true
		case t.Kind == TokenIdentifier, t.Kind == TokenKeyword && isPrimitiveTypeName(t.Text):
		default:
			return false
		}
	}
	return marker
}

// bracketKind decides what a "[" in head position opens.
func (s *state) bracketKind() ast.NodeKind {
	next := s.peekAt(1)
	if next.Kind == TokenPunct && next.Text == "[" {
		return ast.KindFieldProjection
	}
	i := 1
	for isWordToken(s.peekAt(i)) {
		i++
	}
	end := s.peekAt(i)
	switch {
	case i == 1:
		return ast.KindRecordExpression
	case end.Kind == TokenPunct && end.Text == "]":
		return ast.KindFieldSelector
	case end.Kind == TokenEOF && s.pos > 0:
		prev := s.tokens[s.pos-1]
		if prev.Kind == TokenKeyword && prev.Text == "each" {
			return ast.KindFieldSelector
		}
	}
	return ast.KindRecordExpression
}
