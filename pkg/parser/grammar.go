package parser

import (
	"fmt"

	"github.com/panbanda/pqinspect/pkg/ast"
)

// Section documents.

func (s *state) section(parent, attr int) int {
	id := s.open(parent, attr, ast.KindSection)
	s.constant(id, 0, "section")
	if s.peek().Kind == TokenIdentifier {
		s.identifier(id, 1)
	}
	s.constant(id, 2, ";")
	members := s.open(id, 3, ast.KindArrayWrapper)
	for i := 0; !s.eof(); i++ {
		member := s.open(members, i, ast.KindSectionMember)
		if s.isKeyword("shared") {
			s.constantAny(member, 0)
		}
		s.pair(member, 1, ast.KindIdentifierPairedExpression)
		s.constant(member, 2, ";")
		s.close(member)
	}
	s.close(members)
	s.close(id)
	return id
}

// pair parses key = value.
func (s *state) pair(parent, attr int, kind ast.NodeKind) int {
	id := s.open(parent, attr, kind)
	if kind == ast.KindGeneralizedIdentifierPairedExpression {
		s.generalizedIdentifier(id, ast.AttrPairKey)
	} else {
		s.identifier(id, ast.AttrPairKey)
	}
	s.constant(id, ast.AttrPairEquals, "=")
	s.expression(id, ast.AttrPairValue)
	s.close(id)
	return id
}

// csvList parses comma separated items into an ArrayWrapper of Csv nodes
// until done reports true. It never opens an element at end of input.
func (s *state) csvList(parent, attr int, expected string, done func() bool, item func(csv int)) int {
	content := s.open(parent, attr, ast.KindArrayWrapper)
	for i := 0; !done(); i++ {
		if s.eof() {
			s.fail(fmt.Sprintf("expected %q", expected))
		}
		csv := s.open(content, i, ast.KindCsv)
		item(csv)
		if s.isPunct(",") {
			s.constantAny(csv, ast.AttrCsvComma)
			s.close(csv)
			continue
		}
		s.close(csv)
		break
	}
	s.close(content)
	return content
}

func (s *state) wrapped(parent, attr int, kind ast.NodeKind, open, closeText string, item func(csv int)) int {
	id := s.open(parent, attr, kind)
	s.constant(id, ast.AttrWrappedOpen, open)
	s.csvList(id, ast.AttrWrappedContent, closeText, func() bool { return s.isPunct(closeText) }, item)
	s.constant(id, ast.AttrWrappedClose, closeText)
	s.close(id)
	return id
}

// Expressions.

func (s *state) expression(parent, attr int) int {
	s.enter()
	defer s.leave()

	switch {
	case s.isKeyword("each"):
		return s.unaryKeyword(parent, attr, ast.KindEachExpression)
	case s.isKeyword("error"):
		return s.unaryKeyword(parent, attr, ast.KindErrorRaisingExpression)
	case s.isKeyword("let"):
		return s.let(parent, attr)
	case s.isKeyword("if"):
		return s.ifExpression(parent, attr)
	case s.isKeyword("try"):
		return s.try(parent, attr)
	case s.isPunct("(") && s.isFunctionExpression():
		return s.function(parent, attr)
	}
	return s.binary(0, parent, attr)
}

// unaryKeyword parses `keyword expression`, the shape of each and error.
func (s *state) unaryKeyword(parent, attr int, kind ast.NodeKind) int {
	id := s.open(parent, attr, kind)
	s.constantAny(id, 0)
	s.expression(id, 1)
	s.close(id)
	return id
}

func (s *state) let(parent, attr int) int {
	id := s.open(parent, attr, ast.KindLetExpression)
	s.constant(id, 0, "let")
	content := s.open(id, 1, ast.KindArrayWrapper)
	for i := 0; ; i++ {
		if s.eof() {
			s.fail("expected identifier")
		}
		csv := s.open(content, i, ast.KindCsv)
		s.pair(csv, ast.AttrCsvNode, ast.KindIdentifierPairedExpression)
		if s.isPunct(",") {
			s.constantAny(csv, ast.AttrCsvComma)
			s.close(csv)
			continue
		}
		s.close(csv)
		break
	}
	s.close(content)
	s.constant(id, 2, "in")
	s.expression(id, 3)
	s.close(id)
	return id
}

func (s *state) ifExpression(parent, attr int) int {
	id := s.open(parent, attr, ast.KindIfExpression)
	s.constant(id, 0, "if")
	s.expression(id, 1)
	s.constant(id, 2, "then")
	s.expression(id, 3)
	s.constant(id, 4, "else")
	s.expression(id, 5)
	s.close(id)
	return id
}

func (s *state) try(parent, attr int) int {
	id := s.open(parent, attr, ast.KindErrorHandlingExpression)
	s.constant(id, 0, "try")
	s.expression(id, 1)
	switch {
	case s.isKeyword("otherwise"):
		h := s.open(id, 2, ast.KindOtherwiseExpression)
		s.constantAny(h, 0)
		s.expression(h, 1)
		s.close(h)
	case s.isKeyword("catch"):
		h := s.open(id, 2, ast.KindCatchExpression)
		s.constantAny(h, 0)
		s.function(h, 1)
		s.close(h)
	}
	s.close(id)
	return id
}

func (s *state) function(parent, attr int) int {
	id := s.open(parent, attr, ast.KindFunctionExpression)
	s.parameterList(id, 0, s.asNullablePrimitiveType)
	if s.isKeyword("as") {
		s.asNullablePrimitiveType(id, 1)
	}
	s.constant(id, 2, "=>")
	s.expression(id, 3)
	s.close(id)
	return id
}

func (s *state) parameterList(parent, attr int, typed func(parent, attr int) int) int {
	return s.wrapped(parent, attr, ast.KindParameterList, "(", ")", func(csv int) {
		p := s.open(csv, ast.AttrCsvNode, ast.KindParameter)
		if s.isWord("optional") {
			s.constantAny(p, 0)
		}
		s.identifier(p, 1)
		if s.isKeyword("as") {
			typed(p, 2)
		}
		s.close(p)
	})
}

func (s *state) asNullablePrimitiveType(parent, attr int) int {
	id := s.open(parent, attr, ast.KindAsNullablePrimitiveType)
	s.constant(id, 0, "as")
	s.nullablePrimitiveType(id, 1)
	s.close(id)
	return id
}

func (s *state) asType(parent, attr int) int {
	id := s.open(parent, attr, ast.KindAsType)
	s.constant(id, 0, "as")
	s.primaryType(id, 1)
	s.close(id)
	return id
}

func (s *state) nullablePrimitiveType(parent, attr int) int {
	if !s.isWord("nullable") {
		return s.primitiveType(parent, attr)
	}
	id := s.open(parent, attr, ast.KindNullablePrimitiveType)
	s.constantAny(id, 0)
	s.primitiveType(id, 1)
	s.close(id)
	return id
}

func (s *state) primitiveType(parent, attr int) int {
	t := s.peek()
	if (t.Kind != TokenIdentifier && t.Kind != TokenKeyword) || !isPrimitiveTypeName(t.Text) {
		s.fail("expected primitive type")
	}
	return s.leaf(parent, attr, ast.KindPrimitiveType, "")
}

// Binary operators, loosest first. Operators on one level associate left.
var binaryLevels = []struct {
	kind ast.NodeKind
	ops  []string
}{
	{ast.KindNullCoalescingExpression, []string{"??"}},
	{ast.KindLogicalExpression, []string{"or"}},
	{ast.KindLogicalExpression, []string{"and"}},
	{ast.KindIsExpression, []string{"is"}},
	{ast.KindAsExpression, []string{"as"}},
	{ast.KindEqualityExpression, []string{"=", "<>"}},
	{ast.KindRelationalExpression, []string{"<", ">", "<=", ">="}},
	{ast.KindArithmeticExpression, []string{"+", "-", "&"}},
	{ast.KindArithmeticExpression, []string{"*", "/"}},
	{ast.KindMetadataExpression, []string{"meta"}},
}

func (s *state) matchesOperator(ops []string) bool {
	t := s.peek()
	if t.Kind != TokenPunct && t.Kind != TokenKeyword {
		return false
	}
	for _, op := range ops {
		if t.Text == op {
			return true
		}
	}
	return false
}

func (s *state) binary(level, parent, attr int) int {
	if level == len(binaryLevels) {
		return s.unary(parent, attr)
	}
	l := binaryLevels[level]
	left := s.binary(level+1, parent, attr)
	for s.matchesOperator(l.ops) {
		id := s.wrap(left, l.kind)
		s.constantAny(id, ast.AttrBinaryOperator)
		if l.kind == ast.KindAsExpression || l.kind == ast.KindIsExpression {
			s.nullablePrimitiveType(id, ast.AttrBinaryRight)
		} else {
			s.binary(level+1, id, ast.AttrBinaryRight)
		}
		s.close(id)
		left = id
	}
	return left
}

func (s *state) unary(parent, attr int) int {
	if !s.isPunct("+") && !s.isPunct("-") && !s.isKeyword("not") {
		return s.operand(parent, attr)
	}
	id := s.open(parent, attr, ast.KindUnaryExpression)
	ops := s.open(id, 0, ast.KindArrayWrapper)
	for i := 0; s.isPunct("+") || s.isPunct("-") || s.isKeyword("not"); i++ {
		s.constantAny(ops, i)
	}
	s.close(ops)
	s.operand(id, 1)
	s.close(id)
	return id
}

func (s *state) operand(parent, attr int) int {
	switch {
	case s.isKeyword("type"):
		return s.typePrimaryType(parent, attr)
	case s.isKeyword("let"), s.isKeyword("if"), s.isKeyword("each"),
		s.isKeyword("try"), s.isKeyword("error"),
		s.isPunct("(") && s.isFunctionExpression():
		return s.expression(parent, attr)
	}
	return s.primary(parent, attr)
}

// Primary expressions.

func (s *state) primary(parent, attr int) int {
	head := s.primaryHead(parent, attr)
	if !s.isPunct("(") && !s.isPunct("{") && !s.isPunct("[") {
		return head
	}
	id := s.wrap(head, ast.KindRecursivePrimaryExpression)
	elems := s.open(id, 1, ast.KindArrayWrapper)
	for i := 0; ; i++ {
		switch {
		case s.isPunct("("):
			s.wrapped(elems, i, ast.KindInvokeExpression, "(", ")", func(csv int) {
				s.expression(csv, ast.AttrCsvNode)
			})
		case s.isPunct("{"):
			s.itemAccess(elems, i)
		case s.isPunct("[") && s.peekAt(1).Kind == TokenPunct && s.peekAt(1).Text == "[":
			s.fieldProjection(elems, i)
		case s.isPunct("["):
			s.fieldSelector(elems, i)
		default:
			s.close(elems)
			s.close(id)
			return id
		}
	}
}

func (s *state) primaryHead(parent, attr int) int {
	s.enter()
	defer s.leave()

	t := s.peek()
	switch {
	case t.Kind == TokenNumber:
		return s.leaf(parent, attr, ast.KindLiteralExpression, ast.LiteralNumeric)
	case t.Kind == TokenText:
		return s.leaf(parent, attr, ast.KindLiteralExpression, ast.LiteralText)
	case s.isKeyword("true"), s.isKeyword("false"):
		return s.leaf(parent, attr, ast.KindLiteralExpression, ast.LiteralLogical)
	case s.isKeyword("null"):
		return s.leaf(parent, attr, ast.KindLiteralExpression, ast.LiteralNull)
	case t.Kind == TokenIdentifier, s.isPunct("@"), s.isKeyword("#shared"), s.isKeyword("#sections"):
		return s.identifierExpression(parent, attr)
	case s.isPunct("("):
		id := s.open(parent, attr, ast.KindParenthesizedExpression)
		s.constantAny(id, 0)
		s.expression(id, 1)
		s.constant(id, 2, ")")
		s.close(id)
		return id
	case s.isPunct("["):
		switch s.bracketKind() {
		case ast.KindFieldSelector:
			return s.fieldSelector(parent, attr)
		case ast.KindFieldProjection:
			return s.fieldProjection(parent, attr)
		}
		return s.wrapped(parent, attr, ast.KindRecordExpression, "[", "]", func(csv int) {
			s.pair(csv, ast.AttrCsvNode, ast.KindGeneralizedIdentifierPairedExpression)
		})
	case s.isPunct("{"):
		return s.wrapped(parent, attr, ast.KindListExpression, "{", "}", s.listItem)
	case s.isPunct("..."):
		id := s.open(parent, attr, ast.KindNotImplementedExpression)
		s.constantAny(id, 0)
		s.close(id)
		return id
	case s.isKeyword("type"):
		return s.typePrimaryType(parent, attr)
	case s.isKeyword("let"), s.isKeyword("if"), s.isKeyword("each"),
		s.isKeyword("try"), s.isKeyword("error"):
		return s.expression(parent, attr)
	}
	s.fail("expected expression")
	return 0
}

func (s *state) identifierExpression(parent, attr int) int {
	id := s.open(parent, attr, ast.KindIdentifierExpression)
	if s.isPunct("@") {
		s.constantAny(id, 0)
	}
	s.identifier(id, 1)
	s.close(id)
	return id
}

func (s *state) listItem(csv int) {
	item := s.expression(csv, ast.AttrCsvNode)
	if !s.isPunct("..") {
		return
	}
	id := s.wrap(item, ast.KindRangeExpression)
	s.constantAny(id, 1)
	s.expression(id, 2)
	s.close(id)
}

func (s *state) itemAccess(parent, attr int) int {
	id := s.open(parent, attr, ast.KindItemAccessExpression)
	s.constant(id, 0, "{")
	s.expression(id, 1)
	s.constant(id, 2, "}")
	if s.isPunct("?") {
		s.constantAny(id, 3)
	}
	s.close(id)
	return id
}

func (s *state) fieldSelector(parent, attr int) int {
	id := s.open(parent, attr, ast.KindFieldSelector)
	s.constant(id, 0, "[")
	s.generalizedIdentifier(id, 1)
	s.constant(id, 2, "]")
	if s.isPunct("?") {
		s.constantAny(id, 3)
	}
	s.close(id)
	return id
}

func (s *state) fieldProjection(parent, attr int) int {
	id := s.open(parent, attr, ast.KindFieldProjection)
	s.constant(id, 0, "[")
	s.csvList(id, 1, "]", func() bool { return s.isPunct("]") }, func(csv int) {
		s.fieldSelector(csv, ast.AttrCsvNode)
	})
	s.constant(id, 2, "]")
	if s.isPunct("?") {
		s.constantAny(id, 3)
	}
	s.close(id)
	return id
}

// Type expressions.

func (s *state) typePrimaryType(parent, attr int) int {
	id := s.open(parent, attr, ast.KindTypePrimaryType)
	s.constant(id, 0, "type")
	s.primaryType(id, 1)
	s.close(id)
	return id
}

func (s *state) primaryType(parent, attr int) int {
	s.enter()
	defer s.leave()

	next := s.peekAt(1)
	switch {
	case s.isWord("table") && (next.Kind == TokenIdentifier || (next.Kind == TokenPunct && (next.Text == "[" || next.Text == "("))):
		id := s.open(parent, attr, ast.KindTableType)
		s.constantAny(id, 0)
		if s.isPunct("[") {
			s.fieldSpecificationList(id, 1)
		} else {
			s.primary(id, 1)
		}
		s.close(id)
		return id
	case s.isWord("function") && next.Kind == TokenPunct && next.Text == "(":
		id := s.open(parent, attr, ast.KindFunctionType)
		s.constantAny(id, 0)
		s.parameterList(id, 1, s.asType)
		s.asType(id, 2)
		s.close(id)
		return id
	case s.isWord("nullable"):
		id := s.open(parent, attr, ast.KindNullableType)
		s.constantAny(id, 0)
		s.primaryType(id, 1)
		s.close(id)
		return id
	case s.isPunct("["):
		id := s.open(parent, attr, ast.KindRecordType)
		s.fieldSpecificationList(id, 0)
		s.close(id)
		return id
	case s.isPunct("{"):
		id := s.open(parent, attr, ast.KindListType)
		s.constantAny(id, 0)
		s.primaryType(id, 1)
		s.constant(id, 2, "}")
		s.close(id)
		return id
	}
	t := s.peek()
	if (t.Kind == TokenIdentifier || t.Kind == TokenKeyword) && isPrimitiveTypeName(t.Text) {
		return s.leaf(parent, attr, ast.KindPrimitiveType, "")
	}
	return s.primary(parent, attr)
}

func (s *state) fieldSpecificationList(parent, attr int) int {
	id := s.open(parent, attr, ast.KindFieldSpecificationList)
	s.constant(id, 0, "[")
	done := func() bool { return s.isPunct("]") || s.isPunct("...") }
	s.csvList(id, 1, "]", done, func(csv int) {
		spec := s.open(csv, ast.AttrCsvNode, ast.KindFieldSpecification)
		if s.isWord("optional") {
			s.constantAny(spec, 0)
		}
		s.generalizedIdentifier(spec, 1)
		if s.isPunct("=") {
			ts := s.open(spec, 2, ast.KindFieldTypeSpecification)
			s.constantAny(ts, 0)
			s.primaryType(ts, 1)
			s.close(ts)
		}
		s.close(spec)
	})
	if s.isPunct("...") {
		s.constantAny(id, 2)
	}
	s.constant(id, 3, "]")
	s.close(id)
	return id
}
