package ast

// NodeKind identifies the syntactic construct a node represents.
type NodeKind string

// Structural kinds.
const (
	KindArrayWrapper  NodeKind = "ArrayWrapper"
	KindCsv           NodeKind = "Csv"
	KindConstant      NodeKind = "Constant"
	KindSection       NodeKind = "Section"
	KindSectionMember NodeKind = "SectionMember"
)

// Leaf kinds other than Constant.
const (
	KindIdentifier            NodeKind = "Identifier"
	KindGeneralizedIdentifier NodeKind = "GeneralizedIdentifier"
	KindLiteralExpression     NodeKind = "LiteralExpression"
	KindPrimitiveType         NodeKind = "PrimitiveType"
)

// Expression kinds.
const (
	KindArithmeticExpression       NodeKind = "ArithmeticExpression"
	KindAsExpression               NodeKind = "AsExpression"
	KindEachExpression             NodeKind = "EachExpression"
	KindEqualityExpression         NodeKind = "EqualityExpression"
	KindErrorHandlingExpression    NodeKind = "ErrorHandlingExpression"
	KindErrorRaisingExpression     NodeKind = "ErrorRaisingExpression"
	KindFieldProjection            NodeKind = "FieldProjection"
	KindFieldSelector              NodeKind = "FieldSelector"
	KindFunctionExpression         NodeKind = "FunctionExpression"
	KindIdentifierExpression       NodeKind = "IdentifierExpression"
	KindIfExpression               NodeKind = "IfExpression"
	KindInvokeExpression           NodeKind = "InvokeExpression"
	KindIsExpression               NodeKind = "IsExpression"
	KindItemAccessExpression       NodeKind = "ItemAccessExpression"
	KindLetExpression              NodeKind = "LetExpression"
	KindListExpression             NodeKind = "ListExpression"
	KindLogicalExpression          NodeKind = "LogicalExpression"
	KindMetadataExpression         NodeKind = "MetadataExpression"
	KindNotImplementedExpression   NodeKind = "NotImplementedExpression"
	KindNullCoalescingExpression   NodeKind = "NullCoalescingExpression"
	KindParenthesizedExpression    NodeKind = "ParenthesizedExpression"
	KindRangeExpression            NodeKind = "RangeExpression"
	KindRecordExpression           NodeKind = "RecordExpression"
	KindRecursivePrimaryExpression NodeKind = "RecursivePrimaryExpression"
	KindRelationalExpression       NodeKind = "RelationalExpression"
	KindTypePrimaryType            NodeKind = "TypePrimaryType"
	KindUnaryExpression            NodeKind = "UnaryExpression"
)

// Pairs, parameters and handlers.
const (
	KindCatchExpression                       NodeKind = "CatchExpression"
	KindGeneralizedIdentifierPairedExpression NodeKind = "GeneralizedIdentifierPairedExpression"
	KindIdentifierPairedExpression            NodeKind = "IdentifierPairedExpression"
	KindOtherwiseExpression                   NodeKind = "OtherwiseExpression"
	KindParameter                             NodeKind = "Parameter"
	KindParameterList                         NodeKind = "ParameterList"
)

// Type expression kinds.
const (
	KindAsNullablePrimitiveType NodeKind = "AsNullablePrimitiveType"
	KindAsType                  NodeKind = "AsType"
	KindFieldSpecification      NodeKind = "FieldSpecification"
	KindFieldSpecificationList  NodeKind = "FieldSpecificationList"
	KindFieldTypeSpecification  NodeKind = "FieldTypeSpecification"
	KindFunctionType            NodeKind = "FunctionType"
	KindListType                NodeKind = "ListType"
	KindNullablePrimitiveType   NodeKind = "NullablePrimitiveType"
	KindNullableType            NodeKind = "NullableType"
	KindRecordType              NodeKind = "RecordType"
	KindTableType               NodeKind = "TableType"
)

// IsLeafKind reports whether nodes of kind k carry a token directly.
func IsLeafKind(k NodeKind) bool {
	switch k {
	case KindConstant, KindIdentifier, KindGeneralizedIdentifier, KindLiteralExpression, KindPrimitiveType:
		return true
	}
	return false
}

// IsBinaryOperatorKind reports whether k has the left/operator/right layout.
func IsBinaryOperatorKind(k NodeKind) bool {
	switch k {
	case KindArithmeticExpression, KindAsExpression, KindEqualityExpression, KindIsExpression,
		KindLogicalExpression, KindMetadataExpression, KindNullCoalescingExpression,
		KindRelationalExpression:
		return true
	}
	return false
}

// IsWrappedKind reports whether k has the open/content/close layout with an
// ArrayWrapper at attribute 1.
func IsWrappedKind(k NodeKind) bool {
	switch k {
	case KindFieldProjection, KindFieldSpecificationList, KindInvokeExpression,
		KindListExpression, KindParameterList, KindRecordExpression:
		return true
	}
	return false
}

// IsPairedKind reports whether k is a key = value pair.
func IsPairedKind(k NodeKind) bool {
	return k == KindIdentifierPairedExpression || k == KindGeneralizedIdentifierPairedExpression
}

// LiteralKind classifies a LiteralExpression token.
type LiteralKind string

const (
	LiteralNumeric LiteralKind = "Numeric"
	LiteralText    LiteralKind = "Text"
	LiteralLogical LiteralKind = "Logical"
	LiteralNull    LiteralKind = "Null"
)

// Attribute indices shared by several node kinds.
const (
	AttrBinaryLeft     = 0
	AttrBinaryOperator = 1
	AttrBinaryRight    = 2

	AttrWrappedOpen    = 0
	AttrWrappedContent = 1
	AttrWrappedClose   = 2

	AttrPairKey    = 0
	AttrPairEquals = 1
	AttrPairValue  = 2

	AttrCsvNode  = 0
	AttrCsvComma = 1
)
