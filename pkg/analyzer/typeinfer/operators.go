package typeinfer

import (
	"sort"

	"github.com/panbanda/pqinspect/pkg/ast"
	"github.com/panbanda/pqinspect/pkg/types"
)

// Operator texts as they appear in binary expressions.
const (
	OpAdd          = "+"
	OpSubtract     = "-"
	OpMultiply     = "*"
	OpDivide       = "/"
	OpConcatenate  = "&"
	OpEqual        = "="
	OpNotEqual     = "<>"
	OpLessThan     = "<"
	OpLessEqual    = "<="
	OpGreaterThan  = ">"
	OpGreaterEqual = ">="
	OpAnd          = "and"
	OpOr           = "or"
)

// Operators lists every operator the lookup table covers.
var Operators = []string{
	OpAdd, OpSubtract, OpMultiply, OpDivide, OpConcatenate,
	OpEqual, OpNotEqual,
	OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual,
	OpAnd, OpOr,
}

// ValueKinds are the primitive kinds a value can have at runtime.
var ValueKinds = []types.Kind{
	types.KindAction, types.KindBinary, types.KindDate, types.KindDateTime,
	types.KindDateTimeZone, types.KindDuration, types.KindFunction, types.KindList,
	types.KindLogical, types.KindNull, types.KindNumber, types.KindRecord,
	types.KindTable, types.KindText, types.KindTime, types.KindType,
}

type opKey struct {
	left  types.Kind
	op    string
	right types.Kind
}

type partialKey struct {
	left types.Kind
	op   string
}

var (
	operatorTable = buildOperatorTable()
	partialTable  = buildPartialTable(operatorTable)
)

func buildOperatorTable() map[opKey]types.Kind {
	t := make(map[opKey]types.Kind)
	set := func(l types.Kind, op string, r, result types.Kind) {
		t[opKey{l, op, r}] = result
	}
	commutative := func(l types.Kind, op string, r, result types.Kind) {
		set(l, op, r, result)
		set(r, op, l, result)
	}

	// Arithmetic.
	for _, op := range []string{OpAdd, OpSubtract, OpMultiply, OpDivide} {
		set(types.KindNumber, op, types.KindNumber, types.KindNumber)
	}
	for _, k := range []types.Kind{types.KindDate, types.KindDateTime, types.KindDateTimeZone, types.KindTime} {
		commutative(k, OpAdd, types.KindDuration, k)
		set(k, OpSubtract, types.KindDuration, k)
		set(k, OpSubtract, k, types.KindDuration)
	}
	set(types.KindDuration, OpAdd, types.KindDuration, types.KindDuration)
	set(types.KindDuration, OpSubtract, types.KindDuration, types.KindDuration)
	commutative(types.KindDuration, OpMultiply, types.KindNumber, types.KindDuration)
	set(types.KindDuration, OpDivide, types.KindNumber, types.KindDuration)

	// Concatenation and combination.
	for _, k := range []types.Kind{types.KindText, types.KindList, types.KindRecord, types.KindTable, types.KindBinary} {
		set(k, OpConcatenate, k, k)
	}
	set(types.KindDate, OpConcatenate, types.KindTime, types.KindDateTime)

	// Null propagates through arithmetic and concatenation.
	for _, op := range []string{OpAdd, OpSubtract, OpMultiply, OpDivide, OpConcatenate} {
		operands := make(map[types.Kind]bool)
		for k := range t {
			if k.op == op {
				operands[k.left] = true
				operands[k.right] = true
			}
		}
		for k := range operands {
			commutative(types.KindNull, op, k, types.KindNull)
		}
		set(types.KindNull, op, types.KindNull, types.KindNull)
	}

	// Equality is defined between values of the same kind and against null.
	for _, k := range ValueKinds {
		for _, op := range []string{OpEqual, OpNotEqual} {
			set(k, op, k, types.KindLogical)
			commutative(types.KindNull, op, k, types.KindLogical)
		}
	}

	// Relational comparisons.
	for _, k := range []types.Kind{
		types.KindNumber, types.KindText, types.KindLogical, types.KindDate,
		types.KindDateTime, types.KindDateTimeZone, types.KindDuration, types.KindTime,
		types.KindBinary,
	} {
		for _, op := range []string{OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual} {
			set(k, op, k, types.KindLogical)
			commutative(types.KindNull, op, k, types.KindNull)
		}
	}
	for _, op := range []string{OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual} {
		set(types.KindNull, op, types.KindNull, types.KindNull)
	}

	// Conditional logic.
	for _, op := range []string{OpAnd, OpOr} {
		set(types.KindLogical, op, types.KindLogical, types.KindLogical)
		commutative(types.KindNull, op, types.KindLogical, types.KindNull)
		set(types.KindNull, op, types.KindNull, types.KindNull)
	}
	return t
}

func buildPartialTable(full map[opKey]types.Kind) map[partialKey][]types.Kind {
	sets := make(map[partialKey]map[types.Kind]bool)
	for k := range full {
		pk := partialKey{k.left, k.op}
		if sets[pk] == nil {
			sets[pk] = make(map[types.Kind]bool)
		}
		sets[pk][k.right] = true
	}
	out := make(map[partialKey][]types.Kind, len(sets))
	for pk, set := range sets {
		kinds := make([]types.Kind, 0, len(set))
		for k := range set {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(a, b int) bool { return kinds[a] < kinds[b] })
		out[pk] = kinds
	}
	return out
}

// BinaryResult looks up the result kind of left op right. The boolean is
// false when the combination is not defined.
func BinaryResult(left types.Kind, op string, right types.Kind) (types.Kind, bool) {
	k, ok := operatorTable[opKey{left, op, right}]
	return k, ok
}

// RightOperandKinds returns the kinds that may follow left op, sorted.
func RightOperandKinds(left types.Kind, op string) []types.Kind {
	return append([]types.Kind(nil), partialTable[partialKey{left, op}]...)
}

func isComparison(op string) bool {
	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual, OpAnd, OpOr:
		return true
	}
	return false
}

func (i *inferrer) binaryOperator(id int) (types.Type, error) {
	left, err := i.inferChild(id, ast.AttrBinaryLeft)
	if err != nil {
		return nil, err
	}
	opNode, ok, err := i.g.ExpectChild(id, ast.AttrBinaryOperator, ast.KindConstant)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Unknown, nil
	}
	op := opNode.Literal()

	right, ok, err := i.g.ExpectChild(id, ast.AttrBinaryRight)
	if err != nil {
		return nil, err
	}
	if !ok || right.IsPending() && len(i.g.ChildIDs(right.ID())) == 0 {
		return partialResult(left, op), nil
	}
	rightType, err := i.infer(right.ID())
	if err != nil {
		return nil, err
	}
	return combine(left, op, rightType), nil
}

// partialResult types `left op` while the right operand is still being
// written: the set of right operand kinds that would be accepted.
func partialResult(left types.Type, op string) types.Type {
	if types.IsUnknown(left) {
		return types.Unknown
	}
	if u, ok := left.(types.AnyUnion); ok {
		return distribute(u, func(alt types.Type) types.Type { return partialResult(alt, op) })
	}
	kinds := RightOperandKinds(left.Kind(), op)
	var candidates []types.Kind
	for _, k := range kinds {
		if k != types.KindNull {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		candidates = kinds
	}
	switch len(candidates) {
	case 0:
		if types.IsAnyLike(left) {
			return types.Any
		}
		return types.None
	case 1:
		return types.NewPrimitive(candidates[0], left.Nullable())
	}
	alts := make([]types.Type, len(candidates))
	for n, k := range candidates {
		alts[n] = types.NewPrimitive(k, true)
	}
	return types.Union(alts...)
}

// combine types `left op right` with both operands known.
func combine(left types.Type, op string, right types.Type) types.Type {
	switch {
	case types.IsUnknown(left) || types.IsUnknown(right):
		return types.Unknown
	case left.Kind() == types.KindNotApplicable || right.Kind() == types.KindNotApplicable:
		return types.Unknown
	}

	if u, ok := left.(types.AnyUnion); ok {
		return distribute(u, func(t types.Type) types.Type { return combine(t, op, right) })
	}
	if u, ok := right.(types.AnyUnion); ok {
		return distribute(u, func(t types.Type) types.Type { return combine(left, op, t) })
	}

	if types.IsAnyLike(left) || types.IsAnyLike(right) {
		if isComparison(op) {
			return types.NewPrimitive(types.KindLogical, left.Nullable() || right.Nullable())
		}
		return types.Any
	}

	if op == OpConcatenate {
		if t, ok := concatenate(left, right); ok {
			return t
		}
	}

	k, ok := BinaryResult(left.Kind(), op, right.Kind())
	if !ok {
		return types.None
	}
	return types.NewPrimitive(k, k == types.KindNull || left.Nullable() || right.Nullable())
}

// distribute applies fn to every alternative and unions the results.
// None alternatives are dropped unless every alternative is None.
func distribute(u types.AnyUnion, fn func(types.Type) types.Type) types.Type {
	var results []types.Type
	for _, alt := range u.Alternatives {
		t := fn(alt)
		if types.IsUnknown(t) {
			return types.Unknown
		}
		if !types.IsNone(t) {
			results = append(results, t)
		}
	}
	if len(results) == 0 {
		return types.None
	}
	return types.Union(results...)
}

// concatenate merges record and table shapes joined with &.
func concatenate(left, right types.Type) (types.Type, bool) {
	if left.Kind() != right.Kind() {
		return nil, false
	}
	switch left.Kind() {
	case types.KindRecord:
		lf, lOpen, lDefined := recordShape(left)
		rf, rOpen, rDefined := recordShape(right)
		switch {
		case lDefined && rDefined:
			return types.DefinedRecord{
				Fields:     lf.Merge(rf),
				IsOpen:     lOpen || rOpen,
				IsNullable: left.Nullable() && right.Nullable(),
			}, true
		case lDefined:
			return types.DefinedRecord{Fields: lf, IsOpen: true, IsNullable: left.Nullable() && right.Nullable()}, true
		case rDefined:
			return types.DefinedRecord{Fields: rf, IsOpen: true, IsNullable: left.Nullable() && right.Nullable()}, true
		}
	case types.KindTable:
		lf, lOpen, lDefined := tableShape(left)
		rf, rOpen, rDefined := tableShape(right)
		switch {
		case lDefined && rDefined:
			return types.DefinedTable{
				Fields:     lf.Merge(rf),
				IsOpen:     lOpen || rOpen,
				IsNullable: left.Nullable() && right.Nullable(),
			}, true
		case lDefined:
			return types.DefinedTable{Fields: lf, IsOpen: true, IsNullable: left.Nullable() && right.Nullable()}, true
		case rDefined:
			return types.DefinedTable{Fields: rf, IsOpen: true, IsNullable: left.Nullable() && right.Nullable()}, true
		}
	}
	return nil, false
}

func recordShape(t types.Type) (types.Fields, bool, bool) {
	if r, ok := t.(types.DefinedRecord); ok {
		return r.Fields, r.IsOpen, true
	}
	return nil, false, false
}

func tableShape(t types.Type) (types.Fields, bool, bool) {
	if r, ok := t.(types.DefinedTable); ok {
		return r.Fields, r.IsOpen, true
	}
	return nil, false, false
}

func (i *inferrer) nullCoalescing(id int) (types.Type, error) {
	left, err := i.inferChild(id, ast.AttrBinaryLeft)
	if err != nil {
		return nil, err
	}
	right, err := i.inferChild(id, ast.AttrBinaryRight)
	if err != nil {
		return nil, err
	}
	if types.IsUnknown(left) {
		return types.Unknown, nil
	}
	if !left.Nullable() {
		return left, nil
	}
	nonNull := types.NonNullable(left)
	if types.IsNone(nonNull) {
		return right, nil
	}
	return types.Union(nonNull, right), nil
}

func (i *inferrer) asExpression(id int) (types.Type, error) {
	if _, err := i.inferChild(id, ast.AttrBinaryLeft); err != nil {
		return nil, err
	}
	right, ok, err := i.g.ExpectChild(id, ast.AttrBinaryRight, ast.KindPrimitiveType, ast.KindNullablePrimitiveType)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Unknown, nil
	}
	return i.describe(right)
}
