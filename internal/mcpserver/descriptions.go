package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeInspectPosition() string {
	return `Inspects one cursor position in a Power Query M document: the node under the cursor, its inferred type, the identifiers in scope and ranked completions.

USE WHEN:
- Explaining what type an expression or identifier has
- Checking what a partially written query can refer to
- Debugging "expression.Error" style mistakes before running a query

INTERPRETING RESULTS:
- leafKind: why the node was chosen (Anchored on a token, ShiftedRight past punctuation, ContextNode inside an unfinished construct)
- type: the inferred type; "unknown" means inference had nothing to go on, "none" means the expression cannot produce a value (for example a type error such as 1 + "a")
- syntaxError: the document is incomplete; results come from the partial tree
- scope: visible bindings innermost first; names with a leading @ are the binding being defined (recursive reference)

POSITIONS:
- line and character are zero-based; character counts UTF-16 code units`
}

func describeComplete() string {
	return `Returns ranked completions at a cursor position in a Power Query M document.

USE WHEN:
- Suggesting the next keyword, identifier, field, type name or constant
- Finding library functions by prefix (for example Text.)

INTERPRETING RESULTS:
- score: Jaro-Winkler similarity in [0, 1] to the partially typed token; 1 when nothing is typed yet
- kind: keyword, variable, function, field, type or constant
- Items are sorted by score, then label`
}

func describeListScope() string {
	return `Lists every identifier visible at a cursor position in a Power Query M document with its inferred type.

USE WHEN:
- Understanding which let variables, record fields, parameters and section members an expression can use
- Checking shadowing: inner bindings hide outer ones with the same name

INTERPRETING RESULTS:
- kind: LetVariable, RecordField, SectionMember, Parameter, EachImplicit (the _ of each) or Unresolved (declared without a value yet)
- recursive: the cursor lies inside this binding's own value, so it is only reachable as @name`
}

func describeCheckDocuments() string {
	return `Parses and types every Power Query M document (.pq, .pqm, .m) under the given paths.

USE WHEN:
- Surveying a folder of queries or a connector project for incomplete documents
- Finding expressions that can never produce a value
- Finding recursive bindings

INTERPRETING RESULTS:
- status: ok, partial (syntax error, checked against the partial tree), unavailable (the tree could not be inspected) or error (unreadable)
- rootType: the inferred type of the whole document
- noneCount: expressions typed none; non-zero usually means an operator applied to incompatible operands
- recursiveGroups: bindings that refer to each other or themselves`
}
