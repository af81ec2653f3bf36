package cypher

import (
	"reflect"
	"strconv"
)

// NodeKind identifies the type of an AST node. The validator's dispatch
// table is keyed by kind.
type NodeKind int

const (
	KindStatement NodeKind = iota
	KindQuery
	KindComment

	// top-level clauses
	KindMatch
	KindCreate
	KindMerge
	KindDelete
	KindSet
	KindRemove
	KindReturn
	KindWith
	KindUnwind
	KindForeach
	KindCall
	KindCallSubquery
	KindUnion
	KindLoadCSV

	// schema DDL
	KindCreatePatternPropsIndex
	KindDropPatternPropsIndex
	KindCreateNodePropConstraint
	KindDropNodePropConstraint
	KindCreateRelPropConstraint
	KindDropRelPropConstraint

	// unsupported legacy constructs, parsed only to be rejected
	KindStart
	KindFilter
	KindExtract
	KindCommand
	KindMatchHint
	KindUsingIndex
	KindUsingScan
	KindUsingJoin
	KindUsingPeriodicCommit

	// patterns
	KindPattern
	KindPatternPath
	KindNamedPath
	KindShortestPath
	KindNodePattern
	KindRelPattern
	KindRange

	// projections and clause components
	KindProjection
	KindOrderBy
	KindSortItem
	KindSetProperty
	KindSetAllProperties
	KindMergeProperties
	KindSetLabels
	KindRemoveProperty
	KindRemoveLabels
	KindOnCreate
	KindOnMatch

	// expressions
	KindIdentifier
	KindPropertyOperator
	KindSubscriptOperator
	KindSliceOperator
	KindApplyOperator
	KindApplyAllOperator
	KindBinaryOperator
	KindUnaryOperator
	KindComparison
	KindInteger
	KindFloat
	KindString
	KindBoolean
	KindNull
	KindParameter
	KindCollection
	KindMap
	KindListComprehension
	KindPatternComprehension
	KindAny
	KindAll
	KindNone
	KindSingle
	KindReduce
	KindCase

	numNodeKinds // keep last
)

var nodeKindNames = map[NodeKind]string{
	KindStatement:               "statement",
	KindQuery:                   "query",
	KindComment:                 "comment",
	KindMatch:                   "MATCH",
	KindCreate:                  "CREATE",
	KindMerge:                   "MERGE",
	KindDelete:                  "DELETE",
	KindSet:                     "SET",
	KindRemove:                  "REMOVE",
	KindReturn:                  "RETURN",
	KindWith:                    "WITH",
	KindUnwind:                  "UNWIND",
	KindForeach:                 "FOREACH",
	KindCall:                    "CALL",
	KindCallSubquery:            "CALL {}",
	KindUnion:                   "UNION",
	KindLoadCSV:                 "LOAD CSV",
	KindCreatePatternPropsIndex: "CREATE INDEX",
	KindDropPatternPropsIndex:   "DROP INDEX",
	KindCreateNodePropConstraint: "CREATE CONSTRAINT",
	KindDropNodePropConstraint:   "DROP CONSTRAINT",
	KindCreateRelPropConstraint:  "CREATE CONSTRAINT",
	KindDropRelPropConstraint:    "DROP CONSTRAINT",
	KindStart:                   "START",
	KindFilter:                  "FILTER",
	KindExtract:                 "EXTRACT",
	KindCommand:                 "command",
	KindMatchHint:               "match hint",
	KindUsingIndex:              "USING INDEX",
	KindUsingScan:               "USING SCAN",
	KindUsingJoin:               "USING JOIN",
	KindUsingPeriodicCommit:     "USING PERIODIC COMMIT",
	KindPattern:                 "pattern",
	KindPatternPath:             "pattern path",
	KindNamedPath:               "named path",
	KindShortestPath:            "shortestPath",
	KindNodePattern:             "node pattern",
	KindRelPattern:              "rel pattern",
	KindRange:                   "range",
	KindProjection:              "projection",
	KindOrderBy:                 "ORDER BY",
	KindSortItem:                "sort item",
	KindSetProperty:             "set property",
	KindSetAllProperties:        "set all properties",
	KindMergeProperties:         "merge properties",
	KindSetLabels:               "set labels",
	KindRemoveProperty:          "remove property",
	KindRemoveLabels:            "remove labels",
	KindOnCreate:                "ON CREATE",
	KindOnMatch:                 "ON MATCH",
	KindIdentifier:              "identifier",
	KindPropertyOperator:        "property",
	KindSubscriptOperator:       "subscript",
	KindSliceOperator:           "slice",
	KindApplyOperator:           "apply",
	KindApplyAllOperator:        "apply all",
	KindBinaryOperator:          "binary operator",
	KindUnaryOperator:           "unary operator",
	KindComparison:              "comparison",
	KindInteger:                 "integer",
	KindFloat:                   "float",
	KindString:                  "string",
	KindBoolean:                 "boolean",
	KindNull:                    "NULL",
	KindParameter:               "parameter",
	KindCollection:              "collection",
	KindMap:                     "map",
	KindListComprehension:       "list comprehension",
	KindPatternComprehension:    "pattern comprehension",
	KindAny:                     "any",
	KindAll:                     "all",
	KindNone:                    "none",
	KindSingle:                  "single",
	KindReduce:                  "reduce",
	KindCase:                    "CASE",
}

func (k NodeKind) String() string {
	if s, ok := nodeKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Node is the interface implemented by every AST node. Children returns the
// sub-nodes in canonical order; the visitor relies on it for auto-descent.
type Node interface {
	Kind() NodeKind
	Children() []Node
	Range() InputRange
}

// baseNode carries the source range shared by all nodes.
type baseNode struct {
	rng InputRange
}

func (b *baseNode) Range() InputRange { return b.rng }

// appendNode adds the given nodes to dst, dropping absent children. Every
// node is a pointer type, so a typed nil wrapped in the interface must be
// filtered out as well.
func appendNode(dst []Node, nodes ...Node) []Node {
	for _, n := range nodes {
		if n == nil || reflect.ValueOf(n).IsNil() {
			continue
		}
		dst = append(dst, n)
	}
	return dst
}

// Statement is a parse-result root of kind STATEMENT wrapping a query body.
type Statement struct {
	baseNode
	Body Node // *Query or a schema DDL node
}

func (*Statement) Kind() NodeKind      { return KindStatement }
func (s *Statement) Children() []Node { return appendNode(nil, s.Body) }

// Comment is a parse-result root holding a line or block comment.
type Comment struct {
	baseNode
	Text  string
	Block bool
}

func (*Comment) Kind() NodeKind     { return KindComment }
func (*Comment) Children() []Node   { return nil }

// Query is a sequence of top-level clauses.
type Query struct {
	baseNode
	Clauses []Node
}

func (*Query) Kind() NodeKind     { return KindQuery }
func (q *Query) Children() []Node { return q.Clauses }

// Match is a MATCH or OPTIONAL MATCH clause.
type Match struct {
	baseNode
	Optional  bool
	Pattern   *Pattern
	Hints     []Node // USING hints; always rejected by validation
	Predicate Node   // WHERE expression
}

func (*Match) Kind() NodeKind { return KindMatch }
func (m *Match) Children() []Node {
	ch := appendNode(nil, m.Pattern)
	ch = append(ch, m.Hints...)
	return appendNode(ch, m.Predicate)
}

// Create is a CREATE clause.
type Create struct {
	baseNode
	Pattern *Pattern
}

func (*Create) Kind() NodeKind     { return KindCreate }
func (c *Create) Children() []Node { return appendNode(nil, c.Pattern) }

// Merge is a MERGE clause with optional ON CREATE / ON MATCH actions.
type Merge struct {
	baseNode
	Path    Node // *PatternPath or *NamedPath
	Actions []Node
}

func (*Merge) Kind() NodeKind     { return KindMerge }
func (m *Merge) Children() []Node { return appendNode(appendNode(nil, m.Path), m.Actions...) }

// OnCreate holds the SET items of a MERGE ... ON CREATE SET action.
type OnCreate struct {
	baseNode
	Items []Node
}

func (*OnCreate) Kind() NodeKind     { return KindOnCreate }
func (o *OnCreate) Children() []Node { return o.Items }

// OnMatch holds the SET items of a MERGE ... ON MATCH SET action.
type OnMatch struct {
	baseNode
	Items []Node
}

func (*OnMatch) Kind() NodeKind     { return KindOnMatch }
func (o *OnMatch) Children() []Node { return o.Items }

// Delete is a DELETE or DETACH DELETE clause.
type Delete struct {
	baseNode
	Detach bool
	Exprs  []Node
}

func (*Delete) Kind() NodeKind     { return KindDelete }
func (d *Delete) Children() []Node { return d.Exprs }

// Set is a SET clause.
type Set struct {
	baseNode
	Items []Node
}

func (*Set) Kind() NodeKind     { return KindSet }
func (s *Set) Children() []Node { return s.Items }

// SetProperty assigns a value to entity.property.
type SetProperty struct {
	baseNode
	Property *PropertyOperator
	Value    Node
}

func (*SetProperty) Kind() NodeKind     { return KindSetProperty }
func (s *SetProperty) Children() []Node { return appendNode(nil, s.Property, s.Value) }

// SetAllProperties replaces an entity's property map: n = {...}.
type SetAllProperties struct {
	baseNode
	Target *Identifier
	Value  Node
}

func (*SetAllProperties) Kind() NodeKind     { return KindSetAllProperties }
func (s *SetAllProperties) Children() []Node { return appendNode(nil, s.Target, s.Value) }

// MergeProperties merges into an entity's property map: n += {...}.
type MergeProperties struct {
	baseNode
	Target *Identifier
	Value  Node
}

func (*MergeProperties) Kind() NodeKind     { return KindMergeProperties }
func (m *MergeProperties) Children() []Node { return appendNode(nil, m.Target, m.Value) }

// SetLabels adds labels to a node: SET n:Label1:Label2.
type SetLabels struct {
	baseNode
	Target *Identifier
	Labels []string
}

func (*SetLabels) Kind() NodeKind     { return KindSetLabels }
func (s *SetLabels) Children() []Node { return appendNode(nil, s.Target) }

// Remove is a REMOVE clause.
type Remove struct {
	baseNode
	Items []Node
}

func (*Remove) Kind() NodeKind     { return KindRemove }
func (r *Remove) Children() []Node { return r.Items }

// RemoveProperty removes entity.property.
type RemoveProperty struct {
	baseNode
	Property *PropertyOperator
}

func (*RemoveProperty) Kind() NodeKind     { return KindRemoveProperty }
func (r *RemoveProperty) Children() []Node { return appendNode(nil, r.Property) }

// RemoveLabels removes labels from a node: REMOVE n:Label.
type RemoveLabels struct {
	baseNode
	Target *Identifier
	Labels []string
}

func (*RemoveLabels) Kind() NodeKind     { return KindRemoveLabels }
func (r *RemoveLabels) Children() []Node { return appendNode(nil, r.Target) }

// Return is a RETURN clause.
type Return struct {
	baseNode
	Distinct        bool
	IncludeExisting bool // RETURN *
	Projections     []*Projection
	OrderBy         *OrderBy
	Skip            Node
	Limit           Node
}

func (*Return) Kind() NodeKind { return KindReturn }
func (r *Return) Children() []Node {
	var ch []Node
	for _, p := range r.Projections {
		ch = append(ch, p)
	}
	return appendNode(ch, r.OrderBy, r.Skip, r.Limit)
}

// With is a WITH clause.
type With struct {
	baseNode
	Distinct        bool
	IncludeExisting bool // WITH *
	Projections     []*Projection
	OrderBy         *OrderBy
	Skip            Node
	Limit           Node
	Predicate       Node // WHERE expression
}

func (*With) Kind() NodeKind { return KindWith }
func (w *With) Children() []Node {
	var ch []Node
	for _, p := range w.Projections {
		ch = append(ch, p)
	}
	return appendNode(ch, w.OrderBy, w.Skip, w.Limit, w.Predicate)
}

// Unwind is an UNWIND clause.
type Unwind struct {
	baseNode
	Expr  Node
	Alias *Identifier
}

func (*Unwind) Kind() NodeKind     { return KindUnwind }
func (u *Unwind) Children() []Node { return appendNode(nil, u.Expr, u.Alias) }

// Foreach is a FOREACH clause with a loop variable and an updating body.
type Foreach struct {
	baseNode
	Var     *Identifier
	Expr    Node
	Clauses []Node
}

func (*Foreach) Kind() NodeKind { return KindForeach }
func (f *Foreach) Children() []Node {
	return appendNode(appendNode(nil, f.Var, f.Expr), f.Clauses...)
}

// Call is a standalone procedure invocation: CALL proc(args) YIELD ...
type Call struct {
	baseNode
	ProcName    string
	HasParens   bool
	Args        []Node
	Projections []*Projection // YIELD items
}

func (*Call) Kind() NodeKind { return KindCall }
func (c *Call) Children() []Node {
	ch := append([]Node(nil), c.Args...)
	for _, p := range c.Projections {
		ch = append(ch, p)
	}
	return ch
}

// CallSubquery is a CALL { ... } clause.
type CallSubquery struct {
	baseNode
	Query *Query
}

func (*CallSubquery) Kind() NodeKind     { return KindCallSubquery }
func (c *CallSubquery) Children() []Node { return appendNode(nil, c.Query) }

// Union separates query branches; All distinguishes UNION ALL.
type Union struct {
	baseNode
	All bool
}

func (*Union) Kind() NodeKind   { return KindUnion }
func (*Union) Children() []Node { return nil }

// LoadCSV is a LOAD CSV clause binding each row to an alias.
type LoadCSV struct {
	baseNode
	WithHeaders     bool
	URL             Node
	Alias           *Identifier
	FieldTerminator Node
}

func (*LoadCSV) Kind() NodeKind     { return KindLoadCSV }
func (l *LoadCSV) Children() []Node { return appendNode(nil, l.URL, l.FieldTerminator) }

// PatternIndex is a CREATE INDEX / DROP INDEX schema statement.
type PatternIndex struct {
	baseNode
	kind       NodeKind // KindCreatePatternPropsIndex or KindDropPatternPropsIndex
	Identifier *Identifier
	Label      string
	Properties []*PropertyOperator
}

func (p *PatternIndex) Kind() NodeKind { return p.kind }
func (p *PatternIndex) Children() []Node {
	var ch []Node
	for _, prop := range p.Properties {
		ch = append(ch, prop)
	}
	return ch
}

// Unsupported captures constructs the parser recognizes only so the
// validator can reject them with a stable error.
type Unsupported struct {
	baseNode
	kind NodeKind
	Text string
}

func (u *Unsupported) Kind() NodeKind   { return u.kind }
func (*Unsupported) Children() []Node   { return nil }

// Pattern is a comma-separated list of pattern paths.
type Pattern struct {
	baseNode
	Paths []Node // *PatternPath, *NamedPath or *ShortestPath
}

func (*Pattern) Kind() NodeKind     { return KindPattern }
func (p *Pattern) Children() []Node { return p.Paths }

// NamedPath binds a path expression to an identifier: p = (a)-->(b).
type NamedPath struct {
	baseNode
	Identifier *Identifier
	Path       Node // *PatternPath or *ShortestPath
}

func (*NamedPath) Kind() NodeKind     { return KindNamedPath }
func (n *NamedPath) Children() []Node { return appendNode(nil, n.Identifier, n.Path) }

// ShortestPath wraps a pattern path in shortestPath()/allShortestPaths().
type ShortestPath struct {
	baseNode
	Single bool // true for shortestPath, false for allShortestPaths
	Path   *PatternPath
}

func (*ShortestPath) Kind() NodeKind     { return KindShortestPath }
func (s *ShortestPath) Children() []Node { return appendNode(nil, s.Path) }

// PatternPath is an alternating sequence node, rel, node, rel, ..., node.
type PatternPath struct {
	baseNode
	Elements []Node
}

func (*PatternPath) Kind() NodeKind     { return KindPatternPath }
func (p *PatternPath) Children() []Node { return p.Elements }

// NodePattern is a single (identifier:Label {props}) element.
type NodePattern struct {
	baseNode
	Identifier *Identifier
	Labels     []string
	Properties Node // *MapLiteral or *Parameter, or anything else (rejected)
}

func (*NodePattern) Kind() NodeKind     { return KindNodePattern }
func (n *NodePattern) Children() []Node { return appendNode(nil, n.Identifier, n.Properties) }

// Direction is the orientation of a relationship pattern.
type Direction int

const (
	DirBidirectional Direction = iota
	DirOutgoing
	DirIncoming
)

// RelPattern is a single -[identifier:TYPE*min..max {props}]-> element.
type RelPattern struct {
	baseNode
	Identifier *Identifier
	Types      []string
	Direction  Direction
	VarLength  *Range
	Properties Node
}

func (*RelPattern) Kind() NodeKind { return KindRelPattern }
func (r *RelPattern) Children() []Node {
	return appendNode(nil, r.Identifier, r.VarLength, r.Properties)
}

// Range is the *min..max of a variable-length relationship.
type Range struct {
	baseNode
	Start *IntegerLiteral // nil means unbounded below (defaults to 1)
	End   *IntegerLiteral // nil means unbounded above
}

func (*Range) Kind() NodeKind     { return KindRange }
func (r *Range) Children() []Node { return appendNode(nil, r.Start, r.End) }

// Projection is one expression [AS alias] item of WITH/RETURN/YIELD.
type Projection struct {
	baseNode
	Expr  Node
	Alias *Identifier
}

func (*Projection) Kind() NodeKind     { return KindProjection }
func (p *Projection) Children() []Node { return appendNode(nil, p.Expr, p.Alias) }

// OrderBy is the ORDER BY modifier of WITH/RETURN.
type OrderBy struct {
	baseNode
	Items []*SortItem
}

func (*OrderBy) Kind() NodeKind { return KindOrderBy }
func (o *OrderBy) Children() []Node {
	var ch []Node
	for _, it := range o.Items {
		ch = append(ch, it)
	}
	return ch
}

// SortItem is one ORDER BY expression with its direction.
type SortItem struct {
	baseNode
	Expr       Node
	Descending bool
}

func (*SortItem) Kind() NodeKind     { return KindSortItem }
func (s *SortItem) Children() []Node { return appendNode(nil, s.Expr) }

// Identifier is a variable reference or binding occurrence.
type Identifier struct {
	baseNode
	Name string
}

func (*Identifier) Kind() NodeKind   { return KindIdentifier }
func (*Identifier) Children() []Node { return nil }

// PropertyOperator is expr.property.
type PropertyOperator struct {
	baseNode
	Expr     Node
	PropName string
}

func (*PropertyOperator) Kind() NodeKind     { return KindPropertyOperator }
func (p *PropertyOperator) Children() []Node { return appendNode(nil, p.Expr) }

// SubscriptOperator is expr[subscript].
type SubscriptOperator struct {
	baseNode
	Expr      Node
	Subscript Node
}

func (*SubscriptOperator) Kind() NodeKind     { return KindSubscriptOperator }
func (s *SubscriptOperator) Children() []Node { return appendNode(nil, s.Expr, s.Subscript) }

// SliceOperator is expr[start..end].
type SliceOperator struct {
	baseNode
	Expr  Node
	Start Node
	End   Node
}

func (*SliceOperator) Kind() NodeKind     { return KindSliceOperator }
func (s *SliceOperator) Children() []Node { return appendNode(nil, s.Expr, s.Start, s.End) }

// ApplyOperator is a function application f(args).
type ApplyOperator struct {
	baseNode
	FuncName string
	Distinct bool
	Args     []Node
}

func (*ApplyOperator) Kind() NodeKind     { return KindApplyOperator }
func (a *ApplyOperator) Children() []Node { return a.Args }

// ApplyAllOperator is a function applied to all rows: f(*).
type ApplyAllOperator struct {
	baseNode
	FuncName string
	Distinct bool
}

func (*ApplyAllOperator) Kind() NodeKind   { return KindApplyAllOperator }
func (*ApplyAllOperator) Children() []Node { return nil }

// Operator identifies a binary or unary operator.
type Operator int

const (
	OpOr Operator = iota
	OpXor
	OpAnd
	OpNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpUnaryPlus
	OpUnaryMinus
	OpIn
	OpStartsWith
	OpEndsWith
	OpContains
	OpIsNull
	OpIsNotNull
	OpRegex
	OpMapProjection
)

var operatorNames = map[Operator]string{
	OpOr:            "OR",
	OpXor:           "XOR",
	OpAnd:           "AND",
	OpNot:           "NOT",
	OpAdd:           "+",
	OpSub:           "-",
	OpMul:           "*",
	OpDiv:           "/",
	OpMod:           "%",
	OpPow:           "^",
	OpUnaryPlus:     "+",
	OpUnaryMinus:    "-",
	OpIn:            "IN",
	OpStartsWith:    "STARTS WITH",
	OpEndsWith:      "ENDS WITH",
	OpContains:      "CONTAINS",
	OpIsNull:        "IS NULL",
	OpIsNotNull:     "IS NOT NULL",
	OpRegex:         "=~",
	OpMapProjection: "map projection",
}

func (op Operator) String() string { return operatorNames[op] }

// BinaryOperator is lhs op rhs.
type BinaryOperator struct {
	baseNode
	Op  Operator
	LHS Node
	RHS Node
}

func (*BinaryOperator) Kind() NodeKind     { return KindBinaryOperator }
func (b *BinaryOperator) Children() []Node { return appendNode(nil, b.LHS, b.RHS) }

// UnaryOperator is op arg.
type UnaryOperator struct {
	baseNode
	Op  Operator
	Arg Node
}

func (*UnaryOperator) Kind() NodeKind     { return KindUnaryOperator }
func (u *UnaryOperator) Children() []Node { return appendNode(nil, u.Arg) }

// Comparison is a chain a < b <= c of comparison operators.
type Comparison struct {
	baseNode
	Args []Node   // len(Ops)+1 operands
	Ops  []string // "=", "<>", "<", ">", "<=", ">="
}

func (*Comparison) Kind() NodeKind     { return KindComparison }
func (c *Comparison) Children() []Node { return c.Args }

// IntegerLiteral keeps the source text; Value parses on demand.
type IntegerLiteral struct {
	baseNode
	ValueStr string
}

func (*IntegerLiteral) Kind() NodeKind   { return KindInteger }
func (*IntegerLiteral) Children() []Node { return nil }

// Value parses the literal text as a signed integer.
func (i *IntegerLiteral) Value() int64 {
	v, _ := strconv.ParseInt(i.ValueStr, 0, 64)
	return v
}

// FloatLiteral keeps the source text of a floating-point literal.
type FloatLiteral struct {
	baseNode
	ValueStr string
}

func (*FloatLiteral) Kind() NodeKind   { return KindFloat }
func (*FloatLiteral) Children() []Node { return nil }

// StringLiteral is an unescaped string literal.
type StringLiteral struct {
	baseNode
	Value string
}

func (*StringLiteral) Kind() NodeKind   { return KindString }
func (*StringLiteral) Children() []Node { return nil }

// BooleanLiteral is true or false.
type BooleanLiteral struct {
	baseNode
	Value bool
}

func (*BooleanLiteral) Kind() NodeKind   { return KindBoolean }
func (*BooleanLiteral) Children() []Node { return nil }

// NullLiteral is the NULL literal.
type NullLiteral struct {
	baseNode
}

func (*NullLiteral) Kind() NodeKind   { return KindNull }
func (*NullLiteral) Children() []Node { return nil }

// Parameter is a $name placeholder.
type Parameter struct {
	baseNode
	Name string
}

func (*Parameter) Kind() NodeKind   { return KindParameter }
func (*Parameter) Children() []Node { return nil }

// Collection is a list literal.
type Collection struct {
	baseNode
	Elements []Node
}

func (*Collection) Kind() NodeKind     { return KindCollection }
func (c *Collection) Children() []Node { return c.Elements }

// MapLiteral is a {key: value, ...} literal. Keys and Values are parallel.
type MapLiteral struct {
	baseNode
	Keys   []string
	Values []Node
}

func (*MapLiteral) Kind() NodeKind     { return KindMap }
func (m *MapLiteral) Children() []Node { return m.Values }

// ListComprehension is [x IN list WHERE pred | eval] and the filter
// predicates any/all/none/single, which share its shape.
type ListComprehension struct {
	baseNode
	kind       NodeKind // KindListComprehension, KindAny, KindAll, KindNone, KindSingle
	Identifier *Identifier
	Expr       Node // the list expression
	Predicate  Node
	Eval       Node
}

func (l *ListComprehension) Kind() NodeKind { return l.kind }
func (l *ListComprehension) Children() []Node {
	return appendNode(nil, l.Identifier, l.Expr, l.Predicate, l.Eval)
}

// PatternComprehension is [p = pattern WHERE pred | eval].
type PatternComprehension struct {
	baseNode
	Identifier *Identifier // optional
	Pattern    *PatternPath
	Predicate  Node
	Eval       Node
}

func (*PatternComprehension) Kind() NodeKind { return KindPatternComprehension }
func (p *PatternComprehension) Children() []Node {
	return appendNode(nil, p.Identifier, p.Pattern, p.Predicate, p.Eval)
}

// Reduce is reduce(acc = init, x IN list | eval).
type Reduce struct {
	baseNode
	Accumulator *Identifier
	Init        Node
	Identifier  *Identifier
	Expr        Node // the list expression
	Eval        Node // nil when the eval expression is missing
}

func (*Reduce) Kind() NodeKind { return KindReduce }
func (r *Reduce) Children() []Node {
	return appendNode(nil, r.Accumulator, r.Init, r.Identifier, r.Expr, r.Eval)
}

// CaseAlternative is one WHEN ... THEN ... arm.
type CaseAlternative struct {
	When Node
	Then Node
}

// Case is a CASE expression, generic or with an input expression.
type Case struct {
	baseNode
	Input        Node // optional
	Alternatives []CaseAlternative
	Default      Node // optional ELSE
}

func (*Case) Kind() NodeKind { return KindCase }
func (c *Case) Children() []Node {
	ch := appendNode(nil, c.Input)
	for _, alt := range c.Alternatives {
		ch = appendNode(ch, alt.When, alt.Then)
	}
	return appendNode(ch, c.Default)
}
