package cypher

import (
	"sync/atomic"
)

// AST is a shared, reference-counted handle over a query body. The master
// handle owns the parse result and the annotation-context collection;
// segments and shallow copies share them. Refcount updates are atomic
// because segments are handed to the planner and runtime on other
// goroutines; relaxed ordering suffices since segment creation
// happens-before any release of the derivative.
type AST struct {
	Root Node // *Query for regular queries, a DDL node otherwise

	freeRoot    bool // the root was synthesized for a segment
	parseResult *ParseResult
	anotCtx     *AnnotationCtxCollection
	referenced  map[string]struct{} // identifiers used at or beyond a segment boundary
	refCount    *atomic.Int32
}

// Build creates the master AST over a parse result. The caller must have
// verified the parse result holds a statement root (see parseQuery).
func Build(result *ParseResult) *AST {
	ast := &AST{
		parseResult: result,
		anotCtx:     NewAnnotationCtxCollection(result.Source()),
		refCount:    &atomic.Int32{},
	}
	ast.refCount.Store(1)

	if stmt := statementRoot(result); stmt != nil {
		ast.Root = stmt.Body
	}

	// augment the AST with canonical names for anonymous pattern entities;
	// CanonicalName returns them
	if ast.Root != nil {
		ast.enrich()
	}

	return ast
}

// statementRoot returns the single STATEMENT root of the parse result,
// skipping comment roots.
func statementRoot(result *ParseResult) *Statement {
	for i := 0; i < result.NRoots(); i++ {
		if stmt, ok := result.Root(i).(*Statement); ok {
			return stmt
		}
	}
	return nil
}

// NewSegment constructs an AST over the clauses [start, end) of the master.
// The synthesized root is owned by the segment; annotation contexts are
// shared with the master.
func NewSegment(master *AST, start, end int) *AST {
	ast := &AST{
		freeRoot: true,
		anotCtx:  master.anotCtx,
		refCount: &atomic.Int32{},
	}
	ast.refCount.Store(1)

	masterQuery := master.Root.(*Query)
	clauses := make([]Node, end-start)
	copy(clauses, masterQuery.Clauses[start:end])
	ast.Root = &Query{Clauses: clauses}

	// if the segments are split, the next clause is either RETURN or WITH,
	// and its references should be included in this segment's map
	boundary := end
	if boundary == len(masterQuery.Clauses) {
		boundary = len(masterQuery.Clauses) - 1
	}
	projectClause := masterQuery.Clauses[boundary]
	switch projectClause.Kind() {
	case KindWith, KindReturn:
	default:
		// the boundary clause is not a projection, e.g.
		// [MATCH (a) RETURN a UNION] MATCH (a) RETURN a
		projectClause = nil
	}

	ast.buildReferenceMap(projectClause)
	return ast
}

// ShallowCopy returns a second handle over the same underlying AST,
// incrementing the shared refcount.
func (ast *AST) ShallowCopy() *AST {
	ast.refCount.Add(1)
	cp := *ast
	return &cp
}

// Retain increments the refcount of the handle.
func (ast *AST) Retain() {
	ast.refCount.Add(1)
}

// Free releases one reference. At zero, a segment discards its synthesized
// root while the master discards annotation contexts and the parse result.
func (ast *AST) Free() {
	if ast == nil {
		return
	}
	if ast.refCount.Add(-1) != 0 {
		return
	}
	if ast.freeRoot {
		ast.Root = nil
	} else {
		ast.anotCtx = nil
		ast.parseResult = nil
	}
	ast.referenced = nil
}

// clauses returns the top-level clause list, or nil for DDL bodies.
func (ast *AST) clauses() []Node {
	if q, ok := ast.Root.(*Query); ok {
		return q.Clauses
	}
	return nil
}

// GetClause returns the first clause of the given kind and its index, or
// (nil, -1).
func (ast *AST) GetClause(kind NodeKind) (Node, int) {
	for i, clause := range ast.clauses() {
		if clause.Kind() == kind {
			return clause, i
		}
	}
	return nil, -1
}

// GetClauseByIdx returns the i'th top-level clause.
func (ast *AST) GetClauseByIdx(i int) Node {
	return ast.clauses()[i]
}

// GetClauseIndices returns the indices of every clause of the given kind.
func (ast *AST) GetClauseIndices(kind NodeKind) []int {
	var indices []int
	for i, clause := range ast.clauses() {
		if clause.Kind() == kind {
			indices = append(indices, i)
		}
	}
	return indices
}

// ClauseCount returns the number of clauses of the given kind.
func (ast *AST) ClauseCount(kind NodeKind) int {
	return len(ast.GetClauseIndices(kind))
}

// GetClauses returns every clause of the given kind. Clauses cannot nest,
// so only the immediate children of the query node are inspected.
func (ast *AST) GetClauses(kind NodeKind) []Node {
	var clauses []Node
	for _, clause := range ast.clauses() {
		if clause.Kind() == kind {
			clauses = append(clauses, clause)
		}
	}
	return clauses
}

// ContainsClause reports whether any top-level clause has the given kind.
func (ast *AST) ContainsClause(kind NodeKind) bool {
	c, _ := ast.GetClause(kind)
	return c != nil
}

// GetTypedNodes collects every node of the given kind beneath root,
// depth-first.
func GetTypedNodes(root Node, kind NodeKind) []Node {
	var nodes []Node
	var walk func(n Node)
	walk = func(n Node) {
		if n.Kind() == kind {
			nodes = append(nodes, n)
		}
		for _, child := range n.Children() {
			walk(child)
		}
	}
	walk(root)
	return nodes
}

// TreeContainsKind reports whether any node beneath root has the given kind.
func TreeContainsKind(root Node, kind NodeKind) bool {
	if root.Kind() == kind {
		return true
	}
	for _, child := range root.Children() {
		if TreeContainsKind(child, kind) {
			return true
		}
	}
	return false
}

// CollectAliases appends the name of every identifier beneath entity.
func CollectAliases(aliases []string, entity Node) []string {
	if entity == nil {
		return aliases
	}
	for _, n := range GetTypedNodes(entity, KindIdentifier) {
		aliases = append(aliases, n.(*Identifier).Name)
	}
	return aliases
}

// ReferredFunctions collects the lower-level function names invoked beneath
// root. Example: "abs(max(min(a), abs(k)))" contributes abs, max and min.
func ReferredFunctions(root Node, funcs map[string]struct{}) {
	switch n := root.(type) {
	case *ApplyOperator:
		funcs[n.FuncName] = struct{}{}
	case *ApplyAllOperator:
		funcs[n.FuncName] = struct{}{}
		return // apply-all operators have no arguments
	}
	for _, child := range root.Children() {
		ReferredFunctions(child, funcs)
	}
}

// ClauseContainsAggregation reports whether any function referenced in the
// clause is an aggregation.
func ClauseContainsAggregation(clause Node) bool {
	funcs := make(map[string]struct{})
	ReferredFunctions(clause, funcs)
	for name := range funcs {
		if FuncIsAggregate(name) {
			return true
		}
	}
	return false
}

// ReadOnly reports whether the tree contains no updating clause and no
// procedure call that modifies the graph.
func ReadOnly(root Node, procs *ProcedureRegistry) bool {
	if root == nil {
		return true
	}

	switch root.Kind() {
	case KindCreate, KindMerge, KindDelete, KindSet, KindRemove,
		KindCreatePatternPropsIndex, KindDropPatternPropsIndex:
		return false
	case KindCall:
		proc := procs.Lookup(root.(*Call).ProcName)
		if proc != nil && !proc.ReadOnly {
			return false
		}
	}

	for _, child := range root.Children() {
		if !ReadOnly(child, procs) {
			return false
		}
	}
	return true
}

// clauseIsEager reports whether a clause demands materialization of the
// rows produced before it.
func clauseIsEager(clause Node) bool {
	switch clause.Kind() {
	case KindCreate, KindDelete, KindMerge, KindSet, KindRemove, KindForeach:
		return true
	case KindCallSubquery:
		return IsEager(clause.(*CallSubquery).Query)
	case KindReturn, KindWith:
		return ClauseContainsAggregation(clause)
	}
	return false
}

// IsEager reports whether the query contains an eager clause: an update, an
// aggregation, or an eager subquery.
func IsEager(root *Query) bool {
	for _, clause := range root.Clauses {
		if clauseIsEager(clause) {
			return true
		}
	}
	return false
}

// BuildReturnColumnNames returns the result-column names of a RETURN clause
// whose star projections have already been expanded.
func (ast *AST) BuildReturnColumnNames(ret *Return) []string {
	columns := make([]string, 0, len(ret.Projections))
	for _, proj := range ret.Projections {
		columns = append(columns, ast.projectionColumnName(proj))
	}
	return columns
}

// projectionColumnName resolves the user-visible column name of a
// projection: its alias, the identifier it projects, or its source text.
func (ast *AST) projectionColumnName(proj *Projection) string {
	if proj.Alias != nil {
		return proj.Alias.Name
	}
	if id, ok := proj.Expr.(*Identifier); ok {
		return id.Name
	}
	return ast.ToString(proj.Expr)
}

// BuildCallColumnNames returns the column names produced by a CALL clause:
// its YIELD projections, or all declared outputs when YIELD is omitted.
func (ast *AST) BuildCallColumnNames(call *Call, procs *ProcedureRegistry) []string {
	if len(call.Projections) > 0 {
		columns := make([]string, 0, len(call.Projections))
		for _, proj := range call.Projections {
			if proj.Alias != nil {
				columns = append(columns, proj.Alias.Name)
			} else {
				columns = append(columns, proj.Expr.(*Identifier).Name)
			}
		}
		return columns
	}

	proc := procs.Lookup(call.ProcName)
	if proc == nil {
		return nil
	}
	return append([]string(nil), proc.Outputs...)
}

// AnnotationCtxCollection exposes the handle's annotation contexts.
func (ast *AST) AnnotationCtxCollection() *AnnotationCtxCollection {
	return ast.anotCtx
}

// ToString returns a textual representation of a node: the user alias of a
// graph entity, the node's source-range slice, or a generated @anon_N
// alias. Repeated calls return the same string.
func (ast *AST) ToString(node Node) string {
	ctx := ast.anotCtx
	if s, ok := ctx.toString.Get(node); ok {
		return s
	}

	var identifier *Identifier
	switch n := node.(type) {
	case *NodePattern:
		identifier = n.Identifier
	case *RelPattern:
		identifier = n.Identifier
	default:
		rng := node.Range()
		s := sliceSource(ctx.src, rng)
		ctx.toString.Attach(node, s)
		return s
	}

	if identifier != nil {
		// graph entity with a user-defined alias
		return identifier.Name
	}
	s := ctx.nextAnonAlias()
	ctx.toString.Attach(node, s)
	return s
}

// sliceSource extracts the text a source range covers.
func sliceSource(src string, rng InputRange) string {
	start, end := rng.Start.Offset, rng.End.Offset
	if start < 0 || end > len(src) || start >= end {
		return ""
	}
	return src[start:end]
}

// AliasIsReferenced reports whether the alias appears in the segment's
// reference map.
func (ast *AST) AliasIsReferenced(alias string) bool {
	_, ok := ast.referenced[alias]
	return ok
}

// enrich assigns canonical names to anonymous pattern entities so that
// naming is stable across rewrites and segments.
func (ast *AST) enrich() {
	for _, n := range GetTypedNodes(ast.Root, KindNodePattern) {
		np := n.(*NodePattern)
		if np.Identifier == nil {
			if _, ok := ast.anotCtx.naming.Get(n); !ok {
				ast.anotCtx.naming.Attach(n, ast.anotCtx.nextAnonAlias())
			}
		}
	}
	for _, n := range GetTypedNodes(ast.Root, KindRelPattern) {
		rp := n.(*RelPattern)
		if rp.Identifier == nil {
			if _, ok := ast.anotCtx.naming.Get(n); !ok {
				ast.anotCtx.naming.Attach(n, ast.anotCtx.nextAnonAlias())
			}
		}
	}
}

// CanonicalName returns the alias a pattern entity is known by: the user
// alias, or the generated name assigned during enrichment.
func (ast *AST) CanonicalName(entity Node) string {
	switch n := entity.(type) {
	case *NodePattern:
		if n.Identifier != nil {
			return n.Identifier.Name
		}
	case *RelPattern:
		if n.Identifier != nil {
			return n.Identifier.Name
		}
	}
	if name, ok := ast.anotCtx.naming.Get(entity); ok {
		return name
	}
	name := ast.anotCtx.nextAnonAlias()
	ast.anotCtx.naming.Attach(entity, name)
	return name
}

// buildReferenceMap records every identifier used within the segment, plus
// those of the boundary projection clause when one exists, so references
// crossing segments are preserved.
func (ast *AST) buildReferenceMap(projectClause Node) {
	ast.referenced = make(map[string]struct{})
	for _, n := range GetTypedNodes(ast.Root, KindIdentifier) {
		ast.referenced[n.(*Identifier).Name] = struct{}{}
	}
	if projectClause != nil {
		for _, n := range GetTypedNodes(projectClause, KindIdentifier) {
			ast.referenced[n.(*Identifier).Name] = struct{}{}
		}
	}
}
