package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAST(t *testing.T, query string) *AST {
	t.Helper()
	errCtx := NewErrorCtx()
	result := parseQuery(query, errCtx)
	require.NoError(t, errCtx.Err())
	ast := Build(result)
	require.NotNil(t, ast.Root)
	return ast
}

func TestAST_ClauseAccessors(t *testing.T) {
	ast := buildAST(t, "MATCH (a) MATCH (b) CREATE (c) RETURN a, b, c")
	defer ast.Free()

	clause, idx := ast.GetClause(KindMatch)
	require.NotNil(t, clause)
	assert.Equal(t, 0, idx)

	assert.Equal(t, []int{0, 1}, ast.GetClauseIndices(KindMatch))
	assert.Equal(t, 2, ast.ClauseCount(KindMatch))
	assert.Equal(t, 1, ast.ClauseCount(KindCreate))
	assert.Equal(t, 0, ast.ClauseCount(KindMerge))
	assert.Equal(t, KindCreate, ast.GetClauseByIdx(2).Kind())
	assert.True(t, ast.ContainsClause(KindReturn))
	assert.False(t, ast.ContainsClause(KindUnwind))
}

func TestAST_Segments(t *testing.T) {
	master := buildAST(t, "MATCH (a) WITH a AS b RETURN b")
	defer master.Free()

	// [MATCH, WITH) with the WITH boundary clause folded into the map
	segment := NewSegment(master, 0, 1)
	defer segment.Free()

	q := segment.Root.(*Query)
	require.Len(t, q.Clauses, 1)
	assert.Equal(t, KindMatch, q.Clauses[0].Kind())

	// references of the boundary WITH are preserved
	assert.True(t, segment.AliasIsReferenced("a"))

	// the tail segment sees its own clauses only
	tail := NewSegment(master, 1, 3)
	defer tail.Free()
	assert.Len(t, tail.Root.(*Query).Clauses, 2)
	assert.True(t, tail.AliasIsReferenced("b"))
	assert.False(t, tail.AliasIsReferenced("missing"))

	// segments share the master's annotation contexts
	assert.Same(t, master.AnnotationCtxCollection(), segment.AnnotationCtxCollection())
}

func TestAST_RefcountLifecycle(t *testing.T) {
	ast := buildAST(t, "MATCH (a) RETURN a")

	cp := ast.ShallowCopy()
	other := ast.ShallowCopy()

	// two releases leave one live reference; owned state survives
	cp.Free()
	other.Free()
	assert.NotNil(t, ast.AnnotationCtxCollection())

	ast.Retain()
	ast.Free()
	assert.NotNil(t, ast.AnnotationCtxCollection())

	// final release disposes the parse result and annotations
	ast.Free()
	assert.Nil(t, ast.AnnotationCtxCollection())
}

func TestAST_SegmentFreeKeepsMaster(t *testing.T) {
	master := buildAST(t, "MATCH (a) WITH a AS b RETURN b")
	segment := NewSegment(master, 1, 3)

	segment.Free()
	assert.Nil(t, segment.Root)

	// the master and the shared annotation contexts are untouched
	require.NotNil(t, master.Root)
	assert.NotNil(t, master.AnnotationCtxCollection())
	master.Free()
}

func TestAST_ToStringStability(t *testing.T) {
	ast := buildAST(t, "MATCH (a)-[:R]->() RETURN a.v + 1")
	defer ast.Free()

	path := ast.GetClauseByIdx(0).(*Match).Pattern.Paths[0].(*PatternPath)
	anonNode := path.Elements[2].(*NodePattern)
	require.Nil(t, anonNode.Identifier)

	first := ast.ToString(anonNode)
	assert.Contains(t, first, "@anon_")
	// repeated calls return the same generated alias
	assert.Equal(t, first, ast.ToString(anonNode))

	// aliased entities stringify to their user alias
	aliased := path.Elements[0].(*NodePattern)
	assert.Equal(t, "a", ast.ToString(aliased))

	// other nodes stringify to their source-range slice
	ret := ast.GetClauseByIdx(1).(*Return)
	assert.Equal(t, "a.v + 1", ast.ToString(ret.Projections[0].Expr))
}

func TestAST_ReturnColumnNames(t *testing.T) {
	ast := buildAST(t, "MATCH (a) RETURN a, a.v AS value, a.w")
	defer ast.Free()

	ret := ast.GetClauseByIdx(1).(*Return)
	assert.Equal(t, []string{"a", "value", "a.w"}, ast.BuildReturnColumnNames(ret))
}

func TestAST_CallColumnNames(t *testing.T) {
	procs := NewProcedureRegistry()

	ast := buildAST(t, "CALL db.labels() YIELD label AS l")
	defer ast.Free()
	call := ast.GetClauseByIdx(0).(*Call)
	assert.Equal(t, []string{"l"}, ast.BuildCallColumnNames(call, procs))

	// without YIELD the procedure's declared outputs are the columns
	noYield := buildAST(t, "CALL db.idx.fulltext.queryNodes('idx', 'q')")
	defer noYield.Free()
	call = noYield.GetClauseByIdx(0).(*Call)
	assert.Equal(t, []string{"node", "score"}, noYield.BuildCallColumnNames(call, procs))
}

func TestAST_IsEager(t *testing.T) {
	tests := []struct {
		query string
		eager bool
	}{
		{"MATCH (n) RETURN n", false},
		{"CREATE (n)", true},
		{"MATCH (n) SET n.v = 1", true},
		{"MATCH (n) RETURN count(n)", true},
		{"MATCH (n) WITH collect(n) AS all RETURN all", true},
		{"MATCH (m) CALL { CREATE (n:N) } RETURN m", true},
		{"MATCH (m) CALL { MATCH (n) RETURN n } RETURN m, n", false},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			ast := buildAST(t, tc.query)
			defer ast.Free()
			assert.Equal(t, tc.eager, IsEager(ast.Root.(*Query)))
		})
	}
}

func TestAST_ReadOnly(t *testing.T) {
	procs := NewProcedureRegistry()
	tests := []struct {
		query    string
		readOnly bool
	}{
		{"MATCH (n) RETURN n", true},
		{"CREATE (n)", false},
		{"MATCH (n) DELETE n", false},
		{"CALL db.labels()", true},
		{"CALL db.idx.fulltext.drop('idx')", false},
		{"MATCH (m) CALL { CREATE (n:N) } RETURN m", false},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			ast := buildAST(t, tc.query)
			defer ast.Free()
			assert.Equal(t, tc.readOnly, ReadOnly(ast.Root, procs))
		})
	}
}

func TestAST_CollectAliases(t *testing.T) {
	ast := buildAST(t, "MATCH (a)-[r:R]->(b) RETURN a")
	defer ast.Free()

	aliases := CollectAliases(nil, ast.GetClauseByIdx(0))
	assert.Equal(t, []string{"a", "r", "b"}, aliases)
}

func TestAST_ReferredFunctions(t *testing.T) {
	ast := buildAST(t, "MATCH (n) RETURN abs(max(min(n.a), abs(n.k)))")
	defer ast.Free()

	funcs := make(map[string]struct{})
	ReferredFunctions(ast.Root, funcs)
	for _, name := range []string{"abs", "max", "min"} {
		if _, ok := funcs[name]; !ok {
			t.Errorf("function %q not collected", name)
		}
	}
}

func TestFunctionRegistry(t *testing.T) {
	assert.True(t, FuncExists("count"))
	assert.True(t, FuncExists("toUpper"))
	assert.True(t, FuncExists("COALESCE"))
	assert.False(t, FuncExists("noSuchFunction"))

	assert.True(t, FuncIsAggregate("count"))
	assert.True(t, FuncIsAggregate("SUM"))
	assert.False(t, FuncIsAggregate("abs"))
}

func TestProcedureRegistry(t *testing.T) {
	procs := NewProcedureRegistry()

	proc := procs.Lookup("db.labels")
	require.NotNil(t, proc)
	assert.Equal(t, 0, proc.ArgCount)
	assert.True(t, proc.ReadOnly)
	assert.True(t, proc.ContainsOutput("label"))
	assert.False(t, proc.ContainsOutput("wrong"))

	assert.Nil(t, procs.Lookup("no.such.proc"))

	variadic := procs.Lookup("db.idx.fulltext.createNodeIndex")
	require.NotNil(t, variadic)
	assert.Equal(t, VariadicArgCount, variadic.ArgCount)

	procs.Register(&Procedure{Name: "custom.proc", ArgCount: 1, ReadOnly: true, Outputs: []string{"out"}})
	assert.NotNil(t, procs.Lookup("custom.proc"))
	assert.Contains(t, procs.Names(), "custom.proc")
}
