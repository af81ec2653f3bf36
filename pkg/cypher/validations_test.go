package cypher

import (
	"testing"
)

// compileOK compiles a query and fails the test on any front-end error.
func compileOK(t *testing.T, query string) *CompiledQuery {
	t.Helper()
	compiled, err := CompileQuery(query, NewProcedureRegistry())
	if err != nil {
		t.Fatalf("CompileQuery(%q) failed: %v", query, err)
	}
	return compiled
}

// compileErr compiles a query and returns the front-end error code.
func compileErr(t *testing.T, query string) ErrorCode {
	t.Helper()
	compiled, err := CompileQuery(query, NewProcedureRegistry())
	if err == nil {
		compiled.AST.Free()
		t.Fatalf("CompileQuery(%q) unexpectedly succeeded", query)
	}
	fe, ok := err.(*Error)
	if !ok {
		t.Fatalf("CompileQuery(%q) returned %T, want *Error", query, err)
	}
	return fe.Code
}

func TestValidate_AcceptedQueries(t *testing.T) {
	queries := []string{
		"RETURN 1",
		"RETURN 1 AS one, 2 AS two",
		"MATCH (n) RETURN n",
		"MATCH (n:Person) WHERE n.age > 21 RETURN n.name",
		"MATCH (n:Person {name: 'Alice'}) RETURN n",
		"MATCH (a)-[r:KNOWS]->(b) RETURN a, r, b",
		"MATCH (a)-[:KNOWS*1..3]->(b) RETURN a, b",
		"MATCH p = (a)-[:KNOWS]->(b) RETURN p",
		"OPTIONAL MATCH (a)-[:KNOWS]->(b) RETURN a, b",
		"MATCH (a) CREATE (a)-[:R]->(:B)",
		"CREATE (a:Person {name: 'Bob'})",
		"CREATE (a)-[:R]->(b)",
		"MERGE (n:Person {id: 1})",
		"MERGE (n:Person {id: 1}) ON CREATE SET n.created = timestamp()",
		"MERGE (n:Person {id: 1}) ON MATCH SET n.seen = true ON CREATE SET n.seen = false",
		"MATCH (a) MERGE (a)-[:R]->(b)",
		"MATCH (n) DELETE n",
		"MATCH (n) DETACH DELETE n",
		"MATCH (n) SET n.v = 1, n.w = 2",
		"MATCH (n) SET n += {v: 1}",
		"MATCH (n) SET n:Label",
		"MATCH (n) REMOVE n.v",
		"MATCH (n) REMOVE n:Label",
		"MATCH (n) RETURN n.v AS v ORDER BY v DESC LIMIT 2",
		"MATCH (n) RETURN n SKIP 1 LIMIT 2",
		"MATCH (n) RETURN n LIMIT $limit",
		"MATCH (n) WITH n.v AS v WHERE v > 1 RETURN v",
		"MATCH (n) WITH n ORDER BY n.v SKIP 1 LIMIT 10 RETURN n",
		"MATCH (n) WITH DISTINCT n RETURN n",
		"UNWIND [1, 2, 3] AS x RETURN x",
		"UNWIND [1, 2] AS x CREATE (:N {v: x})",
		"MATCH (n) RETURN count(n)",
		"MATCH (n) RETURN count(*)",
		"MATCH (n) RETURN sum(n.v) AS total, n.w AS w",
		"MATCH (n) WITH max(n.v) AS m RETURN m",
		"MATCH (n) RETURN toUpper(n.name)",
		"MATCH (n) RETURN [x IN [1, 2] WHERE x > 1 | x * 2] AS doubled",
		"MATCH (n) RETURN any(x IN [1, 2] WHERE x > 1)",
		"MATCH (n) RETURN all(x IN [1, 2] WHERE x > 0)",
		"RETURN reduce(s = 0, x IN [1, 2, 3] | s + x)",
		"MATCH (a) RETURN [p = (a)-[:R]->(b) | p] AS paths",
		"MATCH (n) RETURN CASE WHEN n.v > 1 THEN 'big' ELSE 'small' END",
		"MATCH (n) RETURN CASE n.v WHEN 1 THEN 'one' ELSE 'other' END",
		"MATCH (n) WHERE n.name STARTS WITH 'A' AND n.v IS NOT NULL RETURN n",
		"MATCH (n) WHERE n.v IN [1, 2, 3] RETURN n",
		"MATCH (n) WHERE (n)-[:KNOWS]->() RETURN n",
		"MATCH (a) FOREACH (x IN [1, 2] | CREATE (:N {v: x}))",
		"MATCH (a) FOREACH (x IN [1, 2] | SET a.v = x)",
		"FOREACH (x IN [1, 2] | FOREACH (y IN [3, 4] | CREATE (:N {x: x, y: y})))",
		"CALL db.labels()",
		"CALL db.labels() YIELD label RETURN label",
		"CALL db.labels() YIELD label AS l RETURN l",
		"CALL db.idx.fulltext.queryNodes('idx', 'query') YIELD node, score RETURN node, score",
		"MATCH (m) CALL { CREATE (n:N) } RETURN m",
		"CALL { MATCH (n) RETURN n } RETURN n",
		"MATCH (m) CALL { MATCH (n) RETURN n } RETURN m, n",
		"MATCH (m) CALL { CREATE (n:N) RETURN n } RETURN n, m",
		"WITH 1 AS a CALL { WITH a RETURN a + 1 AS b } RETURN a, b",
		"CALL { MATCH (a) RETURN * } RETURN a",
		"MATCH (a) RETURN a UNION MATCH (a) RETURN a",
		"MATCH (a) RETURN a UNION ALL MATCH (a) RETURN a",
		"MATCH (a), (b) RETURN *",
		"MATCH (a) WITH * MATCH (b) RETURN *",
		"MATCH (a), (b) WITH shortestPath((a)-[*]->(b)) AS p RETURN p",
		"CREATE INDEX ON :Person(name)",
		"CREATE INDEX FOR (n:Person) ON (n.name, n.age)",
		"DROP INDEX ON :Person(name)",
		"MATCH (n) RETURN n // trailing comment",
		"/* leading comment */ MATCH (n) RETURN n",
		"MATCH (n) RETURN n;",
		"CYPHER v=1 MATCH (n) WHERE n.v = $v RETURN n",
	}
	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			compiled := compileOK(t, query)
			compiled.AST.Free()
		})
	}
}

func TestValidate_RejectedQueries(t *testing.T) {
	tests := []struct {
		query string
		code  ErrorCode
	}{
		// parse stage
		{"", ErrEmptyQuery},
		{";", ErrEmptyQuery},
		{"RETURN 1; RETURN 2", ErrMultipleStatements},
		{"MATCH (a RETURN a", ErrParser},
		{"RETURN 'unterminated", ErrParser},

		// structure
		{"MATCH (a)", ErrInvalidLastClause},
		{"MATCH (a) WITH a", ErrInvalidLastClause},
		{"MATCH (a) RETURN a RETURN a", ErrUnexpectedClauseFollowingReturn},
		{"WITH * RETURN 1", ErrQueryCannotBeginWith},
		{"RETURN *", ErrQueryCannotBeginWith},
		{"CREATE (a) MATCH (b) RETURN b", ErrMissingWith},
		{"CREATE (a) UNWIND [1] AS x RETURN x", ErrMissingWith},
		{"OPTIONAL MATCH (a) MATCH (b) RETURN a, b", ErrMissingWithAfterOptionalMatch},
		{"MATCH (m) CALL { MATCH (n) RETURN n }", ErrInvalidLastClause},

		// scoping
		{"MATCH (a) RETURN b", ErrNotDefined},
		{"RETURN [x IN [1, 2] | y]", ErrNotDefined},
		{"MATCH (a) CREATE (a)", ErrRedeclare},
		{"CREATE (a {v: 1}), (b {v: a.v + 1})", ErrNotDefined},
		{"UNWIND [1, 2] AS n MATCH (n) RETURN n", ErrVariableAlreadyDeclared},
		{"MATCH (n) UNWIND [0, 1] AS n RETURN n", ErrVariableAlreadyDeclared},
		{"MATCH (a)-[a]->(b) RETURN a", ErrSameAliasNodeAndRelationship},
		{"MATCH (a)-[r]->(b), (c)-[r]->(d) RETURN r", ErrSameAliasMultiplePatterns},
		{"MATCH (a) WITH a, 1 + 2 RETURN a", ErrWithProjectionMissingAlias},
		{"MATCH (a) RETURN a, a", ErrSameResultColumnName},
		{"MATCH (a) RETURN a.v AS x, a.w AS x", ErrSameResultColumnName},
		{"MATCH (a) WITH a.v AS x, a.w AS x RETURN x", ErrSameResultColumnName},

		// patterns
		{"CREATE (a)-[r]->(b)", ErrOneRelationshipType},
		{"CREATE (a)-[:R|:S]->(b)", ErrOneRelationshipType},
		{"CREATE (a)-[:R]-(b)", ErrCreateDirectedRelationship},
		{"CREATE (a)-[:R*2]->(b)", ErrVarLen},
		{"MERGE (a)-[:R*1..2]->(b)", ErrVarLen},
		{"MERGE (a)-[r]->(b)", ErrOneRelationshipType},
		{"MATCH (a)-[:R]->(b) MERGE (a)-[:S]->(c) MERGE (x:X)-[b:R]->(y)", ErrRedeclare},
		{"MATCH (a:L) MERGE (a:L)", ErrRedeclare},
		{"MATCH (a)-[r*3..1]->(b) RETURN a", ErrVarLenInvalidRange},
		{"MATCH p = shortestPath((a)-[*]->(b)) RETURN p", ErrShortestPathSupport},
		{"MATCH (a), (b) WHERE allShortestPaths((a)-[*]->(b)) RETURN a", ErrAllShortestPathSupport},
		{"MATCH (a), (b), p = allShortestPaths((a)-[*2..]->(b)) RETURN p", ErrAllShortestPathMinimalLength},
		{"MATCH (a), (b) WITH shortestPath((a)-[*]->(c)) AS p RETURN p", ErrShortestPathBoundNodes},

		// clause contracts
		{"MATCH (a) DELETE a + 1", ErrDeleteInvalidArguments},
		{"MATCH (a) REMOVE labels(a).x", ErrRemoveInvalidInput},
		{"MATCH (a) SET a.b.c = 1", ErrSetLhsNonAlias},
		{"MATCH (a) RETURN a LIMIT -1", ErrLimitMustBeNonNegative},
		{"MATCH (a) RETURN a SKIP -1", ErrSkipMustBeNonNegative},
		{"MATCH (a) RETURN a LIMIT 'one'", ErrLimitMustBeNonNegative},
		{"MATCH (a) FOREACH (x IN [1] | RETURN x)", ErrForeachInvalidBody},

		// functions
		{"MATCH (n) RETURN noSuchFunction(n)", ErrUnknownFunction},
		{"MATCH (n) WHERE sum(n.v) > 1 RETURN n", ErrInvalidUseOfAggregation},
		{"MATCH (n) SET n.v = sum(n.v)", ErrInvalidUseOfAggregation},
		{"MATCH (n) RETURN reduce(s = 0, x IN [1] | s + sum(n.v))", ErrInvalidUseOfAggregation},
		{"MATCH (n) RETURN max(*)", ErrInvalidUsageOfStarParameter},
		{"MATCH (n) RETURN count(DISTINCT *)", ErrInvalidUsageOfDistinctStar},
		{"RETURN reduce(s = 0, x IN [1, 2])", ErrMissingEvalExpInReduce},

		// procedures
		{"CALL no.such.proc()", ErrProcedureNotRegistered},
		{"CALL db.labels(1)", ErrProcedureInvalidArguments},
		{"CALL db.labels() YIELD label, label", ErrVariableAlreadyDeclared},
		{"CALL db.labels() YIELD wrong", ErrProcedureInvalidOutput},

		// unions and subqueries
		{"MATCH (a) RETURN a UNION MATCH (b) RETURN b", ErrUnionMismatchedReturns},
		{"MATCH (a) RETURN a UNION MATCH (a) CREATE (b)", ErrUnionMissingReturns},
		{"MATCH (a) RETURN a UNION MATCH (a) RETURN a UNION ALL MATCH (a) RETURN a", ErrUnionCombination},
		{"WITH 1 AS a CALL { WITH a + 1 AS b RETURN b } RETURN b", ErrCallSubqueryInvalidReferences},
		{"WITH 1 AS a CALL { WITH a ORDER BY a RETURN a AS b } RETURN b", ErrCallSubqueryInvalidReferences},
		{"MATCH (n) CALL { RETURN 1 AS n } RETURN n", ErrVariableAlreadyDeclaredInOuterScope},

		// unsupported constructs
		{"START n=node(0) RETURN n", ErrUnsupportedASTNodeType},
		{"MATCH (n) WHERE n.name =~ 'A.*' RETURN n", ErrUnsupportedOperator},
		{"MATCH (n) RETURN n{.name}", ErrUnsupportedOperator},
		{"CREATE CONSTRAINT ON (n:L) ASSERT n.v IS UNIQUE", ErrInvalidConstraintCommand},
		{"USING PERIODIC COMMIT LOAD CSV FROM 'file' AS row RETURN row", ErrUnsupportedASTNodeType},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			code := compileErr(t, tc.query)
			if code != tc.code {
				t.Errorf("CompileQuery(%q) error code = %d, want %d", tc.query, code, tc.code)
			}
		})
	}
}

// Bindings visible after FOREACH equal those visible before it.
func TestValidate_ForeachScopeIsolation(t *testing.T) {
	if code := compileErr(t, "MATCH (a) FOREACH (x IN [1] | CREATE (:N {v: x})) RETURN x"); code != ErrNotDefined {
		t.Errorf("loop variable leaked out of FOREACH, error code = %d", code)
	}
	compileOK(t, "MATCH (a) FOREACH (x IN [1] | CREATE (:N {v: x})) RETURN a").AST.Free()
}

// After CALL {subq}, the outer scope holds its prior bindings plus the
// subquery's returned aliases, and nothing bound strictly inside it.
func TestValidate_SubqueryBoundary(t *testing.T) {
	compileOK(t, "MATCH (m) CALL { MATCH (n)-[r:R]->() RETURN n } RETURN m, n").AST.Free()

	if code := compileErr(t, "MATCH (m) CALL { MATCH (n)-[r:R]->() RETURN n } RETURN m, r"); code != ErrNotDefined {
		t.Errorf("inner-only binding visible after subquery, error code = %d", code)
	}
}

// Comprehension locals disappear after the comprehension.
func TestValidate_ComprehensionScopeIsolation(t *testing.T) {
	if code := compileErr(t, "MATCH (n) RETURN [x IN [1, 2] | x], x"); code != ErrNotDefined {
		t.Errorf("comprehension local leaked, error code = %d", code)
	}
	// an already-bound name is not removed by the comprehension
	compileOK(t, "UNWIND [1] AS x MATCH (n) RETURN [x IN [1, 2] | x], x").AST.Free()
}

func TestValidate_UnionFlavorPerScope(t *testing.T) {
	// UNION flavour inside a subquery is independent of the outer scope
	query := "MATCH (m) CALL { MATCH (a) RETURN a UNION ALL MATCH (a) RETURN a } " +
		"RETURN m, a UNION MATCH (m) CALL { MATCH (a) RETURN a } RETURN m, a"
	compileOK(t, query).AST.Free()
}

func TestValidate_WithOpensFreshScope(t *testing.T) {
	if code := compileErr(t, "MATCH (a), (b) WITH a RETURN b"); code != ErrNotDefined {
		t.Errorf("WITH did not discard old bindings, error code = %d", code)
	}
	compileOK(t, "MATCH (a), (b) WITH * RETURN a, b").AST.Free()
}
