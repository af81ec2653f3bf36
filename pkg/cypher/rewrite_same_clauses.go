package cypher

// Coalescing of adjacent same-kind clauses:
//
//	MATCH (a:N) MATCH (b:M) RETURN a, b
//
// becomes
//
//	MATCH (a:N), (b:M) RETURN a, b
//
// The transformation is purely structural; re-validation runs afterwards
// when anything changed.

// RewriteSameClauses merges mergeable adjacent clauses of the query body in
// place, including inside FOREACH bodies and CALL {} subqueries. It reports
// whether anything was rewritten.
func RewriteSameClauses(root Node) bool {
	query, ok := root.(*Query)
	if !ok {
		return false
	}
	return rewriteSameClausesIn(query)
}

func rewriteSameClausesIn(query *Query) bool {
	rewritten := false

	for _, clause := range query.Clauses {
		switch c := clause.(type) {
		case *CallSubquery:
			rewritten = rewriteSameClausesIn(c.Query) || rewritten
		case *Foreach:
			rewritten = rewriteSameClausesInForeach(c) || rewritten
		}
	}

	i := 0
	for i < len(query.Clauses)-1 {
		if mergeClausePair(query.Clauses[i], query.Clauses[i+1]) {
			query.Clauses = append(query.Clauses[:i+1], query.Clauses[i+2:]...)
			rewritten = true
			continue // the merged clause may absorb its new neighbour too
		}
		i++
	}
	return rewritten
}

func rewriteSameClausesInForeach(f *Foreach) bool {
	rewritten := false
	i := 0
	for i < len(f.Clauses)-1 {
		if mergeClausePair(f.Clauses[i], f.Clauses[i+1]) {
			f.Clauses = append(f.Clauses[:i+1], f.Clauses[i+2:]...)
			rewritten = true
			continue
		}
		i++
	}
	return rewritten
}

// mergeClausePair merges next into prev when the two are adjacent
// same-kind pattern clauses, reporting success. Only MATCH and CREATE
// qualify: the merge mechanism is appending the second clause's pattern
// paths to the first, and non-pattern clauses (SET, DELETE, REMOVE) have
// sequential evaluation semantics a combined clause would not preserve.
func mergeClausePair(prev, next Node) bool {
	switch a := prev.(type) {
	case *Match:
		b, ok := next.(*Match)
		// OPTIONAL MATCH keeps its own semantics and predicates anchor to
		// their own clause
		if !ok || a.Optional || b.Optional || a.Predicate != nil || b.Predicate != nil ||
			len(a.Hints) > 0 || len(b.Hints) > 0 {
			return false
		}
		a.Pattern.Paths = append(a.Pattern.Paths, b.Pattern.Paths...)
		return true
	case *Create:
		b, ok := next.(*Create)
		if !ok {
			return false
		}
		a.Pattern.Paths = append(a.Pattern.Paths, b.Pattern.Paths...)
		return true
	}
	return false
}
