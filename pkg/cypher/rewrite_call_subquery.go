package cypher

// Rewriting of returning CALL {} subqueries so that outer-scope variables
// survive the subquery boundary:
//
//	MATCH (m) CALL { CREATE (n:N) RETURN n } RETURN n, m
//
// becomes
//
//	MATCH (m) CALL { WITH m AS @m CREATE (n:N) RETURN n, @m AS m } RETURN n, m
//
// Every outer identifier referenced after the subquery is imported under an
// internal '@'-prefixed alias, threaded through intermediate projections,
// and re-projected from the terminal RETURN under its user name. The '@'
// prefix is reserved for these internal names, so they are exempt from
// duplicate-column and import-list checks.

// RewriteCallSubquery rewrites every returning CALL {} clause of the query
// body, innermost first, reporting whether anything changed.
func RewriteCallSubquery(root Node) bool {
	query, ok := root.(*Query)
	if !ok {
		return false
	}
	return rewriteCallSubqueriesIn(query)
}

func rewriteCallSubqueriesIn(query *Query) bool {
	rewritten := false
	scope := newScopeTracker()

	for i, clause := range query.Clauses {
		sub, isSub := clause.(*CallSubquery)
		if !isSub {
			bindClauseAliases(scope, clause)
			continue
		}

		// nested subqueries first
		rewritten = rewriteCallSubqueriesIn(sub.Query) || rewritten

		if !subqueryReturns(sub.Query) {
			continue
		}

		// identifiers bound before the subquery and referenced after it
		// must be carried through; aliases already imported by an earlier
		// run are skipped, keeping the rewrite idempotent
		preserve := identifiersUsedAfter(query.Clauses[i+1:], scope)
		preserve = dropImported(sub.Query, preserve)
		if len(preserve) > 0 {
			rewriteReturningSubquery(sub.Query, preserve)
			rewritten = true
		}

		// the subquery's own outputs become importable for later clauses
		bindSubqueryAliases(scope, sub)
	}
	return rewritten
}

// bindSubqueryAliases feeds a returning subquery's projected aliases into
// the scope tracker so a later subquery can import them.
func bindSubqueryAliases(scope *scopeTracker, sub *CallSubquery) {
	for _, alias := range subqueryReturnAliases(sub.Query) {
		scope.add(alias)
	}
}

// bindClauseAliases feeds a clause's bindings into the scope tracker.
func bindClauseAliases(scope *scopeTracker, clause Node) {
	switch c := clause.(type) {
	case *Match:
		bindPatternAliases(scope, c.Pattern)
	case *Create:
		bindPatternAliases(scope, c.Pattern)
	case *Merge:
		bindPathAliases(scope, c.Path)
	case *Unwind:
		scope.add(c.Alias.Name)
	case *LoadCSV:
		scope.add(c.Alias.Name)
	case *Call:
		for _, proj := range c.Projections {
			if proj.Alias != nil {
				scope.add(proj.Alias.Name)
			} else if id, ok := proj.Expr.(*Identifier); ok {
				scope.add(id.Name)
			}
		}
	case *With:
		if !c.IncludeExisting {
			aliases := projectionAliases(c.Projections)
			scope.reset()
			for _, alias := range aliases {
				scope.add(alias)
			}
		} else {
			for _, proj := range c.Projections {
				if proj.Alias != nil {
					scope.add(proj.Alias.Name)
				}
			}
		}
	case *Union:
		scope.reset()
	}
}

// identifiersUsedAfter returns the in-scope aliases referenced by any of
// the given clauses, in binding order.
func identifiersUsedAfter(clauses []Node, scope *scopeTracker) []string {
	referenced := make(map[string]struct{})
	for _, clause := range clauses {
		for _, n := range GetTypedNodes(clause, KindIdentifier) {
			referenced[n.(*Identifier).Name] = struct{}{}
		}
	}

	var preserve []string
	for _, alias := range scope.order {
		if _, ok := referenced[alias]; ok {
			preserve = append(preserve, alias)
		}
	}
	return preserve
}

// dropImported removes aliases the subquery's terminal RETURN already
// re-projects from an internal name.
func dropImported(query *Query, preserve []string) []string {
	ret, ok := query.Clauses[len(query.Clauses)-1].(*Return)
	if !ok {
		return preserve
	}
	imported := make(map[string]struct{})
	for _, proj := range ret.Projections {
		if proj.Alias == nil {
			continue
		}
		if id, ok := proj.Expr.(*Identifier); ok && len(id.Name) > 0 && id.Name[0] == '@' {
			imported[proj.Alias.Name] = struct{}{}
		}
	}
	var remaining []string
	for _, alias := range preserve {
		if _, ok := imported[alias]; !ok {
			remaining = append(remaining, alias)
		}
	}
	return remaining
}

// subqueryReturns reports whether the subquery body ends in a RETURN.
func subqueryReturns(query *Query) bool {
	if len(query.Clauses) == 0 {
		return false
	}
	return query.Clauses[len(query.Clauses)-1].Kind() == KindReturn
}

// rewriteReturningSubquery threads the preserved aliases through every
// branch of the subquery under internal names.
func rewriteReturningSubquery(query *Query, preserve []string) {
	// process each UNION branch independently
	branchStart := 0
	var clauses []Node
	flush := func(end int) {
		branch := query.Clauses[branchStart:end]
		clauses = append(clauses, rewriteSubqueryBranch(branch, preserve)...)
	}
	for i, clause := range query.Clauses {
		if clause.Kind() == KindUnion {
			flush(i)
			clauses = append(clauses, clause)
			branchStart = i + 1
		}
	}
	flush(len(query.Clauses))
	query.Clauses = clauses
}

// rewriteSubqueryBranch imports the preserved aliases at the top of the
// branch, keeps them alive through intermediate WITH clauses, and
// re-projects them from the terminal RETURN.
func rewriteSubqueryBranch(branch []Node, preserve []string) []Node {
	internal := func(alias string) string { return "@" + alias }

	// leading import list: extend an existing WITH or prepend a new one
	var out []Node
	if len(branch) > 0 {
		if w, ok := branch[0].(*With); ok {
			for _, alias := range preserve {
				w.Projections = append(w.Projections, importProjection(alias, internal(alias)))
			}
			out = append(out, branch[0])
			branch = branch[1:]
		} else {
			lead := &With{}
			for _, alias := range preserve {
				lead.Projections = append(lead.Projections, importProjection(alias, internal(alias)))
			}
			out = append(out, lead)
		}
	}

	for i, clause := range branch {
		isLast := i == len(branch)-1
		switch c := clause.(type) {
		case *With:
			// keep the internal names flowing through intermediate scopes
			if !c.IncludeExisting {
				for _, alias := range preserve {
					c.Projections = append(c.Projections, importProjection(internal(alias), internal(alias)))
				}
			}
		case *Return:
			if isLast {
				for _, alias := range preserve {
					c.Projections = append(c.Projections, importProjection(internal(alias), alias))
				}
			}
		}
		out = append(out, clause)
	}
	return out
}

// importProjection builds the artificial projection `name AS alias`.
func importProjection(name, alias string) *Projection {
	return &Projection{
		Expr:  &Identifier{Name: name},
		Alias: &Identifier{Name: alias},
	}
}
