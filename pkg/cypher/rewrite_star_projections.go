package cypher

// Expansion of '*' projections:
//
//	MATCH (a), (b) RETURN *
//
// becomes
//
//	MATCH (a), (b) RETURN a, b
//
// Identifiers expand in source order of first binding, so the rewrite is
// deterministic and idempotent.

// scopeTracker keeps the ordered set of aliases bound at the current point
// of the clause list.
type scopeTracker struct {
	order []string
	seen  map[string]struct{}
}

func newScopeTracker() *scopeTracker {
	return &scopeTracker{seen: make(map[string]struct{})}
}

func (s *scopeTracker) add(alias string) {
	if alias == "" || alias[0] == '@' {
		return
	}
	if _, ok := s.seen[alias]; ok {
		return
	}
	s.seen[alias] = struct{}{}
	s.order = append(s.order, alias)
}

func (s *scopeTracker) reset() {
	s.order = nil
	s.seen = make(map[string]struct{})
}

// RewriteStarProjections expands WITH */RETURN * into explicit projection
// lists, recursing into subqueries. It reports whether anything changed.
func RewriteStarProjections(root Node) bool {
	query, ok := root.(*Query)
	if !ok {
		return false
	}
	return rewriteStarIn(query, newScopeTracker())
}

func rewriteStarIn(query *Query, scope *scopeTracker) bool {
	rewritten := false

	for _, clause := range query.Clauses {
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
		case *CallSubquery:
			rewritten = rewriteStarIn(c.Query, newScopeTracker()) || rewritten
			for _, alias := range subqueryReturnAliases(c.Query) {
				scope.add(alias)
			}
		case *With:
			if c.IncludeExisting {
				if len(scope.order) > 0 {
					expandStar(c.projectionSlot(), scope)
					c.IncludeExisting = false
					rewritten = true
				}
				for _, proj := range c.Projections {
					if proj.Alias != nil {
						scope.add(proj.Alias.Name)
					}
				}
			} else {
				// a projecting WITH opens a fresh scope
				aliases := projectionAliases(c.Projections)
				scope.reset()
				for _, alias := range aliases {
					scope.add(alias)
				}
			}
		case *Return:
			if c.IncludeExisting && len(scope.order) > 0 {
				expandStar(c.projectionSlot(), scope)
				c.IncludeExisting = false
				rewritten = true
			}
		case *Union:
			scope.reset()
		}
	}
	return rewritten
}

// projectionSlot gives the rewriters access to the projection list of a
// WITH/RETURN clause.
func (w *With) projectionSlot() *[]*Projection   { return &w.Projections }
func (r *Return) projectionSlot() *[]*Projection { return &r.Projections }

// expandStar prepends one identifier projection per in-scope alias.
func expandStar(slot *[]*Projection, scope *scopeTracker) {
	expanded := make([]*Projection, 0, len(scope.order)+len(*slot))
	for _, alias := range scope.order {
		expanded = append(expanded, &Projection{
			Expr: &Identifier{Name: alias},
		})
	}
	*slot = append(expanded, *slot...)
}

func projectionAliases(projections []*Projection) []string {
	var aliases []string
	for _, proj := range projections {
		if proj.Alias != nil {
			aliases = append(aliases, proj.Alias.Name)
		} else if id, ok := proj.Expr.(*Identifier); ok {
			aliases = append(aliases, id.Name)
		}
	}
	return aliases
}

// bindPatternAliases adds the entity aliases of a pattern: node and
// relationship identifiers plus named-path variables.
func bindPatternAliases(scope *scopeTracker, pattern *Pattern) {
	for _, path := range pattern.Paths {
		bindPathAliases(scope, path)
	}
}

func bindPathAliases(scope *scopeTracker, path Node) {
	switch p := path.(type) {
	case *NamedPath:
		scope.add(p.Identifier.Name)
		bindPathAliases(scope, p.Path)
	case *ShortestPath:
		bindPathAliases(scope, p.Path)
	case *PatternPath:
		for i, element := range p.Elements {
			if i%2 == 0 {
				if id := element.(*NodePattern).Identifier; id != nil {
					scope.add(id.Name)
				}
			} else {
				if id := element.(*RelPattern).Identifier; id != nil {
					scope.add(id.Name)
				}
			}
		}
	}
}

// subqueryReturnAliases returns the user-visible aliases a returning
// subquery projects into the outer scope.
func subqueryReturnAliases(query *Query) []string {
	if len(query.Clauses) == 0 {
		return nil
	}
	ret, ok := query.Clauses[len(query.Clauses)-1].(*Return)
	if !ok {
		return nil
	}
	var aliases []string
	for _, proj := range ret.Projections {
		if proj.Alias != nil {
			aliases = append(aliases, proj.Alias.Name)
		} else if id, ok := proj.Expr.(*Identifier); ok {
			aliases = append(aliases, id.Name)
		}
	}
	return aliases
}
