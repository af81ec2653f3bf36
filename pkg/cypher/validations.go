package cypher

// Semantic validation: a strategy-returning visitor enforcing scoping,
// clause ordering, procedure conformance, union compatibility and
// construct-specific rules over a parsed (and possibly rewritten) query.

// identKind is the typing hint attached to a bound identifier.
type identKind int

const (
	identAny identKind = iota // projections, paths, procedure outputs
	identNode
	identEdge
	identScalar // UNWIND/FOREACH loop variables; may not rebind as an entity
)

// unionFlavor tracks which UNION variant a query scope committed to.
type unionFlavor int

const (
	unionNotDefined unionFlavor = iota
	unionRegular
	unionAll
)

// validationCtx is the mutable environment of one validation walk. A fresh
// context is created per walk; subquery and UNION scopes inside the query
// swap its identifier map. Nothing is shared between queries.
type validationCtx struct {
	definedIdentifiers map[string]identKind
	clause             NodeKind    // enclosing top-level clause kind
	unionAll           unionFlavor // union flavour for the current scope
	ignoreIdentifiers  bool        // suppress reference checks after an inner RETURN *

	ast    *AST
	procs  *ProcedureRegistry
	errCtx *ErrorCtx
}

func (vctx *validationCtx) find(identifier string) (identKind, bool) {
	k, ok := vctx.definedIdentifiers[identifier]
	return k, ok
}

// add introduces an identifier, overwriting any previous binding. It
// reports whether the identifier was new.
func (vctx *validationCtx) add(identifier string, kind identKind) bool {
	_, existed := vctx.definedIdentifiers[identifier]
	vctx.definedIdentifiers[identifier] = kind
	return !existed
}

func (vctx *validationCtx) remove(identifier string) {
	delete(vctx.definedIdentifiers, identifier)
}

func (vctx *validationCtx) count() int {
	return len(vctx.definedIdentifiers)
}

func cloneEnv(env map[string]identKind) map[string]identKind {
	cp := make(map[string]identKind, len(env))
	for k, v := range env {
		cp[k] = v
	}
	return cp
}

// ----------------------------------------------------------------------------
// expression handlers
// ----------------------------------------------------------------------------

// validateIdentifier checks that a referenced identifier is bound.
func validateIdentifier(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start || vctx.ignoreIdentifiers {
		return VisitContinue
	}

	name := n.(*Identifier).Name
	if _, ok := vctx.find(name); !ok {
		vctx.errCtx.SetError(ErrNotDefined, msgNotDefined, name)
		return VisitBreak
	}
	return VisitRecurse
}

// validateMap visits only the values of a map; keys are property names, not
// references.
func validateMap(n Node, start bool, v *Visitor) Strategy {
	m := n.(*MapLiteral)
	for _, val := range m.Values {
		if !v.VisitNode(val) {
			return VisitBreak
		}
	}
	return VisitContinue
}

// validateProjection visits only the projected expression; the alias is a
// binding occurrence handled by the enclosing clause.
func validateProjection(n Node, start bool, v *Visitor) Strategy {
	proj := n.(*Projection)
	if !v.VisitNode(proj.Expr) {
		return VisitBreak
	}
	return VisitContinue
}

// validateFunctionCall checks function existence and aggregation placement.
func validateFunctionCall(vctx *validationCtx, funcName string, includeAggregates bool) bool {
	if !FuncExists(funcName) {
		vctx.errCtx.SetError(ErrUnknownFunction, msgUnknownFunction, funcName)
		return false
	}
	if !includeAggregates && FuncIsAggregate(funcName) {
		vctx.errCtx.SetError(ErrInvalidUseOfAggregation, msgInvalidAggregation, funcName)
		return false
	}
	return true
}

func validateApplyOperator(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	includeAggregates := vctx.clause == KindWith || vctx.clause == KindReturn
	if !validateFunctionCall(vctx, n.(*ApplyOperator).FuncName, includeAggregates) {
		return VisitBreak
	}
	return VisitRecurse
}

// validateApplyAllOperator restricts f(*) to COUNT(*) without DISTINCT.
func validateApplyAllOperator(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	apply := n.(*ApplyAllOperator)
	if !equalsFold(apply.FuncName, "COUNT") {
		vctx.errCtx.SetError(ErrInvalidUsageOfStarParameter, msgInvalidStarParameter)
		return VisitBreak
	}
	if apply.Distinct {
		vctx.errCtx.SetError(ErrInvalidUsageOfDistinctStar, msgInvalidDistinctStar)
		return VisitBreak
	}
	return VisitRecurse
}

func equalsFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// validateReduce checks reduce(acc = init, x IN list | eval): the init and
// list expressions resolve in the outer scope, the accumulator and loop
// variable are bound only for the eval expression, and aggregations are
// forbidden throughout.
func validateReduce(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	r := n.(*Reduce)

	origClause := vctx.clause
	// aggregations are invalid inside reduce regardless of enclosing clause
	vctx.clause = KindReduce

	// the init expression must be a known variable or a valid expression
	if id, ok := r.Init.(*Identifier); ok {
		if _, bound := vctx.find(id.Name); !bound {
			vctx.errCtx.SetError(ErrNotDefined, msgNotDefined, id.Name)
			return VisitBreak
		}
	} else if !v.VisitNode(r.Init) {
		return VisitBreak
	}

	// the list expression must be a list or an alias of an existing one
	if id, ok := r.Expr.(*Identifier); ok {
		if _, bound := vctx.find(id.Name); !bound {
			vctx.errCtx.SetError(ErrNotDefined, msgNotDefined, id.Name)
			return VisitBreak
		}
	}
	if !v.VisitNode(r.Expr) {
		return VisitBreak
	}

	if r.Eval == nil {
		vctx.errCtx.SetError(ErrMissingEvalExpInReduce, msgMissingEvalExpReduce)
		return VisitBreak
	}

	// bind the accumulator and loop variable for the eval expression only
	_, accBound := vctx.find(r.Accumulator.Name)
	if !accBound {
		vctx.add(r.Accumulator.Name, identAny)
	}
	_, loopBound := vctx.find(r.Identifier.Name)
	if !loopBound {
		vctx.add(r.Identifier.Name, identAny)
	}

	if !v.VisitNode(r.Eval) {
		return VisitBreak
	}

	vctx.clause = origClause

	if !accBound {
		vctx.remove(r.Accumulator.Name)
	}
	if !loopBound {
		vctx.remove(r.Identifier.Name)
	}
	return VisitContinue
}

// validateListComprehension handles [x IN list WHERE pred | eval] and the
// filter predicates any/all/none/single, which share its shape. The loop
// variable is local to the comprehension.
func validateListComprehension(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	lc := n.(*ListComprehension)

	name := lc.Identifier.Name
	_, bound := vctx.find(name)
	if !bound {
		vctx.add(name, identAny)
	}

	if lc.Expr != nil && !v.VisitNode(lc.Expr) {
		return VisitBreak
	}
	if lc.Predicate != nil && !v.VisitNode(lc.Predicate) {
		return VisitBreak
	}
	if lc.Eval != nil && !v.VisitNode(lc.Eval) {
		return VisitBreak
	}

	if !bound {
		vctx.remove(name)
	}
	return VisitContinue
}

// validatePatternComprehension is validateListComprehension for
// [p = (a)-->(b) WHERE pred | eval]; the path variable is optional.
func validatePatternComprehension(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	pc := n.(*PatternComprehension)

	introduced := false
	var name string
	if pc.Identifier != nil {
		name = pc.Identifier.Name
		_, bound := vctx.find(name)
		introduced = !bound
	}
	if introduced {
		vctx.add(name, identAny)
	}

	if pc.Pattern != nil && !v.VisitNode(pc.Pattern) {
		return VisitBreak
	}
	if pc.Predicate != nil && !v.VisitNode(pc.Predicate) {
		return VisitBreak
	}
	if pc.Eval != nil && !v.VisitNode(pc.Eval) {
		return VisitBreak
	}

	if introduced {
		vctx.remove(name)
	}
	return VisitContinue
}

// validateBinaryOperator rejects the operators the engine does not support.
func validateBinaryOperator(n Node, start bool, v *Visitor) Strategy {
	op := n.(*BinaryOperator).Op
	if op == OpRegex || op == OpMapProjection {
		v.ctx.errCtx.SetError(ErrUnsupportedOperator, msgUnsupportedOperator, op.String())
		return VisitBreak
	}
	return VisitRecurse
}

// visitBreak rejects an unsupported construct outright.
func visitBreak(n Node, start bool, v *Visitor) Strategy {
	v.ctx.errCtx.SetError(ErrUnsupportedASTNodeType, msgUnsupportedASTNodeType, n.Kind().String())
	return VisitBreak
}

// ----------------------------------------------------------------------------
// pattern handlers
// ----------------------------------------------------------------------------

// validateInlinedProperties verifies the inline property container of a
// pattern element is a plain map free of nested patterns.
func validateInlinedProperties(vctx *validationCtx, props Node) bool {
	if props == nil {
		return true
	}
	if props.Kind() == KindParameter {
		return true
	}
	m, ok := props.(*MapLiteral)
	if !ok {
		vctx.errCtx.SetError(ErrUnhandledTypeInlineProperties, msgUnhandledTypeInlineProp)
		return false
	}
	for _, val := range m.Values {
		if len(GetTypedNodes(val, KindPatternPath)) > 0 {
			// MATCH (a {prop: ()-[]->()}) RETURN a
			vctx.errCtx.SetError(ErrUnhandledTypeInlineProperties, msgUnhandledTypeInlineProp)
			return false
		}
	}
	return true
}

// validateMultiHopTraversal checks a variable-length range is well formed.
func validateMultiHopTraversal(vctx *validationCtx, rng *Range) bool {
	start := int64(1)
	end := int64(int64(^uint64(0)>>1) - 2)
	if rng.Start != nil {
		start = rng.Start.Value()
	}
	if rng.End != nil {
		end = rng.End.Value()
	}
	if start > end {
		vctx.errCtx.SetError(ErrVarLenInvalidRange, msgVarLenInvalidRange)
		return false
	}
	return true
}

// validateMergeRelation verifies a MERGE relation has exactly one type, no
// variable length, and does not redeclare a bound variable.
func validateMergeRelation(vctx *validationCtx, rel *RelPattern) bool {
	if rel.VarLength != nil {
		vctx.errCtx.SetError(ErrVarLen, msgVarLen, "MERGE")
		return false
	}
	if rel.Identifier != nil {
		if _, bound := vctx.find(rel.Identifier.Name); bound {
			vctx.errCtx.SetError(ErrRedeclare, msgRedeclare, "variable", rel.Identifier.Name, "MERGE")
			return false
		}
	}
	if len(rel.Types) != 1 {
		vctx.errCtx.SetError(ErrOneRelationshipType, msgOneRelationshipType, "MERGE")
		return false
	}
	// the direction of a MERGE edge needs no validation: an undirected edge
	// results in a single outgoing edge being created
	return true
}

// validateMergeNode verifies MERGE does not attach labels or properties to
// an already-bound node.
func validateMergeNode(vctx *validationCtx, node *NodePattern) bool {
	if vctx.count() == 0 || node.Identifier == nil {
		return true
	}
	alias := node.Identifier.Name
	if _, bound := vctx.find(alias); !bound {
		return true
	}
	if len(node.Labels) > 0 || node.Properties != nil {
		vctx.errCtx.SetError(ErrRedeclare, msgRedeclare, "node", alias, "MERGE")
		return false
	}
	return true
}

// validateCreateRelation verifies the relation alias of a CREATE edge is
// not already bound.
func validateCreateRelation(vctx *validationCtx, rel *RelPattern) bool {
	if rel.Identifier != nil {
		if _, bound := vctx.find(rel.Identifier.Name); bound {
			vctx.errCtx.SetError(ErrRedeclare, msgRedeclare, "variable", rel.Identifier.Name, "CREATE")
			return false
		}
	}
	return true
}

func validateRelPattern(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	rel := n.(*RelPattern)

	if vctx.clause == KindCreate {
		if !validateCreateRelation(vctx, rel) {
			return VisitBreak
		}
		if len(rel.Types) != 1 {
			vctx.errCtx.SetError(ErrOneRelationshipType, msgOneRelationshipType, "CREATE")
			return VisitBreak
		}
		if rel.Direction == DirBidirectional {
			vctx.errCtx.SetError(ErrCreateDirectedRelationship, msgCreateDirectedRel)
			return VisitBreak
		}
		if rel.VarLength != nil {
			vctx.errCtx.SetError(ErrVarLen, msgVarLen, "CREATE")
			return VisitBreak
		}
	}

	if !validateInlinedProperties(vctx, rel.Properties) {
		return VisitBreak
	}

	if vctx.clause == KindMerge && !validateMergeRelation(vctx, rel) {
		return VisitBreak
	}

	if rel.Identifier == nil && rel.VarLength == nil {
		return VisitRecurse // skip unaliased, single-hop entities
	}

	if rel.VarLength != nil && !validateMultiHopTraversal(vctx, rel.VarLength) {
		return VisitBreak
	}

	if rel.Identifier != nil {
		alias := rel.Identifier.Name
		kind, bound := vctx.find(alias)
		if !bound {
			vctx.add(alias, identEdge)
			return VisitRecurse
		}
		if kind == identScalar {
			vctx.errCtx.SetError(ErrVariableAlreadyDeclared, msgVariableAlreadyDeclared, alias)
			return VisitBreak
		}
		if kind != identEdge && kind != identAny {
			vctx.errCtx.SetError(ErrSameAliasNodeAndRelationship, msgSameAliasNodeRelationship, alias)
			return VisitBreak
		}
		if vctx.clause == KindMatch && kind != identAny {
			vctx.errCtx.SetError(ErrSameAliasMultiplePatterns, msgSameAliasMultiplePatterns, alias)
			return VisitBreak
		}
	}
	return VisitRecurse
}

func validateNodePattern(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	node := n.(*NodePattern)

	if !validateInlinedProperties(vctx, node.Properties) {
		return VisitBreak
	}
	if node.Identifier == nil {
		return VisitRecurse
	}

	alias := node.Identifier.Name
	if vctx.clause == KindMerge {
		if !validateMergeNode(vctx, node) {
			return VisitBreak
		}
	} else {
		kind, bound := vctx.find(alias)
		if bound && kind == identScalar {
			// a loop variable cannot be rebound as a graph entity
			vctx.errCtx.SetError(ErrVariableAlreadyDeclared, msgVariableAlreadyDeclared, alias)
			return VisitBreak
		}
		if bound && kind != identAny && kind != identNode {
			vctx.errCtx.SetError(ErrSameAliasNodeAndRelationship, msgSameAliasNodeRelationship, alias)
			return VisitBreak
		}
	}
	vctx.add(alias, identNode)
	return VisitRecurse
}

// validateShortestPathExpr checks shortestPath endpoints are bound and
// allShortestPaths ranges start at 1.
func validateShortestPathExpr(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	sp := n.(*ShortestPath)

	if sp.Single {
		elements := sp.Path.Elements
		first, _ := elements[0].(*NodePattern)
		last, _ := elements[len(elements)-1].(*NodePattern)
		if first == nil || last == nil || first.Identifier == nil || last.Identifier == nil {
			vctx.errCtx.SetError(ErrShortestPathBoundNodes, msgShortestPathBoundNodes)
			return VisitBreak
		}
		_, startBound := vctx.find(first.Identifier.Name)
		_, endBound := vctx.find(last.Identifier.Name)
		if !startBound || !endBound {
			vctx.errCtx.SetError(ErrShortestPathBoundNodes, msgShortestPathBoundNodes)
			return VisitBreak
		}
		return VisitRecurse
	}

	// MATCH (a), (b), p = allShortestPaths((a)-[*2..]->(b)) RETURN p
	// the minimum number of hops must be exactly 1
	for _, rn := range GetTypedNodes(sp, KindRange) {
		rng := rn.(*Range)
		minHops := int64(1)
		if rng.Start != nil {
			minHops = rng.Start.Value()
		}
		if minHops != 1 {
			vctx.errCtx.SetError(ErrAllShortestPathMinimalLength, msgAllShortestPathMinLen)
			return VisitBreak
		}
	}
	return VisitRecurse
}

// validateNamedPath introduces the path alias.
func validateNamedPath(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	vctx.add(n.(*NamedPath).Identifier.Name, identAny)
	return VisitRecurse
}

// ----------------------------------------------------------------------------
// clause handlers
// ----------------------------------------------------------------------------

// validateLimitSkip checks LIMIT/SKIP are integer literals or parameters.
// Value validation happens at run time.
func validateLimitSkip(vctx *validationCtx, limit, skip Node) bool {
	if limit != nil && limit.Kind() != KindInteger && limit.Kind() != KindParameter {
		vctx.errCtx.SetError(ErrLimitMustBeNonNegative, msgLimitMustBeNonNegative)
		return false
	}
	if skip != nil && skip.Kind() != KindInteger && skip.Kind() != KindParameter {
		vctx.errCtx.SetError(ErrSkipMustBeNonNegative, msgSkipMustBeNonNegative)
		return false
	}
	return true
}

// withAliases introduces the aliases of a WITH clause and checks for
// duplicate column names, excepting internal '@'-prefixed projections.
func withAliases(vctx *validationCtx, w *With) bool {
	local := make(map[string]struct{}, len(w.Projections))
	for _, proj := range w.Projections {
		var alias string
		if proj.Alias != nil {
			alias = proj.Alias.Name
		} else {
			id, ok := proj.Expr.(*Identifier)
			if !ok {
				vctx.errCtx.SetError(ErrWithProjectionMissingAlias, msgWithProjMissingAlias)
				return false
			}
			alias = id.Name
		}
		vctx.add(alias, identAny)

		if _, dup := local[alias]; dup && alias[0] != '@' {
			vctx.errCtx.SetError(ErrSameResultColumnName, msgSameResultColumnName)
			return false
		}
		local[alias] = struct{}{}
	}
	return true
}

func validateWithClause(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	w := n.(*With)
	vctx.clause = KindWith

	if !validateLimitSkip(vctx, w.Limit, w.Skip) {
		return VisitBreak
	}

	// traverse manually: the predicate and ORDER BY see the projected
	// aliases, the projections themselves do not
	for _, proj := range w.Projections {
		if !v.VisitNode(proj) {
			return VisitBreak
		}
	}

	if !withAliases(vctx, w) {
		return VisitBreak
	}

	if w.Predicate != nil && !v.VisitNode(w.Predicate) {
		return VisitBreak
	}
	if w.OrderBy != nil && !v.VisitNode(w.OrderBy) {
		return VisitBreak
	}

	// WITH * proceeds with the current environment; otherwise only the new
	// column names survive
	if !w.IncludeExisting {
		vctx.definedIdentifiers = make(map[string]identKind)
		for _, proj := range w.Projections {
			if proj.Alias != nil {
				vctx.add(proj.Alias.Name, identAny)
			} else if id, ok := proj.Expr.(*Identifier); ok {
				vctx.add(id.Name, identAny)
			}
		}
	}
	return VisitContinue
}

func validateReturnClause(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	ret := n.(*Return)
	vctx.clause = KindReturn

	if !validateLimitSkip(vctx, ret.Limit, ret.Skip) {
		return VisitBreak
	}

	if !ret.IncludeExisting {
		// check for duplicate column names
		seen := make(map[string]struct{}, len(ret.Projections))
		for _, column := range vctx.ast.BuildReturnColumnNames(ret) {
			if _, dup := seen[column]; dup {
				vctx.errCtx.SetError(ErrSameResultColumnName, msgSameResultColumnName)
				return VisitBreak
			}
			seen[column] = struct{}{}
		}
	}

	// projections are validated against the incoming environment; ORDER BY
	// additionally sees the projected aliases
	for _, proj := range ret.Projections {
		if !v.VisitNode(proj) {
			return VisitBreak
		}
	}
	for _, proj := range ret.Projections {
		if proj.Alias != nil {
			vctx.add(proj.Alias.Name, identAny)
		}
	}
	if ret.OrderBy != nil && !v.VisitNode(ret.OrderBy) {
		return VisitBreak
	}
	return VisitContinue
}

func validateDeleteClause(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	vctx.clause = KindDelete
	for _, expr := range n.(*Delete).Exprs {
		switch expr.Kind() {
		case KindIdentifier, KindApplyOperator, KindApplyAllOperator, KindSubscriptOperator:
			// identifiers and calls that don't resolve to a node, path or
			// edge raise an error at run time
		default:
			vctx.errCtx.SetError(ErrDeleteInvalidArguments, msgDeleteInvalidArguments)
			return VisitBreak
		}
	}
	return VisitRecurse
}

func validateRemoveClause(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	vctx.clause = KindRemove

	// each attribute removal must be of the form identifier.property
	for _, item := range n.(*Remove).Items {
		if rp, ok := item.(*RemoveProperty); ok {
			if rp.Property.Expr == nil || rp.Property.Expr.Kind() != KindIdentifier {
				vctx.errCtx.SetError(ErrRemoveInvalidInput, msgRemoveInvalidInput)
				return VisitBreak
			}
		}
	}
	return VisitRecurse
}

// validateSetProperty rejects non-alias references on the left-hand side.
func validateSetProperty(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	prop := n.(*SetProperty).Property
	if prop.Expr == nil || prop.Expr.Kind() != KindIdentifier {
		vctx.errCtx.SetError(ErrSetLhsNonAlias, msgSetLhsNonAlias)
		return VisitBreak
	}
	return VisitRecurse
}

func validateSetClause(n Node, start bool, v *Visitor) Strategy {
	if !start {
		return VisitContinue
	}
	v.ctx.clause = KindSet
	return VisitRecurse
}

func validateUnionClause(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}

	// all UNIONs in a scope specify ALL or none of them do
	flavor := unionRegular
	if n.(*Union).All {
		flavor = unionAll
	}
	if vctx.unionAll == unionNotDefined {
		vctx.unionAll = flavor
	} else if vctx.unionAll != flavor {
		vctx.errCtx.SetError(ErrUnionCombination, msgUnionCombination)
		return VisitBreak
	}

	// a UNION branch starts from an empty environment
	vctx.clause = KindUnion
	vctx.definedIdentifiers = make(map[string]identKind)
	return VisitRecurse
}

func validateCreateClause(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	vctx.clause = KindCreate
	create := n.(*Create)

	// Traverse manually: the CREATE clause is not allowed access to the
	// identifiers it itself introduces, e.g. CREATE (a {v:1}), (b {v:a.v+1})
	// is invalid. Each new entity is hidden from scope while sibling
	// entities are validated and introduced only at the end.
	type newIdent struct {
		alias string
		kind  identKind
	}
	var newIdentifiers []newIdent

	for _, pathNode := range create.Pattern.Paths {
		path, ok := pathNode.(*PatternPath)
		if !ok {
			// named paths and shortest paths fall through to the generic
			// handlers below
			if !v.VisitNode(pathNode) {
				return VisitBreak
			}
			continue
		}

		// a node redeclaration is only an error for paths of length 0:
		// MATCH (a) CREATE (a) is invalid, MATCH (a) CREATE (a)-[:E]->(:B)
		// is not
		if len(path.Elements) == 1 {
			node := path.Elements[0].(*NodePattern)
			if node.Identifier != nil {
				if _, bound := vctx.find(node.Identifier.Name); bound {
					vctx.errCtx.SetError(ErrRedeclare, msgRedeclare, "variable", node.Identifier.Name, "CREATE")
					return VisitBreak
				}
			}
		}

		for j, element := range path.Elements {
			kind := identNode
			var id *Identifier
			if j%2 == 0 {
				id = element.(*NodePattern).Identifier
			} else {
				kind = identEdge
				id = element.(*RelPattern).Identifier
			}

			hide := false
			var alias string
			if id != nil {
				alias = id.Name
				_, bound := vctx.find(alias)
				hide = !bound
			}

			if !v.VisitNode(element) {
				return VisitBreak
			}

			// hide the created entity from scope once processed
			if hide {
				vctx.remove(alias)
				newIdentifiers = append(newIdentifiers, newIdent{alias: alias, kind: kind})
			}
		}
	}

	// introduce the new identifiers to scope; a duplicate edge alias is an
	// error
	for _, ni := range newIdentifiers {
		if !vctx.add(ni.alias, ni.kind) && ni.kind == identEdge {
			vctx.errCtx.SetError(ErrVariableAlreadyDeclared, msgVariableAlreadyDeclared, ni.alias)
			return VisitBreak
		}
	}
	return VisitContinue
}

func validateMergeClause(n Node, start bool, v *Visitor) Strategy {
	if !start {
		return VisitContinue
	}
	v.ctx.clause = KindMerge
	return VisitRecurse
}

func validateMatchClause(n Node, start bool, v *Visitor) Strategy {
	if !start {
		return VisitContinue
	}
	v.ctx.clause = KindMatch
	return VisitRecurse
}

func validateUnwindClause(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	vctx.clause = KindUnwind
	unwind := n.(*Unwind)

	if !v.VisitNode(unwind.Expr) {
		return VisitBreak
	}

	// the loop variable must be new, e.g. MATCH (n) UNWIND [0,1] AS n is
	// invalid
	if !vctx.add(unwind.Alias.Name, identScalar) {
		vctx.errCtx.SetError(ErrVariableAlreadyDeclared, msgVariableAlreadyDeclared, unwind.Alias.Name)
		return VisitBreak
	}
	return VisitContinue
}

func validateForeachClause(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	foreach := n.(*Foreach)

	// the loop variable and anything bound in the body are local to the
	// FOREACH clause; work on a cloned environment
	origEnv := vctx.definedIdentifiers
	vctx.definedIdentifiers = cloneEnv(origEnv)
	vctx.clause = KindForeach

	broke := !v.VisitNode(foreach.Expr)

	if !broke {
		vctx.add(foreach.Var.Name, identScalar)

		for _, clause := range foreach.Clauses {
			switch clause.Kind() {
			case KindCreate, KindSet, KindRemove, KindMerge, KindDelete, KindForeach:
			default:
				vctx.errCtx.SetError(ErrForeachInvalidBody, msgForeachInvalidBody)
				broke = true
			}
			if broke {
				break
			}
			if !v.VisitNode(clause) {
				broke = true
				break
			}
		}
	}

	// restore the outer environment on every exit path
	vctx.definedIdentifiers = origEnv

	if broke || vctx.errCtx.EncounteredError() {
		return VisitBreak
	}
	return VisitContinue
}

// procCallAliases introduces the aliases and output identifiers of a
// procedure call: CALL db.labels() YIELD label [AS l].
func procCallAliases(vctx *validationCtx, call *Call) {
	for _, proj := range call.Projections {
		if proj.Alias != nil {
			vctx.add(proj.Alias.Name, identAny)
		}
		// the expression identifier is introduced as well and removed when
		// the clause ends if it was aliased
		if id, ok := proj.Expr.(*Identifier); ok {
			vctx.add(id.Name, identAny)
		}
	}
}

func validateCallClause(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	call := n.(*Call)

	if start {
		vctx.clause = KindCall
		procCallAliases(vctx, call)

		// procedure exists, arity matches, and YIELD refers to declared
		// outputs
		proc := vctx.procs.Lookup(call.ProcName)
		if proc == nil {
			vctx.errCtx.SetError(ErrProcedureNotRegistered, msgProcedureNotRegistered, call.ProcName)
			return VisitBreak
		}

		if proc.ArgCount != VariadicArgCount && proc.ArgCount != len(call.Args) {
			vctx.errCtx.SetError(ErrProcedureInvalidArguments, msgProcedureInvalidArgs,
				call.ProcName, proc.ArgCount, len(call.Args))
			return VisitBreak
		}

		yielded := make(map[string]struct{}, len(call.Projections))
		for _, proj := range call.Projections {
			identifier := proj.Expr.(*Identifier).Name
			if _, dup := yielded[identifier]; dup {
				vctx.errCtx.SetError(ErrVariableAlreadyDeclared, msgVariableAlreadyDeclared, identifier)
				return VisitBreak
			}
			yielded[identifier] = struct{}{}

			if !proc.ContainsOutput(identifier) {
				vctx.errCtx.SetError(ErrProcedureInvalidOutput, msgProcedureInvalidOutput,
					call.ProcName, identifier)
				return VisitBreak
			}
		}
		return VisitRecurse
	}

	// end: drop output identifiers shadowed by an alias
	for _, proj := range call.Projections {
		if proj.Alias != nil {
			if id, ok := proj.Expr.(*Identifier); ok {
				vctx.remove(id.Name)
			}
		}
	}
	return VisitContinue
}

// subqueryImportFree reports whether the expression references no
// identifiers at all; used for non-simple imports in a subquery's leading
// WITH, which may not reach into the outer scope.
func subqueryImportFree(n Node) bool {
	if n.Kind() == KindIdentifier {
		return false
	}
	for _, child := range n.Children() {
		if !subqueryImportFree(child) {
			return false
		}
	}
	return true
}

// validateCallInitialWith checks the leading WITH of a CALL {} subquery is
// an import list: simple identifier references or outer-scope-free
// expressions, with no ORDER BY, SKIP, LIMIT or predicate.
func validateCallInitialWith(w *With) bool {
	foundSimple := false
	foundNonSimple := false

	for _, proj := range w.Projections {
		if _, ok := proj.Expr.(*Identifier); ok {
			// internal representations of outer-context variables are
			// exempt
			if proj.Alias != nil && proj.Alias.Name[0] == '@' {
				continue
			}
			if foundNonSimple || proj.Alias != nil {
				return false
			}
			foundSimple = true
		} else {
			// a non-identifier import may not reference outer-scope names:
			// WITH 1 AS a CALL {WITH a+1 AS b RETURN b} is invalid
			if foundSimple || !subqueryImportFree(proj.Expr) {
				return false
			}
			foundNonSimple = true
		}
	}

	return w.OrderBy == nil && w.Skip == nil && w.Limit == nil && w.Predicate == nil
}

func validateCallSubquery(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	sub := n.(*CallSubquery)
	vctx.clause = KindCallSubquery

	body := sub.Query
	clauses := body.Clauses

	// preserve the callers environment
	inEnv := cloneEnv(vctx.definedIdentifiers)

	// without imports the subquery starts from an empty environment;
	// a leading WITH must be a valid import list
	if len(clauses) > 0 && clauses[0].Kind() != KindWith {
		vctx.definedIdentifiers = make(map[string]identKind)
	} else if len(clauses) > 0 {
		if !validateCallInitialWith(clauses[0].(*With)) {
			vctx.errCtx.SetError(ErrCallSubqueryInvalidReferences, msgCallSubqueryInvalidRef)
			return VisitBreak
		}
	}

	// the subquery scope picks its own union flavour
	outerUnion := vctx.unionAll
	vctx.unionAll = unionNotDefined

	lastWasUnion := false
	for _, clause := range clauses {
		// a UNION clause resets the environment; a following WITH is a new
		// import list starting from the callers environment
		if lastWasUnion && clause.Kind() == KindWith {
			vctx.definedIdentifiers = cloneEnv(inEnv)
			if !validateCallInitialWith(clause.(*With)) {
				vctx.errCtx.SetError(ErrCallSubqueryInvalidReferences, msgCallSubqueryInvalidRef)
				return VisitBreak
			}
		}

		if !v.VisitNode(clause) {
			return VisitBreak
		}

		switch {
		case clause.Kind() == KindUnion:
			lastWasUnion = true
		case clause.Kind() == KindReturn && clause.(*Return).IncludeExisting:
			// inner RETURN * suppresses identifier checks from here on
			vctx.ignoreIdentifiers = true
			lastWasUnion = false
		default:
			lastWasUnion = false
		}
	}

	vctx.unionAll = outerUnion

	// restore the outer environment, extended by the subquery's returned
	// aliases
	vctx.definedIdentifiers = inEnv

	if len(clauses) == 0 {
		return VisitContinue
	}
	lastClause := clauses[len(clauses)-1]
	ret, isReturning := lastClause.(*Return)
	if isReturning {
		// the returned aliases must not collide with outer bindings; the
		// last UNION branch suffices since every branch projects the same
		// columns
		for _, proj := range ret.Projections {
			var varName string
			if proj.Alias != nil {
				if id, ok := proj.Expr.(*Identifier); ok && id.Name[0] == '@' {
					// artificial projection restoring an imported variable
					continue
				}
				varName = proj.Alias.Name
			} else if id, ok := proj.Expr.(*Identifier); ok {
				varName = id.Name
			} else {
				varName = vctx.ast.projectionColumnName(proj)
			}

			if !vctx.add(varName, identAny) {
				vctx.errCtx.SetError(ErrVariableAlreadyDeclaredInOuterScope,
					msgVariableDeclaredOuterScope, varName)
				return VisitBreak
			}
		}
	}

	return VisitContinue
}

// validateLoadCSV introduces the per-row alias.
func validateLoadCSV(n Node, start bool, v *Visitor) Strategy {
	v.ctx.add(n.(*LoadCSV).Alias.Name, identAny)
	return VisitContinue
}

// validateIndexDDL introduces the index pattern identifier.
func validateIndexDDL(n Node, start bool, v *Visitor) Strategy {
	vctx := v.ctx
	if !start {
		return VisitContinue
	}
	idx := n.(*PatternIndex)
	vctx.clause = idx.Kind()
	if idx.Identifier != nil {
		vctx.add(idx.Identifier.Name, identAny)
	}
	return VisitRecurse
}

// ----------------------------------------------------------------------------
// query-level validations
// ----------------------------------------------------------------------------

// updatingClause reports whether the kind is an updating clause.
func updatingClause(kind NodeKind) bool {
	switch kind {
	case KindCreate, KindMerge, KindDelete, KindSet, KindRemove, KindForeach:
		return true
	}
	return false
}

// validateQueryTermination checks that the query ends in RETURN, an update
// clause, a procedure call or a non-returning subquery, and that only
// UNION follows a RETURN. Embedded subqueries are checked recursively.
func validateQueryTermination(vctx *validationCtx, query *Query) bool {
	clauses := query.Clauses
	last := clauses[len(clauses)-1]
	switch last.Kind() {
	case KindReturn, KindCreate, KindMerge, KindDelete, KindSet,
		KindCall, KindCallSubquery, KindRemove, KindForeach:
	default:
		vctx.errCtx.SetError(ErrInvalidLastClause, msgInvalidLastClause, last.Kind().String())
		return false
	}

	// a terminal CALL {} must itself be non-returning
	if sub, ok := last.(*CallSubquery); ok {
		inner := sub.Query.Clauses
		if inner[len(inner)-1].Kind() == KindReturn {
			vctx.errCtx.SetError(ErrInvalidLastClause, msgInvalidLastClause, "a returning subquery")
			return false
		}
	}

	lastWasReturn := false
	for _, clause := range clauses {
		kind := clause.Kind()
		switch {
		case kind != KindUnion && lastWasReturn:
			vctx.errCtx.SetError(ErrUnexpectedClauseFollowingReturn, msgUnexpectedClauseAfterRet)
			return false
		case kind == KindReturn:
			lastWasReturn = true
		case kind == KindCallSubquery:
			if !validateQueryTermination(vctx, clause.(*CallSubquery).Query) {
				return false
			}
			lastWasReturn = false
		default:
			lastWasReturn = false
		}
	}
	return true
}

// validateQuerySequence performs validations not constrained to a specific
// scope: termination and the forbidden WITH */RETURN * openings.
func validateQuerySequence(vctx *validationCtx, query *Query) bool {
	if !validateQueryTermination(vctx, query) {
		return false
	}

	start := query.Clauses[0]
	if w, ok := start.(*With); ok && w.IncludeExisting {
		vctx.errCtx.SetError(ErrQueryCannotBeginWith, msgQueryCannotBeginWith, "WITH")
		return false
	}
	if r, ok := start.(*Return); ok && r.IncludeExisting {
		vctx.errCtx.SetError(ErrQueryCannotBeginWith, msgQueryCannotBeginWith, "RETURN")
		return false
	}
	return true
}

// validateClauseOrder enforces that reading clauses do not follow updating
// clauses without a WITH boundary, and that a MATCH does not follow an
// OPTIONAL MATCH in the same scope.
func validateClauseOrder(vctx *validationCtx, query *Query) bool {
	encounteredOptionalMatch := false
	encounteredUpdatingClause := false

	for _, clause := range query.Clauses {
		kind := clause.Kind()

		if encounteredUpdatingClause {
			switch kind {
			case KindMatch, KindUnwind, KindCall, KindCallSubquery:
				vctx.errCtx.SetError(ErrMissingWith, msgMissingWith, kind.String())
				return false
			}
		}
		encounteredUpdatingClause = encounteredUpdatingClause || updatingClause(kind)

		switch kind {
		case KindMatch:
			optional := clause.(*Match).Optional
			if !optional && encounteredOptionalMatch {
				vctx.errCtx.SetError(ErrMissingWithAfterOptionalMatch, msgMissingWithAfterMatch)
				return false
			}
			encounteredOptionalMatch = encounteredOptionalMatch || optional
		case KindWith, KindUnion:
			// WITH and UNION open a fresh scope
			encounteredOptionalMatch = false
			encounteredUpdatingClause = false
		case KindCallSubquery:
			if !validateClauseOrder(vctx, clause.(*CallSubquery).Query) {
				return false
			}
		}
	}
	return true
}

// returnColumns resolves the ordered column names of a RETURN clause for
// UNION comparison.
func returnColumns(vctx *validationCtx, ret *Return) []string {
	columns := make([]string, 0, len(ret.Projections))
	for _, proj := range ret.Projections {
		columns = append(columns, vctx.ast.projectionColumnName(proj))
	}
	return columns
}

// validateUnionClauses requires every RETURN flanking a UNION chain to
// project the same ordered column names. Subqueries are checked
// recursively.
func validateUnionClauses(vctx *validationCtx, query *Query) bool {
	var unionCount, returnCount int
	var returns []*Return
	for _, clause := range query.Clauses {
		switch c := clause.(type) {
		case *Union:
			unionCount++
		case *Return:
			returnCount++
			returns = append(returns, c)
		}
	}

	if unionCount != 0 {
		// there must be one more RETURN than UNION clauses
		if returnCount != unionCount+1 {
			vctx.errCtx.SetError(ErrUnionMissingReturns, msgUnionMissingReturns,
				unionCount, returnCount)
			return false
		}

		first := returnColumns(vctx, returns[0])
		for _, ret := range returns[1:] {
			columns := returnColumns(vctx, ret)
			if len(columns) != len(first) {
				vctx.errCtx.SetError(ErrUnionMismatchedReturns, msgUnionMismatchedReturns)
				return false
			}
			for i := range columns {
				if columns[i] != first[i] {
					vctx.errCtx.SetError(ErrUnionMismatchedReturns, msgUnionMismatchedReturns)
					return false
				}
			}
		}
	}

	for _, clause := range query.Clauses {
		if sub, ok := clause.(*CallSubquery); ok {
			if !validateUnionClauses(vctx, sub.Query) {
				return false
			}
		}
	}
	return true
}

// validateAllShortestPathsPlacement reports whether every allShortestPaths
// sits in a MATCH pattern; one in a MATCH predicate or in any other clause
// is rejected.
func validateAllShortestPathsPlacement(root Node) bool {
	if sp, ok := root.(*ShortestPath); ok && !sp.Single {
		return false
	}
	if m, ok := root.(*Match); ok {
		// allShortestPaths is invalid in the MATCH predicate; the pattern
		// itself may contain it
		return m.Predicate == nil || validateAllShortestPathsPlacement(m.Predicate)
	}
	for _, child := range root.Children() {
		if !validateAllShortestPathsPlacement(child) {
			return false
		}
	}
	return true
}

// validateShortestPathsPlacement reports whether every shortestPath sits
// inside a WITH/RETURN clause or a MATCH predicate; one in a MATCH pattern
// or in any other clause is rejected.
func validateShortestPathsPlacement(root Node) bool {
	if sp, ok := root.(*ShortestPath); ok && sp.Single {
		return false
	}
	switch n := root.(type) {
	case *Match:
		// shortestPath is invalid in the MATCH pattern; bound-node pairs
		// are only available to WITH/RETURN projections
		return validateShortestPathsPlacement(n.Pattern)
	case *With, *Return:
		return true
	}
	for _, child := range root.Children() {
		if !validateShortestPathsPlacement(child) {
			return false
		}
	}
	return true
}

// ----------------------------------------------------------------------------
// dispatch table and entry points
// ----------------------------------------------------------------------------

// validationsMapping is the dispatch table from node kind to handler,
// built once at package init.
var validationsMapping [numNodeKinds]Visit

func init() {
	for i := range validationsMapping {
		validationsMapping[i] = defaultVisit
	}

	// supported constructs
	validationsMapping[KindSet] = validateSetClause
	validationsMapping[KindMap] = validateMap
	validationsMapping[KindAny] = validateListComprehension
	validationsMapping[KindAll] = validateListComprehension
	validationsMapping[KindCall] = validateCallClause
	validationsMapping[KindWith] = validateWithClause
	validationsMapping[KindNone] = validateListComprehension
	validationsMapping[KindUnion] = validateUnionClause
	validationsMapping[KindMatch] = validateMatchClause
	validationsMapping[KindMerge] = validateMergeClause
	validationsMapping[KindSingle] = validateListComprehension
	validationsMapping[KindReturn] = validateReturnClause
	validationsMapping[KindUnwind] = validateUnwindClause
	validationsMapping[KindCreate] = validateCreateClause
	validationsMapping[KindDelete] = validateDeleteClause
	validationsMapping[KindRemove] = validateRemoveClause
	validationsMapping[KindReduce] = validateReduce
	validationsMapping[KindForeach] = validateForeachClause
	validationsMapping[KindLoadCSV] = validateLoadCSV
	validationsMapping[KindIdentifier] = validateIdentifier
	validationsMapping[KindProjection] = validateProjection
	validationsMapping[KindNamedPath] = validateNamedPath
	validationsMapping[KindRelPattern] = validateRelPattern
	validationsMapping[KindSetProperty] = validateSetProperty
	validationsMapping[KindNodePattern] = validateNodePattern
	validationsMapping[KindCallSubquery] = validateCallSubquery
	validationsMapping[KindShortestPath] = validateShortestPathExpr
	validationsMapping[KindApplyOperator] = validateApplyOperator
	validationsMapping[KindApplyAllOperator] = validateApplyAllOperator
	validationsMapping[KindListComprehension] = validateListComprehension
	validationsMapping[KindPatternComprehension] = validatePatternComprehension
	validationsMapping[KindBinaryOperator] = validateBinaryOperator
	validationsMapping[KindCreatePatternPropsIndex] = validateIndexDDL
	validationsMapping[KindDropPatternPropsIndex] = validateIndexDDL

	// unsupported constructs
	validationsMapping[KindStart] = visitBreak
	validationsMapping[KindFilter] = visitBreak
	validationsMapping[KindExtract] = visitBreak
	validationsMapping[KindCommand] = visitBreak
	validationsMapping[KindMatchHint] = visitBreak
	validationsMapping[KindUsingIndex] = visitBreak
	validationsMapping[KindUsingScan] = visitBreak
	validationsMapping[KindUsingJoin] = visitBreak
	validationsMapping[KindUsingPeriodicCommit] = visitBreak
	validationsMapping[KindCreateNodePropConstraint] = visitBreak
	validationsMapping[KindDropNodePropConstraint] = visitBreak
	validationsMapping[KindCreateRelPropConstraint] = visitBreak
	validationsMapping[KindDropRelPropConstraint] = visitBreak
}

// validateScopes runs the visitor walk over the query body with a fresh
// environment.
func validateScopes(ast *AST, errCtx *ErrorCtx, procs *ProcedureRegistry) bool {
	vctx := &validationCtx{
		definedIdentifiers: make(map[string]identKind),
		unionAll:           unionNotDefined,
		ast:                ast,
		procs:              procs,
		errCtx:             errCtx,
	}
	v := &Visitor{mapping: validationsMapping, ctx: vctx}
	v.VisitNode(ast.Root)
	return !errCtx.EncounteredError()
}

// validateQuery validates a statement body after parsing or rewriting.
func validateQuery(ast *AST, errCtx *ErrorCtx, procs *ProcedureRegistry) bool {
	switch ast.Root.Kind() {
	case KindCreateNodePropConstraint, KindCreateRelPropConstraint,
		KindDropNodePropConstraint, KindDropRelPropConstraint:
		errCtx.SetError(ErrInvalidConstraintCommand, msgInvalidConstraintCommand)
		return false
	case KindCreatePatternPropsIndex, KindDropPatternPropsIndex:
		return validateScopes(ast, errCtx, procs)
	}

	query, ok := ast.Root.(*Query)
	if !ok || len(query.Clauses) == 0 {
		errCtx.SetError(ErrEmptyQuery, msgEmptyQuery)
		return false
	}

	vctx := &validationCtx{ast: ast, errCtx: errCtx}

	// RETURN placement and terminating-clause rules
	if !validateQuerySequence(vctx, query) {
		return false
	}

	// clause order within each scope
	if !validateClauseOrder(vctx, query) {
		return false
	}

	// the clauses surrounding UNION must return the same column names
	if !validateUnionClauses(vctx, query) {
		return false
	}

	// placement of allShortestPaths and shortestPath
	if !validateAllShortestPathsPlacement(query) {
		errCtx.SetError(ErrAllShortestPathSupport, msgAllShortestPathSupport)
		return false
	}
	if !validateShortestPathsPlacement(query) {
		errCtx.SetError(ErrShortestPathSupport, msgShortestPathSupport)
		return false
	}

	// scoping and construct-specific rules
	return validateScopes(ast, errCtx, procs)
}
