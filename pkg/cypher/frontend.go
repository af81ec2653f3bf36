package cypher

import (
	"strings"
)

// The front-end pipeline: parameter stripping, parsing, structural
// validation, canonicalizing rewrites, re-validation. The output is a
// validated master AST the planner consumes; on any failure the AST is nil
// and the error context holds the first error.

// CompiledQuery is the result of a successful front-end run.
type CompiledQuery struct {
	AST    *AST
	Params map[string]any
}

// parseQuery parses query text in single-statement mode and verifies the
// parse result carries exactly one supported statement. A nil return means
// the error context is set.
func parseQuery(query string, errCtx *ErrorCtx) *ParseResult {
	// remove trailing semicolons
	query = strings.TrimRight(query, "; \t\r\n")
	if query == "" {
		errCtx.SetError(ErrEmptyQuery, msgEmptyQuery)
		return nil
	}

	result := parseText(query)

	// the parser must consume the whole input
	if !result.EOF() && len(result.Errors()) == 0 {
		errCtx.SetError(ErrMultipleStatements, msgMultipleStatements)
		return nil
	}

	if len(result.Errors()) > 0 {
		reportParseError(errCtx, result.Errors())
		return nil
	}

	// select the statement root; comment roots are skipped
	foundStatement := false
	for i := 0; i < result.NRoots(); i++ {
		root := result.Root(i)
		switch root.Kind() {
		case KindComment:
		case KindStatement:
			foundStatement = true
		default:
			errCtx.SetError(ErrUnsupportedQueryType, msgUnsupportedQueryType, root.Kind().String())
			return nil
		}
	}
	if !foundStatement {
		// a query with no statement roots, like ';'
		errCtx.SetError(ErrEmptyQuery, msgEmptyQuery)
		return nil
	}

	return result
}

// Compile runs the full pipeline over a query body (parameters already
// stripped). On failure it returns nil with the first error recorded in
// errCtx; no parse result survives a failed compile.
func Compile(query string, procs *ProcedureRegistry, errCtx *ErrorCtx) *AST {
	result := parseQuery(query, errCtx)
	if result == nil {
		return nil
	}

	ast := Build(result)
	if ast.Root == nil {
		errCtx.SetError(ErrEmptyQuery, msgEmptyQuery)
		ast.Free()
		return nil
	}

	if !validateQuery(ast, errCtx, procs) {
		ast.Free()
		return nil
	}

	// canonicalizing rewrites; validation reruns iff anything changed
	rerun := RewriteSameClauses(ast.Root)
	rerun = RewriteCallSubquery(ast.Root) || rerun
	rerun = RewriteStarProjections(ast.Root) || rerun

	if rerun && !validateQuery(ast, errCtx, procs) {
		ast.Free()
		return nil
	}

	return ast
}

// CompileQuery strips the CYPHER parameter prefix and compiles the body,
// returning the validated AST together with the parameter map.
func CompileQuery(query string, procs *ProcedureRegistry) (*CompiledQuery, error) {
	params, body, err := ParseParams(query)
	if err != nil {
		return nil, err
	}

	errCtx := NewErrorCtx()
	ast := Compile(body, procs, errCtx)
	if ast == nil {
		return nil, errCtx.Err()
	}
	return &CompiledQuery{AST: ast, Params: params}, nil
}
