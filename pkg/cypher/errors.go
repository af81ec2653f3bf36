package cypher

import (
	"fmt"
)

// ErrorCode classifies front-end failures. The planner and the server layer
// dispatch on the code; the message is what reaches the client verbatim.
type ErrorCode int

const (
	ErrNone ErrorCode = iota

	// parse stage
	ErrParser
	ErrEmptyQuery
	ErrMultipleStatements
	ErrUnsupportedQueryType
	ErrInvalidConstraintCommand

	// query structure
	ErrInvalidLastClause
	ErrUnexpectedClauseFollowingReturn
	ErrQueryCannotBeginWith
	ErrMissingWith
	ErrMissingWithAfterOptionalMatch

	// patterns
	ErrOneRelationshipType
	ErrCreateDirectedRelationship
	ErrVarLen
	ErrVarLenInvalidRange
	ErrUnhandledTypeInlineProperties
	ErrShortestPathBoundNodes
	ErrAllShortestPathMinimalLength
	ErrAllShortestPathSupport
	ErrShortestPathSupport

	// scoping
	ErrNotDefined
	ErrVariableAlreadyDeclared
	ErrVariableAlreadyDeclaredInOuterScope
	ErrSameAliasNodeAndRelationship
	ErrSameAliasMultiplePatterns
	ErrRedeclare
	ErrWithProjectionMissingAlias
	ErrSameResultColumnName

	// procedures and functions
	ErrProcedureNotRegistered
	ErrProcedureInvalidArguments
	ErrProcedureInvalidOutput
	ErrUnknownFunction
	ErrInvalidUseOfAggregation
	ErrInvalidUsageOfStarParameter
	ErrInvalidUsageOfDistinctStar

	// unions and subqueries
	ErrUnionMissingReturns
	ErrUnionMismatchedReturns
	ErrUnionCombination
	ErrCallSubqueryInvalidReferences

	// unsupported constructs
	ErrUnsupportedASTNodeType
	ErrUnsupportedOperator

	// misc
	ErrLimitMustBeNonNegative
	ErrSkipMustBeNonNegative
	ErrDeleteInvalidArguments
	ErrRemoveInvalidInput
	ErrSetLhsNonAlias
	ErrMissingEvalExpInReduce
	ErrForeachInvalidBody
)

// Error is the single error value surfaced to the caller of the front-end.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorCtx is a single-error slot threaded through parse, rewrite and
// validation. The first error wins; later SetError calls are ignored.
// Each query compilation owns its own ErrorCtx, so no state is shared
// between queries.
type ErrorCtx struct {
	err *Error
}

// NewErrorCtx returns an empty error context.
func NewErrorCtx() *ErrorCtx {
	return &ErrorCtx{}
}

// SetError records the first error. Subsequent calls are no-ops.
func (ctx *ErrorCtx) SetError(code ErrorCode, format string, args ...any) {
	if ctx.err != nil {
		return
	}
	ctx.err = &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// EncounteredError reports whether an error has been recorded.
func (ctx *ErrorCtx) EncounteredError() bool {
	return ctx.err != nil
}

// Err returns the recorded error, or nil.
func (ctx *ErrorCtx) Err() error {
	if ctx.err == nil {
		return nil
	}
	return ctx.err
}

// error message catalogue
const (
	msgEmptyQuery               = "Error: empty query."
	msgMultipleStatements       = "Error: query with more than one statement is not supported."
	msgUnsupportedQueryType     = "Encountered unsupported query type '%s'"
	msgInvalidConstraintCommand = "Invalid constraint command"
	msgParserError              = "errMsg: %s line: %d, column: %d, offset: %d errCtx: %s errCtxOffset: %d"

	msgInvalidLastClause        = "Query cannot conclude with %s (must be a RETURN clause, an update clause, a procedure call or a non-returning subquery)"
	msgUnexpectedClauseAfterRet = "Unexpected clause following RETURN"
	msgQueryCannotBeginWith     = "Query cannot begin with '%s *'"
	msgMissingWith              = "A %s clause cannot follow an updating clause unless they are separated by a WITH clause"
	msgMissingWithAfterMatch    = "A WITH clause is required to introduce a MATCH clause after an OPTIONAL MATCH"

	msgOneRelationshipType     = "Exactly one relationship type must be specified for each relation in a %s pattern."
	msgCreateDirectedRel       = "Only directed relationships are supported in CREATE"
	msgVarLen                  = "Variable length relationships cannot be used in %s"
	msgVarLenInvalidRange      = "Variable length path, maximum number of hops must be greater or equal to minimum number of hops."
	msgUnhandledTypeInlineProp = "Encountered unhandled type in inlined properties."
	msgShortestPathBoundNodes  = "A shortestPath requires bound nodes"
	msgAllShortestPathMinLen   = "allShortestPaths(...) does not support a minimal length different from 1"
	msgAllShortestPathSupport  = "Skein supports allShortestPaths only in match clauses"
	msgShortestPathSupport     = "Skein currently only supports shortestPath in WITH or RETURN clauses"

	msgNotDefined                 = "'%s' not defined"
	msgVariableAlreadyDeclared    = "Variable `%s` already declared"
	msgVariableDeclaredOuterScope = "Variable `%s` already declared in outer scope"
	msgSameAliasNodeRelationship  = "The alias '%s' was specified for both a node and a relationship."
	msgSameAliasMultiplePatterns  = "Cannot use the same relationship variable '%s' for multiple patterns."
	msgRedeclare                  = "The bound %s '%s' can't be redeclared in a %s clause"
	msgWithProjMissingAlias       = "WITH clause projections must be aliased"
	msgSameResultColumnName       = "Error: Multiple result columns with the same name are not supported."

	msgProcedureNotRegistered = "Procedure `%s` is not registered"
	msgProcedureInvalidArgs   = "Procedure `%s` requires %d arguments, got %d"
	msgProcedureInvalidOutput = "Procedure `%s` does not yield output `%s`"
	msgUnknownFunction        = "Unknown function '%s'"
	msgInvalidAggregation     = "Invalid use of aggregating function '%s'"
	msgInvalidStarParameter   = "COUNT(*) is the only function that accepts * as an argument"
	msgInvalidDistinctStar    = "Cannot specify both DISTINCT and * in COUNT(DISTINCT *)"

	msgUnionMissingReturns    = "Found %d UNION clauses but only %d RETURN clauses."
	msgUnionMismatchedReturns = "All sub queries in a UNION must have the same column names."
	msgUnionCombination       = "Invalid combination of UNION and UNION ALL."
	msgCallSubqueryInvalidRef = "WITH imports in CALL {} must consist of only simple references to outside variables"

	msgUnsupportedASTNodeType = "Skein does not currently support %s"
	msgUnsupportedOperator    = "Skein does not currently support %s usage in RETURN clauses"

	msgLimitMustBeNonNegative = "LIMIT specified value of invalid type, must be a positive integer"
	msgSkipMustBeNonNegative  = "SKIP specified value of invalid type, must be a positive integer"
	msgDeleteInvalidArguments = "DELETE can only be called on nodes, paths and relationships"
	msgRemoveInvalidInput     = "Remove expects an identifier followed by a property"
	msgSetLhsNonAlias         = "Skein does not currently support non-alias references on the left-hand side of SET expressions"
	msgMissingEvalExpReduce   = "Missing eval expression in reduce"
	msgForeachInvalidBody     = "Error: Only updating clauses may reside in FOREACH"
)

// errContext is the slice of query text surrounding an error position.
type errContext struct {
	text   string
	offset int
}

// makeErrContext extracts up to errContextWindow bytes around offset.
func makeErrContext(src string, offset int) errContext {
	const errContextWindow = 30
	start := offset - errContextWindow/2
	if start < 0 {
		start = 0
	}
	end := start + errContextWindow
	if end > len(src) {
		end = len(src)
	}
	if offset > end {
		offset = end
	}
	return errContext{text: src[start:end], offset: offset - start}
}

// ParseError is a diagnostic produced by the lexer or parser.
type ParseError struct {
	Msg      string
	Position InputPosition
	Context  errContext
}

func newParseError(msg string, pos InputPosition, ctx errContext) *ParseError {
	return &ParseError{Msg: msg, Position: pos, Context: ctx}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(msgParserError, e.Msg, e.Position.Line, e.Position.Column,
		e.Position.Offset, e.Context.text, e.Context.offset)
}

// reportParseError surfaces the first parser diagnostic through the error
// context, with position and surrounding input.
func reportParseError(ctx *ErrorCtx, errs []*ParseError) {
	if len(errs) == 0 {
		return
	}
	e := errs[0]
	ctx.SetError(ErrParser, msgParserError, e.Msg, e.Position.Line,
		e.Position.Column, e.Position.Offset, e.Context.text, e.Context.offset)
}
