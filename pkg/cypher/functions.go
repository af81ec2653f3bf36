package cypher

import "strings"

// The arithmetic-function registry. Validation only needs existence and
// aggregation checks; evaluation lives with the runtime, not the front-end.
// Lookups are case-insensitive, matching the language.

var aggregationFuncs = map[string]struct{}{
	"avg":            {},
	"collect":        {},
	"count":          {},
	"max":            {},
	"min":            {},
	"percentilecont": {},
	"percentiledisc": {},
	"stdev":          {},
	"stdevp":         {},
	"sum":            {},
}

var scalarFuncs = map[string]struct{}{
	// numeric
	"abs":       {},
	"ceil":      {},
	"e":         {},
	"exp":       {},
	"floor":     {},
	"log":       {},
	"log10":     {},
	"pow":       {},
	"rand":      {},
	"round":     {},
	"sign":      {},
	"sqrt":      {},
	"tofloat":   {},
	"tointeger": {},

	// trigonometric
	"acos":    {},
	"asin":    {},
	"atan":    {},
	"atan2":   {},
	"cos":     {},
	"cot":     {},
	"degrees": {},
	"haversin": {},
	"pi":      {},
	"radians": {},
	"sin":     {},
	"tan":     {},

	// string
	"left":      {},
	"ltrim":     {},
	"replace":   {},
	"reverse":   {},
	"right":     {},
	"rtrim":     {},
	"split":     {},
	"substring": {},
	"tolower":   {},
	"tostring":  {},
	"toupper":   {},
	"trim":      {},

	// list
	"head":   {},
	"keys":   {},
	"last":   {},
	"range":  {},
	"size":   {},
	"tail":   {},

	// entity
	"endnode":       {},
	"exists":        {},
	"hasalabels":    {},
	"id":            {},
	"indegree":      {},
	"labels":        {},
	"length":        {},
	"nodes":         {},
	"outdegree":     {},
	"properties":    {},
	"relationships": {},
	"startnode":     {},
	"type":          {},

	// scalar utilities
	"coalesce":   {},
	"randomuuid": {},
	"timestamp":  {},
	"tojson":     {},

	// spatial
	"distance": {},
	"point":    {},
}

// FuncExists reports whether name is a registered function, aggregate or
// otherwise.
func FuncExists(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := scalarFuncs[lower]; ok {
		return true
	}
	_, ok := aggregationFuncs[lower]
	return ok
}

// FuncIsAggregate reports whether name is an aggregation function.
func FuncIsAggregate(name string) bool {
	_, ok := aggregationFuncs[strings.ToLower(name)]
	return ok
}
