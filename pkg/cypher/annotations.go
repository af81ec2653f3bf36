package cypher

import "fmt"

// AnnotationCtx is a side table attaching values to AST nodes without
// mutating them. Nodes are compared by identity (all nodes are pointers).
type AnnotationCtx map[Node]string

// Get returns the annotation for a node, or "".
func (c AnnotationCtx) Get(n Node) (string, bool) {
	v, ok := c[n]
	return v, ok
}

// Attach records an annotation for a node.
func (c AnnotationCtx) Attach(n Node, v string) {
	c[n] = v
}

// AnnotationCtxCollection groups the named annotation contexts of a master
// AST. Segments share their master's collection, so a node annotated while
// validating one segment keeps its annotation in every other segment.
type AnnotationCtxCollection struct {
	toString AnnotationCtx // cached textual representation per node
	naming   AnnotationCtx // canonical alias per graph entity
	src      string        // query text that source-range annotations slice
	anonCount uint32       // monotonically increasing anonymous-alias counter
}

// NewAnnotationCtxCollection creates an empty collection for the given
// query text.
func NewAnnotationCtxCollection(src string) *AnnotationCtxCollection {
	return &AnnotationCtxCollection{
		toString: make(AnnotationCtx),
		naming:   make(AnnotationCtx),
		src:      src,
	}
}

// nextAnonAlias generates a fresh internal alias. Generated names carry the
// '@' prefix so they can never collide with user aliases.
func (c *AnnotationCtxCollection) nextAnonAlias() string {
	alias := fmt.Sprintf("@anon_%d", c.anonCount)
	c.anonCount++
	return alias
}
