package cypher

import (
	"sort"
	"sync"
)

// VariadicArgCount marks a procedure accepting any number of arguments;
// arity checking is skipped for it.
const VariadicArgCount = -1

// Procedure describes a registered procedure as validation sees it:
// name, arity, read-only flag and declared outputs. Implementations live
// with the runtime.
type Procedure struct {
	Name     string
	ArgCount int // VariadicArgCount disables the arity check
	ReadOnly bool
	Outputs  []string
}

// ContainsOutput reports whether the procedure declares the given output.
func (p *Procedure) ContainsOutput(name string) bool {
	for _, out := range p.Outputs {
		if out == name {
			return true
		}
	}
	return false
}

// OutputCount returns the number of declared outputs.
func (p *Procedure) OutputCount() int { return len(p.Outputs) }

// Output returns the i'th declared output name.
func (p *Procedure) Output(i int) string { return p.Outputs[i] }

// SchemaSource supplies the graph schema the built-in db.* procedures
// surface. The storage engine implements it.
type SchemaSource interface {
	Labels() []string
	RelationshipTypes() []string
	PropertyKeys() []string
}

// ProcedureRegistry maps procedure names to their descriptors. A registry
// is safe for concurrent use.
type ProcedureRegistry struct {
	mu     sync.RWMutex
	procs  map[string]*Procedure
	schema SchemaSource
}

// NewProcedureRegistry creates a registry pre-populated with the built-in
// procedures.
func NewProcedureRegistry() *ProcedureRegistry {
	r := &ProcedureRegistry{procs: make(map[string]*Procedure)}
	for _, p := range builtinProcedures {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a procedure descriptor.
func (r *ProcedureRegistry) Register(p *Procedure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[p.Name] = p
}

// Lookup returns the descriptor for name, or nil.
func (r *ProcedureRegistry) Lookup(name string) *Procedure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.procs[name]
}

// Names returns the registered procedure names, sorted.
func (r *ProcedureRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtinProcedures = []*Procedure{
	{Name: "db.labels", ArgCount: 0, ReadOnly: true, Outputs: []string{"label"}},
	{Name: "db.relationshipTypes", ArgCount: 0, ReadOnly: true, Outputs: []string{"relationshipType"}},
	{Name: "db.propertyKeys", ArgCount: 0, ReadOnly: true, Outputs: []string{"propertyKey"}},
	{Name: "db.indexes", ArgCount: 0, ReadOnly: true, Outputs: []string{"type", "label", "properties", "language", "stopwords", "entitytype", "info"}},
	{Name: "db.constraints", ArgCount: 0, ReadOnly: true, Outputs: []string{"type", "label", "properties", "entitytype", "status"}},
	{Name: "db.idx.fulltext.createNodeIndex", ArgCount: VariadicArgCount, ReadOnly: false, Outputs: nil},
	{Name: "db.idx.fulltext.drop", ArgCount: 1, ReadOnly: false, Outputs: nil},
	{Name: "db.idx.fulltext.queryNodes", ArgCount: 2, ReadOnly: true, Outputs: []string{"node", "score"}},
	{Name: "db.idx.fulltext.queryRelationships", ArgCount: 2, ReadOnly: true, Outputs: []string{"relationship", "score"}},
	{Name: "dbms.procedures", ArgCount: 0, ReadOnly: true, Outputs: []string{"name", "mode"}},
	{Name: "algo.BFS", ArgCount: 3, ReadOnly: true, Outputs: []string{"nodes", "edges"}},
	{Name: "algo.pageRank", ArgCount: 2, ReadOnly: true, Outputs: []string{"node", "score"}},
	{Name: "algo.WCC", ArgCount: 0, ReadOnly: true, Outputs: []string{"node", "componentId"}},
	{Name: "algo.labelPropagation", ArgCount: 0, ReadOnly: true, Outputs: []string{"node", "communityId"}},
}

// BindSchema attaches the storage-backed schema source the db.* procedures
// read from. Called once by the engine after the storage layer is up;
// validation is unaffected, the runtime resolves outputs against it.
func (r *ProcedureRegistry) BindSchema(src SchemaSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schema = src
}

// Schema returns the bound schema source, or nil.
func (r *ProcedureRegistry) Schema() SchemaSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schema
}
