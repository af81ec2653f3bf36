package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeindb/skein/pkg/cypher"
)

// the schema store is what the front-end's db.* procedures read through
var _ cypher.SchemaSource = (*SchemaStore)(nil)

func openTestStore(t *testing.T) *SchemaStore {
	t.Helper()
	store, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSchemaStore_Names(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.AddLabel("Person"))
	require.NoError(t, store.AddLabel("Company"))
	require.NoError(t, store.AddLabel("Person")) // idempotent
	require.NoError(t, store.AddRelationshipType("WORKS_AT"))
	require.NoError(t, store.AddPropertyKey("name"))
	require.NoError(t, store.AddPropertyKey("age"))

	assert.Equal(t, []string{"Company", "Person"}, store.Labels())
	assert.Equal(t, []string{"WORKS_AT"}, store.RelationshipTypes())
	assert.Equal(t, []string{"age", "name"}, store.PropertyKeys())
}

func TestSchemaStore_Indexes(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.AddIndex(IndexDescriptor{
		Label:      "Person",
		Properties: []string{"name", "age"},
	}))
	require.NoError(t, store.AddIndex(IndexDescriptor{
		Label:      "Company",
		Properties: []string{"name"},
	}))

	descs := store.Indexes()
	require.Len(t, descs, 2)
	assert.Equal(t, "Company", descs[0].Label)
	assert.Equal(t, "Person", descs[1].Label)
	assert.Equal(t, []string{"name", "age"}, descs[1].Properties)

	require.NoError(t, store.DropIndex("Person"))
	assert.Len(t, store.Indexes(), 1)

	// dropping a missing index is an error
	assert.Error(t, store.DropIndex("Person"))
}

func TestSchemaStore_CloseTwice(t *testing.T) {
	store, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestSchemaStore_EmptyListings(t *testing.T) {
	store := openTestStore(t)
	assert.Empty(t, store.Labels())
	assert.Empty(t, store.Indexes())
}
