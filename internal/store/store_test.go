package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safequery/safequery/internal/schema"
)

func testGraph() *schema.Graph {
	return &schema.Graph{
		Name: "hr",
		Tables: []schema.Table{
			{
				Name: "employees",
				Columns: []schema.Column{
					{Name: "emp_id", Type: schema.TypeInteger},
					{Name: "name", Type: schema.TypeVarchar, Nullable: true},
				},
				PrimaryKey: []string{"emp_id"},
			},
		},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := s.Save(testGraph())
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "database id must be a UUID")

	g, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "hr", g.Name)
	require.Len(t, g.Tables, 1)
	assert.Equal(t, "employees", g.Tables[0].Name)
}

func TestStore_SaveRejectsBrokenGraph(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	g := testGraph()
	g.Tables[0].ForeignKeys = []schema.ForeignKey{
		{Column: "emp_id", ReferencedTable: "ghost", ReferencedColumn: "id"},
	}

	_, err = s.Save(g)
	require.Error(t, err)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids, "a rejected graph must not be written")
}

func TestStore_LoadUnknownID(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load(NewDatabaseID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LoadRejectsMalformedID(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load("../../etc/passwd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStore_ListSorted(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	var saved []string
	for i := 0; i < 3; i++ {
		id, err := s.Save(testGraph())
		require.NoError(t, err)
		saved = append(saved, id)
	}

	ids, err := s.List()
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.IsIncreasing(t, ids)
	assert.ElementsMatch(t, saved, ids)
}

func TestStore_Delete(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := s.Save(testGraph())
	require.NoError(t, err)

	require.NoError(t, s.Delete(id))
	_, err = s.Load(id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(id), ErrNotFound)
}

func TestStore_OpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "registry")
	s, err := Open(dir)
	require.NoError(t, err)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
