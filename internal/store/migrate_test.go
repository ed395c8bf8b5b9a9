package store

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	applied map[int]bool
	stmts   []string
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) error {
	f.stmts = append(f.stmts, sql)
	return nil
}

func (f *fakeExec) AppliedVersions(context.Context) (map[int]bool, error) {
	return f.applied, nil
}

func TestMigratorAppliesPendingInOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_users.sql":  {Data: []byte("CREATE TABLE b();")},
		"0001_init.sql":   {Data: []byte("CREATE TABLE a();")},
		"README.md":       {Data: []byte("ignored")},
		"0003_extras.sql": {Data: []byte("CREATE TABLE c();")},
	}
	exec := &fakeExec{applied: map[int]bool{1: true}}

	res, err := NewMigrator(fsys, ".").Run(context.Background(), exec)
	require.NoError(t, err)
	require.Equal(t, []int{1}, res.Skipped)
	require.Equal(t, []int{2, 3}, res.Applied)
	require.Contains(t, exec.stmts, "CREATE TABLE b();")
	require.NotContains(t, exec.stmts, "CREATE TABLE a();")
}
