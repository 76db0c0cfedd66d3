package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpValidateRejectsUnknownType(t *testing.T) {
	err := Op{Type: "bogus", Table: "t", ID: "1"}.validate()
	require.Error(t, err)
}

func TestOpValidateRequiresTable(t *testing.T) {
	err := Op{Type: OpInsert, Data: map[string]any{"a": 1}}.validate()
	require.Error(t, err)
}

func TestOpValidateRequiresIDForUpdateAndDelete(t *testing.T) {
	require.Error(t, Op{Type: OpUpdate, Table: "t", Data: map[string]any{"a": 1}}.validate())
	require.Error(t, Op{Type: OpDelete, Table: "t"}.validate())
}

func TestOpValidateRequiresDataForInsertAndUpdate(t *testing.T) {
	require.Error(t, Op{Type: OpInsert, Table: "t"}.validate())
	require.Error(t, Op{Type: OpUpdate, Table: "t", ID: "1"}.validate())
}

func TestOpValidateAcceptsWellFormedOps(t *testing.T) {
	require.NoError(t, Op{Type: OpInsert, Table: "t", Data: map[string]any{"a": 1}}.validate())
	require.NoError(t, Op{Type: OpUpdate, Table: "t", ID: "1", Data: map[string]any{"a": 1}}.validate())
	require.NoError(t, Op{Type: OpDelete, Table: "t", ID: "1"}.validate())
}
