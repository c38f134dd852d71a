package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensorc/internal/cerrors"
	"tensorc/internal/ir"
	"tensorc/internal/symtab"
)

func dim(n int64) ir.Expr { return ir.NewIntConst(n) }

func vec(name string, n int64, atype ir.AccessType, body ir.Stmt) *ir.VarDef {
	buf := ir.NewBuffer(ir.Tensor{Shape: []ir.Expr{dim(n)}, DType: ir.Float32}, atype, ir.CPUMem)
	return ir.NewVarDef(name, buf, body)
}

func TestValidateAcceptsWellScopedProgram(t *testing.T) {
	body := ir.NewStore("C", []ir.Expr{ir.NewVar("i")},
		ir.NewBinary(ir.Add, ir.NewLoad("A", ir.NewVar("i")), ir.NewLoad("B", ir.NewVar("i"))))
	loop := ir.NewFor("i", dim(0), dim(8), dim(1), body)
	tree := vec("A", 8, ir.Input, vec("B", 8, ir.Input, vec("C", 8, ir.Output, loop)))

	assert.NoError(t, symtab.Validate(tree))
}

func TestValidateRejectsUnresolvedName(t *testing.T) {
	body := ir.NewStore("C", []ir.Expr{ir.NewVar("i")}, ir.NewLoad("A", ir.NewVar("i")))
	loop := ir.NewFor("i", dim(0), dim(8), dim(1), body)
	tree := vec("C", 8, ir.Output, loop)

	err := symtab.Validate(tree)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.InvalidProgram))
}

func TestValidateRejectsRankMismatch(t *testing.T) {
	body := ir.NewStore("C", []ir.Expr{ir.NewVar("i"), ir.NewVar("i")}, dim(1))
	loop := ir.NewFor("i", dim(0), dim(8), dim(1), body)
	tree := vec("C", 8, ir.Output, loop)

	err := symtab.Validate(tree)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.InvalidProgram))
}

func TestValidateRejectsNestedSameNameDefinition(t *testing.T) {
	inner := vec("A", 8, ir.Input, ir.NewStmtSeq())
	tree := vec("A", 8, ir.Input, inner)

	err := symtab.Validate(tree)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.InvalidProgram))
}

func TestValidateRejectsDuplicateStatementID(t *testing.T) {
	store := ir.NewStore("C", []ir.Expr{ir.NewVar("i")}, dim(1))
	dup := ir.NewStmtSeq(store, store)
	loop := ir.NewFor("i", dim(0), dim(8), dim(1), dup)
	tree := vec("C", 8, ir.Output, loop)

	err := symtab.Validate(tree)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.InvalidProgram))
}

func TestEnvPushPopRestoresOuterScope(t *testing.T) {
	env := symtab.NewEnv()
	v := vec("A", 4, ir.Input, ir.NewStmtSeq())
	require.NoError(t, env.PushVarDef(v))
	assert.True(t, env.HasDef("A"))

	env.Pop()
	assert.False(t, env.HasDef("A"))
}

func TestEnvLoopLookupFindsEnclosingIterator(t *testing.T) {
	env := symtab.NewEnv()
	f := ir.NewFor("i", dim(0), dim(4), dim(1), ir.NewStmtSeq())
	require.NoError(t, env.PushFor(f))

	got, ok := env.Loop("i")
	require.True(t, ok)
	assert.Same(t, f, got)

	_, ok = env.Loop("j")
	assert.False(t, ok)
}
