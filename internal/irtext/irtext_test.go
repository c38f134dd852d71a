package irtext_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tensorc/internal/ir"
	"tensorc/internal/irtext"
)

const elementwiseAddSrc = `
func add(a, b, c) {
  var a: f32[16] in input;
  var b: f32[16] in input;
  var c: f32[16] in output;
  for i = 0..16 {
    c[i] = a[i] + b[i];
  }
}
`

func TestParseAndBuildElementwiseAdd(t *testing.T) {
	prog, err := irtext.ParseString(elementwiseAddSrc)
	require.NoError(t, err)
	require.Len(t, prog.Funcs, 1)

	trees, err := irtext.Build(prog)
	require.NoError(t, err)

	tree, ok := trees["add"]
	require.True(t, ok)

	stores := ir.Find(tree, func(s ir.Stmt) bool {
		_, ok := s.(*ir.Store)
		return ok
	})
	assert.Len(t, stores, 1)

	defs := ir.Find(tree, func(s ir.Stmt) bool {
		_, ok := s.(*ir.VarDef)
		return ok
	})
	assert.Len(t, defs, 3)
}

const reduceSrc = `
func dot(a, b, acc) {
  var a: f32[8] in input;
  var b: f32[8] in input;
  var acc: f32[1] in output;
  for i = 0..8 {
    reduce acc[0] add= a[i] * b[i];
  }
}
`

func TestParseAndBuildReduction(t *testing.T) {
	prog, err := irtext.ParseString(reduceSrc)
	require.NoError(t, err)

	trees, err := irtext.Build(prog)
	require.NoError(t, err)

	reduces := ir.Find(trees["dot"], func(s ir.Stmt) bool {
		_, ok := s.(*ir.ReduceTo)
		return ok
	})
	require.Len(t, reduces, 1)
	assert.Equal(t, ir.ReduceAdd, reduces[0].(*ir.ReduceTo).Op)
}

func TestParseAndBuildMemTypeAliasNormalization(t *testing.T) {
	src := `
func f(x) {
  var x: f32[4] in cache@gpu_shared;
  x[0] = 1;
}
`
	prog, err := irtext.ParseString(src)
	require.NoError(t, err)

	trees, err := irtext.Build(prog)
	require.NoError(t, err)

	defs := ir.Find(trees["f"], func(s ir.Stmt) bool {
		_, ok := s.(*ir.VarDef)
		return ok
	})
	require.Len(t, defs, 1)
	assert.Equal(t, ir.GPUShared, defs[0].(*ir.VarDef).Buffer.MType)
}

func TestParseRejectsMalformedSource(t *testing.T) {
	_, err := irtext.ParseString(`func broken( { `)
	assert.Error(t, err)
}
