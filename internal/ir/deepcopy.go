package ir

// identityMutator rebuilds every node via BaseMutator's default hooks
// without rewriting anything, giving a deep copy that shares no mutable
// state with its source (§4.1 "Deep copy").
type identityMutator struct {
	BaseMutator
}

// DeepCopy returns a structurally identical tree sharing no mutable node
// with s. IDs are preserved so the copy can replace the original in place.
func DeepCopy(s Stmt) Stmt {
	m := &identityMutator{}
	m.Self = m
	return m.MutateStmt(s)
}

// DeepCopyExpr is DeepCopy's expression-category counterpart.
func DeepCopyExpr(e Expr) Expr {
	m := &identityMutator{}
	m.Self = m
	return m.MutateExpr(e)
}
