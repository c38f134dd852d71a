package ir

// DataType is the scalar element type of a Tensor.
type DataType int

const (
	Int32 DataType = iota
	Float32
	Float64
	Bool
	Custom
)

func (dt DataType) String() string {
	switch dt {
	case Int32:
		return "i32"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	case Bool:
		return "bool"
	case Custom:
		return "custom"
	default:
		return "?"
	}
}

// AccessType describes how a Buffer is used externally.
type AccessType int

const (
	Input AccessType = iota
	Output
	InOut
	Cache
)

func (a AccessType) String() string {
	switch a {
	case Input:
		return "input"
	case Output:
		return "output"
	case InOut:
		return "inout"
	case Cache:
		return "cache"
	default:
		return "?"
	}
}

// MemType describes where a Buffer's storage lives.
type MemType int

const (
	ByValue MemType = iota
	CPUMem
	GPUGlobal
	GPUShared
	GPULocal
)

func (m MemType) String() string {
	switch m {
	case ByValue:
		return "byvalue"
	case CPUMem:
		return "cpu"
	case GPUGlobal:
		return "gpu.global"
	case GPUShared:
		return "gpu.shared"
	case GPULocal:
		return "gpu.local"
	default:
		return "?"
	}
}

// Tensor is a shape (per-dimension length expressions) plus a scalar type.
type Tensor struct {
	Shape []Expr
	DType DataType
}

func (t Tensor) Rank() int { return len(t.Shape) }

// Buffer wraps a Tensor with the access and memory tags §3.3 requires.
// Each VarDef owns exactly one Buffer, whose lifetime equals the VarDef's
// body scope.
type Buffer struct {
	Tensor Tensor
	AType  AccessType
	MType  MemType
}

func NewBuffer(tensor Tensor, atype AccessType, mtype MemType) *Buffer {
	return &Buffer{Tensor: tensor, AType: atype, MType: mtype}
}

func (b *Buffer) Clone() *Buffer {
	cp := *b
	cp.Tensor.Shape = append([]Expr(nil), b.Tensor.Shape...)
	return &cp
}
