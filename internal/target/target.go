// Package target implements the target descriptor the Lowering Driver
// (C6) branches on: a closed tagged union of CPU and GPU, the GPU arm
// carrying architecture attributes (arch, warp size, thread-block cap,
// shared-memory budget). The driver branches only on the kind; no pass
// reads the GPU attributes. Descriptors are ordinarily
// loaded from a small YAML file alongside a kernel, mirroring the way the
// corpus's production CLIs load structured config with gopkg.in/yaml.v3.
package target

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Kind discriminates the Target union.
type Kind int

const (
	CPU Kind = iota
	GPU
)

func (k Kind) String() string {
	if k == GPU {
		return "gpu"
	}
	return "cpu"
}

// GPUAttrs carries the architecture parameters of a GPU target: arch
// name, warp size, thread-block cap and shared-memory budget. They are
// parsed and stored; the lowering passes do not consult them.
type GPUAttrs struct {
	Arch                string `yaml:"arch"`
	WarpSize            int    `yaml:"warpSize"`
	MaxThreadsPerBlock  int    `yaml:"maxThreadsPerBlock"`
	SharedMemBytes      int    `yaml:"sharedMemBytes"`
}

// Target is the descriptor the Lowering Driver's New consumes.
type Target struct {
	Kind Kind
	GPU  GPUAttrs
}

// NewCPU returns the CPU member of the union.
func NewCPU() Target { return Target{Kind: CPU} }

// NewGPU returns the GPU member with the given attributes.
func NewGPU(attrs GPUAttrs) Target { return Target{Kind: GPU, GPU: attrs} }

// yamlDoc mirrors the on-disk shape: a "kind" discriminant plus an
// optional "gpu" block, present only when kind is "gpu".
type yamlDoc struct {
	Kind string    `yaml:"kind"`
	GPU  *GPUAttrs `yaml:"gpu"`
}

// Load parses a target descriptor from a YAML file.
func Load(path string) (Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Target{}, errors.Wrapf(err, "reading target descriptor %s", path)
	}
	return Parse(data)
}

// Parse parses a target descriptor from YAML bytes.
func Parse(data []byte) (Target, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Target{}, errors.Wrap(err, "parsing target descriptor")
	}
	switch doc.Kind {
	case "", "cpu":
		return NewCPU(), nil
	case "gpu":
		if doc.GPU == nil {
			return Target{}, errors.New("gpu target descriptor missing gpu attributes")
		}
		return NewGPU(*doc.GPU), nil
	default:
		return Target{}, errors.Errorf("unknown target kind %q", doc.Kind)
	}
}

// IsGPU reports whether t selects the GPU lowering branch.
func (t Target) IsGPU() bool { return t.Kind == GPU }
