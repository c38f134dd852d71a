package cerrors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats CompilerError values the way the teacher's own
// ErrorReporter formats parse/semantic diagnostics: a colored level tag,
// the code-ish kind, the message, and the failing operation underneath.
type Reporter struct {
	NoColor bool
}

func NewReporter() *Reporter { return &Reporter{} }

func (r *Reporter) levelColor(k Kind) *color.Color {
	switch k {
	case InternalAssertion:
		return color.New(color.FgHiRed, color.Bold)
	case InvalidProgram, InvalidSchedule:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow, color.Bold)
	}
}

// Format renders err as a multi-line diagnostic.
func (r *Reporter) Format(err *CompilerError) string {
	var b strings.Builder
	lc := r.levelColor(err.Kind)
	if r.NoColor {
		lc.DisableColor()
	}
	fmt.Fprintf(&b, "%s: %s\n", lc.Sprint(err.Kind.String()), err.Message)
	if err.Op != "" {
		dim := color.New(color.Faint)
		if r.NoColor {
			dim.DisableColor()
		}
		fmt.Fprintf(&b, "  %s %s\n", dim.Sprint("-->"), err.Op)
	}
	if err.cause != nil {
		fmt.Fprintf(&b, "  caused by: %s\n", err.cause)
	}
	return b.String()
}

// Print writes the formatted diagnostic to stdout via fmt, the same
// pattern the teacher's CLI uses for compiler diagnostics.
func (r *Reporter) Print(err *CompilerError) {
	fmt.Print(r.Format(err))
}
