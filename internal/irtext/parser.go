package irtext

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

func buildParser() (*participle.Parser[Program], error) {
	return participle.Build[Program](
		participle.Lexer(TensorLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(3),
	)
}

// ParseFile reads and parses a DSL source file into its grammar-level
// Program, the step before Build turns it into IR trees.
func ParseFile(path string) (*Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return ParseString(string(source))
}

// ParseString parses source directly, used by test fixtures that do not
// want to round-trip through a file.
func ParseString(source string) (*Program, error) {
	parser, err := buildParser()
	if err != nil {
		return nil, errors.Wrap(err, "building DSL parser")
	}
	prog, err := parser.ParseString("<string>", source)
	if err != nil {
		reportParseError(source, err)
		return nil, err
	}
	return prog, nil
}

// reportParseError prints a friendly caret-style parse error message.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("Unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("Syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
}
