package irtext

import "github.com/alecthomas/participle/v2/lexer"

// TensorLexer tokenizes the IR-construction DSL described in the grammar
// below, adapted from the teacher's KansoLexer to a smaller token set:
// arithmetic/compare operators instead of Solidity-style assignment
// operators, and a dotted-identifier rule so memory types like
// "gpu.shared" lex as one token.
var TensorLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Float", `[0-9]+\.[0-9]+`, nil},
		{"Int", `[0-9]+`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_.]*`, nil},
		{"Range", `\.\.`, nil},
		{"Operator", `(==|!=|<=|>=|\+=|-=|\*=|//|[-+*/%<>=])`, nil},
		{"Punctuation", `[{}\[\](),:;.@]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
