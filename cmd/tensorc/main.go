package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"tensorc/internal/cerrors"
	"tensorc/internal/ir"
	"tensorc/internal/irtext"
	"tensorc/internal/lower"
	"tensorc/internal/target"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: tensorc build <file.tc> [--target gpu.yaml]")
		fmt.Println("       tensorc print <file.tc>")
		os.Exit(1)
	}

	cmd, path := os.Args[1], os.Args[2]
	switch cmd {
	case "print":
		runPrint(path)
	case "build":
		runBuild(path, os.Args[3:])
	default:
		color.Red("unknown command %q", cmd)
		os.Exit(1)
	}
}

func runPrint(path string) {
	trees, err := parseAndBuild(path)
	if err != nil {
		fail(err)
	}
	for name, tree := range trees {
		fmt.Printf("func %s {\n", name)
		fmt.Println(ir.Print(tree))
		fmt.Println("}")
	}
}

func runBuild(path string, rest []string) {
	trees, err := parseAndBuild(path)
	if err != nil {
		fail(err)
	}
	tgt := target.NewCPU()
	if len(rest) >= 2 && rest[0] == "--target" {
		tgt, err = target.Load(rest[1])
		if err != nil {
			fail(err)
		}
	}
	for name, tree := range trees {
		lowered, err := lower.Lower(tree, tgt)
		if err != nil {
			color.Red("%s: lowering failed: %s", name, err)
			os.Exit(1)
		}
		fmt.Printf("func %s (%s) {\n", name, tgt.Kind)
		fmt.Println(ir.Print(lowered))
		fmt.Println("}")
	}
	color.Green("✅ built %s", path)
}

func parseAndBuild(path string) (map[string]ir.Stmt, error) {
	prog, err := irtext.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return irtext.Build(prog)
}

func fail(err error) {
	if ce, ok := err.(*cerrors.CompilerError); ok {
		r := cerrors.NewReporter()
		fmt.Println(r.Format(ce))
	} else {
		color.Red("error: %s", err)
	}
	os.Exit(1)
}
