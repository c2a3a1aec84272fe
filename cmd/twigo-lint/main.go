// twigo-lint is a tool to check templates for syntax errors and, optionally,
// render one against a JSON context file.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/twigo-lang/twigo"
	"github.com/twigo-lang/twigo/errortypes"
	"github.com/twigo-lang/twigo/loader"
	"github.com/twigo-lang/twigo/parse"
	"github.com/twigo-lang/twigo/value"
)

func usage() {
	fmt.Print(`twigo-lint checks templates for syntax errors, or renders one.

Usage:

	twigo-lint check PATH...
	twigo-lint render TEMPLATE [CONTEXT.json]

check PATH elements may be files or directories; directories are searched
recursively for *.twig files.

render loads TEMPLATE relative to the current directory (its containing
directory becomes the template root, so extends/include resolve against
sibling files) and renders it to STDOUT. CONTEXT.json, if given, is decoded
and passed as the render context.
`)
}

var useColor = isatty.IsTerminal(os.Stdout.Fd())

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "check":
		err = runCheck(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		exit(err)
	}
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func runCheck(paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("check requires at least one PATH")
	}
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(path, ".twig") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	bad := 0
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := parse.Parse(f, string(src)); err != nil {
			bad++
			printDiagnostic(f, err)
			continue
		}
		printOK(f)
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d template(s) failed to parse", bad, len(files))
	}
	return nil
}

func printOK(file string) {
	if useColor {
		fmt.Printf("%s %s\n", color.GreenString("ok"), file)
		return
	}
	fmt.Printf("ok %s\n", file)
}

func printDiagnostic(file string, err error) {
	var ce *errortypes.CompileError
	if e, ok := err.(*errortypes.CompileError); ok {
		ce = e
	}
	if ce == nil {
		if useColor {
			fmt.Printf("%s %s: %s\n", color.RedString("fail"), file, err)
		} else {
			fmt.Printf("fail %s: %s\n", file, err)
		}
		return
	}
	if useColor {
		fmt.Printf("%s %s\n", color.RedString("fail"), color.YellowString(ce.Error()))
		if ce.SourceLine != "" {
			fmt.Println(ce.SourceLine)
			col := ce.Column
			if col < 1 {
				col = 1
			}
			fmt.Println(color.CyanString(strings.Repeat(" ", col-1) + "^"))
		}
		return
	}
	fmt.Print(ce.Render())
}

func runRender(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("render requires a TEMPLATE path")
	}
	tmplPath := args[0]
	root := filepath.Dir(tmplPath)
	key := filepath.Base(tmplPath)

	ctx := value.NewObject()
	if len(args) > 1 {
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		ctx, err = value.FromJSON(string(raw))
		if err != nil {
			return fmt.Errorf("decoding %s: %w", args[1], err)
		}
	}

	engine := twigo.NewEngine(loader.NewFileSystemLoader(".twig", root))
	out, err := engine.Render(key, ctx)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
