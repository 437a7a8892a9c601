// Command dotweb compiles, checks and serves DotWeb component pages.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/livetemplate/dotweb"
	"github.com/livetemplate/dotweb/cmd/dotweb/commands"
)

const version = "0.1.0-dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		printUsage()
		return 1
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "build":
		err = commands.BuildCommand(args)
	case "check":
		err = commands.CheckCommand(args)
	case "serve":
		err = commands.ServeCommand(args)
	case "new":
		err = commands.NewCommand(args)
	case "version":
		fmt.Printf("dotweb version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		return 1
	}

	if err != nil {
		var ce *dotweb.CompileError
		if errors.As(err, &ce) {
			fmt.Fprint(os.Stderr, ce.Format())
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Println("dotweb - Indentation-based components compiled to HTML")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dotweb build <file.web> [-o out.html]   Compile a page to HTML")
	fmt.Println("  dotweb check [paths...]                 Compile pages and markdown examples")
	fmt.Println("  dotweb serve [directory]                Start preview server")
	fmt.Println("  dotweb new <name> [--template=TYPE]     Create new project")
	fmt.Println("  dotweb version                          Show version")
	fmt.Println("  dotweb help                             Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  dotweb build index.web                  # Writes index.html")
	fmt.Println("  dotweb build card.dw -o dist/card.html  # Choose the output file")
	fmt.Println("  dotweb check                            # Check current directory")
	fmt.Println("  dotweb check docs/ README.md            # Check specific paths")
	fmt.Println("  dotweb serve --watch                    # Serve with live reload")
	fmt.Println("  dotweb serve ./site --port 3000         # Serve another directory")
	fmt.Println("  dotweb new my-site --template=landing   # Create from a template")
	fmt.Println("  dotweb new --list                       # List available templates")
}
