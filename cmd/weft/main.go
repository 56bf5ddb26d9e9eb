package main

import (
	"fmt"
	"os"

	"github.com/weftlabs/weft/internal/artifact"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "run":
		err = cmdRun(os.Args[2:])
	case "tohtml":
		err = cmdExport(artifact.FormatHTML, os.Args[2:])
	case "toscript":
		err = cmdExport(artifact.FormatScript, os.Args[2:])
	case "tree":
		err = cmdTree(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "weft: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "weft: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `weft serves widget scripts as live panels and exports them as artifacts.

Usage:
  weft run [script.go RootName]     serve a widget over HTTP
  weft tohtml [script.go RootName]  export a self-contained HTML page
  weft toscript [script.go RootName]  export a standalone script
  weft tree [script.go RootName]    print the resource tree
  weft mcp [script.go RootName]     expose the widget over MCP (stdio)
  weft version                      print the version

Without arguments the commands look for a weft.yaml manifest in the
current directory. Flags (placed after the command) override both the
manifest and ~/.weft/settings.json.
`)
}
