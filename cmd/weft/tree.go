package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/weftlabs/weft/internal/treeview"
)

func cmdTree(args []string) error {
	fs := flag.NewFlagSet("tree", flag.ExitOnError)
	format := fs.String("format", "ascii", "output format: ascii or mermaid")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(fs.Args())
	if err != nil {
		return err
	}

	model, err := treeview.Build(t.root)
	if err != nil {
		return err
	}
	switch *format {
	case "ascii":
		fmt.Fprint(os.Stdout, treeview.RenderASCII(model))
	case "mermaid":
		fmt.Fprint(os.Stdout, treeview.RenderMermaid(model))
	default:
		return fmt.Errorf("unknown format %q (want ascii or mermaid)", *format)
	}
	return nil
}
