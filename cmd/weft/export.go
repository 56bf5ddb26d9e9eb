package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weftlabs/weft/internal/artifact"
)

// cmdExport serves both "tohtml" and "toscript".
func cmdExport(format string, args []string) error {
	fs := flag.NewFlagSet(format, flag.ExitOnError)
	out := fs.String("o", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(fs.Args())
	if err != nil {
		return err
	}

	p, err := artifact.NewPackager()
	if err != nil {
		return err
	}
	data, err := t.root.ToArtifact(p, format)
	if err != nil {
		return err
	}

	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	// A checksum sidecar rides along with file output, so published
	// artifacts can be verified.
	sumPath := *out + ".sha256"
	sums := map[string]string{filepath.Base(*out): artifact.Sha256Bytes(data)}
	if err := artifact.WriteChecksumFile(sumPath, sums); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", *out, len(data))
	return nil
}
