package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets this binary double as the "kushql" command inside
// testscript scripts: each exec'd "kushql" line re-runs this test binary
// as a subprocess, which dispatches to run() with the script's stdio.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"kushql": func() int {
			return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
		},
	}))
}
