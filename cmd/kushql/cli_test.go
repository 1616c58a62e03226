package main

import (
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"kushql/internal/catalog"
	"kushql/internal/colfile"
)

// TestScripts drives cmd/kushql end-to-end through rogpeppe/go-internal's
// testscript, following the teacher's own dependency on go-internal
// (carried indirectly in its go.mod) and the spec's scenario-style
// expectations for the CLI: each .txtar file under testdata/script is one
// scenario, exercising the whole pipeline (flags, stdin/file input,
// multi-statement error isolation, -explain, -skinner validation)
// against a real sqlite catalog and real column files rather than mocks.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:   "testdata/script",
		Setup: setupFixtureCatalog,
	})
}

// setupFixtureCatalog builds a tiny "orders" table (orderkey, quantity)
// directly in the script's work directory, the same csv-ingest-then-save
// round trip internal/colfile/colfile_test.go and
// internal/catalog/catalog_test.go exercise independently.
func setupFixtureCatalog(env *testscript.Env) error {
	const csvData = "orderkey,quantity\n1,10.5\n2,20.5\n3,5.0\n"

	tbl, err := colfile.IngestCSV("orders", strings.NewReader(csvData), env.WorkDir)
	if err != nil {
		return err
	}

	catalogPath := env.WorkDir + "/catalog.db"
	if err := catalog.CreateSQLiteSchema(catalogPath); err != nil {
		return err
	}
	return catalog.SaveTable(catalogPath, tbl)
}
