package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gardar/tallyocr/pkg/outcome"
	"github.com/gardar/tallyocr/pkg/textract"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTable(t *testing.T, tables ...textract.Table) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textract_table_cm.csv")
	text := textract.Sanitize(textract.SerializeTables(tables))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sheet(rows ...[2]string) textract.Table {
	t := textract.Table{}
	for i, r := range rows {
		t.Set(i+1, 1, r[0]+" ")
		t.Set(i+1, 2, r[1]+" ")
	}
	return t
}

func TestReconcileCommand(t *testing.T) {
	path := writeTable(t, sheet(
		[2]string{"RECEP TAYYİP ERDOĞAN", "100"},
		[2]string{"MUHARREM 1NCE", "50"},
		[2]string{"TOPLAM", "150"},
	))

	out, err := runCLI(t, "reconcile", "--table", path)
	if err != nil {
		t.Fatalf("reconcile returned error: %v\n%s", err, out)
	}
	for _, want := range []string{"RECEP TAYYIP ERDOGAN", "MUHARREM INCE", "Match: yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestReconcileCommandMismatch(t *testing.T) {
	path := writeTable(t,
		sheet([2]string{"RECEP TAYYIP ERDOGAN", "100"}, [2]string{"TOPLAM", "200"}),
		sheet([2]string{"SINAN OGAN", "50"}),
	)

	out, err := runCLI(t, "reconcile", "--table", path)
	if !errors.Is(err, errMismatch) {
		t.Fatalf("error = %v, want errMismatch", err)
	}
	if !strings.Contains(out, "Match: no") || !strings.Contains(out, "Merged tables: [1 2]") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestOutcomesCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "outcomes.db")
	store, err := outcome.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	total := 200
	ctx := context.Background()
	for _, rec := range []outcome.Record{
		{ID: "1001", State: outcome.Verified, Sum: 150, Counts: map[string]int{"A": 150}},
		{ID: "1002", State: outcome.Quarantined, Sum: 150, DeclaredTotal: &total, Reason: "sum 150 does not match declared total 200"},
	} {
		if err := store.Put(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	_ = store.Close()

	config := writeConfig(t, "storage_url: \"mem://\"\noutcome_db: "+db+"\n")
	out, err := runCLI(t, "outcomes", "--config", config, "--state", "quarantined")
	if err != nil {
		t.Fatalf("outcomes returned error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1002") || strings.Contains(out, "1001") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "verified: 1, quarantined: 1") {
		t.Fatalf("missing counts line:\n%s", out)
	}
}

func TestOutcomesCommandRejectsUnknownState(t *testing.T) {
	if _, err := runCLI(t, "outcomes", "--state", "lost"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunCommandRequiresInput(t *testing.T) {
	if _, err := runCLI(t, "run"); err == nil {
		t.Fatal("expected error")
	}
}
