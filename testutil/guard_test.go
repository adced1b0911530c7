package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImportPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred func(string) bool
		in   string
		want bool
	}{
		{"internal", InternalImportForbidden, "traycore/internal/core", true},
		{"internal pkg", InternalImportForbidden, "traycore/pkg/domain", false},
		{"infra", InfraImportForbidden, "traycore/internal/infra/blob/s3", true},
		{"infra facade", InfraImportForbidden, "traycore/internal/blob", false},
		{"sqlite", StorageDriverImportForbidden, "modernc.org/sqlite", true},
		{"pgx", StorageDriverImportForbidden, "github.com/jackc/pgx/v5/stdlib", true},
		{"sql", StorageDriverImportForbidden, "database/sql", true},
		{"sql driver", StorageDriverImportForbidden, "database/sql/driver", true},
		{"aws", StorageDriverImportForbidden, "github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"zap", StorageDriverImportForbidden, "go.uber.org/zap", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("%s: pred(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
	combined := Any(InfraImportForbidden, StorageDriverImportForbidden)
	if !combined("modernc.org/sqlite") || !combined("traycore/internal/infra/persistence/memory") || combined("fmt") {
		t.Fatalf("Any should match when one predicate matches")
	}
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) {
	r.msg = format
	if len(args) > 1 {
		if s, ok := args[1].(string); ok {
			r.msg += s
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.go":      "package tmp\nimport (\n\t\"fmt\"\n\t\"traycore/internal/infra/blob/fs\"\n)\nvar _ = fmt.Sprint\nvar _ = fs.New\n",
		"b_test.go": "package tmp\nimport \"modernc.org/sqlite\"\n",
		"notes.txt": "import \"database/sql\"",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	viols, err := directImportViolations(dir, Any(InfraImportForbidden, StorageDriverImportForbidden))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.Contains(viols[0], "(in a.go)") {
		t.Fatalf("expected one violation in a.go, got %v", viols)
	}

	rec := &recordingFatal{}
	failIfDirectViolations(rec, "layering", viols)
	if !strings.Contains(rec.msg, "traycore/internal/infra/blob/fs") {
		t.Fatalf("expected violation in failure, got %q", rec.msg)
	}
	rec = &recordingFatal{}
	failIfDirectViolations(rec, "layering", nil)
	if rec.msg != "" {
		t.Fatalf("no violations must not fail")
	}
}

func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.go"), []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, StorageDriverImportForbidden, "none")

	if _, err := directImportViolations(filepath.Join(dir, "missing"), StorageDriverImportForbidden); err == nil {
		t.Fatalf("expected read dir error")
	}
}
