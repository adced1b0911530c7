package interchange

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"traycore/internal/blob"
	"traycore/pkg/domain"
)

func trays(rotation domain.Rotation) []domain.Tray {
	return []domain.Tray{
		{SequenceID: 1, Name: "P1", Columns: 12, Rows: 8, Rotation: rotation},
		{SequenceID: 2, Name: "P2", Columns: 6, Rows: 4, Rotation: domain.Rotation270},
	}
}

func region(name string, seq, rowMin, rowMax, colMin, colMax int) domain.Region {
	return domain.Region{
		Name:           name,
		TraySequenceID: domain.SequenceID(seq),
		RowMin:         rowMin,
		RowMax:         rowMax,
		ColMin:         colMin,
		ColMax:         colMax,
		TreatmentID:    "t-1",
		Dilution:       "1:10",
	}
}

type tuple struct {
	Name                           string
	Tray                           int
	RowMin, RowMax, ColMin, ColMax int
}

func tuples(regions []domain.Region) []tuple {
	out := make([]tuple, 0, len(regions))
	for _, r := range regions {
		out = append(out, tuple{r.TrimmedName(), *r.TraySequenceID, r.RowMin, r.RowMax, r.ColMin, r.ColMax})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Tray != b.Tray {
			return a.Tray < b.Tray
		}
		return a.RowMin < b.RowMin
	})
	return out
}

func TestImportSingleBlock(t *testing.T) {
	doc := "Foo:\n  - tray: P1\n    upper_left: A1\n    lower_right: C3\n"
	res, err := Import([]byte(doc), trays(domain.Rotation0), 0)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(res.Regions) != 1 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	r := res.Regions[0]
	if r.Name != "Foo" || r.RowMin != 0 || r.RowMax != 2 || r.ColMin != 0 || r.ColMax != 2 {
		t.Fatalf("unexpected region %+v", r)
	}
	if !r.OnTray(1) || r.TreatmentID != "" || r.Dilution != "" || r.Color != domain.ColorFor(0) {
		t.Fatalf("unexpected region fields %+v", r)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	regions := []domain.Region{
		region("Foo", 1, 0, 2, 0, 2),
		region("Bar", 1, 4, 7, 5, 11),
		region("Foo", 2, 1, 3, 2, 5),
		region(" Baz ", 1, 3, 3, 9, 9),
	}
	for _, r := range []domain.Rotation{domain.Rotation0, domain.Rotation90, domain.Rotation180, domain.Rotation270} {
		cfg := trays(r)
		doc, skipped := Export(regions, cfg)
		if len(skipped) != 0 {
			t.Fatalf("rotation %d: unexpected skips %v", r, skipped)
		}
		res, err := Import(doc, cfg, len(regions))
		if err != nil {
			t.Fatalf("rotation %d: import: %v\n%s", r, err, doc)
		}
		if diff := cmp.Diff(tuples(regions), tuples(res.Regions)); diff != "" {
			t.Fatalf("rotation %d round trip (-want +got):\n%s\n%s", r, diff, doc)
		}
		for _, got := range res.Regions {
			if got.TreatmentID != "" || got.Dilution != "" {
				t.Fatalf("treatment and dilution must not round trip: %+v", got)
			}
		}
	}
}

func TestExportGroupsByName(t *testing.T) {
	regions := []domain.Region{
		region("Foo", 1, 0, 2, 0, 2),
		region("Bar", 1, 4, 4, 4, 4),
		region("Foo", 2, 0, 0, 0, 0),
	}
	doc, _ := Export(regions, trays(domain.Rotation0))
	want := strings.Join([]string{
		"Foo:",
		"  - tray: P1",
		"    upper_left: A1",
		"    lower_right: C3",
		"  - tray: P2",
		"    upper_left: A1",
		"    lower_right: A1",
		"",
		"Bar:",
		"  - tray: P1",
		"    upper_left: E5",
		"    lower_right: E5",
		"",
	}, "\n")
	if diff := cmp.Diff(want, string(doc)); diff != "" {
		t.Fatalf("export (-want +got):\n%s", diff)
	}
}

func TestExportIsValidYAML(t *testing.T) {
	regions := []domain.Region{
		region("Foo", 1, 0, 2, 0, 2),
		region("needs: quoting #1", 2, 0, 1, 0, 1),
	}
	doc, _ := Export(regions, trays(domain.Rotation90))
	var parsed map[string][]map[string]string
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		t.Fatalf("export is not YAML: %v\n%s", err, doc)
	}
	if len(parsed["needs: quoting #1"]) != 1 || parsed["Foo"][0]["tray"] != "P1" {
		t.Fatalf("unexpected YAML structure %+v", parsed)
	}
	res, err := Import(doc, trays(domain.Rotation90), 0)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if diff := cmp.Diff(tuples(regions), tuples(res.Regions)); diff != "" {
		t.Fatalf("quoted round trip (-want +got):\n%s", diff)
	}
}

func TestExportQuotesLineBreaks(t *testing.T) {
	regions := []domain.Region{
		region("line one\nline two", 1, 0, 0, 0, 1),
		region("carriage\rreturn", 1, 2, 2, 0, 0),
	}
	doc, skipped := Export(regions, trays(domain.Rotation0))
	if len(skipped) != 0 {
		t.Fatalf("unexpected skips %+v", skipped)
	}
	if lines := strings.Split(strings.TrimSpace(string(doc)), "\n"); len(lines) != 9 {
		t.Fatalf("expected 2 blocks of 4 lines, got %d:\n%s", len(lines), doc)
	}
	res, err := Import(doc, trays(domain.Rotation0), 0)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if diff := cmp.Diff(tuples(regions), tuples(res.Regions)); diff != "" {
		t.Fatalf("line break round trip (-want +got):\n%s", diff)
	}
}

func TestExportSkipsUnnamedAndUnknownTray(t *testing.T) {
	regions := []domain.Region{
		region("", 1, 0, 0, 0, 0),
		region("Ghost", 9, 0, 0, 0, 0),
		{Name: "Legacy", RowMax: 1, ColMax: 1},
		region("Foo", 1, 0, 0, 0, 0),
	}
	doc, skipped := Export(regions, trays(domain.Rotation0))
	if len(skipped) != 3 {
		t.Fatalf("expected 3 skips, got %v", skipped)
	}
	if !strings.HasPrefix(string(doc), "Foo:\n") {
		t.Fatalf("unexpected document %q", doc)
	}
}

func TestImportSkipsBrokenEntries(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	codec := New(WithLogger(zap.New(core)))
	doc := strings.Join([]string{
		"# exported regions",
		"Foo:",
		"  - tray: 'P1'",
		"    upper_left: a1",
		"    lower_right: \"C3\"",
		"  - tray: P9",
		"    upper_left: A1",
		"    lower_right: A1",
		"  - tray: P1",
		"    upper_left: A1",
		"Bar:",
		"  - tray: P1",
		"    upper_left: Z1",
		"    lower_right: A1",
		"  nonsense here",
		"Qux:",
		"    lower_right: A1",
		"Baz:",
		"\t- tray: P2",
		"\t  upper_left: B2",
		"\t  lower_right: D4",
		"",
	}, "\n")
	res, err := codec.Import([]byte(doc), trays(domain.Rotation0), 3)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	want := []tuple{
		{"Baz", 2, 1, 3, 1, 3},
		{"Foo", 1, 0, 2, 0, 2},
	}
	if diff := cmp.Diff(want, tuples(res.Regions)); diff != "" {
		t.Fatalf("recovered regions (-want +got):\n%s", diff)
	}
	if res.Regions[0].Color != domain.ColorFor(3) || res.Regions[1].Color != domain.ColorFor(4) {
		t.Fatalf("colors must cycle from the start index")
	}
	if len(res.Skipped) != 5 {
		t.Fatalf("expected 5 skips, got %v", res.Skipped)
	}
	if logs.FilterMessage("interchange entry skipped").Len() != len(res.Skipped) {
		t.Fatalf("expected one diagnostic per skip")
	}
}

func TestImportAbortsWhenNothingRecovered(t *testing.T) {
	for _, doc := range []string{"", "garbage\n\n", "Foo:\n  - tray: P1\n", "Foo:\n  - tray: Nope\n    upper_left: A1\n    lower_right: A1\n"} {
		res, err := Import([]byte(doc), trays(domain.Rotation0), 0)
		if !errors.Is(err, ErrNothingImported) {
			t.Fatalf("doc %q: expected ErrNothingImported, got %v", doc, err)
		}
		if len(res.Regions) != 0 {
			t.Fatalf("doc %q: aborted import must not return regions", doc)
		}
	}
}

func TestDocumentExtensionAndStorage(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	if _, err := WriteDocument(ctx, store, "exp/regions.txt", []byte("x"), nil); !errors.Is(err, ErrUnsupportedExtension) {
		t.Fatalf("expected extension error, got %v", err)
	}
	if _, err := WriteDocument(ctx, store, "exp/regions.YML", []byte("one"), nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := WriteDocument(ctx, store, "exp/regions.YML", []byte("two"), map[string]string{"experiment": "exp"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err := ReadDocument(ctx, store, "exp/regions.YML")
	if err != nil || string(data) != "two" {
		t.Fatalf("read: %q %v", data, err)
	}
	if _, err := ReadDocument(ctx, store, "exp/missing.yaml"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
