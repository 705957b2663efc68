package generator

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"testing"

	"csb/enginebench/control/constants"
	"csb/enginebench/data-generator/schema"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMakeChunkDeterminism(t *testing.T) {
	testCases := []struct {
		name  string
		count int
		seed  int64
	}{
		{"Small chunk", 100, 42},
		{"Medium chunk", 10_000, 42},
		{"Other seed", 10_000, constants.DEFAULT_SEED + 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// First execution
			rec1 := NewGenerator(rand.New(rand.NewSource(tc.seed))).MakeChunk(tc.count)
			defer rec1.Release()

			// Second execution
			rec2 := NewGenerator(rand.New(rand.NewSource(tc.seed))).MakeChunk(tc.count)
			defer rec2.Release()

			if rec1.NumRows() != int64(tc.count) {
				t.Errorf("Wrong number of rows generated: got %d, want %d", rec1.NumRows(), tc.count)
			}
			if int(rec1.NumCols()) != len(schema.Columns) {
				t.Errorf("Wrong number of columns: got %d, want %d", rec1.NumCols(), len(schema.Columns))
			}
			if !array.RecordEqual(rec1, rec2) {
				t.Error("Different records generated between executions")
			}
		})
	}
}

func TestMakeChunkDomains(t *testing.T) {
	rec := NewGenerator(rand.New(rand.NewSource(7))).MakeChunk(5_000)
	defer rec.Release()

	inDomain := func(column string, domain []string) {
		values := stringColumn(t, rec, column)
		allowed := make(map[string]bool, len(domain))
		for _, d := range domain {
			allowed[d] = true
		}
		for i := 0; i < values.Len(); i++ {
			if !allowed[values.Value(i)] {
				t.Fatalf("%s[%d] = %q is outside its domain", column, i, values.Value(i))
			}
		}
	}
	inDomain("company_name", schema.Companies)
	inDomain("function", schema.Functions)
	inDomain("year-month", schema.YearMonths)
	inDomain("num_of_children", schema.NumChildren)

	daysInMonth := int64Column(t, rec, "days_in_month")
	daysWorked := int64Column(t, rec, "days_worked")
	birthYear := int64Column(t, rec, "birth_year")
	age := int64Column(t, rec, "age")
	salary := float64Column(t, rec, "salary_usd")
	for i := 0; i < int(rec.NumRows()); i++ {
		if daysWorked.Value(i) < 0 || daysWorked.Value(i) >= daysInMonth.Value(i) {
			t.Fatalf("days_worked %d not in [0, %d)", daysWorked.Value(i), daysInMonth.Value(i))
		}
		if age.Value(i) != constants.DEFAULT_REFERENCE_YR-birthYear.Value(i) {
			t.Fatalf("age %d does not match birth year %d", age.Value(i), birthYear.Value(i))
		}
		if salary.Value(i) <= 0 {
			t.Fatalf("salary %f must be positive", salary.Value(i))
		}
	}
}

func TestProperty_HasChildDerivedFromNumChildren(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("has_child is 1 iff num_of_children is not the zero category", prop.ForAll(
		func(seed int64, n int) bool {
			rec := NewGenerator(rand.New(rand.NewSource(seed))).MakeChunk(n)
			defer rec.Release()

			children := stringColumn(t, rec, "num_of_children")
			hasChild := int64Column(t, rec, "has_child")
			for i := 0; i < n; i++ {
				want := int64(0)
				if children.Value(i) != schema.NoChildren {
					want = 1
				}
				if hasChild.Value(i) != want {
					return false
				}
			}
			return true
		},
		gen.Int64Range(1, 1<<40),
		gen.IntRange(1, 2_000),
	))

	properties.TestingRun(t)
}

func TestProperty_TotalRowsMatchRequest(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 15
	properties := gopter.NewProperties(parameters)

	properties.Property("rows across all parts equal the requested total", prop.ForAll(
		func(total, chunk int) bool {
			dir := t.TempDir()
			g := NewGenerator(rand.New(rand.NewSource(constants.DEFAULT_SEED)))
			info, err := g.GenerateDataset(context.Background(), Options{
				Dir:         dir,
				NumRows:     total,
				ChunkSize:   chunk,
				Compression: constants.COMPRESSION_NONE,
			})
			if err != nil {
				t.Logf("GenerateDataset: %v", err)
				return false
			}
			wantParts := (total + chunk - 1) / chunk
			if len(info.Parts) != wantParts || info.Rows != int64(total) {
				return false
			}
			return countRows(t, info.Parts) == int64(total)
		},
		gen.IntRange(1, 3_000),
		gen.IntRange(1, 1_000),
	))

	properties.TestingRun(t)
}

func TestGenerateDatasetSkipsExistingParts(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Dir: dir, NumRows: 2_500, ChunkSize: 1_000, Compression: constants.COMPRESSION_SNAPPY}

	first, err := NewGenerator(rand.New(rand.NewSource(1))).GenerateDataset(context.Background(), opts)
	if err != nil {
		t.Fatalf("GenerateDataset() error = %v", err)
	}
	if first.Skipped || len(first.Parts) != 3 {
		t.Fatalf("first run: skipped=%v parts=%d, want 3 fresh parts", first.Skipped, len(first.Parts))
	}
	before := readAll(t, first.Parts)

	// A different seed would produce different bytes if anything was rewritten
	second, err := NewGenerator(rand.New(rand.NewSource(2))).GenerateDataset(context.Background(), opts)
	if err != nil {
		t.Fatalf("GenerateDataset() error = %v", err)
	}
	if !second.Skipped {
		t.Error("second run should skip generation")
	}
	after := readAll(t, second.Parts)
	for path, content := range before {
		if !bytes.Equal(content, after[path]) {
			t.Errorf("part %s changed on regeneration", path)
		}
	}
}

func TestGenerateDatasetIsDeterministic(t *testing.T) {
	opts := func(dir string) Options {
		return Options{Dir: dir, NumRows: 1_500, ChunkSize: 400, Compression: constants.COMPRESSION_NONE}
	}
	dir1, dir2 := t.TempDir(), t.TempDir()
	info1, err := NewGenerator(rand.New(rand.NewSource(99))).GenerateDataset(context.Background(), opts(dir1))
	if err != nil {
		t.Fatal(err)
	}
	info2, err := NewGenerator(rand.New(rand.NewSource(99))).GenerateDataset(context.Background(), opts(dir2))
	if err != nil {
		t.Fatal(err)
	}
	if len(info1.Parts) != len(info2.Parts) {
		t.Fatalf("part count differs: %d vs %d", len(info1.Parts), len(info2.Parts))
	}
	for i := range info1.Parts {
		a, _ := os.ReadFile(info1.Parts[i])
		b, _ := os.ReadFile(info2.Parts[i])
		if !bytes.Equal(a, b) {
			t.Errorf("part %d differs between runs with the same seed", i)
		}
	}
}

func TestWritePartRejectsUnknownCompression(t *testing.T) {
	rec := NewGenerator(rand.New(rand.NewSource(1))).MakeChunk(10)
	defer rec.Release()
	path := PartPath(t.TempDir(), 0)
	if err := WritePart(path, rec, "brotli"); err == nil {
		t.Error("WritePart() expected error for unknown compression")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("no part should be left behind, stat err = %v", err)
	}
}

func columnByName(t *testing.T, rec arrow.Record, name string) arrow.Array {
	t.Helper()
	idx := rec.Schema().FieldIndices(name)
	if len(idx) != 1 {
		t.Fatalf("column %q not found", name)
	}
	return rec.Column(idx[0])
}

func stringColumn(t *testing.T, rec arrow.Record, name string) *array.String {
	return columnByName(t, rec, name).(*array.String)
}

func int64Column(t *testing.T, rec arrow.Record, name string) *array.Int64 {
	return columnByName(t, rec, name).(*array.Int64)
}

func float64Column(t *testing.T, rec arrow.Record, name string) *array.Float64 {
	return columnByName(t, rec, name).(*array.Float64)
}

func countRows(t *testing.T, parts []string) int64 {
	t.Helper()
	var total int64
	for _, p := range parts {
		rdr, err := file.OpenParquetFile(p, false)
		if err != nil {
			t.Fatalf("open %s: %v", p, err)
		}
		total += rdr.NumRows()
		rdr.Close()
	}
	return total
}

func readAll(t *testing.T, parts []string) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte, len(parts))
	for _, p := range parts {
		content, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		out[p] = content
	}
	return out
}
