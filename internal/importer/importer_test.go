package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/claude/volleyplan/internal/models"
	"github.com/klauspost/compress/gzip"
)

type fakeStore struct {
	batches [][]models.Drill
	err     error
}

func (f *fakeStore) UpsertDrills(_ context.Context, drills []models.Drill) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.batches = append(f.batches, drills)
	return int64(len(drills)), nil
}

type fakeLogs struct {
	inserted []models.ImportLog
	updated  []models.ImportLog
}

func (f *fakeLogs) InsertImportLog(_ context.Context, log models.ImportLog) (int64, error) {
	f.inserted = append(f.inserted, log)
	return int64(len(f.inserted)), nil
}

func (f *fakeLogs) UpdateImportLog(_ context.Context, _ int64, log models.ImportLog) error {
	f.updated = append(f.updated, log)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const catalogJSON = `[
	{"id": 1, "name": "Pepper", "category": "Warm-up", "intensityType": "low"},
	{"id": "2", "name": "Serve targets", "skill_focus": "Serve, Reception"},
	{"name": "No id"},
	{"id": 1, "name": "Pepper again"}
]`

// TestParseRecords verifies arrays and both envelope keys are accepted.
func TestParseRecords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{name: "array", input: catalogJSON, want: 4},
		{name: "drills envelope", input: `{"drills": [{"id": 1}]}`, want: 1},
		{name: "items envelope", input: `{"items": [{"id": 1}, {"id": 2}]}`, want: 2},
		{name: "empty array", input: `[]`, wantErr: ErrEmptyCatalog},
		{name: "blank", input: "  ", wantErr: ErrEmptyCatalog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecords([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

// TestParseRecordsMalformed verifies invalid JSON is reported.
func TestParseRecordsMalformed(t *testing.T) {
	if _, err := ParseRecords([]byte(`[{"id": 1`)); !errors.Is(err, ErrMalformedCatalog) {
		t.Fatalf("err = %v, want ErrMalformedCatalog", err)
	}
	if _, err := ParseRecords([]byte(`{"drills": 5}`)); !errors.Is(err, ErrMalformedCatalog) {
		t.Fatalf("err = %v, want ErrMalformedCatalog", err)
	}
}

// TestImportSkipsInvalidAndDuplicates verifies records without an id and
// repeated ids are counted as skipped.
func TestImportSkipsInvalidAndDuplicates(t *testing.T) {
	store := &fakeStore{}
	imp := New(store, nil, discard(), false)

	stats, err := imp.Import(context.Background(), "test", []byte(catalogJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Received != 4 || stats.Upserted != 2 || stats.Skipped != 2 {
		t.Errorf("stats = %+v, want received 4, upserted 2, skipped 2", stats)
	}
	if len(store.batches) != 1 || len(store.batches[0]) != 2 {
		t.Fatalf("batches = %v, want one batch of 2", store.batches)
	}
	if got := store.batches[0][1].ID; got != 2 {
		t.Errorf("second drill id = %d, want 2", got)
	}
}

// TestImportDryRun verifies dry runs never touch the store or the log.
func TestImportDryRun(t *testing.T) {
	store := &fakeStore{}
	logs := &fakeLogs{}
	imp := New(store, logs, discard(), true)

	stats, err := imp.Import(context.Background(), "test", []byte(catalogJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Upserted != 2 {
		t.Errorf("upserted = %d, want 2", stats.Upserted)
	}
	if len(store.batches) != 0 {
		t.Errorf("store received %d batches in dry run", len(store.batches))
	}
	if len(logs.inserted) != 0 {
		t.Errorf("import log written in dry run")
	}
}

// TestImportBatches verifies large catalogs are split into batches.
func TestImportBatches(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i := 1; i <= batchSize+3; i++ {
		if i > 1 {
			buf.WriteString(",")
		}
		buf.WriteString(`{"id":`)
		buf.WriteString(strconv.Itoa(i))
		buf.WriteString("}")
	}
	buf.WriteString("]")

	store := &fakeStore{}
	stats, err := New(store, nil, discard(), false).Import(context.Background(), "big", buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(store.batches))
	}
	if len(store.batches[1]) != 3 {
		t.Errorf("last batch = %d, want 3", len(store.batches[1]))
	}
	if stats.Upserted != int64(batchSize+3) {
		t.Errorf("upserted = %d, want %d", stats.Upserted, batchSize+3)
	}
}

// TestImportLogsOutcome verifies the import log moves from running to success
// or error.
func TestImportLogsOutcome(t *testing.T) {
	logs := &fakeLogs{}
	imp := New(&fakeStore{}, logs, discard(), false)
	if _, err := imp.Import(context.Background(), "ok.json", []byte(catalogJSON)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs.inserted[0].Status != "running" {
		t.Errorf("inserted status = %q, want running", logs.inserted[0].Status)
	}
	if got := logs.updated[0]; got.Status != "success" || got.Upserted != 2 || got.DurationMs == nil {
		t.Errorf("updated log = %+v, want success with 2 upserted", got)
	}

	failing := New(&fakeStore{err: errors.New("db down")}, logs, discard(), false)
	if _, err := failing.Import(context.Background(), "bad.json", []byte(catalogJSON)); err == nil {
		t.Fatal("expected store error")
	}
	last := logs.updated[len(logs.updated)-1]
	if last.Status != "error" || last.ErrorMessage == nil {
		t.Errorf("failed log = %+v, want error with message", last)
	}
}

// TestImportFileGzip verifies gzip-compressed catalog files are detected.
func TestImportFileGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(`{"drills": [{"id": 7, "name": "Block footwork"}]}`)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "catalog.json.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	store := &fakeStore{}
	stats, err := New(store, nil, discard(), false).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Upserted != 1 || store.batches[0][0].Name != "Block footwork" {
		t.Errorf("stats = %+v, batches = %v", stats, store.batches)
	}
}

// TestDecompressPlain verifies non-gzip data passes through unchanged.
func TestDecompressPlain(t *testing.T) {
	in := []byte(`[{"id":1}]`)
	out, err := Decompress(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Errorf("Decompress changed plain input: %s", out)
	}
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// TestDecompressLimit verifies gzip payloads are cut off at the size cap.
func TestDecompressLimit(t *testing.T) {
	payload := gzipBytes(t, make([]byte, 4096))

	if _, err := decompress(payload, 4095); !errors.Is(err, ErrTooLarge) {
		t.Errorf("decompress over limit: err = %v, want ErrTooLarge", err)
	}
	out, err := decompress(payload, 4096)
	if err != nil {
		t.Fatalf("decompress at limit: unexpected error: %v", err)
	}
	if len(out) != 4096 {
		t.Errorf("decompressed %d bytes, want 4096", len(out))
	}
}

// TestImportRejectsOversizedGzip verifies a small gzip upload that expands
// past the cap is rejected as a malformed catalog before parsing.
func TestImportRejectsOversizedGzip(t *testing.T) {
	payload := gzipBytes(t, make([]byte, MaxDecompressedSize+1))
	if len(payload) >= MaxDecompressedSize/100 {
		t.Fatalf("compressed payload is %d bytes, expected a small bomb", len(payload))
	}

	store := &fakeStore{}
	_, err := New(store, nil, discard(), false).Import(context.Background(), "upload", payload)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	if !errors.Is(err, ErrMalformedCatalog) {
		t.Errorf("err = %v, want ErrMalformedCatalog", err)
	}
	if len(store.batches) != 0 {
		t.Errorf("upserted %d batches, want none", len(store.batches))
	}
}
