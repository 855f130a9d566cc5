package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"backend-avltrack/internal/shapefile"

	"github.com/pashagolub/pgxmock/v3"
)

func testBundle() shapefile.Bundle {
	return shapefile.Bundle{
		SHP: []byte("shp-bytes"),
		SHX: []byte("shx-bytes"),
		DBF: []byte("dbf-bytes"),
		PRJ: []byte(shapefile.WGS84),
	}
}

func TestSaveObject(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "dev-1", "/tmp/dev-1_path.shp", "shp").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock, t.TempDir())
	id, err := svc.SaveObject(context.Background(), "dev-1", "/tmp/dev-1_path.shp", "shp")
	if err != nil {
		t.Fatalf("save object: %v", err)
	}
	if id == "" {
		t.Fatalf("expected id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveObjectError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "dev-1", "url", "kind").
		WillReturnError(errSave)

	svc := NewService(mock, t.TempDir())
	_, err = svc.SaveObject(context.Background(), "dev-1", "url", "kind")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestSaveBundleWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shapefiles")
	svc := NewService(nil, dir)

	paths, err := svc.SaveBundle(context.Background(), "dev-1", testBundle())
	if err != nil {
		t.Fatalf("save bundle: %v", err)
	}
	for _, ext := range shapefile.Extensions {
		want := filepath.Join(dir, "dev-1_path."+ext)
		if paths[ext] != want {
			t.Fatalf("%s path = %q, want %q", ext, paths[ext], want)
		}
		data, err := os.ReadFile(want)
		if err != nil {
			t.Fatalf("read %s: %v", ext, err)
		}
		if !bytes.Equal(data, testBundle().File(ext)) {
			t.Fatalf("%s content mismatch", ext)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != len(shapefile.Extensions) {
		t.Fatalf("expected only bundle files, found %d entries", len(entries))
	}
}

func TestSaveBundleRecordsObjects(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	dir := t.TempDir()
	for _, ext := range shapefile.Extensions {
		mock.ExpectExec(`INSERT INTO storage_objects`).
			WithArgs(pgxmock.AnyArg(), "dev-1", filepath.Join(dir, "dev-1_path."+ext), ext).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	svc := NewService(mock, dir)
	if _, err := svc.SaveBundle(context.Background(), "dev-1", testBundle()); err != nil {
		t.Fatalf("save bundle: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveBundleRecordError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO storage_objects`).
		WithArgs(pgxmock.AnyArg(), "dev-1", pgxmock.AnyArg(), "shp").
		WillReturnError(errSave)

	svc := NewService(mock, t.TempDir())
	if _, err := svc.SaveBundle(context.Background(), "dev-1", testBundle()); !errors.Is(err, errSave) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	svc := NewService(nil, t.TempDir())
	for _, id := range []string{"", ".", "..", "../etc", `a\b`, "a/b"} {
		if _, err := svc.Path(id, "shp"); !errors.Is(err, ErrInvalidDeviceID) {
			t.Fatalf("expected ErrInvalidDeviceID for %q", id)
		}
	}
	if _, err := svc.SaveBundle(context.Background(), "../x", testBundle()); !errors.Is(err, ErrInvalidDeviceID) {
		t.Fatalf("expected save to reject traversal")
	}
}

var errSave = errors.New("save error")
