package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Jduquenne/job-lens/internal/record"
	"github.com/Jduquenne/job-lens/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestExportFileName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "job-lens-backup-2024-02-29.json", ExportFileName(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)))
}

func TestBackupExportWritesIndentedArrayToDirectory(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	seedApplications(t, store, "Acme", "Globex")

	svc := NewBackupService(store.Applications)
	svc.now = func() time.Time { return time.Date(2024, 7, 14, 9, 0, 0, 0, time.UTC) }

	dir := filepath.Join(t.TempDir(), "exports")
	result, err := svc.Export(context.Background(), ExportRequest{Directory: dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "job-lens-backup-2024-07-14.json"), result.Path)
	require.Equal(t, 2, result.Count)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "[\n  {\n    \""))

	var payload []map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Len(t, payload, 2)
	require.Equal(t, "Acme", payload[0]["companyName"])
	require.EqualValues(t, 2, payload[0]["schemaVersion"])
}

func TestBackupExportEmptyCollectionWritesEmptyArray(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	svc := NewBackupService(store.Applications)

	var buf bytes.Buffer
	count, err := svc.WriteExport(context.Background(), &buf)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Equal(t, "[]\n", buf.String())
}

func TestBackupExportMigratesLegacyRecords(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	insertLegacy(t, store, "a1", `{"id":"a1","companyName":"Acme"}`)
	svc := NewBackupService(store.Applications)

	path := filepath.Join(t.TempDir(), "out.json")
	_, err := svc.Export(context.Background(), ExportRequest{OutputPath: path})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var payload []map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, "medium", payload[0]["priority"])
	require.Equal(t, []any{}, payload[0]["techStack"])
}

func TestBackupExportKeepsEveryImportedRecord(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	svc := NewBackupService(store.Applications)
	ctx := context.Background()

	legacy := `[
		{"id":"a","companyName":"Plain"},
		{"id":"b","companyName":"Blank dates","createdAt":""},
		{"id":"c","companyName":"Odd archive","archived":"yes"},
		{"id":"d","companyName":"Odd stack","techStack":"go"},
		{"id":"e","companyName":"Extra","extra":"keepme"}
	]`
	_, err := svc.ImportFrom(ctx, strings.NewReader(legacy), false)
	require.NoError(t, err)

	var buf bytes.Buffer
	count, err := svc.WriteExport(ctx, &buf)
	require.NoError(t, err)
	stored, err := store.Applications.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, stored, count)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	require.Len(t, payload, 5)

	byID := map[string]map[string]any{}
	for _, doc := range payload {
		byID[doc["id"].(string)] = doc
	}
	require.NotContains(t, byID["a"], "createdAt")
	require.Equal(t, "", byID["b"]["createdAt"])
	require.Equal(t, "yes", byID["c"]["archived"])
	require.Equal(t, "go", byID["d"]["techStack"])
	require.Equal(t, "keepme", byID["e"]["extra"])
	for _, doc := range payload {
		require.EqualValues(t, 2, doc["schemaVersion"])
	}

	dst := newAppTestStore(t)
	result, err := NewBackupService(dst.Applications).ImportFrom(ctx, bytes.NewReader(buf.Bytes()), true)
	require.NoError(t, err)
	require.Equal(t, 5, result.Imported)
}

func TestBackupExportFailsOnUnreadableRow(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	seedApplications(t, store, "Acme")
	insertLegacy(t, store, "broken", `not json`)

	var buf bytes.Buffer
	_, err := NewBackupService(store.Applications).WriteExport(context.Background(), &buf)
	require.ErrorIs(t, err, storage.ErrInvalidDocument)
	require.Contains(t, err.Error(), "broken")
	require.Zero(t, buf.Len())
}

func TestBackupImportMalformedFileLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not-json", payload: "{{{"},
		{name: "object", payload: `{"id":"x"}`},
		{name: "array-of-scalars", payload: `[1, 2]`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newAppTestStore(t)
			seedApplications(t, store, "Keeper")
			svc := NewBackupService(store.Applications)

			path := writeImportFile(t, tt.payload)
			_, err := svc.Import(context.Background(), ImportRequest{InputPath: path})
			require.ErrorIs(t, err, ErrInvalidImport)

			count, err := store.Applications.Count(context.Background())
			require.NoError(t, err)
			require.Equal(t, 1, count)
		})
	}
}

func TestBackupImportMissingFileIsIOError(t *testing.T) {
	t.Parallel()

	svc := NewBackupService(newAppTestStore(t).Applications)
	_, err := svc.Import(context.Background(), ImportRequest{InputPath: filepath.Join(t.TempDir(), "nope.json")})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBackupImportReplacesCollection(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	seedApplications(t, store, "Old")
	svc := NewBackupService(store.Applications)

	path := writeImportFile(t, `[{"id":"n1","companyName":"New One"},{"id":"n2","companyName":"New Two","schemaVersion":2}]`)
	result, err := svc.Import(context.Background(), ImportRequest{InputPath: path})
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	require.False(t, result.Atomic)
	require.Equal(t, path, result.Path)

	apps, err := store.Applications.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)
	require.Equal(t, "New One", apps[0].CompanyName)
}

func TestBackupImportDuplicateIDBestEffortVersusAtomic(t *testing.T) {
	t.Parallel()

	payload := `[{"id":"x","companyName":"First"},{"id":"x","companyName":"Second"}]`

	store := newAppTestStore(t)
	seedApplications(t, store, "Previous")
	svc := NewBackupService(store.Applications)
	_, err := svc.Import(context.Background(), ImportRequest{InputPath: writeImportFile(t, payload)})
	require.ErrorIs(t, err, storage.ErrDuplicateID)
	apps, err := store.Applications.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	require.Equal(t, "First", apps[0].CompanyName)

	atomicStore := newAppTestStore(t)
	seedApplications(t, atomicStore, "Previous")
	atomicSvc := NewBackupService(atomicStore.Applications)
	_, err = atomicSvc.Import(context.Background(), ImportRequest{InputPath: writeImportFile(t, payload), Atomic: true})
	require.ErrorIs(t, err, storage.ErrDuplicateID)
	apps, err = atomicStore.Applications.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	require.Equal(t, "Previous", apps[0].CompanyName)
}

func TestBackupExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	src := newAppTestStore(t)
	seedApplications(t, src, "Acme", "Globex", "Initech")
	path := filepath.Join(t.TempDir(), "backup.json")
	_, err := NewBackupService(src.Applications).Export(context.Background(), ExportRequest{OutputPath: path})
	require.NoError(t, err)

	dst := newAppTestStore(t)
	result, err := NewBackupService(dst.Applications).Import(context.Background(), ImportRequest{InputPath: path, Atomic: true})
	require.NoError(t, err)
	require.Equal(t, 3, result.Imported)

	want, err := src.Applications.GetAll(context.Background())
	require.NoError(t, err)
	got, err := dst.Applications.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].ID, got[i].ID)
		require.Equal(t, want[i].CompanyName, got[i].CompanyName)
		require.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
	}
}

func TestBackupClear(t *testing.T) {
	t.Parallel()

	store := newAppTestStore(t)
	seedApplications(t, store, "Acme", "Globex")
	require.NoError(t, NewBackupService(store.Applications).Clear(context.Background()))

	count, err := store.Applications.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func seedApplications(t *testing.T, store *storage.Store, companies ...string) {
	t.Helper()
	for _, company := range companies {
		require.NoError(t, store.Applications.Add(context.Background(), &record.Application{
			CompanyName: company,
			JobTitle:    "Engineer",
			Location:    "Remote",
		}))
	}
}

func writeImportFile(t *testing.T, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	return p
}
