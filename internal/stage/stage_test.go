package stage

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/farsight-labs/dspipe/internal/runconfig"
	"github.com/farsight-labs/dspipe/internal/storage/objectstore"
)

// fakeStore serves canned object bodies keyed by bucket/key and records
// every download.
type fakeStore struct {
	objects   map[string][]byte
	downloads []string
	failKey   string
}

func objectID(bucket, key string) string { return bucket + "/" + key }

func (f *fakeStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, objectstore.ObjectInfo, error) {
	body, ok := f.objects[objectID(bucket, key)]
	if !ok {
		return nil, objectstore.ObjectInfo{}, fmt.Errorf("no such object: %s/%s", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(body)), objectstore.ObjectInfo{Key: key, Size: int64(len(body))}, nil
}

func (f *fakeStore) Put(_ context.Context, bucket, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[objectID(bucket, key)] = data
	return nil
}

func (f *fakeStore) Stat(_ context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	body, ok := f.objects[objectID(bucket, key)]
	if !ok {
		return objectstore.ObjectInfo{}, fmt.Errorf("no such object: %s/%s", bucket, key)
	}
	return objectstore.ObjectInfo{Key: key, Size: int64(len(body))}, nil
}

func (f *fakeStore) Download(_ context.Context, bucket, key, path string) error {
	if key == f.failKey {
		return errors.New("connection reset")
	}
	body, ok := f.objects[objectID(bucket, key)]
	if !ok {
		return fmt.Errorf("no such object: %s/%s", bucket, key)
	}
	f.downloads = append(f.downloads, objectID(bucket, key))
	return os.WriteFile(path, body, 0o644)
}

func (f *fakeStore) Upload(_ context.Context, path, bucket, key, _ string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f.objects[objectID(bucket, key)] = data
	return nil
}

func baseConfig() runconfig.RunConfig {
	return runconfig.RunConfig{
		InputBucket:    "b-in",
		OutputBucket:   "b-out",
		ArtifactBucket: "b-art",
		InputKey:       "raw/monthly_data.csv",
		ModelKey:       "models/preprocessing_model.pkl",
	}
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{
		"b-in/raw/monthly_data.csv":            []byte("id,value\n1,a\n"),
		"b-art/models/preprocessing_model.pkl": []byte{0x80, 0x04},
	}}
}

func packageArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if content == "" && name[len(name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(content)); err != nil {
				t.Fatalf("tar body: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestStage_RequiredOnly(t *testing.T) {
	store := newFakeStore()
	stager, err := NewStager(store, nil)
	if err != nil {
		t.Fatalf("NewStager() err=%v", err)
	}

	dir, err := stager.Stage(context.Background(), baseConfig(), t.TempDir())
	if err != nil {
		t.Fatalf("Stage() err=%v", err)
	}
	if len(store.downloads) != 2 {
		t.Fatalf("downloads=%v, want exactly two", store.downloads)
	}
	if _, err := os.Stat(dir.InputPath()); err != nil {
		t.Fatalf("input not staged: %v", err)
	}
	if _, err := os.Stat(dir.ModelPath()); err != nil {
		t.Fatalf("model not staged: %v", err)
	}
	if dir.HasScript() {
		t.Fatalf("no script expected")
	}
}

func TestStage_FetchFailureNamesBucketAndKey(t *testing.T) {
	store := newFakeStore()
	store.failKey = "models/preprocessing_model.pkl"
	stager, _ := NewStager(store, nil)

	_, err := stager.Stage(context.Background(), baseConfig(), t.TempDir())
	var fetchErr FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Stage() err=%v, want FetchError", err)
	}
	if fetchErr.Bucket != "b-art" || fetchErr.Key != "models/preprocessing_model.pkl" {
		t.Fatalf("FetchError=%+v", fetchErr)
	}
}

func TestStage_WithScript(t *testing.T) {
	store := newFakeStore()
	store.objects["b-art/scripts/custom.py"] = []byte("print('hi')\n")
	cfg := baseConfig()
	cfg.ScriptKey = runconfig.Some("scripts/custom.py")
	stager, _ := NewStager(store, nil)

	dir, err := stager.Stage(context.Background(), cfg, t.TempDir())
	if err != nil {
		t.Fatalf("Stage() err=%v", err)
	}
	if len(store.downloads) != 3 {
		t.Fatalf("downloads=%v, want exactly three", store.downloads)
	}
	if !dir.HasScript() {
		t.Fatalf("script expected at %s", dir.ScriptPath())
	}
}

func TestStage_WithPackage(t *testing.T) {
	store := newFakeStore()
	store.objects["b-art/packages/custom_package.tar.gz"] = packageArchive(t, map[string]string{
		"custom_package/helpers.py":  "def helper(): pass\n",
		"custom_package/__init__.py": "",
	})
	cfg := baseConfig()
	cfg.PackageKey = runconfig.Some("packages/custom_package.tar.gz")
	stager, _ := NewStager(store, nil)

	dir, err := stager.Stage(context.Background(), cfg, t.TempDir())
	if err != nil {
		t.Fatalf("Stage() err=%v", err)
	}
	extracted := filepath.Join(dir.Root, "custom_package", "helpers.py")
	if _, err := os.Stat(extracted); err != nil {
		t.Fatalf("package not extracted preserving top-level dir: %v", err)
	}
}

func TestStage_PackageTraversalRejected(t *testing.T) {
	store := newFakeStore()
	store.objects["b-art/packages/custom_package.tar.gz"] = packageArchive(t, map[string]string{
		"../evil.py": "import os\n",
	})
	cfg := baseConfig()
	cfg.PackageKey = runconfig.Some("packages/custom_package.tar.gz")
	stager, _ := NewStager(store, nil)

	root := t.TempDir()
	_, err := stager.Stage(context.Background(), cfg, root)
	var extractErr ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("Stage() err=%v, want ExtractError", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(root), "evil.py")); statErr == nil {
		t.Fatalf("traversal entry escaped the working directory")
	}
}

func TestStage_CorruptPackage(t *testing.T) {
	store := newFakeStore()
	store.objects["b-art/packages/custom_package.tar.gz"] = []byte("not a gzip stream")
	cfg := baseConfig()
	cfg.PackageKey = runconfig.Some("packages/custom_package.tar.gz")
	stager, _ := NewStager(store, nil)

	_, err := stager.Stage(context.Background(), cfg, t.TempDir())
	var extractErr ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("Stage() err=%v, want ExtractError", err)
	}
}

func TestStage_ReusesExistingRoot(t *testing.T) {
	store := newFakeStore()
	stager, _ := NewStager(store, nil)
	root := t.TempDir()

	if _, err := stager.Stage(context.Background(), baseConfig(), root); err != nil {
		t.Fatalf("first Stage() err=%v", err)
	}
	if _, err := stager.Stage(context.Background(), baseConfig(), root); err != nil {
		t.Fatalf("restaged into existing root: %v", err)
	}
}
