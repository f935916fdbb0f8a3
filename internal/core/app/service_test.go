package app

import (
	"bytes"
	"context"
	stdErrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slicer/internal/core/config"
	domainErrors "slicer/internal/core/errors"
	"slicer/internal/core/ports"
	"slicer/internal/data/history"
)

const shopProgram = `{
  "source": "shop.ol",
  "children": [
    {"kind": "typeInline", "line": 1, "name": "Item", "native": "void",
     "subTypes": [{"kind": "typeInline", "line": 1, "name": "sku", "native": "string"}]},
    {"kind": "typeLink", "line": 2, "name": "Cart", "link": "Item"},
    {"kind": "typeInline", "line": 3, "name": "Unused", "native": "int"},
    {"kind": "interface", "line": 4, "name": "Stock", "operations": [
      {"kind": "requestResponseDecl", "line": 4, "name": "reserve", "request": "Item", "response": "bool"}
    ]},
    {"kind": "service", "line": 5, "name": "Back", "body": [
      {"kind": "inputPort", "line": 6, "name": "In", "location": "local", "interfaces": ["Stock"]}
    ]},
    {"kind": "service", "line": 8, "name": "Front", "parameter": {"name": "p", "type": "Cart"}, "body": [
      {"kind": "outputPort", "line": 9, "name": "Out", "location": "socket://back:8000", "interfaces": ["Stock"]}
    ]}
  ]
}`

const shopSelection = `{"Front": {"p": {"sku": "a"}}, "Back": null}`

type fixture struct {
	dir     string
	app     *App
	store   *history.Store
	service ports.SlicingService
	stdout  *bytes.Buffer
}

func newFixture(t *testing.T, selection string) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.ol.json"), []byte(shopProgram), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(selection), 0o644))

	store, err := history.Open(filepath.Join(dir, ".slicer", "history.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.DefaultConfig()
	cfg.Watch.Debounce = 20 * time.Millisecond
	stdout := &bytes.Buffer{}
	app, err := New(cfg, WithWorkingDir(dir), WithHistory(store), WithStdout(stdout))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	return &fixture{dir: dir, app: app, store: store, service: app.SlicingService(), stdout: stdout}
}

func shopRequest() ports.SliceRequest {
	return ports.SliceRequest{Program: "shop.ol.json", Selection: "config.json"}
}

func TestSlicingServiceWritesArtifacts(t *testing.T) {
	f := newFixture(t, shopSelection)

	result, err := f.service.Slice(context.Background(), shopRequest())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.dir, "shop"), result.OutputDir)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Services, 2)
	assert.Equal(t, "Back", result.Services[0].Name)
	assert.Equal(t, []string{"Item", "Stock", "Back"}, result.Services[0].Declarations)
	assert.Equal(t, []string{"Item", "Cart", "Stock", "Front"}, result.Services[1].Declarations)
	assert.NotContains(t, result.Services[1].Source, "Unused")
	assert.Equal(t, filepath.Join(f.dir, "shop", "front"), result.Services[1].Dir)

	assert.FileExists(t, filepath.Join(f.dir, "shop", "front", "Front.ol"))
	assert.FileExists(t, filepath.Join(f.dir, "shop", "back", "config.json"))
	assert.FileExists(t, filepath.Join(f.dir, "shop", "docker-compose.yml"))
	assert.Len(t, result.Files, 7)

	runs, err := f.service.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].ID)
	assert.Equal(t, history.StatusOK, runs[0].Status)
	require.Len(t, runs[0].Slices, 2)
	assert.Equal(t, 4, runs[0].Slices[1].Declarations)
}

func TestSlicingServiceDryRunPrintsSlices(t *testing.T) {
	f := newFixture(t, shopSelection)
	req := shopRequest()
	req.DryRun = true

	result, err := f.service.Slice(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, result.OutputDir)
	assert.Empty(t, result.Files)

	out := f.stdout.String()
	assert.Contains(t, out, "// ---- Back ----\n")
	assert.Contains(t, out, "// ---- Front ----\n")
	assert.Contains(t, out, "service Front( p : Cart ) {")
	assert.NoDirExists(t, filepath.Join(f.dir, "shop"))
}

func TestSlicingServiceNarrowsByPattern(t *testing.T) {
	f := newFixture(t, shopSelection)
	req := shopRequest()
	req.Services = []string{"F*"}

	result, err := f.service.Slice(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Services, 1)
	assert.Equal(t, "Front", result.Services[0].Name)
	assert.NoDirExists(t, filepath.Join(f.dir, "shop", "back"))
}

func TestSlicingServiceValidatesKeysOutsideThePattern(t *testing.T) {
	f := newFixture(t, `{"Front": {"p": {}}, "Ghost": {}}`)
	req := shopRequest()
	req.Services = []string{"Front"}

	_, err := f.service.Slice(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeUndeclaredService))
	assert.Contains(t, err.Error(), "Ghost")
	assert.NoDirExists(t, filepath.Join(f.dir, "shop"))
}

func TestSlicingServiceReportsEveryValidationError(t *testing.T) {
	f := newFixture(t, `{"Front": null, "Ghost": {}, "Phantom": {}}`)

	_, err := f.service.Slice(context.Background(), shopRequest())
	require.Error(t, err)
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeUndeclaredService))
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeParameterConfiguration))
	assert.Contains(t, err.Error(), "Ghost, Phantom")
	assert.NoDirExists(t, filepath.Join(f.dir, "shop"))

	runs, err := f.store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	assert.Equal(t, string(domainErrors.CodeUndeclaredService), runs[0].ErrorCode)
	assert.Empty(t, runs[0].Slices)
}

func TestSlicingServiceInputErrors(t *testing.T) {
	t.Run("missing selection file", func(t *testing.T) {
		f := newFixture(t, shopSelection)
		req := shopRequest()
		req.Selection = "absent.json"
		_, err := f.service.Slice(context.Background(), req)
		require.Error(t, err)
		assert.True(t, stdErrors.Is(err, fs.ErrNotExist), "I/O errors are returned unchanged: %v", err)
	})

	t.Run("no selection", func(t *testing.T) {
		f := newFixture(t, shopSelection)
		req := shopRequest()
		req.Selection = ""
		_, err := f.service.Slice(context.Background(), req)
		assert.True(t, domainErrors.IsCode(err, domainErrors.CodeValidationError))
	})

	t.Run("selection is not an object", func(t *testing.T) {
		f := newFixture(t, `["Front"]`)
		_, err := f.service.Slice(context.Background(), shopRequest())
		assert.True(t, domainErrors.IsCode(err, domainErrors.CodeConfigurationFormat))
		assert.NoDirExists(t, filepath.Join(f.dir, "shop"))
	})

	t.Run("selection format is checked before the program is read", func(t *testing.T) {
		f := newFixture(t, `"Front"`)
		require.NoError(t, os.Remove(filepath.Join(f.dir, "shop.ol.json")))
		_, err := f.service.Slice(context.Background(), shopRequest())
		assert.True(t, domainErrors.IsCode(err, domainErrors.CodeConfigurationFormat), "got %v", err)
		assert.False(t, stdErrors.Is(err, fs.ErrNotExist))

		require.NoError(t, os.WriteFile(filepath.Join(f.dir, "shop.ol.json"), []byte(`{"children": [{"kind": "nope"}]}`), 0o644))
		_, err = f.service.Slice(context.Background(), shopRequest())
		assert.True(t, domainErrors.IsCode(err, domainErrors.CodeConfigurationFormat), "got %v", err)
		assert.False(t, domainErrors.IsCode(err, domainErrors.CodeInvalidProgram))
		assert.NoDirExists(t, filepath.Join(f.dir, "shop"))
	})

	t.Run("undecodable program", func(t *testing.T) {
		f := newFixture(t, shopSelection)
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, "shop.ol.json"), []byte(`{"children": [{"kind": "nope"}]}`), 0o644))
		_, err := f.service.Slice(context.Background(), shopRequest())
		assert.True(t, domainErrors.IsCode(err, domainErrors.CodeInvalidProgram))
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture(t, shopSelection)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.service.Slice(ctx, shopRequest())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSlicingServiceListsDeclaredServices(t *testing.T) {
	f := newFixture(t, shopSelection)
	names, err := f.service.Services(context.Background(), "shop.ol.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"Back", "Front"}, names)
}

func TestSlicingServiceHistoryDisabled(t *testing.T) {
	app, err := New(config.DefaultConfig(), WithWorkingDir(t.TempDir()))
	require.NoError(t, err)
	_, err = app.SlicingService().History(context.Background(), 10)
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeNotSupported))
}

func TestNewRejectsUnknownCyclePolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Slicing.Cycles = "ignore"
	_, err := New(cfg)
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeValidationError))
}

func TestWatchServiceSlicesAgainOnChange(t *testing.T) {
	f := newFixture(t, shopSelection)
	results := make(chan ports.SliceResult, 4)

	watch := f.app.WatchService()
	err := watch.Start(context.Background(), shopRequest(), func(res ports.SliceResult, err error) {
		if err == nil {
			results <- res
		}
	})
	require.NoError(t, err)
	require.Error(t, watch.Start(context.Background(), shopRequest(), func(ports.SliceResult, error) {}))

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "config.json"), []byte(`{"Back": null}`), 0o644))

	select {
	case res := <-results:
		require.Len(t, res.Services, 1)
		assert.Equal(t, "Back", res.Services[0].Name)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a rerun after the selection changed")
	}
	require.NoError(t, watch.Stop())
}
