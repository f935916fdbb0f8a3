// Package artifacts lays out sliced services as deployable directories: one
// directory per service with its source, the configuration file and a
// Dockerfile, plus a compose file tying them together.
package artifacts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"slicer/internal/core/config"
	domainErrors "slicer/internal/core/errors"
	"slicer/internal/shared/util"
)

const Dockerfile = "Dockerfile"

type Options struct {
	BaseImage      string
	Interpreter    string
	SourceExt      string
	ComposeFile    string
	ComposeVersion string
}

// OptionsFromConfig reads the [output] and [docker] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseImage:      cfg.Docker.BaseImage,
		Interpreter:    cfg.Docker.Interpreter,
		SourceExt:      cfg.Output.SourceExt,
		ComposeFile:    cfg.Output.ComposeFile,
		ComposeVersion: cfg.Output.ComposeVersion,
	}
}

// Slice is the rendered source of one service.
type Slice struct {
	Service string
	Source  string
}

// Bundle is everything written for one run. ConfigName is the base name
// the configuration is copied under in every service directory.
type Bundle struct {
	ConfigName string
	Config     []byte
	Slices     []Slice
}

type Result struct {
	Dir   string
	Files []string
}

type Writer struct {
	opts Options
}

func NewWriter(opts Options) *Writer {
	defaults := config.DefaultConfig()
	if opts.BaseImage == "" {
		opts.BaseImage = defaults.Docker.BaseImage
	}
	if opts.Interpreter == "" {
		opts.Interpreter = defaults.Docker.Interpreter
	}
	if opts.SourceExt == "" {
		opts.SourceExt = defaults.Output.SourceExt
	}
	if opts.ComposeFile == "" {
		opts.ComposeFile = defaults.Output.ComposeFile
	}
	if opts.ComposeVersion == "" {
		opts.ComposeVersion = defaults.Output.ComposeVersion
	}
	return &Writer{opts: opts}
}

// DirName is the directory a service is written to.
func DirName(service string) string {
	return strings.ToLower(service)
}

// SourceFile is the file name of a service's rendered source.
func (w *Writer) SourceFile(service string) string {
	return service + w.opts.SourceExt
}

// Dockerfile returns the image description of one service.
func (w *Writer) Dockerfile(service, configName string) string {
	src := w.SourceFile(service)
	return fmt.Sprintf("FROM %s\nCOPY %s .\nCOPY %s .\nCMD [%q, %q, %q, %q]\n",
		w.opts.BaseImage, src, configName, w.opts.Interpreter, "--params", configName, src)
}

type composeFile struct {
	Version  string                    `yaml:"version"`
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Build string `yaml:"build"`
}

// Compose returns the compose descriptor building every service directory.
func (w *Writer) Compose(services []string) ([]byte, error) {
	doc := composeFile{Version: w.opts.ComposeVersion, Services: make(map[string]composeService, len(services))}
	for _, svc := range services {
		dir := DirName(svc)
		doc.Services[dir] = composeService{Build: "./" + dir}
	}
	return yaml.Marshal(doc)
}

// Write stages the whole bundle in a temporary sibling of outDir and
// promotes it only once every file was written. Entries of outDir that the
// bundle does not produce are left alone.
func (w *Writer) Write(outDir string, bundle Bundle) (*Result, error) {
	if err := w.check(bundle); err != nil {
		return nil, err
	}

	parent := filepath.Dir(outDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create output parent %q: %w", parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(outDir)+"-staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	written, err := w.stage(staging, bundle)
	if err != nil {
		return nil, err
	}
	// MkdirTemp creates 0700; a fresh outDir is the renamed staging dir.
	if err := os.Chmod(staging, 0o755); err != nil {
		return nil, fmt.Errorf("set staging permissions: %w", err)
	}
	if err := promote(staging, outDir); err != nil {
		return nil, err
	}

	result := &Result{Dir: outDir}
	for _, rel := range written {
		result.Files = append(result.Files, filepath.Join(outDir, rel))
	}
	slog.Info("Artifacts written", "dir", outDir, "services", len(bundle.Slices), "files", len(result.Files))
	return result, nil
}

func (w *Writer) check(bundle Bundle) error {
	if len(bundle.Slices) == 0 {
		return domainErrors.New(domainErrors.CodeValidationError, "no slices to write")
	}
	if bundle.ConfigName == "" || filepath.Base(bundle.ConfigName) != bundle.ConfigName {
		return domainErrors.Newf(domainErrors.CodeValidationError, "configuration file name %q must be a plain file name", bundle.ConfigName)
	}
	seen := make(map[string]string, len(bundle.Slices))
	for _, s := range bundle.Slices {
		dir := DirName(s.Service)
		if dir == "" || filepath.Base(dir) != dir || dir == "." || dir == ".." {
			return domainErrors.Newf(domainErrors.CodeValidationError, "service name %q cannot name a directory", s.Service)
		}
		if dir == strings.ToLower(w.opts.ComposeFile) {
			return domainErrors.Newf(domainErrors.CodeValidationError, "service %q collides with the compose file", s.Service)
		}
		if other, ok := seen[dir]; ok {
			return domainErrors.Newf(domainErrors.CodeValidationError, "services %q and %q share the directory %q", other, s.Service, dir)
		}
		seen[dir] = s.Service
		if bundle.ConfigName == Dockerfile || bundle.ConfigName == w.SourceFile(s.Service) {
			return domainErrors.Newf(domainErrors.CodeValidationError, "configuration file name %q collides with a generated file of service %q", bundle.ConfigName, s.Service)
		}
	}
	return nil
}

func (w *Writer) stage(root string, bundle Bundle) ([]string, error) {
	slices := append([]Slice(nil), bundle.Slices...)
	sort.Slice(slices, func(i, j int) bool { return slices[i].Service < slices[j].Service })

	var written []string
	put := func(rel string, data []byte) error {
		if err := util.WriteFileWithDirs(filepath.Join(root, rel), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
		written = append(written, rel)
		return nil
	}

	services := make([]string, 0, len(slices))
	for _, s := range slices {
		dir := DirName(s.Service)
		if err := os.Mkdir(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create service directory %s: %w", dir, err)
		}
		if err := put(filepath.Join(dir, w.SourceFile(s.Service)), []byte(s.Source)); err != nil {
			return nil, err
		}
		if err := put(filepath.Join(dir, bundle.ConfigName), bundle.Config); err != nil {
			return nil, err
		}
		if err := put(filepath.Join(dir, Dockerfile), []byte(w.Dockerfile(s.Service, bundle.ConfigName))); err != nil {
			return nil, err
		}
		services = append(services, s.Service)
	}

	compose, err := w.Compose(services)
	if err != nil {
		return nil, fmt.Errorf("encode compose file: %w", err)
	}
	if err := put(w.opts.ComposeFile, compose); err != nil {
		return nil, err
	}
	return written, nil
}

// promote moves the staged tree into place. A missing outDir is replaced in
// one rename; otherwise each staged entry replaces its namesake.
func promote(staging, outDir string) error {
	info, err := os.Stat(outDir)
	switch {
	case os.IsNotExist(err):
		if err := os.Rename(staging, outDir); err != nil {
			return fmt.Errorf("promote %s: %w", outDir, err)
		}
		return nil
	case err != nil:
		return err
	case !info.IsDir():
		return domainErrors.Newf(domainErrors.CodeValidationError, "output path %q is not a directory", outDir)
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		target := filepath.Join(outDir, entry.Name())
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("replace %s: %w", target, err)
		}
		if err := os.Rename(filepath.Join(staging, entry.Name()), target); err != nil {
			return fmt.Errorf("promote %s: %w", target, err)
		}
	}
	return nil
}
