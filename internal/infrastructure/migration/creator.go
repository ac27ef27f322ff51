package migration

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"
)

// versionLayout gives golang-migrate versions that sort by creation time
const versionLayout = "20060102150405"

var fileTemplate = template.Must(template.New("migration").Parse(`-- {{.Name}}{{if .Down}} (rollback){{end}}
-- Version: {{.Version}}
{{- with .Description}}
-- {{.}}
{{- end}}
{{if .Down}}
-- Undo exactly what {{.Version}}_{{.Slug}}.up.sql does, in reverse order.
{{else}}
-- PostgreSQL only. Mirror column changes in internal/infrastructure/persistence/models
-- so SQLite deployments created by AutoMigrate stay compatible.
{{end}}
`))

// now is replaced in tests
var now = time.Now

// ErrMigrationExists is returned when a migration with the same name is already present
var ErrMigrationExists = errors.New("migration already exists")

// MigrationFile describes a newly created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Slug        string
	Description string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair into dir. The version is the
// current time, moved past the newest existing version when the clock lags
// behind it, so files always apply in creation order.
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	existing, err := ListMigrations(dir)
	if err != nil {
		return nil, err
	}
	version := now().UTC().Format(versionLayout)
	for _, base := range existing {
		v, s, _ := strings.Cut(base, "_")
		if s == slug {
			return nil, fmt.Errorf("%w: %s", ErrMigrationExists, base)
		}
		if v >= version {
			version = nextVersion(v)
		}
	}

	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Slug:        slug,
		Description: description,
		UpPath:      filepath.Join(dir, version+"_"+slug+".up.sql"),
		DownPath:    filepath.Join(dir, version+"_"+slug+".down.sql"),
	}
	if err := writeMigration(mf.UpPath, mf, false); err != nil {
		return nil, err
	}
	if err := writeMigration(mf.DownPath, mf, true); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func nextVersion(v string) string {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return v + "1"
	}
	return strconv.FormatUint(n+1, 10)
}

func writeMigration(path string, mf *MigrationFile, down bool) error {
	var buf bytes.Buffer
	data := struct {
		*MigrationFile
		Down bool
	}{mf, down}
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// sanitizeName lowercases name and joins its alphanumeric runs with underscores
func sanitizeName(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	return strings.Join(words, "_")
}

// ListMigrations returns the base names of the up migrations in dir in
// version order. A missing directory has no migrations.
func ListMigrations(dir string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return ListMigrationsFS(os.DirFS(dir))
}

// ListMigrationsFS is ListMigrations over an fs.FS such as the embedded set
func ListMigrationsFS(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(ups))
	for _, up := range ups {
		if info, err := fs.Stat(fsys, up); err == nil && info.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(up, ".up.sql"))
	}
	slices.Sort(names)
	return names, nil
}
