package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"text/template"
)

//go:embed templates
var embedded embed.FS

// Manager handles loading and rendering of prompt templates.
// Templates under common/ are shared definitions; every other *.tmpl file is
// addressable by its slash path relative to the root, e.g. "story/hindi.tmpl".
type Manager struct {
	root  *template.Template
	names map[string]bool
}

// Default returns a manager over the templates compiled into the binary.
func Default() (*Manager, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return NewManager(sub)
}

// NewManager creates a prompt manager loading templates from fsys.
// Use os.DirFS to override the embedded set from disk.
func NewManager(fsys fs.FS) (*Manager, error) {
	m := &Manager{names: make(map[string]bool)}
	m.root = template.New("root").Option("missingkey=error").Funcs(template.FuncMap{
		"num": numFunc,
	})

	if err := m.loadCommon(fsys); err != nil {
		return nil, fmt.Errorf("loading common templates: %w", err)
	}

	if err := m.loadTemplates(fsys); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return m, nil
}

func (m *Manager) loadCommon(fsys fs.FS) error {
	err := fs.WalkDir(fsys, "common", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".tmpl") {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if _, err = m.root.Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (m *Manager) loadTemplates(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".tmpl" || strings.HasPrefix(p, "common/") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}

		if _, err = m.root.New(p).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		m.names[p] = true
		return nil
	})
}

// Has reports whether a renderable template with that name exists.
func (m *Manager) Has(name string) bool {
	return m.names[name]
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	if !m.names[name] {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// numFunc prints a float without trailing zeros: 22 -> "22", 3.5 -> "3.5".
func numFunc(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
