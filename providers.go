package slr

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tyler-sommer/stick"
)

// Template tags rendered by the gateway.
const (
	PromptTextBatch = "text-batch"
	PromptFileUnit  = "file-unit"
)

// PromptProvider renders the user-facing prompt text for a template tag.
type PromptProvider interface {
	Render(tag string, vars map[string]any) (string, error)
}

var defaultTemplates = map[string]string{
	PromptTextBatch: `Extract the review data for every paper below. Answer only with markdown table rows, one row per paper, no header.

{{ batch }}`,
	PromptFileUnit: `The attached document "{{ name }}" is a research paper. Extract its review data and answer only with markdown table rows, no header.`,
}

// StickPromptProvider renders Twig templates with Stick. It starts with the
// built-in text-batch and file-unit templates; options override them.
type StickPromptProvider struct {
	env       *stick.Env
	templates map[string]string
	vars      map[string]any
}

// PromptOption configures a StickPromptProvider.
type PromptOption func(*StickPromptProvider) error

// WithFS loads every *.twig file found under dir in the supplied FS.
// The file name without extension is the tag.
func WithFS[F fs.FS](fsys F, dir string) PromptOption {
	return func(p *StickPromptProvider) error {
		return fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".twig") {
				return nil
			}
			content, readErr := fs.ReadFile(fsys, path)
			if readErr != nil {
				return fmt.Errorf("read %s: %w", path, readErr)
			}
			tag := strings.TrimSuffix(filepath.Base(path), ".twig")
			p.templates[tag] = string(content)
			return nil
		})
	}
}

// WithTemplates lets you inject an in-memory map.
func WithTemplates(m map[string]string) PromptOption {
	return func(p *StickPromptProvider) error {
		for k, v := range m {
			p.templates[k] = v
		}
		return nil
	}
}

// WithVar adds a variable that will be available in all templates
func WithVar(key string, value any) PromptOption {
	return func(p *StickPromptProvider) error {
		p.vars[key] = value
		return nil
	}
}

// NewStickPromptProvider builds a provider from any combination of options.
func NewStickPromptProvider(opts ...PromptOption) (*StickPromptProvider, error) {
	p := &StickPromptProvider{
		env:       stick.New(nil),
		templates: make(map[string]string, len(defaultTemplates)),
		vars:      make(map[string]any),
	}
	for k, v := range defaultTemplates {
		p.templates[k] = v
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// DefaultPrompts returns a provider with only the built-in templates.
func DefaultPrompts() *StickPromptProvider {
	p, _ := NewStickPromptProvider()
	return p
}

// AddTemplate updates or inserts one template.
func (p *StickPromptProvider) AddTemplate(tag, tpl string) { p.templates[tag] = tpl }

// Render executes the template for tag. Per-call vars win over provider vars.
func (p *StickPromptProvider) Render(tag string, vars map[string]any) (string, error) {
	tpl, ok := p.templates[tag]
	if !ok {
		return "", fmt.Errorf("template %q not found", tag)
	}

	templateCtx := make(map[string]stick.Value, len(p.vars)+len(vars)+1)
	templateCtx["tag"] = tag
	for k, v := range p.vars {
		templateCtx[k] = v
	}
	for k, v := range vars {
		templateCtx[k] = v
	}

	var out strings.Builder
	if err := p.env.Execute(tpl, &out, templateCtx); err != nil {
		return "", fmt.Errorf("execute %q: %w", tag, err)
	}
	return out.String(), nil
}
