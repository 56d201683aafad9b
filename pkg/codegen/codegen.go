// Package codegen projects a validated plugin model into the two artifacts
// a plugin ships with: the description document the host reads (entry.tp)
// and a typed Go binding around pkg/session.
package codegen

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"go/token"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/prysmsh/tpsdk/pkg/validate"
)

// ErrProjection means the model could not be turned into an artifact.
// Nothing partial is returned alongside it.
var ErrProjection = errors.New("projection failed")

// DefaultSDKImport is the module path generated code imports the runtime from.
const DefaultSDKImport = "github.com/prysmsh/tpsdk"

// Options tune GenerateGo.
type Options struct {
	// Package is the generated package name (default "plugin").
	Package string
	// SDKImport is the module path of this SDK (default DefaultSDKImport).
	SDKImport string
}

func (o Options) withDefaults() Options {
	if o.Package == "" {
		o.Package = "plugin"
	}
	if o.SDKImport == "" {
		o.SDKImport = DefaultSDKImport
	}
	return o
}

//go:embed plugin.go.tmpl
var sourceTemplate string

var goTemplate = template.Must(template.New("plugin.go").Parse(sourceTemplate))

// EntryTP renders the description document as indented JSON.
func EntryTP(m *validate.Model) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: no model", ErrProjection)
	}
	b, err := json.MarshalIndent(m.Description(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode description: %v", ErrProjection, err)
	}
	return append(b, '\n'), nil
}

// GenerateGo renders the typed binding for m as a formatted Go file.
func GenerateGo(m *validate.Model, opts Options) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: no model", ErrProjection)
	}
	opts = opts.withDefaults()
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("%w: %q is not a package name", ErrProjection, opts.Package)
	}

	f, err := project(m, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := goTemplate.Execute(&buf, f); err != nil {
		return nil, fmt.Errorf("%w: render: %v", ErrProjection, err)
	}
	src, err := imports.Process(opts.Package+"_gen.go", buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: format generated source: %v", ErrProjection, err)
	}
	return src, nil
}
