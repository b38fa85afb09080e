package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"text/template"
)

// writePackage writes webcmp_gen.go for the state types of one package.
func (g *Generator) writePackage(pkgPath, pkgName string, states []*StateInfo) error {
	outputFile := filepath.Join(pkgPath, GeneratedFile)

	fmt.Fprintf(g.opts.Out, "generating %s\n", outputFile)

	if g.opts.DryRun {
		return nil
	}

	code, err := renderTemplate(pkgName, states)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	formatted, err := format.Source(code)
	if err != nil {
		// Write unformatted for debugging
		if writeErr := os.WriteFile(outputFile+".unformatted", code, 0644); writeErr == nil {
			fmt.Fprintf(g.opts.Out, "  wrote unformatted code to %s.unformatted for debugging\n", outputFile)
		}
		return fmt.Errorf("format source: %w", err)
	}

	return os.WriteFile(outputFile, formatted, 0644)
}

// renderTemplate renders the generated code template.
func renderTemplate(pkgName string, states []*StateInfo) ([]byte, error) {
	tmpl, err := template.New("webcmp").Funcs(template.FuncMap{
		"encodeField": encodeFieldCode,
		"decodeField": decodeFieldCode,
	}).Parse(genTemplate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Package string
		States  []*StateInfo
	}{
		Package: pkgName,
		States:  states,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeFieldCode generates the code to encode a field.
func encodeFieldCode(f StateField) string {
	if f.Exclude {
		return ""
	}

	value := "s." + f.Name
	if f.Type == "time.Time" {
		value = "s." + f.Name + ".Format(time.RFC3339Nano)"
	}
	assign := fmt.Sprintf(`m[%q] = %s`, f.Key, value)

	if !f.OmitEmpty {
		return assign
	}

	var cond string
	switch f.Type {
	case "string":
		cond = fmt.Sprintf(`s.%s != ""`, f.Name)
	case "bool":
		cond = "s." + f.Name
	case "time.Time":
		cond = fmt.Sprintf(`!s.%s.IsZero()`, f.Name)
	case "[]string", "[]int":
		cond = fmt.Sprintf(`len(s.%s) > 0`, f.Name)
	default:
		cond = fmt.Sprintf(`s.%s != 0`, f.Name)
	}
	return fmt.Sprintf("if %s {\n%s\n}", cond, assign)
}

// decodeFieldCode generates the code to decode a field.
func decodeFieldCode(f StateField) string {
	if f.Exclude {
		return ""
	}

	var conv string
	switch f.Type {
	case "string":
		return fmt.Sprintf("if v, ok := m[%q].(string); ok {\ns.%s = v\n}", f.Key, f.Name)
	case "bool":
		return fmt.Sprintf("if v, ok := m[%q].(bool); ok {\ns.%s = v\n}", f.Key, f.Name)
	case "time.Time":
		return fmt.Sprintf("if t, ok := encoding.Time(m[%q]); ok {\ns.%s = t\n}", f.Key, f.Name)
	case "int64":
		conv = "encoding.Int64(v)"
	case "int", "int8", "int16", "int32":
		conv = f.Type + "(encoding.Int64(v))"
	case "uint64":
		conv = "encoding.Uint64(v)"
	case "uint", "uint8", "uint16", "uint32":
		conv = f.Type + "(encoding.Uint64(v))"
	case "float64":
		conv = "encoding.Float64(v)"
	case "float32":
		conv = "float32(encoding.Float64(v))"
	case "[]string":
		conv = "encoding.Strings(v)"
	case "[]int":
		conv = "encoding.Ints(v)"
	default:
		return ""
	}
	return fmt.Sprintf("if v, ok := m[%q]; ok {\ns.%s = %s\n}", f.Key, f.Name, conv)
}

const genTemplate = `// Code generated by webcmp. DO NOT EDIT.

package {{.Package}}

import (
	"time"

	"github.com/pthm/webcmp"
	"github.com/pthm/webcmp/lib/encoding"
)

var (
	_ = time.RFC3339Nano
	_ = encoding.Int64
)
{{range .States}}
// Source: {{.SourceFile}}

var (
	_ webcmp.Encodable = {{.TypeName}}{}
	_ webcmp.Decodable = (*{{.TypeName}})(nil)
)

// HXEncode flattens {{.TypeName}} for a state snapshot.
func (s {{.TypeName}}) HXEncode() map[string]any {
	m := make(map[string]any)
	{{- range .Fields}}
	{{encodeField .}}
	{{- end}}
	return m
}

// HXDecode rebuilds {{.TypeName}} from a state snapshot.
func (s *{{.TypeName}}) HXDecode(m map[string]any) error {
	{{- range .Fields}}
	{{decodeField .}}
	{{- end}}
	return nil
}
{{end}}`
