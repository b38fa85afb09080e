// Package generator writes snapshot codecs for component state types.
//
// A state type is any struct used as the type argument of webcmp.Config in
// the package. For each package with state types the generator writes
// webcmp_gen.go, implementing webcmp.Encodable and webcmp.Decodable so
// snapshots skip reflection and drop fields that should not travel to the
// client.
//
// Fields are selected with the webcmp struct tag:
//
//	type Counter struct {
//	    Label string `webcmp:"l"`
//	    Count int    `webcmp:"c,omitempty"`
//	    Cache []byte `webcmp:"-"`
//	}
//
// Untagged scalar fields are encoded under their lowercased name; other
// untagged fields are excluded.
package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// GeneratedFile is the name of the file written into each package.
const GeneratedFile = "webcmp_gen.go"

// Options configures the generator.
type Options struct {
	DryRun bool

	// Out receives progress lines. Defaults to os.Stdout.
	Out io.Writer
}

// Generator generates webcmp state codecs.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// Generate generates code for the given package patterns.
func (g *Generator) Generate(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		path := filepath.Join(pkg, GeneratedFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fmt.Fprintf(g.opts.Out, "removing %s\n", path)
		if g.opts.DryRun {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		if !strings.HasSuffix(pattern, "/...") {
			packages = append(packages, pattern)
			continue
		}

		root := strings.TrimSuffix(pattern, "/...")
		if root == "" {
			root = "."
		}

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			// Skip hidden directories, vendor and testdata
			base := filepath.Base(path)
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return nil
			}
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") && !strings.HasSuffix(entry.Name(), "_test.go") {
					packages = append(packages, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

// generatePackage generates code for a single package.
func (g *Generator) generatePackage(pkgPath string) error {
	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		return err
	}

	files := make(map[string]*ast.File)
	var pkgName string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || name == GeneratedFile {
			continue
		}
		path := filepath.Join(pkgPath, name)
		file, err := parser.ParseFile(g.fset, path, nil, parser.ParseComments)
		if err != nil {
			return err
		}
		if pkgName == "" {
			pkgName = file.Name.Name
		}
		if file.Name.Name == pkgName {
			files[path] = file
		}
	}

	states, err := findStates(files)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return nil
	}
	return g.writePackage(pkgPath, pkgName, states)
}

// StateInfo holds information about a discovered state type.
type StateInfo struct {
	SourceFile string
	TypeName   string
	Fields     []StateField
}

// StateField represents a field of a state struct.
type StateField struct {
	Name      string
	Type      string
	Key       string
	OmitEmpty bool
	Exclude   bool // webcmp:"-"
}

// findStates returns the struct types used as webcmp.Config type arguments,
// sorted by name.
func findStates(files map[string]*ast.File) ([]*StateInfo, error) {
	used := make(map[string]bool)
	for _, file := range files {
		ast.Inspect(file, func(n ast.Node) bool {
			if idx, ok := n.(*ast.IndexExpr); ok {
				if name := configTypeArg(idx); name != "" {
					used[name] = true
				}
			}
			return true
		})
	}

	var states []*StateInfo
	for path, file := range files {
		for _, decl := range file.Decls {
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.TYPE {
				continue
			}
			for _, spec := range genDecl.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok || !used[typeSpec.Name.Name] || typeSpec.TypeParams != nil {
					continue
				}
				structType, ok := typeSpec.Type.(*ast.StructType)
				if !ok {
					continue
				}
				fields, err := stateFields(structType)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", typeSpec.Name.Name, err)
				}
				states = append(states, &StateInfo{
					SourceFile: filepath.Base(path),
					TypeName:   typeSpec.Name.Name,
					Fields:     fields,
				})
			}
		}
	}

	sort.Slice(states, func(i, j int) bool { return states[i].TypeName < states[j].TypeName })
	return states, nil
}

// configTypeArg returns X for webcmp.Config[X] or Config[X].
func configTypeArg(idx *ast.IndexExpr) string {
	var name string
	switch x := idx.X.(type) {
	case *ast.SelectorExpr:
		if ident, ok := x.X.(*ast.Ident); ok && ident.Name == "webcmp" {
			name = x.Sel.Name
		}
	case *ast.Ident:
		name = x.Name
	}
	if name != "Config" {
		return ""
	}
	if ident, ok := idx.Index.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

func stateFields(structType *ast.StructType) ([]StateField, error) {
	var fields []StateField
	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			continue // Skip embedded fields
		}

		for _, name := range field.Names {
			if !name.IsExported() {
				continue
			}
			sf := StateField{
				Name: name.Name,
				Type: typeToString(field.Type),
			}

			if field.Tag != nil {
				tag := strings.Trim(field.Tag.Value, "`")
				sf.Key, sf.OmitEmpty, sf.Exclude = parseTag(tag)
			}

			supported := isScalarType(sf.Type) || isSliceOfScalar(sf.Type)

			// Auto-detection for untagged fields
			if sf.Key == "" && !sf.Exclude {
				if supported {
					sf.Key = strings.ToLower(name.Name)
				} else {
					sf.Exclude = true
				}
			}
			if !sf.Exclude && !supported {
				return nil, fmt.Errorf("field %s: unsupported type %s", sf.Name, sf.Type)
			}

			fields = append(fields, sf)
		}
	}
	return fields, nil
}

// typeToString converts an AST type to a string representation.
func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeToString(t.X)
	case *ast.SelectorExpr:
		return typeToString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + typeToString(t.Elt)
		}
		return "[...]" + typeToString(t.Elt)
	case *ast.MapType:
		return "map[" + typeToString(t.Key) + "]" + typeToString(t.Value)
	case *ast.IndexExpr:
		return typeToString(t.X) + "[" + typeToString(t.Index) + "]"
	default:
		return fmt.Sprintf("%T", expr)
	}
}

// parseTag parses a webcmp struct tag.
func parseTag(tagStr string) (key string, omitEmpty bool, exclude bool) {
	for _, part := range strings.Split(tagStr, " ") {
		if !strings.HasPrefix(part, `webcmp:"`) {
			continue
		}
		value := strings.TrimPrefix(part, `webcmp:"`)
		value = strings.TrimSuffix(value, `"`)

		if value == "-" {
			return "", false, true
		}

		parts := strings.Split(value, ",")
		key = parts[0]
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitEmpty = true
			}
		}
		return key, omitEmpty, false
	}
	return "", false, false
}

// isScalarType checks if a type should be auto-serialized.
func isScalarType(typeName string) bool {
	switch typeName {
	case "bool",
		"int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"float32", "float64",
		"string",
		"time.Time":
		return true
	default:
		return false
	}
}

func isSliceOfScalar(typeName string) bool {
	return typeName == "[]string" || typeName == "[]int"
}
