// Package modelgen is the Model Generator (spec.md §4.2): it turns a
// loaded internal/schema.Schema into Go source for the canonical
// model's element records. The hand-authored records under
// internal/canonical mirror the struct shape it emits; it is not
// invoked at conversion time.
//
// The pipeline — build a go/ast.File, render it with go/format, then
// run it through golang.org/x/tools/imports.Process to settle the
// import block — follows aqwari.net/xml/xsdgen's Generate/GenAST
// (other_examples/a0b34baf_droyo-go-xml__xsdgen-xsdgen.go.go).
package modelgen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"sort"

	"golang.org/x/tools/imports"

	"github.com/tusk-notation/tusk/internal/errs"
	"github.com/tusk-notation/tusk/internal/schema"
)

// Config controls how a schema is rendered to Go source.
type Config struct {
	// PackageName is the generated file's package clause.
	PackageName string
}

// fieldSpec is one generated struct field: a name, a type expression,
// and the struct tag that preserves the source attribute/element name
// for round-tripping (mirrors xsdgen's use of a raw `xml:"..."` tag).
type fieldSpec struct {
	name string
	typ  ast.Expr
	tag  string
}

// Generate renders every element in sch as a Go struct declaration and
// returns the resulting, not-yet-import-resolved *ast.File. Declarations
// are emitted in sorted name order so output is deterministic across
// runs over the same schema (xsdgen does the same, for the same reason).
func (cfg Config) Generate(sch *schema.Schema) (*ast.File, error) {
	if cfg.PackageName == "" {
		return nil, errs.InvariantViolation("modelgen.Config.PackageName must not be empty", "")
	}
	names := make([]string, 0, len(sch.Elements))
	for name := range sch.Elements {
		names = append(names, name)
	}
	sort.Strings(names)

	var decls []ast.Decl
	for _, name := range names {
		el := sch.Elements[name]
		fields, err := cfg.structFields(sch, *el)
		if err != nil {
			return nil, fmt.Errorf("generate struct for element %q: %w", name, err)
		}
		decls = append(decls, structDecl(exportedName(name), fields))
	}
	return &ast.File{
		Name:  ast.NewIdent(cfg.PackageName),
		Decls: decls,
	}, nil
}

// Render formats file with go/format and then runs it through
// golang.org/x/tools/imports.Process, which both gofmt-formats the
// result and inserts/removes import lines to match what the source
// actually references (xsdgen's Generate does the same two-step).
func Render(file *ast.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := format.Node(&buf, token.NewFileSet(), file); err != nil {
		return nil, fmt.Errorf("render generated AST: %w", err)
	}
	out, err := imports.Process("generated.go", buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("resolve imports of generated source: %w", err)
	}
	return out, nil
}

func structDecl(name string, fields []fieldSpec) ast.Decl {
	list := &ast.FieldList{}
	for _, f := range fields {
		var tagLit *ast.BasicLit
		if f.tag != "" {
			tagLit = &ast.BasicLit{Kind: token.STRING, Value: fmt.Sprintf("`%s`", f.tag)}
		}
		list.List = append(list.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(f.name)},
			Type:  f.typ,
			Tag:   tagLit,
		})
	}
	return &ast.GenDecl{
		Tok: token.TYPE,
		Specs: []ast.Spec{
			&ast.TypeSpec{
				Name: ast.NewIdent(name),
				Type: &ast.StructType{Fields: list},
			},
		},
	}
}

// structFields derives one Go struct field per attribute reachable
// from el's attribute groups, plus a Children field when el permits
// child elements and a Text field when el's content model allows text.
func (cfg Config) structFields(sch *schema.Schema, el schema.Element) ([]fieldSpec, error) {
	fields := []fieldSpec{{name: "Identity", typ: sel("canonical", "Identity")}}

	seen := map[string]bool{}
	for _, groupName := range el.Groups {
		ag, ok := sch.AttributeGroups[groupName]
		if !ok {
			continue
		}
		for _, attr := range ag.Attributes {
			if seen[attr.Name] {
				continue
			}
			seen[attr.Name] = true
			typ, err := cfg.attrFieldType(sch, attr)
			if err != nil {
				return nil, err
			}
			fields = append(fields, fieldSpec{
				name: exportedName(attr.Name),
				typ:  typ,
				tag:  fmt.Sprintf(`xml:"%s,attr,omitempty"`, attr.Name),
			})
		}
	}

	if el.MixedContent || el.Content.Kind == schema.Text {
		fields = append(fields, fieldSpec{name: "Text", typ: ast.NewIdent("string"), tag: `xml:",chardata"`})
	}
	if contentHasElementChildren(el.Content) {
		fields = append(fields, fieldSpec{name: "Children", typ: sel("canonical", "Children")})
	}
	return fields, nil
}

func contentHasElementChildren(cm schema.ContentModel) bool {
	if cm.Child.Kind == schema.Wildcard || cm.Child.Name != "" {
		return true
	}
	for _, item := range cm.Items {
		if contentHasElementChildren(item) {
			return true
		}
	}
	return false
}

// attrFieldType maps a schema attribute's declared type to a Go field
// type: enumerations and text restrictions become string, number
// restrictions become float64, everything else defaults to string
// (the conservative choice xsdgen also falls back to for types it
// cannot otherwise resolve).
func (cfg Config) attrFieldType(sch *schema.Schema, attr schema.Attribute) (ast.Expr, error) {
	st := sch.SimpleType(attr.Type)
	if st == nil {
		return ast.NewIdent("string"), nil
	}
	switch st.Kind {
	case schema.NumberRestriction:
		return ast.NewIdent("float64"), nil
	default:
		return ast.NewIdent("string"), nil
	}
}

func sel(pkg, name string) ast.Expr {
	return &ast.SelectorExpr{X: ast.NewIdent(pkg), Sel: ast.NewIdent(name)}
}

// exportedName turns a schema name like "staff.grp" or "xml:id" into
// an exported Go identifier ("StaffGrp", "XmlId").
func exportedName(raw string) string {
	out := make([]byte, 0, len(raw))
	upperNext := true
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '.' || c == '-' || c == ':' || c == '_':
			upperNext = true
		case upperNext:
			out = append(out, upper(c))
			upperNext = false
		default:
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "X"
	}
	return string(out)
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
