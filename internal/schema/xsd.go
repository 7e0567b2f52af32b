package schema

import (
	"bytes"
	"path/filepath"
	"strconv"

	"github.com/tusk-notation/tusk/internal/errs"
)

// LoadXSD loads the MusicXML grammar (spec.md §4.1, §4.5). Mirrors
// LoadRelaxNG's two-pass shape over the XSD dialect instead: named
// simpleType/attributeGroup/complexType/element top-level declarations,
// <xs:include>/<xs:import> for transitive dependencies. Named
// <xs:group> declarations are not collected, so a <group ref="..."/>
// is not inlined and adds nothing to the content model.
func LoadXSD(fsys FileSystem, entryPath string) (*Schema, error) {
	return load(fsys, entryPath, xsdBuild)
}

func xsdBuild(fsys FileSystem, entryPath string) (*Schema, error) {
	simpleTypeNodes := map[string]*Node{}
	attrGroupNodes := map[string]*Node{}
	complexTypeNodes := map[string]*Node{}
	elementNodes := map[string]*Node{}
	sch := newSchema()

	if err := collectXSDDecls(fsys, entryPath, simpleTypeNodes, attrGroupNodes, complexTypeNodes, elementNodes, sch, map[string]bool{}); err != nil {
		return nil, err
	}

	// Pass 1: simple types (enumerations/unions/restrictions need no
	// forward resolution beyond each other).
	for name, n := range simpleTypeNodes {
		st, err := buildSimpleTypeXSD(name, n, simpleTypeNodes)
		if err != nil {
			return nil, err
		}
		sch.SimpleTypes[name] = st
	}

	// Pass 2: attribute groups (may reference other attribute groups
	// and simple types), then complex-type-derived element content
	// models (may reference attribute groups and other elements).
	for name, n := range attrGroupNodes {
		ag, err := buildAttributeGroupXSD(name, n, attrGroupNodes, map[string]bool{name: true})
		if err != nil {
			return nil, err
		}
		sch.AttributeGroups[name] = ag
	}
	for name, n := range elementNodes {
		el, err := buildElementXSD(name, n, complexTypeNodes, attrGroupNodes, elementNodes, sch)
		if err != nil {
			return nil, err
		}
		sch.Elements[el.Name] = el
	}
	for name, el := range sch.Elements {
		if HasUnorderedChoice(el.Content) {
			sch.UnorderedGroups[name] = true
		}
	}
	return sch, nil
}

func collectXSDDecls(fsys FileSystem, path string,
	simpleTypes, attrGroups, complexTypes, elements map[string]*Node,
	sch *Schema, visited map[string]bool,
) error {
	if visited[path] {
		return nil
	}
	visited[path] = true
	data, resolved, err := readAll(fsys, "", path)
	if err != nil {
		return err
	}
	sch.ResolvedIncludes = append(sch.ResolvedIncludes, resolved)
	root, err := decodeXML(bytes.NewReader(data))
	if err != nil {
		return errs.SchemaError(resolved, "malformed XSD XML", err)
	}
	if root == nil || root.Local != "schema" {
		return errs.New(errs.SchemaErrorKind, resolved, "expected an <xs:schema> root element")
	}
	for _, n := range root.Elements("simpleType") {
		simpleTypes[n.Attr("name")] = n
	}
	for _, n := range root.Elements("attributeGroup") {
		if name := n.Attr("name"); name != "" {
			attrGroups[name] = n
		}
	}
	for _, n := range root.Elements("complexType") {
		complexTypes[n.Attr("name")] = n
	}
	for _, n := range root.Elements("element") {
		if name := n.Attr("name"); name != "" {
			elements[name] = n
		}
	}
	for _, inc := range append(root.Elements("include"), root.Elements("import")...) {
		loc := inc.Attr("schemaLocation")
		if loc == "" {
			continue // <xs:import> without a schemaLocation: namespace-only declaration
		}
		if err := collectXSDDecls(fsys, filepath.Join(filepath.Dir(resolved), loc), simpleTypes, attrGroups, complexTypes, elements, sch, visited); err != nil {
			return err
		}
	}
	return nil
}

func stripXSPrefix(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[i+1:]
		}
	}
	return s
}

func buildSimpleTypeXSD(name string, n *Node, simpleTypes map[string]*Node) (*SimpleType, error) {
	if u := firstTag(n, "union"); u != nil {
		members := splitFields(u.Attr("memberTypes"))
		var resolved []*SimpleType
		for _, m := range members {
			m = stripXSPrefix(m)
			if mn, ok := simpleTypes[m]; ok {
				st, err := buildSimpleTypeXSD(m, mn, simpleTypes)
				if err != nil {
					return nil, err
				}
				resolved = append(resolved, st)
			}
		}
		merged := unionTieBreak(resolved)
		merged.Name = name
		merged.ItemType = members
		return merged, nil
	}
	if l := firstTag(n, "list"); l != nil {
		return &SimpleType{Name: name, Kind: ListType, ItemType: []string{stripXSPrefix(l.Attr("itemType"))}}, nil
	}
	r := firstTag(n, "restriction")
	if r == nil {
		return nil, errs.New(errs.SchemaErrorKind, name, "simpleType has neither restriction, union, nor list")
	}
	enums := r.Elements("enumeration")
	if len(enums) > 0 {
		st := &SimpleType{Name: name, Kind: Enumeration}
		for _, e := range enums {
			st.Values = append(st.Values, e.Attr("value"))
		}
		return st, nil
	}
	base := stripXSPrefix(r.Attr("base"))
	st := &SimpleType{Name: name}
	switch base {
	case "decimal", "double", "integer", "nonNegativeInteger", "positiveInteger", "float":
		st.Kind = NumberRestriction
		if mi := firstTag(r, "minInclusive"); mi != nil {
			st.Min, _ = strconv.ParseFloat(mi.Attr("value"), 64)
		}
		if ma := firstTag(r, "maxInclusive"); ma != nil {
			st.Max, _ = strconv.ParseFloat(ma.Attr("value"), 64)
		}
	default:
		st.Kind = TextRestriction
		if p := firstTag(r, "pattern"); p != nil {
			st.Pattern = p.Attr("value")
		}
	}
	return st, nil
}

func splitFields(s string) []string {
	var out []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if start >= 0 {
				out = append(out, s[start:i])
			}
			start = -1
		} else if start < 0 {
			start = i
		}
	}
	return out
}

func buildAttributeGroupXSD(name string, n *Node, attrGroups map[string]*Node, visiting map[string]bool) (*AttributeGroup, error) {
	ag := &AttributeGroup{Name: name}
	if err := collectAttributesXSD(n, ag, attrGroups, visiting); err != nil {
		return nil, err
	}
	return ag, nil
}

func collectAttributesXSD(n *Node, ag *AttributeGroup, attrGroups map[string]*Node, visiting map[string]bool) error {
	for _, c := range n.Children {
		switch c.Local {
		case "attribute":
			presence := Optional
			switch c.Attr("use") {
			case "required":
				presence = Required
			}
			def := c.Attr("default")
			if def != "" {
				presence = Defaulted
			}
			ag.Attributes = append(ag.Attributes, Attribute{
				Name:     c.Attr("name"),
				Type:     stripXSPrefix(c.Attr("type")),
				Presence: presence,
				Default:  def,
			})
		case "attributeGroup":
			target := c.Attr("ref")
			if target == "" || visiting[target] {
				continue
			}
			def, ok := attrGroups[target]
			if !ok {
				return errs.UnresolvedReference(ag.Name, target, ag.Name)
			}
			visiting[target] = true
			err := collectAttributesXSD(def, ag, attrGroups, visiting)
			delete(visiting, target)
			if err != nil {
				return err
			}
		default:
			if err := collectAttributesXSD(c, ag, attrGroups, visiting); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildElementXSD(name string, n *Node, complexTypes, attrGroups, elements map[string]*Node, sch *Schema) (*Element, error) {
	el := &Element{Name: name}
	ct := firstTag(n, "complexType")
	if ct == nil {
		if typeName := stripXSPrefix(n.Attr("type")); typeName != "" {
			if named, ok := complexTypes[typeName]; ok {
				ct = named
			}
		}
	}
	if ct == nil {
		el.Content = ContentModel{Kind: Text}
		return el, nil
	}
	mixed := ct.Attr("mixed") == "true"
	var groups []string
	content, err := buildContentModelXSD(ct, attrGroups, &groups, map[string]bool{})
	if err != nil {
		return nil, err
	}
	el.Content = content
	el.MixedContent = mixed
	el.Groups = groups
	// complexType-local <xs:attribute> declarations that aren't part of
	// a named attributeGroup become a synthetic per-element group, kept
	// alongside referenced groups (spec.md §3.2: "composed Attribute
	// Group records").
	local := &AttributeGroup{Name: name + ".attrs"}
	for _, c := range ct.Children {
		if c.Local == "attribute" {
			if err := collectAttributesXSD(&Node{Local: "wrap", Children: []*Node{c}}, local, attrGroups, map[string]bool{}); err != nil {
				return nil, err
			}
		}
	}
	if len(local.Attributes) > 0 {
		sch.AttributeGroups[local.Name] = local
		el.Groups = append(el.Groups, local.Name)
	}
	return el, nil
}

func buildContentModelXSD(n *Node, attrGroups map[string]*Node, groups *[]string, visiting map[string]bool) (ContentModel, error) {
	var items []ContentModel
	for _, c := range n.Children {
		switch c.Local {
		case "attribute":
			continue
		case "attributeGroup":
			if ref := c.Attr("ref"); ref != "" {
				*groups = append(*groups, ref)
			}
		case "element":
			min, max := occurs(c)
			var item ContentModel
			if ref := c.Attr("ref"); ref != "" {
				item = ContentModel{Child: ChildItem{Kind: ElementRef, Name: ref}}
			} else {
				item = ContentModel{Child: ChildItem{Kind: ElementRef, Name: c.Attr("name")}}
			}
			items = append(items, repeatWrap(item, min, max))
		case "group":
			if ref := c.Attr("ref"); ref != "" {
				if visiting[ref] {
					items = append(items, ContentModel{Child: ChildItem{Kind: ChoiceRef, Name: ref}})
					continue
				}
			}
			sub, err := buildContentModelXSD(c, attrGroups, groups, visiting)
			if err != nil {
				return ContentModel{}, err
			}
			items = append(items, sub.Items...)
		case "sequence":
			sub, err := buildContentModelXSD(c, attrGroups, groups, visiting)
			if err != nil {
				return ContentModel{}, err
			}
			min, max := occurs(c)
			if min == 1 && max == 1 {
				items = append(items, sub.Items...)
			} else {
				items = append(items, repeatWrap(ContentModel{Kind: Sequence, Items: sub.Items}, min, max))
			}
		case "choice":
			sub, err := buildContentModelXSD(c, attrGroups, groups, visiting)
			if err != nil {
				return ContentModel{}, err
			}
			min, max := occurs(c)
			choice := ContentModel{Kind: Choice, Items: sub.Items}
			items = append(items, repeatWrap(choice, min, max))
		case "all":
			sub, err := buildContentModelXSD(c, attrGroups, groups, visiting)
			if err != nil {
				return ContentModel{}, err
			}
			items = append(items, ContentModel{Kind: Choice, Items: sub.Items, Unordered: true})
		case "any":
			if c.Attr("namespace") != "" && c.Attr("namespace") != "##any" {
				return ContentModel{}, errs.New(errs.SchemaErrorKind, "", "UnsupportedConstruct: <xs:any> with a restricted namespace is not supported")
			}
			items = append(items, ContentModel{Child: ChildItem{Kind: Wildcard}})
		case "simpleContent", "complexContent":
			sub, err := buildContentModelXSD(c, attrGroups, groups, visiting)
			if err != nil {
				return ContentModel{}, err
			}
			items = append(items, sub.Items...)
		case "extension", "restriction":
			for _, ag := range c.Elements("attributeGroup") {
				if ref := ag.Attr("ref"); ref != "" {
					*groups = append(*groups, ref)
				}
			}
			sub, err := buildContentModelXSD(c, attrGroups, groups, visiting)
			if err != nil {
				return ContentModel{}, err
			}
			items = append(items, sub.Items...)
		}
	}
	if len(items) == 0 {
		return ContentModel{Kind: Empty}, nil
	}
	return ContentModel{Kind: Sequence, Items: items}, nil
}

func occurs(n *Node) (int, int) {
	min, max := 1, 1
	if v := n.Attr("minOccurs"); v != "" {
		min, _ = strconv.Atoi(v)
	}
	if v := n.Attr("maxOccurs"); v != "" {
		if v == "unbounded" {
			max = -1
		} else {
			max, _ = strconv.Atoi(v)
		}
	}
	return min, max
}

func repeatWrap(item ContentModel, min, max int) ContentModel {
	if min == 1 && max == 1 {
		return item
	}
	return ContentModel{Kind: Repetition, Items: []ContentModel{item}, Min: min, Max: max}
}
