package schema

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/tusk-notation/tusk/internal/errs"
)

// LoadRelaxNG loads the MEI grammar (spec.md §4.1, §4.4). entryPath is
// read from fsys; any <include href="..."/> found while walking is
// resolved relative to the file that named it and folded into the same
// two-pass build.
func LoadRelaxNG(fsys FileSystem, entryPath string) (*Schema, error) {
	return load(fsys, entryPath, relaxNGBuild)
}

func relaxNGBuild(fsys FileSystem, entryPath string) (*Schema, error) {
	sch := newSchema()
	defines := map[string]*Node{}
	if err := collectRelaxNGDefines(fsys, entryPath, defines, sch, map[string]bool{}); err != nil {
		return nil, err
	}

	// Pass 1: classify every define as a SimpleType, AttributeGroup, or
	// Element, so forward references resolve regardless of define order.
	kind := map[string]string{} // name -> "simple" | "attrgroup" | "element"
	for name, pat := range defines {
		switch classifyRelaxNGDefine(pat) {
		case defineElement:
			kind[name] = "element"
		case defineSimpleType:
			kind[name] = "simple"
		default:
			kind[name] = "attrgroup"
		}
	}
	for name, pat := range defines {
		if kind[name] != "simple" {
			continue
		}
		st, err := buildSimpleTypeRNG(name, pat, defines, kind)
		if err != nil {
			return nil, err
		}
		sch.SimpleTypes[name] = st
	}
	for name, pat := range defines {
		if kind[name] != "attrgroup" {
			continue
		}
		ag, err := buildAttributeGroupRNG(name, pat, defines, kind, sch)
		if err != nil {
			return nil, err
		}
		sch.AttributeGroups[name] = ag
	}

	// Pass 2: materialize element content models and attribute-group
	// membership, resolving <ref> nodes against the classification
	// table built in pass 1.
	for name, pat := range defines {
		if kind[name] != "element" {
			continue
		}
		el, err := buildElementRNG(name, pat, defines, kind, sch)
		if err != nil {
			return nil, err
		}
		if existing, ok := sch.Elements[el.Name]; ok {
			existing.Groups = mergeGroupMembership(existing.Groups, el.Groups)
		} else {
			sch.Elements[el.Name] = el
		}
	}
	for name, el := range sch.Elements {
		if HasUnorderedChoice(el.Content) {
			sch.UnorderedGroups[name] = true
		}
	}
	return sch, nil
}

type defineKind int

const (
	defineUnknown defineKind = iota
	defineElement
	defineSimpleType
	defineAttrGroup
)

func collectRelaxNGDefines(fsys FileSystem, path string, defines map[string]*Node, sch *Schema, visited map[string]bool) error {
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
		return errs.SchemaError(resolved, "malformed RelaxNG XML", err)
	}
	if root == nil || root.Local != "grammar" {
		return errs.New(errs.SchemaErrorKind, resolved, "expected a <grammar> root element")
	}
	for _, d := range root.Elements("define") {
		name := d.Attr("name")
		if name == "" {
			return errs.New(errs.SchemaErrorKind, resolved, "<define> without a name attribute")
		}
		defines[name] = d
	}
	for _, inc := range root.Elements("include") {
		href := inc.Attr("href")
		if href == "" {
			return errs.New(errs.SchemaErrorKind, resolved, "<include> without href")
		}
		if err := collectRelaxNGDefines(fsys, filepath.Join(filepath.Dir(resolved), href), defines, sch, visited); err != nil {
			return err
		}
	}
	return nil
}

func classifyRelaxNGDefine(pat *Node) defineKind {
	if containsTag(pat, "element") {
		return defineElement
	}
	if isPureEnum(pat) || containsTag(pat, "data") {
		return defineSimpleType
	}
	return defineAttrGroup
}

func containsTag(n *Node, tag string) bool {
	if n.Local == tag {
		return true
	}
	for _, c := range n.Children {
		if containsTag(c, tag) {
			return true
		}
	}
	return false
}

func isPureEnum(n *Node) bool {
	if n.Local == "value" {
		return true
	}
	if (n.Local == "choice" || n.Local == "grammar") && len(n.Children) > 0 {
		for _, c := range n.Children {
			if !isPureEnum(c) {
				return false
			}
		}
		return true
	}
	return false
}

func buildSimpleTypeRNG(name string, pat *Node, defines map[string]*Node, kind map[string]string) (*SimpleType, error) {
	if d := firstTag(pat, "data"); d != nil {
		st := &SimpleType{Name: name}
		switch d.Attr("type") {
		case "decimal", "double", "integer", "nonNegativeInteger", "float":
			st.Kind = NumberRestriction
		default:
			st.Kind = TextRestriction
		}
		for _, p := range d.Elements("param") {
			if p.Attr("name") == "pattern" {
				st.Pattern = p.Text
			}
		}
		return st, nil
	}
	var values []string
	collectEnumValues(pat, &values)
	if len(values) == 0 {
		return nil, errs.New(errs.SchemaErrorKind, name, "simple type has no enumeration values and no <data> restriction")
	}
	return &SimpleType{Name: name, Kind: Enumeration, Values: values}, nil
}

func collectEnumValues(n *Node, out *[]string) {
	if n.Local == "value" {
		*out = append(*out, n.Text)
		return
	}
	for _, c := range n.Children {
		collectEnumValues(c, out)
	}
}

func firstTag(n *Node, tag string) *Node {
	if n.Local == tag {
		return n
	}
	for _, c := range n.Children {
		if found := firstTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func buildAttributeGroupRNG(name string, pat *Node, defines map[string]*Node, kind map[string]string, sch *Schema) (*AttributeGroup, error) {
	ag := &AttributeGroup{Name: name}
	if err := collectAttributesRNG(pat, ag, defines, kind, map[string]bool{name: true}); err != nil {
		return nil, err
	}
	return ag, nil
}

func collectAttributesRNG(n *Node, ag *AttributeGroup, defines map[string]*Node, kind map[string]string, visiting map[string]bool) error {
	switch n.Local {
	case "attribute":
		attr := Attribute{Name: n.Attr("name"), Domain: n.Attr("domain"), Presence: Required}
		if ref := firstTag(n, "ref"); ref != nil {
			attr.Type = ref.Attr("name")
		} else if firstTag(n, "data") != nil {
			attr.Type = n.Attr("name") + ".datatype"
		}
		ag.Attributes = append(ag.Attributes, attr)
	case "optional":
		for _, c := range n.Children {
			if c.Local == "attribute" {
				if err := collectAttributesRNG(c, ag, defines, kind, visiting); err != nil {
					return err
				}
				ag.Attributes[len(ag.Attributes)-1].Presence = Optional
			} else {
				if err := collectAttributesRNG(c, ag, defines, kind, visiting); err != nil {
					return err
				}
			}
		}
	case "ref":
		target := n.Attr("name")
		if visiting[target] {
			return nil // recursive attribute-group reference; already inlined once
		}
		if kind[target] == "element" {
			return nil // content reference, not an attribute group
		}
		def, ok := defines[target]
		if !ok {
			return errs.UnresolvedReference(ag.Name, target, ag.Name)
		}
		visiting[target] = true
		err := collectAttributesRNG(def, ag, defines, kind, visiting)
		delete(visiting, target)
		return err
	default:
		for _, c := range n.Children {
			if err := collectAttributesRNG(c, ag, defines, kind, visiting); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildElementRNG(defineName string, pat *Node, defines map[string]*Node, kind map[string]string, sch *Schema) (*Element, error) {
	elNode := firstTag(pat, "element")
	if elNode == nil {
		return nil, errs.New(errs.SchemaErrorKind, defineName, "define classified as element but contains none")
	}
	el := &Element{Name: elNode.Attr("name")}
	if el.Name == "" {
		el.Name = defineName
	}
	var groups []string
	content, mixed, err := buildContentModelRNG(elNode, defines, kind, &groups, map[string]bool{defineName: true})
	if err != nil {
		return nil, err
	}
	el.Content = content
	el.MixedContent = mixed
	// Some <ref> targets encountered while walking content are groups
	// of pure content structure (an anonymous choice of child elements
	// factored into its own <define> for reuse) rather than attribute
	// groups; they carry no attributes once built in pass 1, so they
	// are dropped from Groups here rather than polluting the element's
	// composed-attribute-group list (spec.md §3.2).
	for _, g := range groups {
		if ag, ok := sch.AttributeGroups[g]; ok && len(ag.Attributes) > 0 {
			el.Groups = append(el.Groups, g)
		}
	}

	// Attributes written directly on the <element> (rather than behind
	// a named attribute-group <ref>) become a synthetic per-element
	// group, the RelaxNG-side counterpart of the XSD loader's
	// complexType-local <xs:attribute> handling.
	local := &AttributeGroup{Name: el.Name + ".attrs"}
	if err := collectInlineAttributesRNG(elNode, local); err != nil {
		return nil, err
	}
	if len(local.Attributes) > 0 {
		sch.AttributeGroups[local.Name] = local
		el.Groups = append(el.Groups, local.Name)
	}
	return el, nil
}

// collectInlineAttributesRNG gathers <attribute> declarations written
// lexically inline on an element (including wrapped in <optional>,
// <group>, <interleave>, <choice>) without following any <ref>, since
// ref targets are either already-classified attribute groups (added to
// Element.Groups by buildContentModelRNG) or content references.
func collectInlineAttributesRNG(n *Node, ag *AttributeGroup) error {
	for _, c := range n.Children {
		switch c.Local {
		case "attribute":
			ag.Attributes = append(ag.Attributes, Attribute{Name: c.Attr("name"), Presence: Required})
		case "optional":
			before := len(ag.Attributes)
			if err := collectInlineAttributesRNG(c, ag); err != nil {
				return err
			}
			for i := before; i < len(ag.Attributes); i++ {
				ag.Attributes[i].Presence = Optional
			}
		case "ref", "element":
			continue
		default:
			if err := collectInlineAttributesRNG(c, ag); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildContentModelRNG walks an <element>'s children, separating
// attribute-group references (accumulated into groups) from the actual
// child-element content model.
func buildContentModelRNG(n *Node, defines map[string]*Node, kind map[string]string, groups *[]string, visiting map[string]bool) (ContentModel, bool, error) {
	mixed := containsTag(n, "text") && containsTag(n, "element")
	var items []ContentModel
	for _, c := range n.Children {
		switch c.Local {
		case "attribute":
			continue // attributes handled by buildAttributeGroupRNG/collectAttributesRNG
		case "name":
			continue // the element's own name token
		case "text":
			items = append(items, ContentModel{Kind: Text})
		case "empty":
			// contributes nothing
		case "ref":
			target := c.Attr("name")
			if kind[target] == "element" {
				elName := firstTag(defines[target], "element").Attr("name")
				if elName == "" {
					elName = target
				}
				items = append(items, ContentModel{Child: ChildItem{Kind: ElementRef, Name: elName}})
			} else if kind[target] == "simple" {
				// an inline enumerated attribute value reference, not content
				continue
			} else {
				if visiting[target] {
					// recursive content group (one that refers back to
					// itself): kept as a named ChoiceRef instead of being
					// inlined again. Nothing expands it later, and
					// PermittedChild does not look inside it.
					items = append(items, ContentModel{Child: ChildItem{Kind: ChoiceRef, Name: target}})
					continue
				}
				*groups = append(*groups, target)
				def, ok := defines[target]
				if !ok {
					return ContentModel{}, false, errs.UnresolvedReference(n.Attr("name"), target, target)
				}
				visiting[target] = true
				sub, subMixed, err := buildContentModelRNG(def, defines, kind, groups, visiting)
				delete(visiting, target)
				if err != nil {
					return ContentModel{}, false, err
				}
				mixed = mixed || subMixed
				if sub.Kind != Empty || len(sub.Items) > 0 || sub.Child.Name != "" {
					items = append(items, sub)
				}
			}
		case "choice":
			sub, subMixed, err := buildChoiceRNG(c, defines, kind, groups, visiting, false)
			if err != nil {
				return ContentModel{}, false, err
			}
			mixed = mixed || subMixed
			items = append(items, sub)
		case "interleave":
			sub, subMixed, err := buildChoiceRNG(c, defines, kind, groups, visiting, true)
			if err != nil {
				return ContentModel{}, false, err
			}
			mixed = mixed || subMixed
			items = append(items, sub)
		case "group":
			sub, subMixed, err := buildContentModelRNG(c, defines, kind, groups, visiting)
			if err != nil {
				return ContentModel{}, false, err
			}
			mixed = mixed || subMixed
			if len(sub.Items) > 0 {
				items = append(items, sub.Items...)
			}
		case "optional":
			sub, subMixed, err := buildContentModelRNG(c, defines, kind, groups, visiting)
			if err != nil {
				return ContentModel{}, false, err
			}
			mixed = mixed || subMixed
			for _, it := range flattenSeq(sub) {
				items = append(items, ContentModel{Kind: Repetition, Items: []ContentModel{it}, Min: 0, Max: 1})
			}
		case "zeroOrMore", "oneOrMore":
			sub, subMixed, err := buildContentModelRNG(c, defines, kind, groups, visiting)
			if err != nil {
				return ContentModel{}, false, err
			}
			mixed = mixed || subMixed
			min := 0
			if c.Local == "oneOrMore" {
				min = 1
			}
			for _, it := range flattenSeq(sub) {
				items = append(items, ContentModel{Kind: Repetition, Items: []ContentModel{it}, Min: min, Max: -1})
			}
		case "anyName", "any":
			items = append(items, ContentModel{Child: ChildItem{Kind: Wildcard}})
		case "except":
			return ContentModel{}, false, errs.New(errs.SchemaErrorKind, n.Attr("name"),
				fmt.Sprintf("UnsupportedConstruct: <except> namespace exclusion is not supported"))
		default:
			// element / start / other wrapper: recurse
			sub, subMixed, err := buildContentModelRNG(c, defines, kind, groups, visiting)
			if err != nil {
				return ContentModel{}, false, err
			}
			mixed = mixed || subMixed
			if len(sub.Items) > 0 {
				items = append(items, sub.Items...)
			} else if sub.Child.Name != "" || sub.Kind == Text {
				items = append(items, sub)
			}
		}
	}
	if len(items) == 0 {
		return ContentModel{Kind: Empty}, mixed, nil
	}
	return ContentModel{Kind: Sequence, Items: items}, mixed, nil
}

func buildChoiceRNG(n *Node, defines map[string]*Node, kind map[string]string, groups *[]string, visiting map[string]bool, unordered bool) (ContentModel, bool, error) {
	var items []ContentModel
	mixed := false
	for _, c := range n.Children {
		sub, subMixed, err := buildContentModelRNG(&Node{Local: "group", Children: []*Node{c}}, defines, kind, groups, visiting)
		if err != nil {
			return ContentModel{}, false, err
		}
		mixed = mixed || subMixed
		items = append(items, flattenSeq(sub)...)
	}
	return ContentModel{Kind: Choice, Items: items, Unordered: unordered}, mixed, nil
}

func flattenSeq(cm ContentModel) []ContentModel {
	if cm.Kind == Sequence {
		return cm.Items
	}
	if cm.Kind == Empty && cm.Child.Name == "" {
		return nil
	}
	return []ContentModel{cm}
}
