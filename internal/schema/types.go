// Package schema is the Schema Loader (spec.md §3.1, §4.1): it turns a
// source grammar (RelaxNG for MEI, XSD for MusicXML) into the
// intermediate schema representation that internal/modelgen consumes.
package schema

// SimpleTypeKind distinguishes the five simple-type shapes spec.md
// §3.1 names.
type SimpleTypeKind int

const (
	Enumeration SimpleTypeKind = iota
	TextRestriction
	NumberRestriction
	ListType
	UnionType
)

// SimpleType is a named scalar type: an enumeration, a pattern- or
// length-restricted string, a numeric range, a whitespace-separated
// list of another simple type, or a union of several.
type SimpleType struct {
	Name string
	Kind SimpleTypeKind

	// Values holds the closed vocabulary for Enumeration (and the
	// merged vocabulary for UnionType, per the tie-break rule of
	// spec.md §4.1: "concatenate vocabularies and record the union").
	Values []string

	// Shadowed records values which appeared in more than one member
	// of a union with a different source meaning; the first listing
	// wins and the rest are kept here for diagnostics only.
	Shadowed map[string]string

	// Pattern is the regular expression for TextRestriction, if any.
	Pattern string

	// Min/Max bound NumberRestriction; both zero means unbounded.
	Min, Max float64

	// ItemType names the element type of ListType or the members of
	// UnionType.
	ItemType []string
}

// Presence is how an attribute relates to its element: it must be
// supplied, it may be omitted with no value, or it may be omitted and
// defaults to a known value.
type Presence int

const (
	Required Presence = iota
	Optional
	Defaulted
)

// Attribute is one member of an AttributeGroup.
type Attribute struct {
	Name     string
	Type     string // SimpleType.Name, or "" for untyped/string
	Presence Presence
	Default  string // only meaningful when Presence == Defaulted

	// Domain is the MEI translation domain this attribute belongs to
	// (spec.md §3.4), when the schema marks one. Empty for attributes
	// with no domain partition (most MusicXML attributes, and MEI
	// attributes outside the four domain-qualified classes).
	Domain string
}

// AttributeGroup is a named, reusable set of attributes composed into
// every element that belongs to it.
type AttributeGroup struct {
	Name       string
	Attributes []Attribute
}

// ContentKind distinguishes the content-model sum type of spec.md §3.1.
type ContentKind int

const (
	Empty ContentKind = iota
	Text
	Sequence
	Choice
	Repetition
)

// ChildKind distinguishes the three shapes a ChildItem can take.
type ChildKind int

const (
	ElementRef ChildKind = iota
	ChoiceRef
	Wildcard
)

// ChildItem names one item permitted inside a content model.
type ChildItem struct {
	Kind ChildKind
	Name string // element name for ElementRef, group name for ChoiceRef
}

// ContentModel describes what may appear inside an element, as a tree
// of Sequence/Choice/Repetition nodes bottoming out in ChildItems.
type ContentModel struct {
	Kind ContentKind

	// Items holds the children of Sequence or Choice.
	Items []ContentModel

	// Unordered is true when Kind == Choice and the schema permits any
	// interleaving of Items (RelaxNG <interleave>, XSD <all>).
	Unordered bool

	// Child is set when this node is a leaf ChildItem (Kind is ignored
	// in that case; a leaf is recognized by Child.Kind == Wildcard, which
	// carries no name, or otherwise by Child.Name != "").
	Child ChildItem

	// Min, Max bound a Repetition. Max == -1 means unbounded.
	Min, Max int
}

// Element is one named element declaration.
type Element struct {
	Name    string
	Content ContentModel

	// Groups lists the (transitively resolved) attribute groups this
	// element belongs to, in the order the schema composes them.
	Groups []string

	// MixedContent marks an element whose content includes Text
	// (spec.md §4.2's dedicated Text variant). The XSD loader sets it
	// from a complexType's mixed="true"; the RelaxNG loader sets it for
	// every element whose pattern contains <text/>, including elements
	// with no element children.
	MixedContent bool
}

// Schema is the loader's output: every named simple type, attribute
// group, and element declaration found by walking the grammar and its
// transitive includes.
type Schema struct {
	SimpleTypes     map[string]*SimpleType
	AttributeGroups map[string]*AttributeGroup
	Elements        map[string]*Element

	// ResolvedIncludes is the set of grammar file paths consumed,
	// transitively, building this Schema — used for dependency
	// tracking by a caller that wants to know what to re-load on
	// change.
	ResolvedIncludes []string

	// UnorderedGroups names every Choice content model that was marked
	// Unordered, flattened to (elementName -> true) for quick lookup by
	// the XML Comparator, which "must know which groups are unordered"
	// (spec.md §9).
	UnorderedGroups map[string]bool
}

func newSchema() *Schema {
	return &Schema{
		SimpleTypes:     make(map[string]*SimpleType),
		AttributeGroups: make(map[string]*AttributeGroup),
		Elements:        make(map[string]*Element),
		UnorderedGroups: make(map[string]bool),
	}
}

// SimpleType returns the simple type this schema declares under name,
// nil if undeclared.
func (s *Schema) SimpleType(name string) *SimpleType {
	return s.SimpleTypes[name]
}

// IsKnownEnumValue reports whether value belongs to the closed
// vocabulary of the named enumeration, used by the MusicXML importer's
// checkEnum to raise UnknownEnumValue (spec.md §4.2).
func (s *Schema) IsKnownEnumValue(typeName, value string) bool {
	st := s.SimpleTypes[typeName]
	if st == nil || st.Kind != Enumeration {
		return true // untyped/unknown type: nothing to check against
	}
	for _, v := range st.Values {
		if v == value {
			return true
		}
	}
	return false
}

// PermittedChild reports whether child is listed as a legal child of
// parent anywhere in parent's content model (spec.md §3.2 invariant
// "every child tag is listed as a permitted child ... by the schema").
func (e *Element) PermittedChild(child string) bool {
	return contentModelPermits(e.Content, child)
}

func contentModelPermits(cm ContentModel, child string) bool {
	if cm.Child.Kind == Wildcard {
		return true
	}
	if cm.Child.Name != "" {
		return cm.Child.Kind == ElementRef && cm.Child.Name == child
	}
	for _, item := range cm.Items {
		if contentModelPermits(item, child) {
			return true
		}
	}
	return false
}

// HasUnorderedChoice reports whether any choice group inside cm permits
// arbitrary interleaving. The loaders use it to build
// Schema.UnorderedGroups, the table the XML Comparator consults when
// deciding which parents to pair children by fingerprint for.
func HasUnorderedChoice(cm ContentModel) bool {
	if cm.Kind == Choice && cm.Unordered {
		return true
	}
	for _, item := range cm.Items {
		if HasUnorderedChoice(item) {
			return true
		}
	}
	return false
}
