package schema

import (
	"fmt"
	"io"
	"path/filepath"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/tusk-notation/tusk/internal/errs"
)

// FileSystem abstracts the handful of file operations the loader
// needs, so tests can supply an in-memory grammar set instead of real
// files, and so transitively-included files resolve relative to the
// file that included them (spec.md §4.1 "Inputs").
type FileSystem interface {
	Open(path string) (io.ReadCloser, error)
}

var log = logger.New("schema")

// load is the shared entry point for the two-pass algorithm described
// in spec.md §4.1: "Pass 1 collects named definitions ... Pass 2
// materialises content models, rewriting structural references into
// direct references and inlining group references." Both passes run
// inside build, which is format specific (relaxNGBuild or xsdBuild);
// load calls it and logs a failure.
func load(fsys FileSystem, entryPath string, build func(fsys FileSystem, entryPath string) (*Schema, error)) (*Schema, error) {
	log := log.Function("load")
	sch, err := build(fsys, entryPath)
	if err != nil {
		log.Err("loading schema", err)
		return nil, err
	}
	return sch, nil
}

// readAll resolves path relative to the directory containing from (or
// as an absolute/rooted path if it already is one) and returns its
// full contents.
func readAll(fsys FileSystem, from, path string) ([]byte, string, error) {
	resolved := path
	if !filepath.IsAbs(path) && from != "" {
		resolved = filepath.Join(filepath.Dir(from), path)
	}
	rc, err := fsys.Open(resolved)
	if err != nil {
		return nil, resolved, errs.SchemaError(resolved, "unresolved include", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, resolved, errs.SchemaError(resolved, "reading include", err)
	}
	return data, resolved, nil
}

// unionTieBreak implements spec.md §4.1's tie-break rule: "when a
// simple type is defined by union of enumerations, concatenate
// vocabularies and record the union; on conflict (same value with
// different meaning), prefer the first listed and record the shadow
// for diagnostics."
func unionTieBreak(members []*SimpleType) *SimpleType {
	merged := &SimpleType{Kind: Enumeration, Shadowed: map[string]string{}}
	seenFrom := map[string]string{}
	for _, m := range members {
		for _, v := range m.Values {
			if owner, ok := seenFrom[v]; ok {
				merged.Shadowed[v] = fmt.Sprintf("already defined by %s, shadowed by %s", owner, m.Name)
				continue
			}
			seenFrom[v] = m.Name
			merged.Values = append(merged.Values, v)
		}
	}
	return merged
}

// mergeGroupMembership implements the tie-break for element group
// membership: "When an element appears in multiple groups, membership
// is the union."
func mergeGroupMembership(existing, add []string) []string {
	have := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, g := range existing {
		have[g] = true
	}
	for _, g := range add {
		if !have[g] {
			have[g] = true
			out = append(out, g)
		}
	}
	return out
}
