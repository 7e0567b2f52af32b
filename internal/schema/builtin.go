package schema

import (
	"embed"
	"io"
	"os"
)

//go:embed grammars/mei.rng grammars/musicxml.xsd
var grammars embed.FS

// embedFS adapts an embed.FS to FileSystem.
type embedFS struct{ fs embed.FS }

func (e embedFS) Open(path string) (io.ReadCloser, error) {
	return e.fs.Open(path)
}

// MEI loads the bundled MEI grammar fragment described in
// SPEC_FULL.md §3: a representative cross-section of the full MEI
// RelaxNG grammar, sufficient to exercise every scenario in spec.md
// §8.4. The Schema Loader algorithm itself (LoadRelaxNG) is unaware of
// this limitation and runs identically against a complete upstream
// grammar file.
func MEI() (*Schema, error) {
	return LoadRelaxNG(embedFS{grammars}, "grammars/mei.rng")
}

// MusicXML loads the bundled MusicXML grammar fragment (SPEC_FULL.md §3).
func MusicXML() (*Schema, error) {
	return LoadXSD(embedFS{grammars}, "grammars/musicxml.xsd")
}

// OSFileSystem reads grammar files from the local filesystem, for a
// caller that wants to point the loader at a complete upstream grammar
// instead of the bundled fragment.
type OSFileSystem struct{}

func (OSFileSystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
