package classify

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Taxonomy is the versioned folder-schema artifact: which document types
// each category folder recognises, how they are matched, and the naming
// template per folder.
type Taxonomy struct {
	Version  int            `yaml:"version"`
	Folders  []FolderSchema `yaml:"folders"`
	Keywords []KeywordSet   `yaml:"keywords"`
}

// KeywordSet lists the content keywords for one document type. Sets are
// scored in declared order so ties resolve deterministically.
type KeywordSet struct {
	Type  string   `yaml:"type"`
	Terms []string `yaml:"terms"`
}

// FolderSchema describes one category folder.
type FolderSchema struct {
	Name     string        `yaml:"name"`
	Template string        `yaml:"template"`
	Types    []TypePattern `yaml:"types"`
}

// TypePattern maps a document type to its filename pattern. Patterns are
// tried in declared order, so order is part of the artifact's contract.
type TypePattern struct {
	Type    string `yaml:"type"`
	Pattern string `yaml:"pattern"`

	re *regexp.Regexp
}

// DefaultTaxonomy parses the embedded taxonomy artifact.
func DefaultTaxonomy() (*Taxonomy, error) {
	return parseTaxonomy(defaultTaxonomy)
}

// LoadTaxonomy reads a taxonomy artifact from path. An empty path yields
// the embedded default.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %q: %w", path, err)
	}
	return parseTaxonomy(data)
}

func parseTaxonomy(data []byte) (*Taxonomy, error) {
	var tx Taxonomy
	if err := yaml.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	for fi := range tx.Folders {
		folder := &tx.Folders[fi]
		if folder.Name == "" {
			return nil, fmt.Errorf("taxonomy: folder %d has no name", fi)
		}
		for ti := range folder.Types {
			tp := &folder.Types[ti]
			re, err := regexp.Compile("(?i)" + tp.Pattern)
			if err != nil {
				return nil, fmt.Errorf("taxonomy: folder %q type %q: %w", folder.Name, tp.Type, err)
			}
			tp.re = re
		}
	}
	return &tx, nil
}

// Folder returns the schema for a folder name, or nil when the folder is
// not part of the taxonomy.
func (tx *Taxonomy) Folder(name string) *FolderSchema {
	for i := range tx.Folders {
		if strings.EqualFold(tx.Folders[i].Name, name) {
			return &tx.Folders[i]
		}
	}
	return nil
}
