package wizard

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliases []byte

// AliasTable lists, per canonical field, the source column names that may
// carry it.
type AliasTable struct {
	Version   int                 `yaml:"version"`
	Locations map[string][]string `yaml:"locations"`
	Assets    map[string][]string `yaml:"assets"`
}

// DefaultAliases returns the built-in table.
func DefaultAliases() *AliasTable {
	var t AliasTable
	if err := yaml.Unmarshal(defaultAliases, &t); err != nil {
		panic(fmt.Sprintf("wizard: embedded aliases: %v", err))
	}
	return &t
}

// LoadAliases reads a YAML table from path. Fields it names replace the
// built-in aliases for that field; other fields keep the defaults.
func LoadAliases(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	var override AliasTable
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse aliases %s: %w", path, err)
	}
	t := DefaultAliases()
	for field, names := range override.Locations {
		t.Locations[field] = names
	}
	for field, names := range override.Assets {
		t.Assets[field] = names
	}
	return t, nil
}

// normalizeHeader folds case and drops separators, so "Asset Tag",
// "asset_tag" and "ASSET-TAG" compare equal.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/' || r == '#' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveColumns maps each canonical field to the first source header
// that matches one of its aliases. Aliases are tried in order; a header
// is claimed by at most one field.
func resolveColumns(header []string, aliases map[string][]string, fields []string) map[string]string {
	byNorm := make(map[string]string, len(header))
	for _, h := range header {
		n := normalizeHeader(h)
		if _, dup := byNorm[n]; !dup && n != "" {
			byNorm[n] = h
		}
	}
	claimed := map[string]bool{}
	cols := make(map[string]string, len(fields))
	for _, field := range fields {
		for _, alias := range aliases[field] {
			h, ok := byNorm[normalizeHeader(alias)]
			if ok && !claimed[h] {
				cols[field] = h
				claimed[h] = true
				break
			}
		}
	}
	return cols
}
