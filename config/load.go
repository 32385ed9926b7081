package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ategus/bridginghub/errors"
)

// maxReferenceDepth bounds file-reference chains; deeper chains indicate a
// reference loop.
const maxReferenceDepth = 8

// section is one top-level key/value pair in declaration order.
type section struct {
	name  string
	value any
}

// Load reads, resolves and validates a pipeline configuration file. The
// format follows the file extension: .json, .yaml or .yml. Sections whose
// value is a string are references to further files, loaded recursively
// relative to the referring file's directory.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path, 0)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, depth int) (*Config, error) {
	wrap := func(err error) error {
		return errors.WrapConfig(err, "Config", "Load", fmt.Sprintf("load %s", path))
	}
	if depth > maxReferenceDepth {
		return nil, wrap(fmt.Errorf("%w: reference chain exceeds depth %d", errors.ErrInvalidConfig, maxReferenceDepth))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap(err)
	}
	sections, err := parseSections(raw, filepath.Ext(path))
	if err != nil {
		return nil, wrap(err)
	}

	dir := filepath.Dir(path)
	cfg := &Config{Source: path}
	seen := make(map[string]bool, len(sections))
	for _, sec := range sections {
		if seen[sec.name] {
			return nil, wrap(fmt.Errorf("%w: duplicate section %q", errors.ErrInvalidConfig, sec.name))
		}
		seen[sec.name] = true

		value := sec.value
		if ref, ok := value.(string); ok {
			value, err = loadSection(resolveRef(dir, ref), depth+1)
			if err != nil {
				return nil, wrap(err)
			}
		}
		detail, ok := value.(map[string]any)
		if !ok {
			return nil, wrap(fmt.Errorf("%w: section %q: expected mapping or file reference, got %T",
				errors.ErrInvalidConfig, sec.name, sec.value))
		}

		if sec.name == KeyData {
			cfg.Data = detail
			continue
		}
		seg, err := parseSegment(sec.name, detail)
		if err != nil {
			return nil, err
		}
		cfg.Segments = append(cfg.Segments, seg)
	}
	return cfg, nil
}

// loadSection reads a referenced section file into a plain mapping. A
// referenced file may itself be a reference.
func loadSection(path string, depth int) (any, error) {
	if depth > maxReferenceDepth {
		return nil, fmt.Errorf("%w: reference chain exceeds depth %d", errors.ErrInvalidConfig, maxReferenceDepth)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("referenced file: %w", err)
	}

	var value any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errors.ErrParsingFailed, path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errors.ErrParsingFailed, path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", errors.ErrInvalidConfig, ext)
	}

	if ref, ok := value.(string); ok {
		return loadSection(resolveRef(filepath.Dir(path), ref), depth+1)
	}
	return value, nil
}

func resolveRef(dir, ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(dir, ref)
}

// parseSections splits a document into its top-level sections preserving
// declaration order.
func parseSections(raw []byte, ext string) ([]section, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return parseOrderedJSON(raw)
	case ".yaml", ".yml":
		return parseOrderedYAML(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", errors.ErrInvalidConfig, ext)
	}
}

// parseOrderedJSON walks the token stream so the segment order of the file
// survives; plain unmarshaling into a map would shuffle it.
func parseOrderedJSON(raw []byte) ([]section, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top level must be an object, got %v", errors.ErrInvalidData, tok)
	}

	var sections []section
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key %v", errors.ErrParsingFailed, keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: section %q: %w", errors.ErrParsingFailed, key, err)
		}
		sections = append(sections, section{name: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
	}
	return sections, nil
}

// parseOrderedYAML walks the yaml.Node tree for the same reason.
func parseOrderedYAML(raw []byte) ([]section, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrParsingFailed, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", errors.ErrInvalidData)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", errors.ErrInvalidData)
	}

	sections := make([]section, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: non-scalar section key at line %d", errors.ErrInvalidData, keyNode.Line)
		}
		var value any
		if err := valueNode.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: section %q: %w", errors.ErrParsingFailed, keyNode.Value, err)
		}
		sections = append(sections, section{name: keyNode.Value, value: value})
	}
	return sections, nil
}

// parseSegment extracts the descriptor keys from a segment section. The full
// section stays available as Detail for stage-specific keys.
func parseSegment(name string, detail map[string]any) (Segment, error) {
	wrap := func(err error) error {
		return errors.WrapConfig(err, "Config", "Load", fmt.Sprintf("parse segment %q", name))
	}

	seg := Segment{
		Name:     name,
		Class:    GetString(detail, KeyClass, ""),
		Location: GetString(detail, KeyLocation, ""),
		Detail:   detail,
	}
	if seg.Class == "" {
		return Segment{}, wrap(fmt.Errorf("%w: %s", errors.ErrMissingConfig, KeyClass))
	}
	if seg.Location == "" {
		return Segment{}, wrap(fmt.Errorf("%w: %s", errors.ErrMissingConfig, KeyLocation))
	}

	rawType := GetString(detail, KeyType, "")
	if rawType == "" {
		return Segment{}, wrap(fmt.Errorf("%w: %s", errors.ErrMissingConfig, KeyType))
	}
	typ, sub, err := ParseModuleType(rawType)
	if err != nil {
		return Segment{}, wrap(err)
	}
	seg.Type, seg.Subtype = typ, sub

	if rawSubs, ok := detail[KeySubscription]; ok {
		list, ok := rawSubs.([]any)
		if !ok {
			return Segment{}, wrap(fmt.Errorf("%w: %s: expected list, got %T", errors.ErrInvalidConfig, KeySubscription, rawSubs))
		}
		for _, entry := range list {
			target, ok := entry.(string)
			if !ok {
				return Segment{}, wrap(fmt.Errorf("%w: %s: expected string entries, got %T", errors.ErrInvalidConfig, KeySubscription, entry))
			}
			seg.Subscriptions = append(seg.Subscriptions, target)
		}
	}
	return seg, nil
}
