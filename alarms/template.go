package alarms

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

const (
	resourcesKey     = "Resources"
	formatVersionKey = "AWSTemplateFormatVersion"
	formatVersion    = "2010-09-09"
)

// Template is a decoded CloudFormation template. Keys the package does not
// touch are kept as they were read.
type Template map[string]any

// NewTemplate returns an empty template with a format version and an empty
// Resources section.
func NewTemplate() Template {
	return Template{
		formatVersionKey: formatVersion,
		resourcesKey:     map[string]any{},
	}
}

// ParseTemplate decodes a JSON template. Empty input yields NewTemplate.
// Numbers are kept as json.Number so untouched values round trip exactly.
func ParseTemplate(data []byte) (Template, error) {
	if len(data) == 0 {
		return NewTemplate(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var t Template
	if err := dec.Decode(&t); err != nil {
		return nil, errors.Wrap(err, "template")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("template: unexpected data after the top-level value")
	}
	if t == nil {
		return NewTemplate(), nil
	}
	return t, nil
}

// Resources returns the Resources section, creating it when absent.
func (t Template) Resources() map[string]any {
	if r, ok := t[resourcesKey].(map[string]any); ok {
		return r
	}
	r := map[string]any{}
	t[resourcesKey] = r
	return r
}

// Merge deep merges resources into the Resources section in order. Objects
// merge key by key, arrays index by index, anything else is overwritten.
func (t Template) Merge(resources ...NamedResource) error {
	dst := t.Resources()
	for _, nr := range resources {
		m, err := nr.Resource.Map()
		if err != nil {
			return errors.Wrapf(err, "template: encode %s", nr.Name)
		}
		dst[nr.Name] = deepMerge(dst[nr.Name], m)
	}
	return nil
}

// MarshalIndent encodes the template for writing to disk. Strings are not
// HTML-escaped.
func (t Template) MarshalIndent() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Build generates the resources of every group, group by group.
func Build(groups []GroupSpec, region string) []NamedResource {
	var out []NamedResource
	for _, g := range groups {
		out = append(out, Generate(g, region)...)
	}
	return out
}

// MergeGroups generates the alarms of groups and merges them into t.
func MergeGroups(t Template, groups []GroupSpec, region string) error {
	return t.Merge(Build(groups, region)...)
}

func deepMerge(dst, src any) any {
	switch s := src.(type) {
	case map[string]any:
		d, ok := dst.(map[string]any)
		if !ok {
			d = make(map[string]any, len(s))
		}
		for k, v := range s {
			d[k] = deepMerge(d[k], v)
		}
		return d
	case []any:
		d, _ := dst.([]any)
		out := make([]any, max(len(d), len(s)))
		copy(out, d)
		for i, v := range s {
			out[i] = deepMerge(out[i], v)
		}
		return out
	default:
		return src
	}
}
