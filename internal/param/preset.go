package param

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPreset indicates a preset document that cannot be applied.
var ErrInvalidPreset = errors.New("invalid preset")

// Preset is the YAML document form of a set of control values.
//
//	name: crunchy
//	values:
//	  curve: 1
//	  symmetric: false
//	  pos-db-pregain: 12
type Preset struct {
	Name   string         `yaml:"name,omitempty"`
	Values map[string]any `yaml:"values"`
}

func presetValue(name string, raw any) (float64, error) {
	switch v := raw.(type) {
	case bool:
		return boolFloat(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %q has unsupported value %v (%T)", ErrInvalidPreset, name, raw, raw)
	}
}

// LoadPreset decodes a YAML preset and applies its values in table order.
// Nothing is applied when the document names an unknown control or holds a
// non-numeric value. Values are clamped like any other Set.
func (s *Store) LoadPreset(r io.Reader) (string, error) {
	var p Preset
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}

	values := make(map[string]float64, len(p.Values))
	for name, raw := range p.Values {
		if _, err := s.lookup(name); err != nil {
			return "", err
		}
		v, err := presetValue(name, raw)
		if err != nil {
			return "", err
		}
		values[name] = v
	}

	for _, e := range s.entries {
		v, ok := values[e.Name]
		if !ok {
			continue
		}
		if _, err := s.Set(e.Name, v); err != nil {
			return p.Name, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"preset": p.Name,
		"values": len(values),
	}).Info("preset loaded")
	return p.Name, nil
}

// SavePreset encodes every current value as a YAML preset.
func (s *Store) SavePreset(w io.Writer, name string) error {
	snap := s.current.Load()
	p := Preset{Name: name, Values: make(map[string]any, len(s.entries))}

	for _, e := range s.entries {
		v := e.get(snap)
		switch e.Kind {
		case KindBool:
			p.Values[e.Name] = v != 0
		case KindUint:
			p.Values[e.Name] = int(v)
		default:
			p.Values[e.Name] = v
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&p); err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	return enc.Close()
}
