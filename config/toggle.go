package config

import (
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Toggle is a boolean setting that remembers whether it was given at all, so that an
// explicit false in the file or environment is not replaced by a default.
type Toggle int8

const (
	ToggleUnset Toggle = iota
	ToggleOff
	ToggleOn
)

func NewToggle(on bool) Toggle {
	if on {
		return ToggleOn
	}
	return ToggleOff
}

// Or returns the setting, or def if it was never given.
func (t Toggle) Or(def bool) bool {
	switch t {
	case ToggleOn:
		return true
	case ToggleOff:
		return false
	default:
		return def
	}
}

// SetValue parses an environment value.
func (t *Toggle) SetValue(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return errors.Wrapf(err, "invalid boolean %q", s)
	}
	*t = NewToggle(b)
	return nil
}

func (t *Toggle) UnmarshalYAML(node *yaml.Node) error {
	var b bool
	if err := node.Decode(&b); err != nil {
		return errors.Wrap(err, "invalid boolean")
	}
	*t = NewToggle(b)
	return nil
}

func (t Toggle) MarshalYAML() (interface{}, error) {
	if t == ToggleUnset {
		return nil, nil
	}
	return t == ToggleOn, nil
}
