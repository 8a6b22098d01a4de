package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// EncodeJSON renders the originally parsed block as JSON, in the
// {name: {key: value}} shape of the declarative source. Scalar values stay
// scalar, comma lists become arrays.
func (it *Item) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(it.sourceMap(), "", "  ")
}

// EncodeYAML renders the originally parsed block as YAML.
func (it *Item) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(it.sourceMap())
}
