// Package openapi embeds the OpenAPI document.
package openapi

import (
	_ "embed"
	"sync"

	"github.com/goccy/go-yaml"
)

// YAML contains the embedded OpenAPI document.
//
//go:embed openapi.yaml
var YAML []byte

var (
	jsonOnce sync.Once
	jsonDoc  []byte
	jsonErr  error
)

// JSON returns the document converted to JSON. The conversion runs once.
func JSON() ([]byte, error) {
	jsonOnce.Do(func() {
		jsonDoc, jsonErr = yaml.YAMLToJSON(YAML)
	})

	return jsonDoc, jsonErr
}
