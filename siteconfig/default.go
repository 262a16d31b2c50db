package siteconfig

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// Filename is the name under which the site publishes its document.
const Filename = "data.config"

//go:embed default.json
var defaultJSON []byte

var defaultDoc *Object

func init() {
	doc, err := ParseDocument(defaultJSON)
	if err != nil {
		panic(fmt.Sprintf("siteconfig: embedded default document: %v", err))
	}
	obj, ok := doc.(*Object)
	if !ok {
		panic("siteconfig: embedded default document is not an object")
	}
	defaultDoc = obj
}

// DefaultDocument returns a private copy of the built-in document.
func DefaultDocument() *Object {
	return defaultDoc.Clone()
}

// Default returns the built-in configuration.
func Default() SiteConfig {
	var cfg SiteConfig
	if err := json.Unmarshal(defaultJSON, &cfg); err != nil {
		panic(fmt.Sprintf("siteconfig: decoding default document: %v", err))
	}
	return cfg
}

// DefaultJSON returns the built-in document text.
func DefaultJSON() []byte {
	out := make([]byte, len(defaultJSON))
	copy(out, defaultJSON)
	return out
}
