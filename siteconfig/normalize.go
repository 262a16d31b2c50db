package siteconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ShapeError locates the first structural problem in a document.
type ShapeError struct {
	Path   string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s at %s: %s", ErrMalformedDocument, e.Path, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrMalformedDocument }

func shapeErrorf(path, format string, args ...any) *ShapeError {
	return &ShapeError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Normalize checks that doc has the full shape of the built-in document and
// decodes it. Every key of the default document must be present, non-null
// and of the same JSON kind; array elements and optional fields are checked
// by type when decoding. Keys unknown to the default are tolerated.
func Normalize(doc any) (SiteConfig, error) {
	root, ok := doc.(*Object)
	if !ok {
		return SiteConfig{}, shapeErrorf("$", "expected object, got %s", kindOf(doc))
	}
	if err := checkShape("$", defaultDoc, root); err != nil {
		return SiteConfig{}, err
	}

	raw, err := json.Marshal(root)
	if err != nil {
		return SiteConfig{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	var cfg SiteConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return SiteConfig{}, shapeErrorf("$."+typeErr.Field, "expected %s, got %s", typeErr.Type, typeErr.Value)
		}
		return SiteConfig{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

func checkShape(path string, want, got *Object) error {
	for _, key := range want.keys {
		childPath := path + "." + key
		gv, ok := got.values[key]
		if !ok {
			return shapeErrorf(childPath, "missing")
		}
		wv := want.values[key]
		if gv == nil {
			return shapeErrorf(childPath, "null where %s expected", kindOf(wv))
		}
		if wk, gk := kindOf(wv), kindOf(gv); wk != gk {
			return shapeErrorf(childPath, "expected %s, got %s", wk, gk)
		}
		if wobj, ok := wv.(*Object); ok {
			if err := checkShape(childPath, wobj, gv.(*Object)); err != nil {
				return err
			}
		}
	}
	return nil
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate checks the value constraints that the JSON shape cannot express.
func (c *SiteConfig) Validate() error {
	if c.Meta.Language != "fr" {
		return shapeErrorf("$.meta.language", "unsupported language %q", c.Meta.Language)
	}
	if sc := c.Home.Hero.SecondaryCta; sc != nil {
		switch sc.Type {
		case CtaTypeTel, CtaTypeMailto, CtaTypeLink:
		default:
			return shapeErrorf("$.home.hero.secondaryCta.type", "unknown type %q", sc.Type)
		}
	}
	if !isoDate.MatchString(c.Privacy.LastUpdated) {
		return shapeErrorf("$.privacy.lastUpdated", "expected YYYY-MM-DD, got %q", c.Privacy.LastUpdated)
	}
	if c.Admin.Gate.Iterations < 0 {
		return shapeErrorf("$.admin.gate.iterations", "must not be negative")
	}
	for i, u := range c.Admin.GitHub.AllowedUsers {
		if strings.TrimSpace(u) == "" {
			return shapeErrorf(fmt.Sprintf("$.admin.github.allowedUsers[%d]", i), "empty login")
		}
	}
	return nil
}

// MergeText parses text, overlays it on the built-in document and normalizes
// the result. It returns both the merged tree, which keeps unknown keys and
// key order, and its typed form.
func MergeText(text []byte) (*Object, SiteConfig, error) {
	parsed, err := Parse(text)
	if err != nil {
		return nil, SiteConfig{}, err
	}
	merged := Merge(defaultDoc, parsed)
	cfg, err := Normalize(merged)
	if err != nil {
		return nil, SiteConfig{}, err
	}
	return merged.(*Object), cfg, nil
}
