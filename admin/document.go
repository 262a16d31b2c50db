package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/mickael31/location-benne-occitanie/gate"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

// LoadResult is what Load hands back to the operator.
type LoadResult struct {
	Login    string `json:"login"`
	Revision string `json:"revision"`
	Text     string `json:"text"`
}

// Load identifies the token owner, checks the allow-list and fetches the
// document. The text is reformatted with two-space indentation. On any
// failure the editor text and revision stay as they were.
func (e *Editor) Load(ctx context.Context) (LoadResult, error) {
	if err := e.requireUnlocked(); err != nil {
		return LoadResult{}, err
	}
	token, err := e.githubToken()
	if err != nil {
		return LoadResult{}, err
	}

	e.mu.Lock()
	e.generation++
	gen, edits := e.generation, e.edits
	loc, allow := e.loc, e.allow
	e.mu.Unlock()

	id, doc, err := remote.FetchAuthorized(ctx, e.store, loc, token, allow)
	var pretty []byte
	if err == nil {
		pretty, err = reformat(doc.Text)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation || edits != e.edits {
		return LoadResult{}, ErrSuperseded
	}
	if id.Login != "" {
		e.login = id.Login
	}
	if err != nil {
		return LoadResult{}, err
	}
	e.text = string(pretty)
	e.revision = doc.Revision
	e.commitURL = ""
	e.logger.DebugContext(ctx, "document loaded", "location", loc.String(), "revision", doc.Revision)
	return LoadResult{Login: e.login, Revision: e.revision, Text: e.text}, nil
}

func reformat(text string) ([]byte, error) {
	parsed, err := siteconfig.Parse([]byte(text))
	if err != nil {
		return nil, err
	}
	return siteconfig.EncodeDocument(parsed)
}

// SetText replaces the editor text.
func (e *Editor) SetText(text string) error {
	if err := e.requireUnlocked(); err != nil {
		return err
	}
	e.mu.Lock()
	e.text = text
	e.edits++
	e.mu.Unlock()
	return nil
}

func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// Revision is the revision of the last successful Load or Save.
func (e *Editor) Revision() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// Validate merges the editor text onto the defaults, checks the full shape
// and publishes the result as the application configuration.
func (e *Editor) Validate(ctx context.Context) (siteconfig.SiteConfig, error) {
	if err := e.requireUnlocked(); err != nil {
		return siteconfig.SiteConfig{}, err
	}
	return e.publish(ctx, e.Text())
}

func (e *Editor) publish(ctx context.Context, text string) (siteconfig.SiteConfig, error) {
	_, cfg, err := siteconfig.MergeText([]byte(text))
	if err != nil {
		return siteconfig.SiteConfig{}, err
	}
	snap := e.state.Replace(cfg)
	e.logger.DebugContext(ctx, "configuration published", "generation", snap.Generation)
	return cfg, nil
}

// Save validates the editor text and writes it, as typed, with the revision
// of the last Load or Save. A conflict leaves the revision unchanged; the
// operator reloads and reapplies.
func (e *Editor) Save(ctx context.Context, message string) (remote.WriteResult, error) {
	if err := e.requireUnlocked(); err != nil {
		return remote.WriteResult{}, err
	}
	token, err := e.githubToken()
	if err != nil {
		return remote.WriteResult{}, err
	}

	e.mu.Lock()
	gen := e.generation
	loc := e.loc
	req := remote.WriteRequest{Revision: e.revision, Text: e.text, Message: message}
	e.mu.Unlock()

	if err := remote.CheckWrite(req); err != nil {
		return remote.WriteResult{}, err
	}
	if _, err := e.publish(ctx, req.Text); err != nil {
		return remote.WriteResult{}, err
	}

	res, err := e.store.Write(ctx, loc, token, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return remote.WriteResult{}, ErrSuperseded
	}
	if err != nil {
		return remote.WriteResult{}, err
	}
	e.revision = res.Revision
	e.commitURL = res.CommitURL
	e.logger.DebugContext(ctx, "document saved", "location", loc.String(), "revision", res.Revision)
	return res, nil
}

// Download returns the editor text as it would be saved.
func (e *Editor) Download() ([]byte, error) {
	if err := e.requireUnlocked(); err != nil {
		return nil, err
	}
	text := e.Text()
	if strings.TrimSpace(text) == "" {
		return nil, ErrNotLoaded
	}
	return []byte(text), nil
}

// GenerateGate derives a gate record for password and writes it into the
// editor text as admin.gate. Saving is left to the operator.
func (e *Editor) GenerateGate(ctx context.Context, password, confirm string, iterations int) (gate.Config, error) {
	if err := e.requireUnlocked(); err != nil {
		return gate.Config{}, err
	}
	e.mu.Lock()
	edits := e.edits
	e.mu.Unlock()

	cfg, err := gate.Generate(password, confirm, iterations)
	if err != nil {
		return gate.Config{}, err
	}
	value, err := siteconfig.ToValue(cfg)
	if err != nil {
		return gate.Config{}, err
	}
	err = e.rewrite(edits, func(doc *siteconfig.Object) {
		siteconfig.SetPath(doc, value, "admin", "gate")
	})
	if err != nil {
		return gate.Config{}, err
	}
	return cfg, nil
}

// DisableGate switches admin.gate off in the editor text and blanks its
// salt and hash. The round count is kept.
func (e *Editor) DisableGate(ctx context.Context) error {
	if err := e.requireUnlocked(); err != nil {
		return err
	}
	e.mu.Lock()
	edits := e.edits
	e.mu.Unlock()
	return e.rewrite(edits, func(doc *siteconfig.Object) {
		siteconfig.SetPath(doc, false, "admin", "gate", "enabled")
		siteconfig.SetPath(doc, "", "admin", "gate", "salt")
		siteconfig.SetPath(doc, "", "admin", "gate", "passwordHash")
	})
}

// rewrite merges the editor text onto the defaults, applies change and
// stores the reformatted result, unless the text changed after edits was
// read.
func (e *Editor) rewrite(edits uint64, change func(doc *siteconfig.Object)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if edits != e.edits {
		return ErrSuperseded
	}
	doc, err := editorDocument(e.text)
	if err != nil {
		return err
	}
	change(doc)
	if _, err := siteconfig.Normalize(doc); err != nil {
		return err
	}
	out, err := siteconfig.EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encoding editor text: %w", err)
	}
	e.text = string(out)
	e.edits++
	return nil
}

// editorDocument is the merged form of text; blank text stands for the
// built-in document.
func editorDocument(text string) (*siteconfig.Object, error) {
	if strings.TrimSpace(text) == "" {
		return siteconfig.DefaultDocument(), nil
	}
	doc, _, err := siteconfig.MergeText([]byte(text))
	return doc, err
}
