package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/mickael31/location-benne-occitanie/reviews"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

var ErrReviewsDisabled = errors.New("Google review import not configured")

// ConnectGoogle obtains a Google token and lists the accounts it can see.
// The first account is selected when none is.
func (e *Editor) ConnectGoogle(ctx context.Context, clientID, scope string) ([]reviews.Account, error) {
	if err := e.requireUnlocked(); err != nil {
		return nil, err
	}
	if e.google == nil || e.tokenSource == nil {
		return nil, ErrReviewsDisabled
	}

	e.mu.Lock()
	if strings.TrimSpace(clientID) == "" {
		clientID = e.googleConfig.OAuthClientID
	}
	if strings.TrimSpace(scope) == "" {
		scope = e.googleConfig.Scope
	}
	e.googleToken = reviews.Token{}
	e.fetched = nil
	e.mu.Unlock()

	tok, err := e.tokenSource.AcquireToken(ctx, reviews.TokenRequest{
		ClientID: strings.TrimSpace(clientID),
		Scope:    strings.TrimSpace(scope),
		Prompt:   reviews.DefaultPrompt,
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.googleToken = tok
	e.googleConfig.OAuthClientID = strings.TrimSpace(clientID)
	e.googleConfig.Scope = strings.TrimSpace(scope)
	e.mu.Unlock()

	return e.GoogleAccounts(ctx)
}

// SetGoogleToken installs a token obtained outside the editor.
func (e *Editor) SetGoogleToken(tok reviews.Token) error {
	if err := e.requireUnlocked(); err != nil {
		return err
	}
	if tok.IssuedAt.IsZero() {
		tok.IssuedAt = e.now()
	}
	e.mu.Lock()
	e.googleToken = tok
	e.fetched = nil
	e.mu.Unlock()
	return nil
}

func (e *Editor) GoogleAccounts(ctx context.Context) ([]reviews.Account, error) {
	token, err := e.googleAccess()
	if err != nil {
		return nil, err
	}
	accounts, err := e.google.ListAccounts(ctx, token)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.googleConfig.AccountName == "" && len(accounts) > 0 {
		e.googleConfig.AccountName = accounts[0].Name
	}
	e.mu.Unlock()
	return accounts, nil
}

// GoogleLocations lists the locations of account, or of the selected
// account when account is empty, and selects the first when none is.
func (e *Editor) GoogleLocations(ctx context.Context, account string) ([]reviews.Location, error) {
	token, err := e.googleAccess()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if account = strings.TrimSpace(account); account != "" {
		e.googleConfig.AccountName = account
	}
	account = e.googleConfig.AccountName
	e.fetched = nil
	e.mu.Unlock()

	locations, err := e.google.ListLocations(ctx, token, account)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.googleConfig.LocationName == "" && len(locations) > 0 {
		e.googleConfig.LocationName = locations[0].Name
	}
	e.mu.Unlock()
	return locations, nil
}

// GoogleReviews fetches the reviews of location, or of the selected one,
// and keeps them for ImportReviews.
func (e *Editor) GoogleReviews(ctx context.Context, location string) ([]reviews.Review, error) {
	token, err := e.googleAccess()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if location = strings.TrimSpace(location); location != "" {
		e.googleConfig.LocationName = location
	}
	location = e.googleConfig.LocationName
	e.fetched = nil
	e.mu.Unlock()

	list, err := e.google.ListReviews(ctx, token, location)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.fetched = list
	e.mu.Unlock()
	return list, nil
}

// ImportReviews replaces home.testimonials.items with the fetched reviews
// and records their source in admin.google.
func (e *Editor) ImportReviews(ctx context.Context) ([]siteconfig.Testimonial, error) {
	if err := e.requireUnlocked(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	edits := e.edits
	items := reviews.Testimonials(e.fetched)
	settings := e.googleConfig
	e.mu.Unlock()

	itemsValue, err := siteconfig.ToValue(items)
	if err != nil {
		return nil, err
	}
	settingsValue, err := siteconfig.ToValue(settings)
	if err != nil {
		return nil, err
	}
	err = e.rewrite(edits, func(doc *siteconfig.Object) {
		siteconfig.SetPath(doc, itemsValue, "home", "testimonials", "items")
		siteconfig.SetPath(doc, settingsValue, "admin", "google")
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// googleAccess returns a usable Google token.
func (e *Editor) googleAccess() (string, error) {
	if err := e.requireUnlocked(); err != nil {
		return "", err
	}
	if e.google == nil {
		return "", ErrReviewsDisabled
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.googleToken.Check(e.now()); err != nil {
		return "", err
	}
	return e.googleToken.AccessToken, nil
}
