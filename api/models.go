package api

import (
	"github.com/mickael31/location-benne-occitanie/admin"
	"github.com/mickael31/location-benne-occitanie/gate"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/reviews"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse = admin.Status

type UnlockRequest struct {
	Password string `json:"password"`
}

type GenerateGateRequest struct {
	Password   string `json:"password"`
	Confirm    string `json:"confirm"`
	Iterations int    `json:"iterations,omitempty"`
}

// GenerateGateResponse carries the new gate record and the editor text it
// was written into. Nothing is saved yet.
type GenerateGateResponse struct {
	Gate gate.Config `json:"gate"`
	Text string      `json:"text"`
}

type TextResponse struct {
	Text string `json:"text"`
}

// TokenRequest sets the GitHub token. A nil Remember leaves the choice as
// it was.
type TokenRequest struct {
	Token    string `json:"token"`
	Remember *bool  `json:"remember,omitempty"`
}

type LocationRequest = remote.Location

type LoadResponse = admin.LoadResult

type DocumentRequest struct {
	Text string `json:"text"`
}

type ValidateResponse struct {
	Valid    bool   `json:"valid"`
	SiteName string `json:"siteName,omitempty"`
}

type SaveRequest struct {
	Message string `json:"message,omitempty"`
}

type SaveResponse = remote.WriteResult

type GoogleConnectRequest struct {
	ClientID string `json:"clientId,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// GoogleTokenRequest installs a Google access token obtained elsewhere.
type GoogleTokenRequest struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
}

type AccountsResponse struct {
	Accounts []reviews.Account `json:"accounts"`
}

type LocationsResponse struct {
	Locations []reviews.Location `json:"locations"`
}

type ReviewsResponse struct {
	Reviews []reviews.Review `json:"reviews"`
}

type ImportResponse struct {
	Items []siteconfig.Testimonial `json:"items"`
	Text  string                   `json:"text"`
}
