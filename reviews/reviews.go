// Package reviews imports Google Business Profile reviews as site
// testimonials.
//
// The package is stateless per call: callers keep the Token and check its
// expiry before each request.
package reviews

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/mickael31/location-benne-occitanie/internal/util"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

const (
	// BusinessProfileScope is the OAuth scope needed to read reviews.
	BusinessProfileScope = "https://www.googleapis.com/auth/business.manage"

	// MaxTestimonials caps how many reviews end up on the home page.
	MaxTestimonials = 6

	testimonialSource = "Google"
	defaultAuthor     = "Client"
)

var (
	ErrIdentityServiceUnavailable = errors.New("identity service unavailable")
	ErrClientIDRequired           = errors.New("OAuth client ID required")
	ErrNotConnected               = errors.New("not connected to Google")
	ErrTokenExpired               = errors.New("Google session expired, reconnect")
	ErrAccountRequired            = errors.New("account required")
	ErrLocationRequired           = errors.New("location required")
)

type Account struct {
	Name        string `json:"name"`
	AccountName string `json:"accountName,omitempty"`
	Type        string `json:"type,omitempty"`
	Role        string `json:"role,omitempty"`
}

type Location struct {
	Name         string `json:"name"`
	LocationName string `json:"locationName,omitempty"`
	Title        string `json:"title,omitempty"`
	StoreCode    string `json:"storeCode,omitempty"`
	PrimaryPhone string `json:"primaryPhone,omitempty"`
}

type Reviewer struct {
	DisplayName     string `json:"displayName,omitempty"`
	ProfilePhotoURL string `json:"profilePhotoUrl,omitempty"`
}

type ReviewReply struct {
	Comment    string `json:"comment,omitempty"`
	UpdateTime string `json:"updateTime,omitempty"`
}

type Review struct {
	Name        string       `json:"name,omitempty"`
	ReviewID    string       `json:"reviewId,omitempty"`
	Reviewer    *Reviewer    `json:"reviewer,omitempty"`
	StarRating  any          `json:"starRating,omitempty"`
	Rating      *float64     `json:"rating,omitempty"`
	Comment     string       `json:"comment,omitempty"`
	CreateTime  string       `json:"createTime,omitempty"`
	UpdateTime  string       `json:"updateTime,omitempty"`
	ReviewReply *ReviewReply `json:"reviewReply,omitempty"`
}

var starWords = map[string]float64{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// NormalizeStarRating turns the API's star rating into a number. It accepts
// the ONE..FIVE enum, numbers and numeric strings; anything else, including
// STAR_RATING_UNSPECIFIED, reports false.
func NormalizeStarRating(v any) (float64, bool) {
	switch r := v.(type) {
	case float64:
		return r, !math.IsNaN(r) && !math.IsInf(r, 0)
	case float32:
		return NormalizeStarRating(float64(r))
	case int:
		return float64(r), true
	case int64:
		return float64(r), true
	case json.Number:
		return NormalizeStarRating(string(r))
	case string:
		s := strings.TrimSpace(r)
		if n, ok := starWords[strings.ToUpper(s)]; ok {
			return n, true
		}
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return NormalizeStarRating(n)
	default:
		return 0, false
	}
}

// Testimonials keeps the reviews that have a comment, in order, up to
// MaxTestimonials.
func Testimonials(reviews []Review) []siteconfig.Testimonial {
	items := make([]siteconfig.Testimonial, 0, MaxTestimonials)
	for _, r := range reviews {
		if len(items) == MaxTestimonials {
			break
		}
		text := util.NormalizeText(strings.TrimSpace(r.Comment))
		if text == "" {
			continue
		}

		author := defaultAuthor
		if r.Reviewer != nil && r.Reviewer.DisplayName != "" {
			author = util.NormalizeText(r.Reviewer.DisplayName)
		}
		item := siteconfig.Testimonial{
			Author: author,
			Source: testimonialSource,
			Text:   text,
			Date:   r.UpdateTime,
		}
		if item.Date == "" {
			item.Date = r.CreateTime
		}

		var rating any = r.StarRating
		if r.Rating != nil {
			rating = *r.Rating
		}
		if n, ok := NormalizeStarRating(rating); ok {
			item.Rating = &n
		}
		items = append(items, item)
	}
	return items
}
