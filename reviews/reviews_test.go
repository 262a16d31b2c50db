package reviews_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickael31/location-benne-occitanie/reviews"
)

func TestNormalizeStarRating(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{in: "FIVE", want: 5, ok: true},
		{in: "four", want: 4, ok: true},
		{in: "ONE", want: 1, ok: true},
		{in: 3.5, want: 3.5, ok: true},
		{in: 4, want: 4, ok: true},
		{in: "2", want: 2, ok: true},
		{in: json.Number("5"), want: 5, ok: true},
		{in: "STAR_RATING_UNSPECIFIED", ok: false},
		{in: "", ok: false},
		{in: math.NaN(), ok: false},
		{in: math.Inf(1), ok: false},
		{in: nil, ok: false},
		{in: true, ok: false},
	}
	for _, tt := range tests {
		got, ok := reviews.NormalizeStarRating(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 0, "input %v", tt.in)
		}
	}
}

func TestTestimonials(t *testing.T) {
	five := 5.0
	in := []reviews.Review{
		{Reviewer: &reviews.Reviewer{DisplayName: "Dominique"}, StarRating: "FIVE", Comment: "  Très bien\n", CreateTime: "2025-01-02T10:00:00Z"},
		{Reviewer: &reviews.Reviewer{DisplayName: "Sans texte"}, StarRating: "ONE", Comment: "   "},
		{StarRating: "FOUR", Comment: "Rapide", CreateTime: "2025-01-01T10:00:00Z", UpdateTime: "2025-02-01T10:00:00Z"},
		{Reviewer: &reviews.Reviewer{DisplayName: "Note"}, Rating: &five, StarRating: "TWO", Comment: "Propre"},
		{Reviewer: &reviews.Reviewer{}, StarRating: "STAR_RATING_UNSPECIFIED", Comment: "Sérieux"},
	}

	got := reviews.Testimonials(in)
	require.Len(t, got, 4)

	assert.Equal(t, "Dominique", got[0].Author)
	assert.Equal(t, "Google", got[0].Source)
	assert.Equal(t, "Très bien", got[0].Text)
	assert.Equal(t, "2025-01-02T10:00:00Z", got[0].Date)
	require.NotNil(t, got[0].Rating)
	assert.InDelta(t, 5.0, *got[0].Rating, 0)

	assert.Equal(t, "Client", got[1].Author)
	assert.Equal(t, "2025-02-01T10:00:00Z", got[1].Date, "update time wins over create time")

	require.NotNil(t, got[2].Rating)
	assert.InDelta(t, 5.0, *got[2].Rating, 0, "numeric rating wins over the enum")

	assert.Equal(t, "Client", got[3].Author)
	assert.Nil(t, got[3].Rating)
}

func TestTestimonialsLimit(t *testing.T) {
	var in []reviews.Review
	for i := 0; i < 10; i++ {
		in = append(in, reviews.Review{Comment: string(rune('a' + i))})
	}
	got := reviews.Testimonials(in)
	require.Len(t, got, reviews.MaxTestimonials)
	assert.Equal(t, "f", got[5].Text)

	assert.Empty(t, reviews.Testimonials(nil))
}

func TestTestimonialsNormalizeText(t *testing.T) {
	got := reviews.Testimonials([]reviews.Review{{
		Reviewer: &reviews.Reviewer{DisplayName: "Ele\u0301onore"},
		Comment:  "Re\u0301actif",
	}})
	require.Len(t, got, 1)
	assert.Equal(t, "El\u00e9onore", got[0].Author)
	assert.Equal(t, "R\u00e9actif", got[0].Text)
}

func TestTokenExpiry(t *testing.T) {
	issued := time.Date(2025, 8, 4, 10, 0, 0, 0, time.UTC)
	tok := reviews.Token{AccessToken: "ya29.x", ExpiresIn: 3600, IssuedAt: issued}

	assert.False(t, tok.Expired(issued.Add(59*time.Minute)))
	assert.False(t, tok.Expired(issued.Add(59*time.Minute+30*time.Second)))
	assert.True(t, tok.Expired(issued.Add(59*time.Minute+31*time.Second)))

	forever := reviews.Token{AccessToken: "ya29.x", IssuedAt: issued}
	assert.False(t, forever.Expired(issued.Add(24*time.Hour)))

	assert.NoError(t, tok.Check(issued))
	assert.ErrorIs(t, tok.Check(issued.Add(2*time.Hour)), reviews.ErrTokenExpired)
	assert.ErrorIs(t, reviews.Token{}.Check(issued), reviews.ErrNotConnected)
}

func TestStaticTokenSource(t *testing.T) {
	tok, err := reviews.StaticTokenSource{Token: reviews.Token{AccessToken: "ya29.x"}}.AcquireToken(t.Context(), reviews.TokenRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ya29.x", tok.AccessToken)
	assert.False(t, tok.IssuedAt.IsZero())

	_, err = reviews.StaticTokenSource{}.AcquireToken(t.Context(), reviews.TokenRequest{})
	assert.ErrorIs(t, err, reviews.ErrNotConnected)
}
