package siteconfig

import "github.com/mickael31/location-benne-occitanie/gate"

// SiteConfig is the document of record for the public site and its admin
// settings. Field names follow the JSON keys of data.config.
type SiteConfig struct {
	Meta         Meta         `json:"meta"`
	Contact      Contact      `json:"contact"`
	Nav          []NavItem    `json:"nav"`
	Home         Home         `json:"home"`
	Bennes       Bennes       `json:"bennes"`
	ServicesPage ServicesPage `json:"servicesPage"`
	AboutPage    AboutPage    `json:"aboutPage"`
	ContactPage  ContactPage  `json:"contactPage"`
	Privacy      Privacy      `json:"privacy"`
	Admin        Admin        `json:"admin"`
}

type Meta struct {
	SiteName       string `json:"siteName"`
	Tagline        string `json:"tagline,omitempty"`
	Description    string `json:"description"`
	Language       string `json:"language"`
	LogoURL        string `json:"logoUrl,omitempty"`
	SocialImageURL string `json:"socialImageUrl,omitempty"`
}

type Address struct {
	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	Country    string `json:"country"`
}

type Social struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

type Contact struct {
	Phone        string   `json:"phone"`
	PhoneDisplay string   `json:"phoneDisplay,omitempty"`
	Email        string   `json:"email"`
	Address      Address  `json:"address"`
	OpeningHours []string `json:"openingHours"`
	AreasServed  []string `json:"areasServed"`
	Social       *Social  `json:"social,omitempty"`
}

type NavItem struct {
	Label string `json:"label"`
	To    string `json:"to"`
}

type CtaLink struct {
	Label string `json:"label"`
	To    string `json:"to"`
}

// Values of SecondaryCta.Type.
const (
	CtaTypeTel    = "tel"
	CtaTypeMailto = "mailto"
	CtaTypeLink   = "link"
)

type SecondaryCta struct {
	Label string `json:"label"`
	Type  string `json:"type"`
	To    string `json:"to,omitempty"`
}

type Hero struct {
	Badge        string        `json:"badge,omitempty"`
	Title        string        `json:"title"`
	Subtitle     string        `json:"subtitle,omitempty"`
	PrimaryCta   CtaLink       `json:"primaryCta"`
	SecondaryCta *SecondaryCta `json:"secondaryCta,omitempty"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	ImageAlt     string        `json:"imageAlt,omitempty"`
}

type AboutTeaser struct {
	Kicker   string  `json:"kicker,omitempty"`
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Cta      CtaLink `json:"cta"`
	ImageURL string  `json:"imageUrl,omitempty"`
	ImageAlt string  `json:"imageAlt,omitempty"`
}

type TeaserItem struct {
	Prefix      string `json:"prefix,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ServicesTeaser struct {
	Kicker string       `json:"kicker,omitempty"`
	Title  string       `json:"title"`
	Items  []TeaserItem `json:"items"`
	Cta    CtaLink      `json:"cta"`
}

type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Benefits struct {
	Kicker string    `json:"kicker,omitempty"`
	Title  string    `json:"title"`
	Items  []Feature `json:"items"`
}

type Step struct {
	Kicker      string `json:"kicker,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type HowItWorks struct {
	Kicker string `json:"kicker,omitempty"`
	Title  string `json:"title"`
	Steps  []Step `json:"steps"`
}

type Commitments struct {
	Kicker   string    `json:"kicker,omitempty"`
	Title    string    `json:"title"`
	Items    []Feature `json:"items"`
	ImageURL string    `json:"imageUrl,omitempty"`
	ImageAlt string    `json:"imageAlt,omitempty"`
}

// Testimonial is one customer review shown on the home page.
type Testimonial struct {
	Author string   `json:"author"`
	Source string   `json:"source,omitempty"`
	Text   string   `json:"text"`
	Rating *float64 `json:"rating,omitempty"`
	Date   string   `json:"date,omitempty"`
}

type Testimonials struct {
	Title string        `json:"title"`
	Items []Testimonial `json:"items"`
}

type FinalCta struct {
	Title string  `json:"title"`
	Body  string  `json:"body"`
	Cta   CtaLink `json:"cta"`
}

type Home struct {
	Hero           Hero           `json:"hero"`
	AboutTeaser    AboutTeaser    `json:"aboutTeaser"`
	ServicesTeaser ServicesTeaser `json:"servicesTeaser"`
	Benefits       Benefits       `json:"benefits"`
	HowItWorks     HowItWorks     `json:"howItWorks"`
	Commitments    Commitments    `json:"commitments"`
	Testimonials   Testimonials   `json:"testimonials"`
	FinalCta       FinalCta       `json:"finalCta"`
}

// PageCta closes the bennes, services and about pages.
type PageCta struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Label string `json:"label"`
	To    string `json:"to"`
}

type Benne struct {
	Title      string   `json:"title"`
	Volume     string   `json:"volume,omitempty"`
	Lead       string   `json:"lead,omitempty"`
	Paragraphs []string `json:"paragraphs"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	ImageAlt   string   `json:"imageAlt,omitempty"`
}

type Bennes struct {
	Title      string  `json:"title"`
	Subtitle   string  `json:"subtitle,omitempty"`
	IntroTitle string  `json:"introTitle,omitempty"`
	IntroBody  string  `json:"introBody,omitempty"`
	Items      []Benne `json:"items"`
	Cta        PageCta `json:"cta"`
}

type Service struct {
	Prefix      string `json:"prefix,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageAlt    string `json:"imageAlt,omitempty"`
}

type ServicesPage struct {
	Kicker string    `json:"kicker,omitempty"`
	Title  string    `json:"title"`
	Items  []Service `json:"items"`
	Cta    PageCta   `json:"cta"`
}

type Stat struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type AboutSection struct {
	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle,omitempty"`
	Paragraphs []string `json:"paragraphs"`
}

type AboutPage struct {
	Kicker   string         `json:"kicker,omitempty"`
	Title    string         `json:"title"`
	Stats    []Stat         `json:"stats"`
	Sections []AboutSection `json:"sections"`
	Cta      PageCta        `json:"cta"`
}

type ContactPage struct {
	Kicker       string `json:"kicker,omitempty"`
	Title        string `json:"title"`
	InfoKicker   string `json:"infoKicker,omitempty"`
	InfoTitle    string `json:"infoTitle,omitempty"`
	FormTitle    string `json:"formTitle"`
	FormSubtitle string `json:"formSubtitle,omitempty"`
	SuccessTitle string `json:"successTitle"`
	SuccessBody  string `json:"successBody"`
	SubmitLabel  string `json:"submitLabel"`
}

type PrivacySection struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
	Bullets    []string `json:"bullets,omitempty"`
	Note       string   `json:"note,omitempty"`
}

type Privacy struct {
	Title       string           `json:"title"`
	LastUpdated string           `json:"lastUpdated"`
	Sections    []PrivacySection `json:"sections"`
}

// GitHubSettings locates data.config in its repository.
type GitHubSettings struct {
	Owner        string   `json:"owner"`
	Repo         string   `json:"repo"`
	Branch       string   `json:"branch"`
	Path         string   `json:"path"`
	AllowedUsers []string `json:"allowedUsers"`
}

// GoogleSettings records the Business Profile source of imported reviews.
type GoogleSettings struct {
	OAuthClientID string `json:"oauthClientId"`
	AccountName   string `json:"accountName"`
	LocationName  string `json:"locationName"`
	Scope         string `json:"scope"`
}

type Admin struct {
	Gate   gate.Config    `json:"gate"`
	GitHub GitHubSettings `json:"github"`
	Google GoogleSettings `json:"google"`
}
