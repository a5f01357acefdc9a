// Package prefs holds the viewer's per-browser preferences as an immutable
// value. Every update returns a new value and leaves the receiver untouched.
package prefs

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"github.com/bryan-buckman/iantel/internal/model"
)

// CookieName is the cookie the preferences are persisted in.
const CookieName = "iantel_prefs"

const cookieMaxAge = 365 * 24 * time.Hour

// Text sizes.
const (
	TextNormal = "normal"
	TextLarge  = "large"
	TextXL     = "xl"
)

// TextSizes lists the accepted text sizes.
var TextSizes = []string{TextNormal, TextLarge, TextXL}

// Message categories.
const (
	CategoryFamily = "family"
	CategorySon    = "son"
)

// Preferences is the viewer state carried between requests.
type Preferences struct {
	TextSize   string          `json:"text"`
	Clicks     bool            `json:"clicks"`
	Magnify    bool            `json:"magnify"`
	Station    int             `json:"station"`
	Enabled    map[string]bool `json:"enabled"`
	LastFamily string          `json:"family_last,omitempty"`
	LastSon    string          `json:"son_last,omitempty"`
}

// Default returns the preferences of a first visit.
func Default() Preferences {
	enabled := make(map[string]bool, len(model.Topics))
	for _, t := range model.Topics {
		enabled[t] = true
	}
	return Preferences{
		TextSize: TextLarge,
		Clicks:   true,
		Enabled:  enabled,
	}
}

func (p Preferences) clone() Preferences {
	enabled := make(map[string]bool, len(p.Enabled))
	for k, v := range p.Enabled {
		enabled[k] = v
	}
	p.Enabled = enabled
	return p
}

// IsEnabled reports whether topic is shown. Unknown topics default to shown.
func (p Preferences) IsEnabled(topic string) bool {
	on, ok := p.Enabled[topic]
	return !ok || on
}

// WithTextSize sets the text size.
func (p Preferences) WithTextSize(size string) (Preferences, error) {
	if !slices.Contains(TextSizes, size) {
		return p, fmt.Errorf("unknown text size %q", size)
	}
	p = p.clone()
	p.TextSize = size
	return p, nil
}

// WithClicks sets the click-sound toggle.
func (p Preferences) WithClicks(on bool) Preferences {
	p = p.clone()
	p.Clicks = on
	return p
}

// ToggleMagnify flips the magnifier.
func (p Preferences) ToggleMagnify() Preferences {
	p = p.clone()
	p.Magnify = !p.Magnify
	return p
}

// WithStation selects station i of n, wrapping in both directions.
func (p Preferences) WithStation(i, n int) Preferences {
	p = p.clone()
	if n <= 0 {
		p.Station = 0
		return p
	}
	p.Station = ((i % n) + n) % n
	return p
}

// NextStation advances to the following station of n.
func (p Preferences) NextStation(n int) Preferences {
	return p.WithStation(p.Station+1, n)
}

// ToggleTopic flips the visibility of topic.
func (p Preferences) ToggleTopic(topic string) (Preferences, error) {
	if !slices.Contains(model.Topics, topic) {
		return p, fmt.Errorf("unknown topic %q", topic)
	}
	on := p.IsEnabled(topic)
	p = p.clone()
	p.Enabled[topic] = !on
	return p, nil
}

// LastMessage returns the previous pick of category.
func (p Preferences) LastMessage(category string) string {
	if category == CategorySon {
		return p.LastSon
	}
	return p.LastFamily
}

// WithLastMessage records the latest pick of category.
func (p Preferences) WithLastMessage(category, msg string) Preferences {
	p = p.clone()
	if category == CategorySon {
		p.LastSon = msg
	} else {
		p.LastFamily = msg
	}
	return p
}

// Rotate picks a message from pool at random, avoiding last when the pool
// holds more than one message. An empty pool yields "".
func Rotate(pool []string, last string, rnd *rand.Rand) string {
	if len(pool) == 0 {
		return ""
	}
	i := rnd.IntN(len(pool))
	if len(pool) > 1 && pool[i] == last {
		i = (i + 1) % len(pool)
	}
	return pool[i]
}

// Encode serializes p into a cookie-safe string.
func Encode(p Preferences) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a value produced by Encode. Fields absent from the value keep
// their defaults.
func Decode(s string) (Preferences, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Default(), fmt.Errorf("decode prefs: %w", err)
	}
	p := Default()
	if err := json.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("decode prefs: %w", err)
	}
	if !slices.Contains(TextSizes, p.TextSize) {
		p.TextSize = TextLarge
	}
	if p.Enabled == nil {
		p.Enabled = Default().Enabled
	}
	return p, nil
}

// FromRequest loads the preferences cookie, falling back to defaults when it
// is missing or unreadable.
func FromRequest(r *http.Request) Preferences {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Default()
	}
	p, err := Decode(c.Value)
	if err != nil {
		return Default()
	}
	return p
}

// Save writes p to the response as the preferences cookie.
func Save(w http.ResponseWriter, p Preferences) error {
	v, err := Encode(p)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    v,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
