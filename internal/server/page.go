package server

import (
	"math"
	"time"

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/prefs"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Station is one internet radio stream.
type Station struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Stations is the fixed radio line-up, cycled in order.
var Stations = []Station{
	{Name: "Radio Swiss Jazz", URL: "https://stream.srg-ssr.ch/m/rsj/mp3_128"},
	{Name: "SomaFM — Secret Agent (Bond vibes)", URL: "https://ice1.somafm.com/secretagent-128-mp3"},
	{Name: "SomaFM — Illinois Street Lounge", URL: "https://ice1.somafm.com/illstreet-128-mp3"},
	{Name: "SomaFM — Groove Salad", URL: "https://ice1.somafm.com/groovesalad-128-mp3"},
}

func stationAt(i int) Station {
	n := len(Stations)
	return Stations[((i%n)+n)%n]
}

type sectionLabel struct {
	Name string
	Tag  string
}

var sectionLabels = map[string]sectionLabel{
	model.TopicCrypto:  {"crypto", "NEWS + EXPLAINERS"},
	model.TopicMarkets: {"markets", "MACRO + POLICY"},
	model.TopicBuilt:   {"built environment", "DESIGN + CONSTRUCTION + INFRA"},
	model.TopicReading: {"reading intel", "ONE PER GENRE"},
	model.TopicGarden:  {"garden & land", "LEARNING + ARTICLES"},
	model.TopicEars:    {"for your ears only", "MUSIC CULTURE + RELEASES"},
}

var quotes = []string{
	"curiosity first. certainty later.",
	"small signals beat loud opinions.",
	"read one good thing slowly.",
	"information arrives before the opinions do.",
}

const fallbackFamily = "For your eyes only: keep it calm, keep it sharp. Love your family ♥"

type topicView struct {
	Key     string
	Name    string
	Enabled bool
}

type sectionView struct {
	Key   string
	Name  string
	Tag   string
	Items []model.Item
}

type pageData struct {
	Available   bool
	CanRebuild  bool
	GeneratedAt string
	Quote       string
	Family      string
	Snapshot    model.Snapshot
	Topics      []topicView
	Sections    []sectionView
	Prefs       prefs.Preferences
	Station     Station
	TextSizes   []string
}

// buildPage maps the document onto the page. doc may be nil.
func (s *Server) buildPage(doc *model.BriefingDocument, p prefs.Preferences, family string) pageData {
	data := pageData{
		Available:  doc != nil,
		CanRebuild: s.builder != nil,
		Quote:      s.pick(quotes, ""),
		Family:     family,
		Prefs:      p,
		Station:    stationAt(p.Station),
		TextSizes:  prefs.TextSizes,
	}
	if data.Family == "" {
		data.Family = fallbackFamily
	}

	var sections map[string][]model.Item
	if doc != nil {
		data.GeneratedAt = fmtGenerated(doc.Meta.GeneratedAt)
		data.Snapshot = doc.Snapshot
		sections = doc.Sections
	}

	for _, key := range model.Topics {
		label := sectionLabels[key]
		on := p.IsEnabled(key)
		data.Topics = append(data.Topics, topicView{Key: key, Name: label.Name, Enabled: on})
		if !on {
			continue
		}
		data.Sections = append(data.Sections, sectionView{
			Key:   key,
			Name:  label.Name,
			Tag:   label.Tag,
			Items: sections[key],
		})
	}
	return data
}

var funcMap = map[string]any{
	"money":       fmtMoney,
	"price":       fmtPrice,
	"change":      fmtChange,
	"changeClass": changeClass,
}

var printer = message.NewPrinter(language.English)

const missing = "—"

// fmtMoney abbreviates large amounts to T/B/M with two decimals.
func fmtMoney(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return missing
	}
	n := *v
	abs := math.Abs(n)
	switch {
	case abs >= 1e12:
		return printer.Sprintf("$%.2fT", n/1e12)
	case abs >= 1e9:
		return printer.Sprintf("$%.2fB", n/1e9)
	case abs >= 1e6:
		return printer.Sprintf("$%.2fM", n/1e6)
	}
	return "$" + printer.Sprint(number.Decimal(n, number.MaxFractionDigits(3)))
}

// fmtPrice groups thousands; prices above 10 drop their cents.
func fmtPrice(v *float64) string {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return missing
	}
	digits := 2
	if *v > 10 {
		digits = 0
	}
	return "$" + printer.Sprint(number.Decimal(*v, number.MaxFractionDigits(digits)))
}

func fmtChange(ch float64) string {
	if ch >= 0 {
		return printer.Sprintf("+%.2f%%", ch)
	}
	return printer.Sprintf("%.2f%%", ch)
}

func changeClass(ch float64) string {
	if ch >= 0 {
		return "up"
	}
	return "down"
}

func fmtGenerated(t time.Time) string {
	if t.IsZero() {
		return missing
	}
	return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
}
