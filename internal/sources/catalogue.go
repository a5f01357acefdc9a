// Package sources defines the feed catalogue the briefing is built from.
package sources

import (
	"fmt"
	"io"

	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/bryan-buckman/iantel/internal/opml"
)

const (
	// DefaultLimit is the item cap of an ordinary section.
	DefaultLimit = 3
	// ReadingCandidates is how many reading items are gathered before bucketing.
	ReadingCandidates = 8
)

// Section is the static definition of one topic: its sources in priority
// order and the number of items to keep.
type Section struct {
	Topic   string
	Limit   int
	Sources []model.FeedSource
}

// Catalogue is the ordered list of sections a build covers.
type Catalogue []Section

func rss(url, label string) model.FeedSource {
	return model.FeedSource{Kind: model.KindRSS, URL: url, Label: label}
}

// Default returns the built-in catalogue.
func Default() Catalogue {
	return Catalogue{
		{Topic: model.TopicCrypto, Limit: DefaultLimit, Sources: []model.FeedSource{
			rss("https://www.coindesk.com/arc/outboundfeeds/rss/", "CoinDesk"),
			rss("https://decrypt.co/feed", "Decrypt"),
			rss("https://cointelegraph.com/rss", "Cointelegraph"),
		}},
		{Topic: model.TopicMarkets, Limit: DefaultLimit, Sources: []model.FeedSource{
			rss("https://www.federalreserve.gov/feeds/press_all.xml", "Federal Reserve (press)"),
			rss("https://www.imf.org/en/News/RSS?language=eng", "IMF News"),
			rss("https://www.bis.org/rss/press.xml", "BIS (press)"),
		}},
		{Topic: model.TopicBuilt, Limit: DefaultLimit, Sources: []model.FeedSource{
			rss("https://www.dezeen.com/feed/", "Dezeen"),
			rss("https://www.archdaily.com/rss", "ArchDaily"),
			rss("https://www.infrastructuremagazine.com.au/feed/", "Infrastructure Magazine (AU)"),
		}},
		{Topic: model.TopicReading, Limit: ReadingCandidates, Sources: []model.FeedSource{
			rss("https://www.theguardian.com/books/rss", "The Guardian (Books)"),
			rss("https://lithub.com/feed/", "Literary Hub"),
			rss("https://www.npr.org/rss/rss.php?id=1032", "NPR Books"),
		}},
		{Topic: model.TopicGarden, Limit: DefaultLimit, Sources: []model.FeedSource{
			rss("https://www.abc.net.au/news/feed/51120/rss.xml", "ABC (Lifestyle/Gardening)"),
			rss("https://www.gardenclinic.com/feed/", "The Garden Clinic"),
			rss("https://www.rhs.org.uk/rss", "RHS"),
		}},
		{Topic: model.TopicEars, Limit: DefaultLimit, Sources: []model.FeedSource{
			rss("https://pitchfork.com/rss/news/", "Pitchfork (News)"),
			rss("https://www.nme.com/news/music/feed", "NME (Music News)"),
			rss("https://www.theguardian.com/music/rss", "The Guardian (Music)"),
		}},
	}
}

// Section returns the section for topic, if present.
func (c Catalogue) Section(topic string) (Section, bool) {
	for _, s := range c {
		if s.Topic == topic {
			return s, true
		}
	}
	return Section{}, false
}

// Count returns the total number of sources.
func (c Catalogue) Count() int {
	n := 0
	for _, s := range c {
		n += len(s.Sources)
	}
	return n
}

// FromOPML builds a catalogue from an OPML document. Each top-level folder is
// a topic; feeds outside a folder are rejected. JSON feeds must name a mapper
// known to reg.
func FromOPML(r io.Reader, reg Registry) (Catalogue, error) {
	entries, limits, err := opml.Parse(r)
	if err != nil {
		return nil, err
	}

	var cat Catalogue
	index := make(map[string]int)
	for _, e := range entries {
		if len(e.FolderPath) == 0 {
			return nil, fmt.Errorf("feed %s is not inside a topic folder", e.URL)
		}
		topic := e.FolderPath[0]

		src := model.FeedSource{Kind: model.KindRSS, URL: e.URL, Label: e.Title}
		if e.Type == string(model.KindJSON) {
			fn, ok := reg.Lookup(e.Mapper)
			if !ok {
				return nil, fmt.Errorf("feed %s: unknown mapper %q", e.URL, e.Mapper)
			}
			src.Kind = model.KindJSON
			src.Mapper = e.Mapper
			src.Map = fn
		}

		i, ok := index[topic]
		if !ok {
			limit := limits[topic]
			if limit <= 0 {
				limit = DefaultLimit
				if topic == model.TopicReading {
					limit = ReadingCandidates
				}
			}
			cat = append(cat, Section{Topic: topic, Limit: limit})
			i = len(cat) - 1
			index[topic] = i
		}
		cat[i].Sources = append(cat[i].Sources, src)
	}
	if len(cat) == 0 {
		return nil, fmt.Errorf("opml catalogue has no feeds")
	}
	return cat, nil
}

// OPML renders the catalogue as an OPML document.
func (c Catalogue) OPML(title string) ([]byte, error) {
	folders := make([]opml.Folder, 0, len(c))
	for _, s := range c {
		folder := opml.Folder{Name: s.Topic, Limit: s.Limit}
		for _, src := range s.Sources {
			folder.Entries = append(folder.Entries, opml.FeedEntry{
				FolderPath: []string{s.Topic},
				Title:      src.Label,
				URL:        src.URL,
				Type:       string(src.Kind),
				Mapper:     src.Mapper,
			})
		}
		folders = append(folders, folder)
	}
	return opml.Export(title, folders)
}
