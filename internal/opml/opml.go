// Package opml handles importing and exporting OPML files.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element (folder or feed).
// Limit and Mapper are iantel extensions: Limit caps a folder's items and
// Mapper names the decoder of a type="json" feed.
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Limit    int       `xml:"limit,attr,omitempty"`
	Mapper   string    `xml:"mapper,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// FeedEntry represents a flattened feed with its folder path.
type FeedEntry struct {
	FolderPath []string // e.g., ["crypto"]
	Title      string
	URL        string
	Type       string // "rss" or "json"
	Mapper     string
}

// Folder is a named group of feeds, exported as one top-level outline.
type Folder struct {
	Name    string
	Limit   int
	Entries []FeedEntry
}

// Parse reads an OPML document and returns a flat list of FeedEntry plus the
// limit declared on each folder path ("a/b" for nested folders).
func Parse(r io.Reader) ([]FeedEntry, map[string]int, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode opml: %w", err)
	}
	var entries []FeedEntry
	limits := make(map[string]int)
	var walk func(outlines []Outline, path []string)
	walk = func(outlines []Outline, path []string) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				// It's a feed.
				title := o.Title
				if title == "" {
					title = o.Text
				}
				entries = append(entries, FeedEntry{
					FolderPath: append([]string{}, path...),
					Title:      title,
					URL:        o.XMLURL,
					Type:       o.Type,
					Mapper:     o.Mapper,
				})
			} else if len(o.Outlines) > 0 {
				// It's a folder.
				name := o.Text
				if name == "" {
					name = o.Title
				}
				sub := append(append([]string{}, path...), name)
				if o.Limit > 0 {
					limits[strings.Join(sub, "/")] = o.Limit
				}
				walk(o.Outlines, sub)
			}
		}
	}
	walk(doc.Body.Outlines, nil)
	return entries, limits, nil
}

// Export generates an OPML document with one outline per folder, in the order given.
func Export(title string, folders []Folder) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
	}

	for _, folder := range folders {
		fo := Outline{
			Text:  folder.Name,
			Title: folder.Name,
			Limit: folder.Limit,
		}
		for _, e := range folder.Entries {
			typ := e.Type
			if typ == "" {
				typ = "rss"
			}
			fo.Outlines = append(fo.Outlines, Outline{
				Text:   e.Title,
				Title:  e.Title,
				Type:   typ,
				XMLURL: e.URL,
				Mapper: e.Mapper,
			})
		}
		doc.Body.Outlines = append(doc.Body.Outlines, fo)
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}
