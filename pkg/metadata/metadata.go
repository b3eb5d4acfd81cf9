// ABOUTME: Side-channel metadata carried alongside the audio stream
// ABOUTME: Dynamic labels with tagged items and slideshow images
package metadata

import "fmt"

// ContentType identifies what a tagged label item holds
type ContentType int

const (
	ItemDummy ContentType = iota
	ItemTitle
	ItemAlbum
	ItemTrackNumber
	ItemArtist
	ItemComposition
	ItemMovement
	ItemConductor
	ItemComposer
	ItemBand
	ItemComment
	ItemGenre
)

var contentTypeNames = map[ContentType]string{
	ItemDummy:       "dummy",
	ItemTitle:       "title",
	ItemAlbum:       "album",
	ItemTrackNumber: "tracknumber",
	ItemArtist:      "artist",
	ItemComposition: "composition",
	ItemMovement:    "movement",
	ItemConductor:   "conductor",
	ItemComposer:    "composer",
	ItemBand:        "band",
	ItemComment:     "comment",
	ItemGenre:       "genre",
}

func (c ContentType) String() string {
	if name, ok := contentTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("item(%d)", int(c))
}

// ParseContentType maps a name such as "artist" to its ContentType
func ParseContentType(name string) (ContentType, error) {
	for ct, n := range contentTypeNames {
		if n == name {
			return ct, nil
		}
	}
	return 0, fmt.Errorf("unknown item content type: %q", name)
}

// Item is one tagged span of a dynamic label
type Item struct {
	Type ContentType
	Text string
}

// Textual is a dynamic-label update. The item toggle flips whenever the
// broadcaster starts a new item (usually a new track).
type Textual struct {
	Text        string
	Items       []Item
	ItemToggle  bool
	ItemRunning bool
}

// Tagged reports whether the update carries structured items
func (t *Textual) Tagged() bool {
	return t != nil && len(t.Items) > 0
}

// Item returns the text of the first item of the given type
func (t *Textual) Item(ct ContentType) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, it := range t.Items {
		if it.Type == ct {
			return it.Text, true
		}
	}
	return "", false
}

// Visual is a slideshow image
type Visual struct {
	ContentName string
	MimeType    string
	Data        []byte
}
