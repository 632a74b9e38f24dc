package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

var (
	videoExtensions = []string{"gif", "mp4", "webm", "mov"}
	audioExtensions = []string{"mp3", "flac", "ogg", "wav"}
)

// ParseMediaKind returns the kind named by s. Matching is case-insensitive
// and ignores surrounding whitespace.
func ParseMediaKind(s string) (MediaKind, bool) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(s))) {
	case MediaKindVideo:
		return MediaKindVideo, true
	case MediaKindAudio:
		return MediaKindAudio, true
	}
	return "", false
}

// Extensions returns the file extensions (without the leading dot) that
// belong to this kind.
func (k MediaKind) Extensions() []string {
	switch k {
	case MediaKindVideo:
		return videoExtensions
	case MediaKindAudio:
		return audioExtensions
	}
	return nil
}

// TimestampLayout is how created_at values are stored: ISO 8601 in UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var timestampParseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// FormatTimestamp renders t the way created_at is stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an ISO 8601 (or RFC 1123) date and returns it in
// the stored layout. Values without a zone are read as UTC.
func ParseTimestamp(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range timestampParseLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return FormatTimestamp(t), true
		}
	}
	return "", false
}

// Tags is stored as a JSON array in a TEXT column. A NULL column scans to an
// empty list.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return errors.Errorf("unsupported tags column type %T", src)
	}

	if len(b) == 0 {
		*t = Tags{}
		return nil
	}

	var tags []string
	if err := json.Unmarshal(b, &tags); err != nil {
		return errors.WithStack(err)
	}
	if tags == nil {
		tags = []string{}
	}
	*t = tags
	return nil
}

// EncodeTag returns the serialized form of a single tag as it appears inside
// a stored Tags value, quotes included.
func EncodeTag(tag string) string {
	b, err := json.Marshal(tag)
	if err != nil {
		return `"` + tag + `"`
	}
	return string(b)
}

type Media struct {
	bun.BaseModel `bun:"table:media,alias:m"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	Kind      MediaKind `bun:",notnull" json:"kind"`
	Filename  string    `bun:",notnull" json:"filename"`
	Title     string    `json:"title"`
	Tags      Tags      `bun:",type:text" json:"tags"`
	Credit    *string   `json:"credit"`
	CreatedAt *string   `json:"created_at"`
	MimeType  *string   `json:"mime_type"`
}
