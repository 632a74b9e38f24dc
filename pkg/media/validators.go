package media

import (
	stdjson "encoding/json"

	"github.com/segmentio/encoding/json"
)

// ListMediaQuery is taken as sent: whitespace in q or tag is part of what
// has to match.
type ListMediaQuery struct {
	Kind   string `query:"kind" json:"kind,omitempty"`
	Tag    string `query:"tag" json:"tag,omitempty"`
	Search string `query:"q" json:"q,omitempty"`
}

func (q ListMediaQuery) options() ListMediaOptions {
	opts := ListMediaOptions{}
	if q.Kind != "" {
		opts.Kind = &q.Kind
	}
	if q.Tag != "" {
		opts.Tag = &q.Tag
	}
	if q.Search != "" {
		opts.Search = &q.Search
	}
	return opts
}

// UpdateMediaPayload keeps each field raw so that a value of the wrong JSON
// type is skipped instead of rejecting the whole request.
type UpdateMediaPayload struct {
	Title     stdjson.RawMessage `json:"title,omitempty"`
	Tags      stdjson.RawMessage `json:"tags,omitempty"`
	Credit    stdjson.RawMessage `json:"credit,omitempty"`
	CreatedAt stdjson.RawMessage `json:"created_at,omitempty"`
}

func (p UpdateMediaPayload) fields() UpdateMediaFields {
	return UpdateMediaFields{
		Title:     rawString(p.Title),
		Tags:      rawStrings(p.Tags),
		Credit:    rawString(p.Credit),
		CreatedAt: rawString(p.CreatedAt),
	}
}

func isAbsent(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func rawString(raw []byte) *string {
	if isAbsent(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func rawStrings(raw []byte) []string {
	if isAbsent(raw) {
		return nil
	}
	tags := []string{}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	return tags
}

type DeleteMediaQuery struct {
	DeleteFile string `query:"deleteFile" json:"deleteFile,omitempty"`
}

// removeFile reports whether the caller asked for the file to go too. Only
// "1" counts.
func (q DeleteMediaQuery) removeFile() bool {
	return q.DeleteFile == "1"
}
