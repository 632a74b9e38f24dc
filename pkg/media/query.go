package media

import (
	"strings"

	"github.com/looplet/looplet/pkg/models"
	"github.com/uptrace/bun"
)

// ListMediaOptions narrows a catalog listing. Empty values don't filter.
type ListMediaOptions struct {
	// Kind restricts results only when it is exactly "video" or "audio".
	Kind *string
	// Search matches titles or filenames containing the text.
	Search *string
	// Tag matches records whose tag list contains exactly this tag.
	Tag *string
}

const likeEscape = "!"

var likeEscaper = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// containsPattern builds a LIKE pattern matching s anywhere in the value,
// with any wildcard characters in s taken literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func applyListFilters(q *bun.SelectQuery, opts ListMediaOptions) *bun.SelectQuery {
	if opts.Kind != nil {
		switch kind := models.MediaKind(*opts.Kind); kind {
		case models.MediaKindVideo, models.MediaKindAudio:
			q = q.Where("m.kind = ?", kind)
		}
	}

	if opts.Search != nil && *opts.Search != "" {
		pattern := containsPattern(*opts.Search)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("m.title LIKE ? ESCAPE '"+likeEscape+"'", pattern).
				WhereOr("m.filename LIKE ? ESCAPE '"+likeEscape+"'", pattern)
		})
	}

	// Tags are stored as a JSON array, so the quoted tag only appears as a
	// substring when it is a whole element.
	if opts.Tag != nil && *opts.Tag != "" {
		q = q.Where("m.tags LIKE ? ESCAPE '"+likeEscape+"'", containsPattern(models.EncodeTag(*opts.Tag)))
	}

	// ASCII case folding only, which is what SQLite's NOCASE provides.
	return q.OrderExpr("m.filename COLLATE NOCASE ASC")
}
