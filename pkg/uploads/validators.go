package uploads

import (
	"io"
	"mime/multipart"

	"github.com/looplet/looplet/pkg/models"
)

// filesField is the multipart field uploads are read from.
const filesField = "files"

type UploadQuery struct {
	Kind      string                             `query:"kind" form:"kind" mod:"trim"`
	FormFiles map[string][]*multipart.FileHeader `form:"-"`
}

// kind falls back to video when the requested kind is missing or unknown.
func (q UploadQuery) kind() models.MediaKind {
	if kind, ok := models.ParseMediaKind(q.Kind); ok {
		return kind
	}
	return models.MediaKindVideo
}

func (q UploadQuery) payloads() []Payload {
	headers := q.FormFiles[filesField]
	payloads := make([]Payload, 0, len(headers))
	for _, fh := range headers {
		payloads = append(payloads, Payload{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return payloads
}
