package upload

import (
	"io"
	"mime/multipart"
)

// MultipartSource adapts a stdlib multipart.Reader to PartSource, reading
// parts lazily in arrival order without buffering whole files.
type MultipartSource struct {
	reader *multipart.Reader
}

// NewMultipartSource wraps r.
func NewMultipartSource(r *multipart.Reader) *MultipartSource {
	return &MultipartSource{reader: r}
}

// Next returns the next file part, or io.EOF after the last one.
func (s *MultipartSource) Next() (*Part, error) {
	p, err := s.reader.NextPart()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return &Part{
		Filename:    p.FileName(),
		ContentType: p.Header.Get("Content-Type"),
		Body:        p,
	}, nil
}
