// Package upload implements the ingestion pipeline: a linear gate
// sequence that validates a request, stages each file part, and
// atomically commits the whole batch into the asset store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/picup/picup/internal/api"
	"github.com/picup/picup/internal/category"
	"github.com/picup/picup/internal/store"
)

// Request carries the validated query parameters of one upload call.
// Override defaults to false and Compress to 0; any nonzero Compress is
// rejected as not implemented.
type Request struct {
	Token    string
	Category string
	Override bool
	Compress uint
}

// Part is one file in the multipart body. Body is consumed lazily in a
// single pass and is not restartable.
type Part struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// PartSource iterates file parts in arrival order. Next returns io.EOF
// after the last part. A previously returned Part's Body is invalid once
// Next is called again.
type PartSource interface {
	Next() (*Part, error)
}

// Error is a terminal pipeline failure carrying its wire code.
type Error struct {
	Code    api.ResponseCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func fail(code api.ResponseCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Service runs the ingestion pipeline against a store and the immutable
// startup configuration (token, category table, public URL prefix).
type Service struct {
	token      string
	categories *category.Table
	store      *store.Store
	urlPrefix  string
	logger     *slog.Logger
}

// NewService creates the pipeline service.
func NewService(log *slog.Logger, token string, categories *category.Table, st *store.Store, urlPrefix string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		token:      token,
		categories: categories,
		store:      st,
		urlPrefix:  strings.TrimRight(urlPrefix, "/"),
		logger:     log.With(slog.String("service", "upload")),
	}
}

// Process validates req, stages every part, and commits the batch. On
// success it returns one public URL per part in arrival order. Any
// failure aborts the whole request: staged files are discarded and
// nothing becomes visible to retrieval. The returned error is always a
// *Error.
func (s *Service) Process(ctx context.Context, req Request, parts PartSource) ([]string, error) {
	staging, err := s.store.Begin()
	if err != nil {
		s.logger.Error("begin staging", slog.Any("error", err))
		return nil, fail(api.CodeInternalError, "internal file system error")
	}
	defer staging.Discard()

	if req.Token != s.token {
		return nil, fail(api.CodeInvalidToken, "invalid token")
	}

	policy, ok := s.categories.Lookup(req.Category)
	if !ok {
		return nil, fail(api.CodeInvalidCategory, "invalid category")
	}

	// todo compress image when uploading
	if req.Compress != 0 {
		return nil, fail(api.CodeNotImplemented, "not implemented: compress")
	}

	var filenames []string
	handled := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, fail(api.CodeBadFile, "request aborted")
		}

		part, err := parts.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fail(api.CodeBadFile, "bad multipart body")
		}

		if part.Filename == "" {
			return nil, fail(api.CodeBadFileName, fmt.Sprintf("invalid file name, file no: %d", handled+1))
		}

		if !policy.AllowAllFiles && !strings.Contains(part.ContentType, "image") {
			return nil, fail(api.CodeNotAnImage, fmt.Sprintf("not a image: %s", part.Filename))
		}

		exists, err := s.store.Exists(req.Category, part.Filename)
		if err != nil {
			if errors.Is(err, store.ErrBadName) {
				return nil, fail(api.CodeBadFileName, fmt.Sprintf("invalid file name, file no: %d", handled+1))
			}
			s.logger.Error("check existing asset", slog.String("file", part.Filename), slog.Any("error", err))
			return nil, fail(api.CodeInternalError, "internal file system error")
		}
		if exists && !req.Override {
			return nil, fail(api.CodeFileExisted, fmt.Sprintf("file existed: %s", part.Filename))
		}

		if err := staging.Stage(part.Filename, part.Body); err != nil {
			if errors.Is(err, store.ErrRead) {
				return nil, fail(api.CodeBadFile, fmt.Sprintf("bad file: %s", part.Filename))
			}
			if errors.Is(err, store.ErrBadName) {
				return nil, fail(api.CodeBadFileName, fmt.Sprintf("invalid file name, file no: %d", handled+1))
			}
			s.logger.Error("stage file", slog.String("file", part.Filename), slog.Any("error", err))
			return nil, fail(api.CodeInternalError, "internal file system error")
		}

		filenames = append(filenames, part.Filename)
		handled++
	}

	if err := staging.Commit(req.Category, req.Override); err != nil {
		if errors.Is(err, store.ErrExists) {
			return nil, fail(api.CodeFileExisted, err.Error())
		}
		s.logger.Error("commit batch", slog.String("category", req.Category), slog.Any("error", err))
		return nil, fail(api.CodeInternalError, "internal file system error")
	}

	urls := make([]string, 0, len(filenames))
	for _, name := range filenames {
		urls = append(urls, s.urlPrefix+"/asset/"+req.Category+"/"+url.PathEscape(name))
	}

	s.logger.Info("batch committed",
		slog.String("category", req.Category),
		slog.Int("files", len(filenames)),
		slog.Bool("override", req.Override),
	)
	return urls, nil
}
