// Package api defines the wire envelope and response codes shared by the
// server handlers and the upload client.
package api

import "net/http"

// ResponseCode identifies the outcome of an API call. Zero is the only
// success value; every other code names a distinct failure kind.
type ResponseCode int

const (
	CodeOK              ResponseCode = 0
	CodeInternalError   ResponseCode = 999
	CodeNotImplemented  ResponseCode = 1000
	CodeInvalidToken    ResponseCode = 1001
	CodeBadFileName     ResponseCode = 1002
	CodeNotAnImage      ResponseCode = 1003
	CodeFileExisted     ResponseCode = 1004
	CodeBadFile         ResponseCode = 1005
	CodeInvalidCategory ResponseCode = 1006
)

// Response is the uniform envelope returned by every endpoint.
// Data is non-null only when Code is CodeOK, so clients have a single
// deserialization path regardless of outcome.
type Response[T any] struct {
	Code ResponseCode `json:"code"`
	Msg  string       `json:"msg"`
	Data *T           `json:"data"`
}

// OK wraps data in a success envelope.
func OK[T any](data T) Response[T] {
	return Response[T]{Code: CodeOK, Msg: "ok", Data: &data}
}

// No builds a failure envelope with the given code and message.
func No[T any](code ResponseCode, msg string) Response[T] {
	return Response[T]{Code: code, Msg: msg}
}

// HTTPStatus maps a response code to the HTTP status it is served with.
// Server-caused failures surface as 500 so clients can tell them apart
// from their own bad requests.
func (c ResponseCode) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
