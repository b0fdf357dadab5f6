package types

import (
	"net/http"

	"github.com/go-chi/render"
)

// Response is the common part of all API responses.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Render implements render.Renderer.
func (e *Response) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	if e.Status == "" {
		e.Status = http.StatusText(e.StatusCode)
	}
	return nil
}

// OK returns a successful response.
func OK() *Response {
	return &Response{StatusCode: http.StatusOK}
}

func ErrBadRequest(err error) render.Renderer {
	return &Response{
		StatusCode: http.StatusBadRequest,
		Error:      err.Error(),
	}
}

func ErrInternal(err error) render.Renderer {
	return &Response{
		StatusCode: http.StatusInternalServerError,
		Error:      err.Error(),
	}
}

func ErrNotFound(err error) render.Renderer {
	return &Response{
		StatusCode: http.StatusNotFound,
		Error:      err.Error(),
	}
}
