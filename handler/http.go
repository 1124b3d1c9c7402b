package handler

import (
	"errors"
	"io"
	"net/http"

	"campus-chat/internal/usecase"
)

// ServeHTTP serves the chat endpoint for plain net/http servers. Routing
// must send every method here so non-POST requests get the 405 body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	corrID := correlationID(r.Header.Get(correlationHeader))

	var res result
	if r.Method != http.MethodPost {
		res = h.failure(ctx, corrID, usecase.MethodNotAllowed(r.Method))
	} else if body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		res = h.failure(ctx, corrID, bodyReadError(err))
	} else {
		res = h.reply(ctx, corrID, body)
	}

	for k, v := range res.headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(res.status)
	_, _ = io.WriteString(w, res.body)
}

func bodyReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return usecase.InvalidInput("body_too_large", "Request body is too large.", err)
	}
	return usecase.InvalidInput("body_read_error", "Request body could not be read.", err)
}
