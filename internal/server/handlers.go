package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	goahttp "goa.design/goa/v3/http"

	"barakahit/internal/domain"
	"barakahit/internal/logger"
	apperrors "barakahit/pkg/errors"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgOriginForbidden  = "Origin not allowed"
	msgInvalidBody      = "Invalid request body"
	msgBodyTooLarge     = "Request body too large"
	msgSubmitFailed     = "Failed to submit inquiry. Please try again later."
	msgSubmitted        = "Inquiry submitted successfully"
)

type submitResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	InquiryID string `json:"inquiryId"`
}

type errorResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Field   string     `json:"field,omitempty"`
	Debug   *debugInfo `json:"debug,omitempty"`
}

// debugInfo is only sent in development.
type debugInfo struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{Message: msgMethodNotAllowed})
		return
	}

	form, err := decodeForm(w, r)
	if err != nil {
		msg := msgInvalidBody
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = msgBodyTooLarge
		}
		logger.WithRequest(r.Context(), s.log).Infow("rejected request body", "error", err)
		writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Message: msg})
		return
	}

	sub, err := s.contact.Submit(r.Context(), form)
	if err != nil {
		s.writeSubmitError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, submitResponse{
		Success:   true,
		Message:   msgSubmitted,
		InquiryID: sub.ID,
	})
}

var errTrailingData = errors.New("unexpected data after JSON object")

// decodeForm reads one JSON object of at most maxBodyBytes whatever the
// Content-Type says. An empty body decodes to an empty form so the validator
// reports the missing fields.
func decodeForm(w http.ResponseWriter, r *http.Request) (domain.ContactForm, error) {
	var form domain.ContactForm
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&form); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ContactForm{}, nil
		}
		return domain.ContactForm{}, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ContactForm{}, err
		}
		return domain.ContactForm{}, errTrailingData
	}
	return form, nil
}

func (s *Server) writeSubmitError(ctx context.Context, w http.ResponseWriter, err error) {
	if appErr, ok := apperrors.As(err); ok && appErr.Code == apperrors.ErrCodeValidation {
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	resp := errorResponse{Message: msgSubmitFailed}
	if s.cfg.App.IsDevelopment() {
		resp.Debug = &debugInfo{
			Name:    string(apperrors.CodeOf(err)),
			Message: err.Error(),
		}
	}
	writeJSON(ctx, w, http.StatusInternalServerError, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, s.health.Check(r.Context()))
}

// writeJSON encodes v with the goa response encoder, pinned to JSON whatever
// the client's Accept header says.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	ctx = context.WithValue(ctx, goahttp.ContentTypeKey, "application/json")
	ctx = context.WithValue(ctx, goahttp.AcceptTypeKey, "application/json")
	enc := goahttp.ResponseEncoder(ctx, w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = enc.Encode(v)
}
