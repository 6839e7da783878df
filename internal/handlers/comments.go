// Package handlers exposes the comment store over HTTP. Each handler
// normalizes identifiers, validates the payload, calls the store, and maps
// store errors to the structured envelope. Throttling and moderation auth
// are middleware concerns and live outside this package.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/blog-comments/internal/events"
	"github.com/example/blog-comments/internal/forest"
	"github.com/example/blog-comments/internal/platform/api"
	"github.com/example/blog-comments/internal/platform/httpserver"
	"github.com/example/blog-comments/internal/store"
	"github.com/example/blog-comments/internal/validate"
)

type commentRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Comment string `json:"comment"`
}

type forestResponse struct {
	Comments forest.Forest `json:"comments"`
}

// Deps bundles what every comment handler needs.
type Deps struct {
	Store      store.ForestStore
	Events     *events.Publisher
	Categories []string
}

func (d Deps) identifier(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	rid := httpserver.RequestIDFromContext(r.Context())
	category, articleID, err := validate.Identifier(
		chi.URLParam(r, "category"), chi.URLParam(r, "articleID"), d.Categories)
	if err != nil {
		api.BadRequest(w, "INVALID_IDENTIFIER", err.Error(), rid, nil)
		return "", "", false
	}
	return category, articleID, true
}

// maxBodyBytes caps a comment payload; the comment body field alone is
// limited to 2000 characters, so anything near this is abuse.
const maxBodyBytes = 1 << 20

func decodeFields(w http.ResponseWriter, r *http.Request) (validate.Fields, bool) {
	rid := httpserver.RequestIDFromContext(r.Context())
	var req commentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			api.TooLarge(w, "PAYLOAD_TOO_LARGE", "request body exceeds the size limit", rid)
			return validate.Fields{}, false
		}
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
		return validate.Fields{}, false
	}
	fields, err := validate.CommentFields(req.Name, req.Email, req.Comment)
	if err != nil {
		var fe *validate.FieldError
		if errors.As(err, &fe) {
			api.BadRequest(w, "INVALID_INPUT", fe.Error(), rid, map[string]any{"field": fe.Field})
		} else {
			api.BadRequest(w, "INVALID_INPUT", err.Error(), rid, nil)
		}
		return validate.Fields{}, false
	}
	return fields, true
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, store.ErrCommentNotFound):
		api.NotFound(w, "COMMENT_NOT_FOUND", "comment not found", rid)
	case errors.Is(err, store.ErrDepthLimitExceeded):
		api.Unprocessable(w, "DEPTH_LIMIT_EXCEEDED", "reply would nest too deep", rid,
			map[string]any{"max_depth": forest.MaxDepth})
	case errors.Is(err, store.ErrStorageUnavailable):
		api.Unavailable(w, "STORAGE_UNAVAILABLE", "comment storage unavailable, retry later", rid)
	default:
		api.Internal(w, rid)
	}
}

// GetForest handles GET /v1/comments/{category}/{articleID}
func GetForest(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, articleID, ok := d.identifier(w, r)
		if !ok {
			return
		}
		f, err := d.Store.List(r.Context(), category, articleID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, forestResponse{Comments: f})
	}
}

// CreateComment handles POST /v1/comments/{category}/{articleID}
func CreateComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, articleID, ok := d.identifier(w, r)
		if !ok {
			return
		}
		fields, ok := decodeFields(w, r)
		if !ok {
			return
		}
		c, err := d.Store.AddRootComment(r.Context(), category, articleID, fields)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		d.Events.Publish(events.SubjectCreated, category, articleID, c.ID)
		api.WriteJSON(w, http.StatusCreated, c)
	}
}

// CreateReply handles POST /v1/comments/{category}/{articleID}/reply/{parentID}
func CreateReply(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, articleID, ok := d.identifier(w, r)
		if !ok {
			return
		}
		parentID := strings.TrimSpace(chi.URLParam(r, "parentID"))
		if parentID == "" {
			rid := httpserver.RequestIDFromContext(r.Context())
			api.BadRequest(w, "MISSING_ID", "parent id is required", rid, nil)
			return
		}
		fields, ok := decodeFields(w, r)
		if !ok {
			return
		}
		c, err := d.Store.AddReply(r.Context(), category, articleID, parentID, fields)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		d.Events.Publish(events.SubjectReplied, category, articleID, c.ID)
		api.WriteJSON(w, http.StatusCreated, c)
	}
}

// EditComment handles PUT /v1/comments/{category}/{articleID}/{commentID}
func EditComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, articleID, ok := d.identifier(w, r)
		if !ok {
			return
		}
		commentID := strings.TrimSpace(chi.URLParam(r, "commentID"))
		if commentID == "" {
			rid := httpserver.RequestIDFromContext(r.Context())
			api.BadRequest(w, "MISSING_ID", "comment id is required", rid, nil)
			return
		}
		fields, ok := decodeFields(w, r)
		if !ok {
			return
		}
		c, err := d.Store.EditComment(r.Context(), category, articleID, commentID, fields)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		d.Events.Publish(events.SubjectEdited, category, articleID, c.ID)
		api.WriteJSON(w, http.StatusOK, c)
	}
}

// DeleteComment handles DELETE /v1/comments/{category}/{articleID}/{commentID}
func DeleteComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, articleID, ok := d.identifier(w, r)
		if !ok {
			return
		}
		commentID := strings.TrimSpace(chi.URLParam(r, "commentID"))
		if commentID == "" {
			rid := httpserver.RequestIDFromContext(r.Context())
			api.BadRequest(w, "MISSING_ID", "comment id is required", rid, nil)
			return
		}
		if err := d.Store.DeleteComment(r.Context(), category, articleID, commentID); err != nil {
			writeStoreError(w, r, err)
			return
		}
		d.Events.Publish(events.SubjectDeleted, category, articleID, commentID)
		w.WriteHeader(http.StatusNoContent)
	}
}
