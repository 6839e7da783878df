package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/example/blog-comments/internal/forest"
	"github.com/example/blog-comments/internal/platform/api"
	"github.com/example/blog-comments/internal/store"
	"github.com/example/blog-comments/internal/validate"
)

func testDeps() (Deps, *store.MemoryStore) {
	ms := store.NewMemoryStore()
	return Deps{Store: ms, Categories: []string{"tech", "life"}}, ms
}

// setupReq builds a request with chi URL params injected.
func setupReq(method, url, body string, params map[string]string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func articleParams(extra map[string]string) map[string]string {
	params := map[string]string{"category": "tech", "articleID": "post-1"}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) api.APIError {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return resp.Error
}

func TestGetForest_EmptyArticle(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	GetForest(deps).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/comments/tech/post-1", "", articleParams(nil)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp forestResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Comments) != 0 {
		t.Fatalf("expected empty forest, got %d roots", len(resp.Comments))
	}
}

func TestGetForest_UnknownCategory(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	params := map[string]string{"category": "gossip", "articleID": "post-1"}
	GetForest(deps).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/comments/gossip/post-1", "", params))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if e := decodeErr(t, rr); e.Code != "INVALID_IDENTIFIER" {
		t.Fatalf("expected INVALID_IDENTIFIER, got %q", e.Code)
	}
}

func TestCreateComment(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	body := `{"name":"Ada","email":"ada@example.com","comment":"hello world"}`
	CreateComment(deps).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/comments/tech/post-1", body, articleParams(nil)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var c forest.Comment
	if err := json.NewDecoder(rr.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected generated id in response")
	}
	if c.CreatedAt.IsZero() {
		t.Fatal("expected created_at in response")
	}
	if c.Body != "hello world" {
		t.Fatalf("expected body 'hello world', got %q", c.Body)
	}
}

func TestCreateComment_EscapesMarkup(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	body := `{"name":"Ada","email":"ada@example.com","comment":"<b>bold</b>"}`
	CreateComment(deps).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/comments/tech/post-1", body, articleParams(nil)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var c forest.Comment
	_ = json.NewDecoder(rr.Body).Decode(&c)
	if strings.Contains(c.Body, "<b>") {
		t.Fatalf("markup not escaped: %q", c.Body)
	}
}

func TestCreateComment_InvalidEmail(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	body := `{"name":"Ada","email":"nope","comment":"hi"}`
	CreateComment(deps).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/comments/tech/post-1", body, articleParams(nil)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	e := decodeErr(t, rr)
	if e.Code != "INVALID_INPUT" {
		t.Fatalf("expected INVALID_INPUT, got %q", e.Code)
	}
	if e.Details["field"] != "email" {
		t.Fatalf("expected field 'email', got %v", e.Details["field"])
	}
}

func TestCreateComment_InvalidJSON(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	CreateComment(deps).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/comments/tech/post-1", "{broken", articleParams(nil)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if e := decodeErr(t, rr); e.Code != "INVALID_JSON" {
		t.Fatalf("expected INVALID_JSON, got %q", e.Code)
	}
}

func TestCreateComment_OversizedBody(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	body := `{"name":"Ada","email":"ada@example.com","comment":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	CreateComment(deps).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/comments/tech/post-1", body, articleParams(nil)))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	if e := decodeErr(t, rr); e.Code != "PAYLOAD_TOO_LARGE" {
		t.Fatalf("expected PAYLOAD_TOO_LARGE, got %q", e.Code)
	}
}

func TestCreateReply(t *testing.T) {
	deps, ms := testDeps()
	ctx := context.Background()
	root, _ := ms.AddRootComment(ctx, "tech", "post-1", validate.Fields{Name: "Ada", Email: "ada@example.com", Body: "root"})

	rr := httptest.NewRecorder()
	body := `{"name":"Bob","email":"bob@example.com","comment":"a reply"}`
	params := articleParams(map[string]string{"parentID": root.ID})
	CreateReply(deps).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/comments/tech/post-1/reply/"+root.ID, body, params))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	f, _ := ms.List(ctx, "tech", "post-1")
	if len(f) != 1 || len(f[0].Replies) != 1 {
		t.Fatalf("expected reply nested under root, got %+v", f)
	}
}

func TestCreateReply_ParentMissing(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	body := `{"name":"Bob","email":"bob@example.com","comment":"orphan"}`
	params := articleParams(map[string]string{"parentID": "ghost"})
	CreateReply(deps).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/comments/tech/post-1/reply/ghost", body, params))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if e := decodeErr(t, rr); e.Code != "COMMENT_NOT_FOUND" {
		t.Fatalf("expected COMMENT_NOT_FOUND, got %q", e.Code)
	}
}

func TestCreateReply_DepthLimit(t *testing.T) {
	deps, ms := testDeps()
	ctx := context.Background()
	fieldsOf := func(b string) validate.Fields {
		return validate.Fields{Name: "Ada", Email: "ada@example.com", Body: b}
	}
	parent, _ := ms.AddRootComment(ctx, "tech", "post-1", fieldsOf("depth 0"))
	for depth := 1; depth <= forest.MaxDepth; depth++ {
		parent, _ = ms.AddReply(ctx, "tech", "post-1", parent.ID, fieldsOf("deeper"))
	}

	rr := httptest.NewRecorder()
	body := `{"name":"Bob","email":"bob@example.com","comment":"too deep"}`
	params := articleParams(map[string]string{"parentID": parent.ID})
	CreateReply(deps).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/comments/tech/post-1/reply/"+parent.ID, body, params))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if e := decodeErr(t, rr); e.Code != "DEPTH_LIMIT_EXCEEDED" {
		t.Fatalf("expected DEPTH_LIMIT_EXCEEDED, got %q", e.Code)
	}
}

func TestEditComment(t *testing.T) {
	deps, ms := testDeps()
	ctx := context.Background()
	c, _ := ms.AddRootComment(ctx, "tech", "post-1", validate.Fields{Name: "Ada", Email: "ada@example.com", Body: "original"})

	rr := httptest.NewRecorder()
	body := `{"name":"Ada","email":"ada@example.com","comment":"amended"}`
	params := articleParams(map[string]string{"commentID": c.ID})
	EditComment(deps).ServeHTTP(rr, setupReq(http.MethodPut, "/v1/comments/tech/post-1/"+c.ID, body, params))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var edited forest.Comment
	_ = json.NewDecoder(rr.Body).Decode(&edited)
	if edited.Body != "amended" {
		t.Fatalf("expected amended body, got %q", edited.Body)
	}
	if edited.EditedAt == nil {
		t.Fatal("expected edited_at to be set")
	}
}

func TestEditComment_Missing(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	body := `{"name":"Ada","email":"ada@example.com","comment":"x"}`
	params := articleParams(map[string]string{"commentID": "ghost"})
	EditComment(deps).ServeHTTP(rr, setupReq(http.MethodPut, "/v1/comments/tech/post-1/ghost", body, params))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteComment(t *testing.T) {
	deps, ms := testDeps()
	ctx := context.Background()
	c, _ := ms.AddRootComment(ctx, "tech", "post-1", validate.Fields{Name: "Ada", Email: "ada@example.com", Body: "doomed"})

	rr := httptest.NewRecorder()
	params := articleParams(map[string]string{"commentID": c.ID})
	DeleteComment(deps).ServeHTTP(rr, setupReq(http.MethodDelete, "/v1/comments/tech/post-1/"+c.ID, "", params))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	f, _ := ms.List(ctx, "tech", "post-1")
	if f.Count() != 0 {
		t.Fatalf("expected empty forest, got %d nodes", f.Count())
	}
}

func TestDeleteComment_Missing(t *testing.T) {
	deps, _ := testDeps()
	rr := httptest.NewRecorder()
	params := articleParams(map[string]string{"commentID": "ghost"})
	DeleteComment(deps).ServeHTTP(rr, setupReq(http.MethodDelete, "/v1/comments/tech/post-1/ghost", "", params))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
