package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gsarma/mailgate/internal/apikey"
	"github.com/gsarma/mailgate/internal/draft"
	"github.com/gsarma/mailgate/internal/email"
	"github.com/gsarma/mailgate/internal/pipeline"
	"github.com/gsarma/mailgate/internal/validate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubPipeline implements Pipeline for handler tests.
// Unset hooks return zero values.
type stubPipeline struct {
	previewFn    func(ctx context.Context, req pipeline.Request) pipeline.Preview
	prepareFn    func(ctx context.Context, req pipeline.Request) (*pipeline.Prepared, error)
	confirmFn    func(ctx context.Context, id string) pipeline.Outcome
	cancelFn     func(ctx context.Context, id string) pipeline.Outcome
	authStatusFn func(ctx context.Context) pipeline.AuthStatus
}

func (s *stubPipeline) Preview(ctx context.Context, req pipeline.Request) pipeline.Preview {
	if s.previewFn != nil {
		return s.previewFn(ctx, req)
	}
	return pipeline.Preview{}
}
func (s *stubPipeline) Prepare(ctx context.Context, req pipeline.Request) (*pipeline.Prepared, error) {
	if s.prepareFn != nil {
		return s.prepareFn(ctx, req)
	}
	return &pipeline.Prepared{}, nil
}
func (s *stubPipeline) Confirm(ctx context.Context, id string) pipeline.Outcome {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, id)
	}
	return pipeline.Outcome{}
}
func (s *stubPipeline) Cancel(ctx context.Context, id string) pipeline.Outcome {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, id)
	}
	return pipeline.Outcome{}
}
func (s *stubPipeline) AuthStatus(ctx context.Context) pipeline.AuthStatus {
	if s.authStatusFn != nil {
		return s.authStatusFn(ctx)
	}
	return pipeline.AuthStatus{}
}

// Compile-time interface check.
var _ Pipeline = (*stubPipeline)(nil)

// ginCtx builds a Gin test context carrying a JSON body.
func ginCtx(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return resp
}

// --- PreviewEmail ---

func TestPreviewEmail_PassesRequestThrough(t *testing.T) {
	var got pipeline.Request
	h := &Handler{logger: discard, pipeline: &stubPipeline{
		previewFn: func(_ context.Context, req pipeline.Request) pipeline.Preview {
			got = req
			return pipeline.Preview{OK: true}
		},
	}}

	body, _ := json.Marshal(map[string]any{
		"to": []string{"a@b.com"}, "cc": []string{"c@d.com"}, "subject": "Hi", "body": "<p>x</p>", "content_type": "HTML",
	})
	c, w := ginCtx("POST", "/tools/preview_email", body)
	h.PreviewEmail(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got.ContentType != email.ContentHTML {
		t.Errorf("content type = %q", got.ContentType)
	}
	if len(got.CC) != 1 || got.Subject != "Hi" {
		t.Errorf("request not passed through: %+v", got)
	}
	if decode(t, w)["ok"] != true {
		t.Error("expected ok=true in response")
	}
}

func TestPreviewEmail_BadContentType_Returns400(t *testing.T) {
	h := &Handler{logger: discard, pipeline: &stubPipeline{}}
	body, _ := json.Marshal(map[string]any{"to": []string{"a@b.com"}, "content_type": "markdown"})
	c, w := ginCtx("POST", "/tools/preview_email", body)
	h.PreviewEmail(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestPreviewEmail_MalformedJSON_Returns400(t *testing.T) {
	h := &Handler{logger: discard, pipeline: &stubPipeline{}}
	c, w := ginCtx("POST", "/tools/preview_email", []byte(`{"to":`))
	h.PreviewEmail(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// --- PrepareEmail ---

func TestPrepareEmail_Returns201(t *testing.T) {
	h := &Handler{logger: discard, pipeline: &stubPipeline{
		prepareFn: func(context.Context, pipeline.Request) (*pipeline.Prepared, error) {
			return &pipeline.Prepared{Status: pipeline.StatusDraftCreated, DraftID: "d-1", ExpiresInSeconds: 600}, nil
		},
	}}
	body, _ := json.Marshal(map[string]any{"to": []string{"a@b.com"}, "subject": "s", "body": "b"})
	c, w := ginCtx("POST", "/tools/prepare_email", body)
	h.PrepareEmail(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	resp := decode(t, w)
	if resp["draft_id"] != "d-1" {
		t.Errorf("draft_id = %v", resp["draft_id"])
	}
	if resp["expires_in_seconds"] != float64(600) {
		t.Errorf("expires_in_seconds = %v", resp["expires_in_seconds"])
	}
}

func TestPrepareEmail_Rejected_Returns400WithIssue(t *testing.T) {
	h := &Handler{logger: discard, pipeline: &stubPipeline{
		prepareFn: func(context.Context, pipeline.Request) (*pipeline.Prepared, error) {
			return nil, &pipeline.RejectedError{Issue: validate.Issue{Type: validate.MissingTo}}
		},
	}}
	c, w := ginCtx("POST", "/tools/prepare_email", []byte(`{}`))
	h.PrepareEmail(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp := decode(t, w)
	if resp["error"] != "Missing 'to' recipients" {
		t.Errorf("error = %v", resp["error"])
	}
	issue, _ := resp["issue"].(map[string]any)
	if issue["type"] != "missing_to" {
		t.Errorf("issue = %v", resp["issue"])
	}
}

func TestPrepareEmail_StoreError_Returns500(t *testing.T) {
	h := &Handler{logger: discard, pipeline: &stubPipeline{
		prepareFn: func(context.Context, pipeline.Request) (*pipeline.Prepared, error) {
			return nil, errors.New("redis: connection refused")
		},
	}}
	c, w := ginCtx("POST", "/tools/prepare_email", []byte(`{"to":["a@b.com"]}`))
	h.PrepareEmail(c)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// --- ConfirmSend / CancelDraft ---

func TestConfirmSend_StatusMapping(t *testing.T) {
	cases := map[pipeline.Status]int{
		pipeline.StatusSent:         http.StatusOK,
		pipeline.StatusNotFound:     http.StatusNotFound,
		pipeline.StatusInFlight:     http.StatusConflict,
		pipeline.StatusAuthRequired: http.StatusUnauthorized,
		pipeline.StatusFailed:       http.StatusBadGateway,
		pipeline.StatusError:        http.StatusInternalServerError,
	}
	for status, want := range cases {
		var gotID string
		h := &Handler{logger: discard, pipeline: &stubPipeline{
			confirmFn: func(_ context.Context, id string) pipeline.Outcome {
				gotID = id
				return pipeline.Outcome{Status: status, DraftID: id}
			},
		}}
		c, w := ginCtx("POST", "/tools/confirm_send", []byte(`{"draft_id":"abc"}`))
		h.ConfirmSend(c)

		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", status, want, w.Code)
		}
		if gotID != "abc" {
			t.Errorf("%s: draft id = %q", status, gotID)
		}
		if decode(t, w)["status"] != string(status) {
			t.Errorf("%s: body status mismatch", status)
		}
	}
}

func TestConfirmSend_MissingDraftID_Returns400(t *testing.T) {
	h := &Handler{logger: discard, pipeline: &stubPipeline{}}
	c, w := ginCtx("POST", "/tools/confirm_send", []byte(`{}`))
	h.ConfirmSend(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing draft_id, got %d", w.Code)
	}
}

func TestCancelDraft_Returns200(t *testing.T) {
	h := &Handler{logger: discard, pipeline: &stubPipeline{
		cancelFn: func(_ context.Context, id string) pipeline.Outcome {
			return pipeline.Outcome{Status: pipeline.StatusCancelled, DraftID: id, Message: "Draft " + id + " cancelled."}
		},
	}}
	c, w := ginCtx("POST", "/tools/cancel_draft", []byte(`{"draft_id":"xyz"}`))
	h.CancelDraft(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decode(t, w)["message"] != "Draft xyz cancelled." {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

// --- Routes ---

func newRouter(p Pipeline, keys *apikey.Set, testTools bool) *gin.Engine {
	r := gin.New()
	RegisterRoutes(r, Deps{Pipeline: p, Keys: keys, EnableTestTools: testTools, Logger: discard})
	return r
}

func do(r *gin.Engine, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_DebugToolsGated(t *testing.T) {
	off := newRouter(&stubPipeline{}, nil, false)
	if w := do(off, "POST", "/tools/greet", `{"name":"x"}`, nil); w.Code != http.StatusNotFound {
		t.Errorf("greet should be unrouted when disabled, got %d", w.Code)
	}

	on := newRouter(&stubPipeline{}, nil, true)
	w := do(on, "POST", "/tools/greet", `{"name":"Ada"}`, nil)
	if decode(t, w)["message"] != "Hello, Ada!" {
		t.Errorf("greet = %s", w.Body.String())
	}
	w = do(on, "POST", "/tools/add", `{"a":2,"b":3}`, nil)
	if decode(t, w)["result"] != float64(5) {
		t.Errorf("add = %s", w.Body.String())
	}
	w = do(on, "POST", "/tools/add", `{"a":2}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("add without b: expected 400, got %d", w.Code)
	}
	w = do(on, "POST", "/tools/echo", `{"text":"ping"}`, nil)
	if decode(t, w)["text"] != "ping" {
		t.Errorf("echo = %s", w.Body.String())
	}
}

func TestRoutes_APIKeyGate(t *testing.T) {
	r := newRouter(&stubPipeline{}, apikey.NewSet(map[string]string{"agent": "k"}), false)

	if w := do(r, "GET", "/tools/check_auth_status", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}
	if w := do(r, "GET", "/tools/check_auth_status", "", map[string]string{"Authorization": "Bearer k"}); w.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", w.Code)
	}
	if w := do(r, "GET", "/healthz", "", nil); w.Code != http.StatusOK {
		t.Errorf("healthz must not require a key, got %d", w.Code)
	}
}

func TestRoutes_RequestID(t *testing.T) {
	r := newRouter(&stubPipeline{}, nil, false)

	w := do(r, "GET", "/healthz", "", map[string]string{"X-Request-ID": "given"})
	if w.Header().Get("X-Request-ID") != "given" {
		t.Errorf("request id not propagated: %q", w.Header().Get("X-Request-ID"))
	}
	w = do(r, "GET", "/healthz", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id not assigned")
	}
}

// TestRoutes_EndToEnd drives the real pipeline over HTTP with an in-memory
// store and a stub provider.
func TestRoutes_EndToEnd(t *testing.T) {
	var sent int
	provider := providerFunc(func(context.Context, string, email.Message) error {
		sent++
		return nil
	})
	tokens := tokenFunc(func(context.Context) (string, error) { return "tok", nil })
	svc := pipeline.New(validate.NewPolicy(0, 0, nil), draft.NewMemory(time.Minute), provider, tokens)
	r := newRouter(svc, nil, false)

	w := do(r, "POST", "/tools/prepare_email", `{"to":["a@test.com"," a@TEST.com "],"subject":"S","body":"b"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("prepare: %d %s", w.Code, w.Body.String())
	}
	id, _ := decode(t, w)["draft_id"].(string)

	w = do(r, "POST", "/tools/confirm_send", `{"draft_id":"`+id+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", w.Code, w.Body.String())
	}
	if msg, _ := decode(t, w)["message"].(string); msg != "Email sent successfully to a@test.com" {
		t.Errorf("message = %q", msg)
	}

	w = do(r, "POST", "/tools/confirm_send", `{"draft_id":"`+id+`"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second confirm: expected 404, got %d", w.Code)
	}
	if sent != 1 {
		t.Errorf("provider called %d times, want 1", sent)
	}
}

func TestCancelDraft_InFlight_Returns409(t *testing.T) {
	h := &Handler{logger: discard, pipeline: &stubPipeline{
		cancelFn: func(_ context.Context, id string) pipeline.Outcome {
			return pipeline.Outcome{Status: pipeline.StatusInFlight, DraftID: id}
		},
	}}
	c, w := ginCtx("POST", "/tools/cancel_draft", []byte(`{"draft_id":"xyz"}`))
	h.CancelDraft(c)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}
