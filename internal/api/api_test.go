package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/docservice"
	"github.com/starford/inkwell/internal/loop"
	"github.com/starford/inkwell/internal/testutil"
)

// testEnv sets up a temp workspace, SQLite DB, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*docservice.Service, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*docservice.Service, http.Handler) {
	t.Helper()
	_, store := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)
	l := loop.New()
	t.Cleanup(l.Close)

	svc := docservice.NewService(store, db, l, docservice.WithLogger(testutil.Logger()))
	return svc, NewRouter(svc, authEnabled, token, sseHandler)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func create(t *testing.T, router http.Handler, path, content string) DocumentDetail {
	t.Helper()
	w := do(t, router, http.MethodPost, "/documents", CreateDocumentRequest{Path: path, Content: content})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var doc DocumentDetail
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestCreateAndGetDocument(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, "hello.html", "<h1>Hello</h1><ul><li>World</li></ul>")

	w := do(t, router, http.MethodGet, "/documents/hello.html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Path != "hello.html" {
		t.Errorf("path = %q", doc.Path)
	}
	if doc.Title != "Hello" {
		t.Errorf("title = %q, want Hello", doc.Title)
	}
	if doc.Lists.UnorderedItems != 1 {
		t.Errorf("unordered items = %d, want 1", doc.Lists.UnorderedItems)
	}
	if got := w.Header().Get("ETag"); got != `"`+doc.Checksum+`"` {
		t.Errorf("etag = %q", got)
	}
}

func TestGetDocumentEncodedPath(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, "notes/a.html", "<p>a</p>")

	w := do(t, router, http.MethodGet, "/documents/notes%2Fa.html", nil)
	if w.Code != http.StatusOK {
		t.Errorf("encoded path get = %d, want 200", w.Code)
	}
}

func TestCreateDocumentErrors(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, "dup.html", "<p>a</p>")

	tests := []struct {
		description string
		body        any
		want        int
	}{
		{"duplicate", CreateDocumentRequest{Path: "dup.html", Content: "<p>b</p>"}, http.StatusConflict},
		{"missing content", CreateDocumentRequest{Path: "x.html"}, http.StatusBadRequest},
		{"not a document", CreateDocumentRequest{Path: "x.txt", Content: "x"}, http.StatusBadRequest},
		{"invalid json", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/documents", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	created := create(t, router, "lock.html", "<p>v1</p>")

	update := func(ifMatch string) int {
		req := httptest.NewRequest(http.MethodPut, "/documents/lock.html", strings.NewReader("<p>v2</p>"))
		req.Header.Set("Content-Type", "text/html")
		if ifMatch != "" {
			req.Header.Set("If-Match", ifMatch)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := update(`"` + created.Checksum + `"`); code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d", code)
	}
	if code := update(created.Checksum); code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", code)
	}
	if code := update(""); code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", code)
	}
}

func TestUpdateJSONBody(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, "j.html", "<p>v1</p>")

	w := do(t, router, http.MethodPut, "/documents/j.html", UpdateDocumentRequest{Content: "<h1>v2</h1>"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d", w.Code)
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Title != "v2" {
		t.Errorf("title = %q, want v2", doc.Title)
	}

	if w := do(t, router, http.MethodPut, "/documents/missing.html", UpdateDocumentRequest{Content: "x"}); w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, "bye.html", "<p>gone</p>")

	if w := do(t, router, http.MethodDelete, "/documents/bye.html", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/documents/bye.html", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/documents/bye.html", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	_, router := testEnv(t, "")
	for _, name := range []string{"a.html", "b.html"} {
		create(t, router, name, "<h1>"+name+"</h1>")
	}

	w := do(t, router, http.MethodGet, "/documents?limit=10&sort=path", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp DocumentListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Documents) != 2 {
		t.Fatalf("list = %+v, want 2 documents", resp)
	}
	if resp.Documents[0].Path != "a.html" {
		t.Errorf("first = %q, want a.html", resp.Documents[0].Path)
	}
}

func TestSearchAndBacklinks(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, "target.html", "<p>unique pineapple</p>")
	create(t, router, "source.html", `<p><a href="target.html">see</a></p>`)

	w := do(t, router, http.MethodGet, "/search?q=pineapple", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var sr SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sr)
	if len(sr.Results) != 1 || sr.Results[0].Path != "target.html" {
		t.Errorf("results = %+v", sr.Results)
	}

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodGet, "/backlinks/target.html", nil)
	var bl BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &bl)
	if len(bl.Backlinks) != 1 || bl.Backlinks[0] != "source.html" {
		t.Errorf("backlinks = %v, want [source.html]", bl.Backlinks)
	}
}

func TestToggleListOverHTTP(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, "l.html", "<ul><li>A</li><li><b>B</b></li><li>C</li></ul>")

	// No selection yet.
	if w := do(t, router, http.MethodPost, "/lists/l.html", ListRequest{Kind: "ordered"}); w.Code != http.StatusConflict {
		t.Errorf("toggle without selection = %d, want 409", w.Code)
	}

	sel := Selection{Start: docservice.Point{Path: []int{0, 1, 0, 0}, Offset: 1}}
	w := do(t, router, http.MethodPut, "/selection/l.html", sel)
	if w.Code != http.StatusOK {
		t.Fatalf("set selection = %d, body = %s", w.Code, w.Body.String())
	}
	var st FormattingState
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if !st.Live || !st.Formatting.Bold || !st.Formatting.UnorderedList {
		t.Errorf("formatting = %+v, want live bold unordered", st)
	}

	w = do(t, router, http.MethodPost, "/lists/l.html", ListRequest{Kind: "ordered"})
	if w.Code != http.StatusOK {
		t.Fatalf("toggle = %d, body = %s", w.Code, w.Body.String())
	}
	var res EditResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	want := `<ul><li>A</li></ul><ol><li><strong>B</strong></li></ol><ul><li>C</li></ul>`
	if res.Content != want {
		t.Errorf("content = %q, want %q", res.Content, want)
	}
	if res.Formatting == nil || !res.Formatting.OrderedList {
		t.Errorf("formatting = %+v, want ordered list", res.Formatting)
	}

	if w := do(t, router, http.MethodPost, "/lists/l.html", ListRequest{Kind: "dl"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", w.Code)
	}
}

func TestSelectionLifecycle(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, "s.html", "<p>hello world</p>")

	if w := do(t, router, http.MethodGet, "/selection/s.html", nil); w.Code != http.StatusConflict {
		t.Errorf("get without selection = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/formatting/s.html", nil); w.Code != http.StatusConflict {
		t.Errorf("formatting without any report = %d, want 409", w.Code)
	}

	bad := Selection{Start: docservice.Point{Path: []int{7}, Offset: 0}}
	if w := do(t, router, http.MethodPut, "/selection/s.html", bad); w.Code != http.StatusBadRequest {
		t.Errorf("invalid selection = %d, want 400", w.Code)
	}

	end := docservice.Point{Path: []int{0, 0}, Offset: 5}
	sel := Selection{Start: docservice.Point{Path: []int{0, 0}, Offset: 0}, End: &end}
	if w := do(t, router, http.MethodPut, "/selection/s.html", sel); w.Code != http.StatusOK {
		t.Fatalf("set selection = %d", w.Code)
	}

	w := do(t, router, http.MethodPost, "/commands/s.html", CommandRequest{Name: "bold"})
	if w.Code != http.StatusOK {
		t.Fatalf("bold = %d, body = %s", w.Code, w.Body.String())
	}
	var res EditResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Content != "<p><b>hello</b> world</p>" {
		t.Errorf("content = %q", res.Content)
	}

	if w := do(t, router, http.MethodPost, "/commands/s.html", CommandRequest{Name: "insertHTML"}); w.Code != http.StatusBadRequest {
		t.Errorf("unsupported command = %d, want 400", w.Code)
	}

	if w := do(t, router, http.MethodDelete, "/selection/s.html", nil); w.Code != http.StatusNoContent {
		t.Errorf("clear = %d, want 204", w.Code)
	}
	w = do(t, router, http.MethodGet, "/formatting/s.html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("formatting after clear = %d", w.Code)
	}
	var st FormattingState
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Live {
		t.Error("formatting after clear must not be live")
	}
}

func TestEditingMissingDocument(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/formatting/nope.html", nil); w.Code != http.StatusNotFound {
		t.Errorf("formatting of missing = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret")

	tests := []struct {
		description string
		header      string
		want        int
	}{
		{"valid token", "Bearer secret", http.StatusOK},
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/documents", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/documents", nil); w.Code != http.StatusOK {
		t.Errorf("disabled auth = %d, want 200", w.Code)
	}
}

// stubSSE writes headers and blocks until the request context is done.
var stubSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", stubSSE)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", stubSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
