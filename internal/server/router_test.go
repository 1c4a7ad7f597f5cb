package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pericope-app/pericope/internal/auth"
	"github.com/pericope-app/pericope/internal/database"
	"github.com/pericope-app/pericope/internal/ident"
	"github.com/pericope-app/pericope/internal/notes"
	"github.com/pericope-app/pericope/internal/study"
	"github.com/pericope-app/pericope/internal/theology"
	"go.uber.org/zap"
)

const testPassword = "hunter2"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "pericope.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	idProvider := ident.NewUUIDProvider()

	gate, err := auth.NewPasswordGate(testPassword)
	if err != nil {
		t.Fatalf("failed to build password gate: %v", err)
	}
	sessions, err := auth.NewSessionStore(auth.SessionStoreConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build session store: %v", err)
	}
	tokens := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "pericope-auth",
		Audience:      "pericope-api",
	})

	notesService, err := notes.NewService(notes.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build notes service: %v", err)
	}
	theologyService, err := theology.NewService(theology.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build theology service: %v", err)
	}
	studyService, err := study.NewService(study.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build study service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		PasswordGate:    gate,
		SessionStore:    sessions,
		TokenIssuer:     tokens,
		NotesService:    notesService,
		TheologyService: theologyService,
		StudyService:    studyService,
		CookieName:      "pericope_session",
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(request)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func login(t *testing.T, handler http.Handler) (bearer string, cookie *http.Cookie) {
	t.Helper()
	recorder := doJSON(t, handler, http.MethodPost, "/auth/login", map[string]string{"password": testPassword}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(t, recorder, &response)
	if response.AccessToken == "" || response.TokenType != "Bearer" {
		t.Fatalf("unexpected login payload: %+v", response)
	}
	for _, c := range recorder.Result().Cookies() {
		if c.Name == "pericope_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("expected session cookie on login")
	}
	return response.AccessToken, cookie
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func TestLoginRejectsBadRequests(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doJSON(t, handler, http.MethodPost, "/auth/login", map[string]string{"password": ""}, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty password, got %d", recorder.Code)
	}

	recorder = doJSON(t, handler, http.MethodPost, "/auth/login", map[string]string{"password": "wrong"}, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", recorder.Code)
	}
}

func TestProtectedRoutesRequireAuthorization(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doJSON(t, handler, http.MethodGet, "/notes", nil, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", recorder.Code)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/notes", nil, withBearer("garbage"))
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", recorder.Code)
	}
}

func TestSessionCookieGrantsAccess(t *testing.T) {
	handler := newTestHandler(t)
	_, cookie := login(t, handler)

	recorder := doJSON(t, handler, http.MethodGet, "/notes", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected cookie to grant access, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	handler := newTestHandler(t)
	_, cookie := login(t, handler)
	addCookie := func(r *http.Request) { r.AddCookie(cookie) }

	recorder := doJSON(t, handler, http.MethodPost, "/auth/logout", nil, addCookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("logout failed with %d", recorder.Code)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/notes", nil, addCookie)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked cookie rejected, got %d", recorder.Code)
	}
}

func TestNoteLifecycleOverHTTP(t *testing.T) {
	handler := newTestHandler(t)
	bearer, _ := login(t, handler)

	create := doJSON(t, handler, http.MethodPost, "/notes", map[string]interface{}{
		"type": "sermon", "title": "God So Loved", "content": "For God so loved the world",
		"book": "JHN", "start_chapter": 3, "start_verse": 16, "end_verse": 18,
		"inline_tags": []map[string]string{{"label": "Illustration", "excerpt": "world"}},
	}, withBearer(bearer))
	if create.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", create.Code, create.Body.String())
	}
	var created notePayload
	decodeBody(t, create, &created)
	if created.ID == "" || created.Title != "God So Loved" {
		t.Fatalf("unexpected create payload: %+v", created)
	}

	get := doJSON(t, handler, http.MethodGet, "/notes/"+created.ID, nil, withBearer(bearer))
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", get.Code)
	}
	var fetched notePayload
	decodeBody(t, get, &fetched)
	if len(fetched.InlineTags) != 1 || fetched.InlineTags[0].Label != "Illustration" {
		t.Fatalf("unexpected inline tags: %+v", fetched.InlineTags)
	}

	list := doJSON(t, handler, http.MethodGet, "/notes?book=JHN&chapter=3", nil, withBearer(bearer))
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", list.Code, list.Body.String())
	}
	var listed struct {
		Notes []notePayload `json:"notes"`
	}
	decodeBody(t, list, &listed)
	if len(listed.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(listed.Notes))
	}

	search := doJSON(t, handler, http.MethodGet, "/notes/search?q=loved", nil, withBearer(bearer))
	if search.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", search.Code, search.Body.String())
	}
	decodeBody(t, search, &listed)
	if len(listed.Notes) != 1 {
		t.Fatalf("expected search hit, got %d", len(listed.Notes))
	}

	del := doJSON(t, handler, http.MethodDelete, "/notes/"+created.ID, nil, withBearer(bearer))
	if del.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", del.Code)
	}

	missing := doJSON(t, handler, http.MethodGet, "/notes/"+created.ID, nil, withBearer(bearer))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", missing.Code)
	}
}

func TestServiceErrorsMapToStatuses(t *testing.T) {
	handler := newTestHandler(t)
	bearer, _ := login(t, handler)

	badKind := doJSON(t, handler, http.MethodPost, "/notes", map[string]interface{}{
		"type": "journal", "title": "x", "book": "JHN", "start_chapter": 3,
	}, withBearer(bearer))
	if badKind.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid kind, got %d: %s", badKind.Code, badKind.Body.String())
	}
	var failure struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	decodeBody(t, badKind, &failure)
	if failure.Error != "invalid_kind" || failure.Code != "notes.create.invalid_kind" {
		t.Fatalf("unexpected error payload: %+v", failure)
	}

	badChapter := doJSON(t, handler, http.MethodGet, "/notes?chapter=abc", nil, withBearer(bearer))
	if badChapter.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad chapter, got %d", badChapter.Code)
	}
}

func TestTheologyEndpointsOverHTTP(t *testing.T) {
	handler := newTestHandler(t)
	bearer, _ := login(t, handler)

	upsert := doJSON(t, handler, http.MethodPut, "/theology/entries/ch-32", map[string]interface{}{
		"kind": "chapter", "title": "The Doctrine of Election", "chapter_number": 32,
	}, withBearer(bearer))
	if upsert.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", upsert.Code, upsert.Body.String())
	}

	resolve := doJSON(t, handler, http.MethodGet, "/theology/resolve?token="+"%5B%5BST%3ACh32%5D%5D", nil, withBearer(bearer))
	if resolve.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resolve.Code, resolve.Body.String())
	}
	var resolved struct {
		Found bool                 `json:"found"`
		Entry theologyEntryPayload `json:"entry"`
	}
	decodeBody(t, resolve, &resolved)
	if !resolved.Found || resolved.Entry.ID != "ch-32" {
		t.Fatalf("unexpected resolve payload: %+v", resolved)
	}

	outline := doJSON(t, handler, http.MethodGet, "/theology/outline", nil, withBearer(bearer))
	if outline.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", outline.Code)
	}

	entry := doJSON(t, handler, http.MethodGet, "/theology/entries/ch-32", nil, withBearer(bearer))
	if entry.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", entry.Code, entry.Body.String())
	}
	var detail struct {
		Token string `json:"token"`
	}
	decodeBody(t, entry, &detail)
	if detail.Token != "[[ST:Ch32]]" {
		t.Fatalf("unexpected token %q", detail.Token)
	}
}

func TestStudyEndpointsOverHTTP(t *testing.T) {
	handler := newTestHandler(t)
	bearer, _ := login(t, handler)

	logged := doJSON(t, handler, http.MethodPost, "/study/sessions", map[string]string{
		"kind": "passage", "reference_id": "JHN 3",
	}, withBearer(bearer))
	if logged.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", logged.Code, logged.Body.String())
	}

	summary := doJSON(t, handler, http.MethodGet, "/study/summary?days=7", nil, withBearer(bearer))
	if summary.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", summary.Code)
	}
	var summarized struct {
		Total      int `json:"total"`
		WindowDays int `json:"window_days"`
	}
	decodeBody(t, summary, &summarized)
	if summarized.Total != 1 || summarized.WindowDays != 7 {
		t.Fatalf("unexpected summary: %+v", summarized)
	}
}

func TestBackupRoundTripOverHTTP(t *testing.T) {
	handler := newTestHandler(t)
	bearer, _ := login(t, handler)

	create := doJSON(t, handler, http.MethodPost, "/notes", map[string]interface{}{
		"type": "note", "title": "Keep me", "book": "GEN", "start_chapter": 1,
	}, withBearer(bearer))
	if create.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", create.Code)
	}

	export := doJSON(t, handler, http.MethodGet, "/backup/export", nil, withBearer(bearer))
	if export.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", export.Code)
	}
	var document notes.BackupDocument
	decodeBody(t, export, &document)
	if document.FormatVersion != notes.BackupFormatVersion || len(document.Notes) != 1 {
		t.Fatalf("unexpected export: %+v", document)
	}

	fresh := newTestHandler(t)
	freshBearer, _ := login(t, fresh)
	imported := doJSON(t, fresh, http.MethodPost, "/backup/import", document, withBearer(freshBearer))
	if imported.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", imported.Code, imported.Body.String())
	}
	var report notes.ImportReport
	decodeBody(t, imported, &report)
	if report.Notes.Inserted != 1 {
		t.Fatalf("unexpected import report: %+v", report)
	}
}
