package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chenghao-Wen/NoteTree/internal/api/middleware"
	"github.com/Chenghao-Wen/NoteTree/internal/auth"
	"github.com/Chenghao-Wen/NoteTree/internal/jobs"
	"github.com/Chenghao-Wen/NoteTree/internal/models"
	"github.com/Chenghao-Wen/NoteTree/internal/store"
)

type fakeSubmitter struct {
	notes      []*models.Note
	searches   []string
	submitErr  error
	searchErr  error
	db         store.DataStore
	nextFaiss  int64
	lastUserID string
}

func (f *fakeSubmitter) SubmitIndexingJob(ctx context.Context, userID string, in jobs.CreateNoteInput) (*models.Note, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.nextFaiss++
	note := &models.Note{
		ID:       ulid.Make().String(),
		UserID:   userID,
		FaissID:  f.nextFaiss,
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		ParentID: in.ParentID,
		Status:   models.NoteStatusPending,
	}
	if f.db != nil {
		if err := f.db.CreateNote(ctx, note); err != nil {
			return nil, err
		}
	}
	f.notes = append(f.notes, note)
	f.lastUserID = userID
	return note, nil
}

func (f *fakeSubmitter) SubmitSearchJob(_ context.Context, userID, query string) (*models.SearchJob, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.searches = append(f.searches, query)
	f.lastUserID = userID
	return &models.SearchJob{
		JobID:     "job-1",
		UserID:    userID,
		Query:     query,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

type testEnv struct {
	db        *store.SQLiteStore
	submitter *fakeSubmitter
	tokens    *auth.TokenService
	router    *chi.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	tokens := auth.NewTokenService("test-secret", time.Hour)
	submitter := &fakeSubmitter{db: db}
	h := NewHandler(db, nil, submitter, tokens, zerolog.Nop())

	r := chi.NewRouter()
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens))
		r.Post("/notes", h.CreateNote)
		r.Get("/notes", h.ListNotes)
		r.Get("/notes/{id}", h.GetNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Post("/search", h.Search)
	})

	return &testEnv{db: db, submitter: submitter, tokens: tokens, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email string) (userID, token string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Name:     "Tester",
		Email:    email,
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID, resp.Token
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Name:     "Ada",
		Email:    "Ada@Example.com",
		Password: "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "ada@example.com", resp.Email, "email is normalized")
	assert.NotEmpty(t, resp.Token)

	// The token is immediately usable
	claims, err := env.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, claims.UserID)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing email", RegisterRequest{Password: "longenough"}},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "longenough"}},
		{"short password", RegisterRequest{Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/auth/register", "", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "dup@example.com")

	rec := env.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "dup@example.com",
		Password: "longenough",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "login@example.com")

	rec := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "login@example.com",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err := env.tokens.Verify(resp.Token)
	assert.NoError(t, err)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "login@example.com")

	// Unknown email and wrong password are indistinguishable
	wrongPass := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "login@example.com",
		Password: "wrong-password",
	})
	unknown := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct horse battery",
	})
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrongPass.Body.String(), unknown.Body.String())
}

func TestCreateNote(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.register(t, "notes@example.com")

	rec := env.do(t, http.MethodPost, "/notes", token, CreateNoteRequest{
		Title:   "React Hooks",
		Content: "useEffect runs after render",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp CreateNoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, int64(1), resp.FaissID)
	assert.Equal(t, models.NoteStatusPending, resp.Status)

	assert.Equal(t, userID, env.submitter.lastUserID, "note is submitted under the caller's identity")
}

func TestCreateNoteValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "notes@example.com")

	longTitle := make([]byte, 201)
	for i := range longTitle {
		longTitle[i] = 'x'
	}

	tests := []struct {
		name string
		req  CreateNoteRequest
	}{
		{"missing title", CreateNoteRequest{Content: "body"}},
		{"whitespace title", CreateNoteRequest{Title: "   ", Content: "body"}},
		{"title too long", CreateNoteRequest{Title: string(longTitle), Content: "body"}},
		{"missing content", CreateNoteRequest{Title: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/notes", token, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, env.submitter.notes, "invalid requests never reach the submitter")
}

func TestCreateNoteRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/notes", "", CreateNoteRequest{Title: "t", Content: "c"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateNoteSubmitterFailure(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "notes@example.com")
	env.submitter.submitErr = errors.New("sequence allocator unavailable")

	rec := env.do(t, http.MethodPost, "/notes", token, CreateNoteRequest{Title: "t", Content: "c"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListNotes(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "owner@example.com")
	_, otherToken := env.register(t, "other@example.com")

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/notes", token, CreateNoteRequest{Title: "mine", Content: "body"})
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/notes", otherToken, CreateNoteRequest{Title: "theirs", Content: "body"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	list := env.do(t, http.MethodGet, "/notes", token, nil)
	require.Equal(t, http.StatusOK, list.Code)

	var resp NoteListResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	for _, n := range resp.Notes {
		assert.Equal(t, "mine", n.Title)
	}
}

func TestListNotesEmpty(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "empty@example.com")

	rec := env.do(t, http.MethodGet, "/notes", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"notes":[],"total":0}`, rec.Body.String())
}

func TestGetNoteOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "owner@example.com")
	_, otherToken := env.register(t, "other@example.com")

	created := env.do(t, http.MethodPost, "/notes", token, CreateNoteRequest{Title: "secret", Content: "body"})
	require.Equal(t, http.StatusAccepted, created.Code)
	var resp CreateNoteResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	own := env.do(t, http.MethodGet, "/notes/"+resp.ID, token, nil)
	assert.Equal(t, http.StatusOK, own.Code)

	foreign := env.do(t, http.MethodGet, "/notes/"+resp.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, foreign.Code)

	missing := env.do(t, http.MethodGet, "/notes/"+ulid.Make().String(), token, nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestDeleteNote(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "owner@example.com")

	created := env.do(t, http.MethodPost, "/notes", token, CreateNoteRequest{Title: "doomed", Content: "body"})
	require.Equal(t, http.StatusAccepted, created.Code)
	var resp CreateNoteResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	del := env.do(t, http.MethodDelete, "/notes/"+resp.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, del.Code)

	gone := env.do(t, http.MethodGet, "/notes/"+resp.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "search@example.com")

	rec := env.do(t, http.MethodPost, "/search", token, SearchRequest{Query: "React State Management"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, "ACCEPTED", resp.Status)
	assert.Equal(t, []string{"React State Management"}, env.submitter.searches)
}

func TestSearchValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "search@example.com")

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'q'
	}

	for _, query := range []string{"", " ", "x", string(long)} {
		rec := env.do(t, http.MethodPost, "/search", token, SearchRequest{Query: query})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", query)
	}
	assert.Empty(t, env.submitter.searches)
}

func TestSearchBoundsCountCharacters(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "search@example.com")

	// 200 CJK characters is 600 bytes but well inside the 500-char limit
	cjk := strings.Repeat("知", 200)
	rec := env.do(t, http.MethodPost, "/search", token, SearchRequest{Query: cjk})
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	// A single multibyte character is still below the 2-char minimum
	rec = env.do(t, http.MethodPost, "/search", token, SearchRequest{Query: "知"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/search", token, SearchRequest{Query: strings.Repeat("知", 501)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateNoteTitleCountsCharacters(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "notes@example.com")

	rec := env.do(t, http.MethodPost, "/notes", token, CreateNoteRequest{
		Title:   strings.Repeat("木", 200),
		Content: "body",
	})
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/notes", token, CreateNoteRequest{
		Title:   strings.Repeat("木", 201),
		Content: "body",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchSubmitFailure(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "search@example.com")
	env.submitter.searchErr = jobs.ErrEnqueueFailure

	rec := env.do(t, http.MethodPost, "/search", token, SearchRequest{Query: "valid query"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
