package resumes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-screening/internal/shared/auth"
	"resume-screening/internal/shared/server/middleware"
)

type fakeRetrier struct {
	repo Repo
	err  error
}

func (f *fakeRetrier) Retry(ctx context.Context, id, _ string) (Resume, error) {
	if f.err != nil {
		return Resume{}, f.err
	}
	return f.repo.GetByID(ctx, id)
}

func newTestRouter(t *testing.T, f fixture, retrier Retrier) (*gin.Engine, func(string) string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "resumes-secret")

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Auth())
	NewHandler(f.svc, retrier).RegisterRoutes(r.Group("/api/v1"))

	return r, func(userID string) string {
		token, err := auth.SignJWT(userID, "", "")
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func doUpload(r http.Handler, jobID, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+jobID+"/resumes", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func doJSON(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestUploadAndStatusEndpoints(t *testing.T) {
	f := newFixture(t)
	r, tokenFor := newTestRouter(t, f, &fakeRetrier{repo: f.repo})
	owner := tokenFor("owner")

	body, ct := multipartBody(t, "file", "cv.txt", []byte("Jane Doe, Go engineer"))
	resp := doUpload(r, f.job.ID, owner, body, ct)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created Resume
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusPending || created.JobID != f.job.ID {
		t.Fatalf("unexpected created resume: %+v", created)
	}

	resp = doJSON(r, http.MethodGet, "/api/v1/resumes/"+created.ID, owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("get expected 200, got %d", resp.Code)
	}
	resp = doJSON(r, http.MethodGet, "/api/v1/resumes/"+created.ID, tokenFor("stranger"))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("stranger get expected 404, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodGet, "/api/v1/jobs/"+f.job.ID+"/resumes", owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("list expected 200, got %d", resp.Code)
	}
	var page struct {
		Items []Resume `json:"items"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil || len(page.Items) != 1 {
		t.Fatalf("list decode: %v %+v", err, page)
	}
}

func TestUploadErrors(t *testing.T) {
	f := newFixture(t)
	r, tokenFor := newTestRouter(t, f, &fakeRetrier{repo: f.repo})
	owner := tokenFor("owner")

	body, ct := multipartBody(t, "", "", nil)
	if resp := doUpload(r, f.job.ID, owner, body, ct); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing file expected 400, got %d", resp.Code)
	}

	body, ct = multipartBody(t, "file", "cv.txt", []byte("text"))
	if resp := doUpload(r, "missing-job", owner, body, ct); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown job expected 404, got %d", resp.Code)
	}

	body, ct = multipartBody(t, "file", "cv.txt", []byte("text"))
	if resp := doUpload(r, f.job.ID, tokenFor("stranger"), body, ct); resp.Code != http.StatusNotFound {
		t.Fatalf("foreign job expected 404, got %d", resp.Code)
	}
}

func TestRetryEndpointMapsConflict(t *testing.T) {
	f := newFixture(t)
	retrier := &fakeRetrier{repo: f.repo}
	r, tokenFor := newTestRouter(t, f, retrier)
	owner := tokenFor("owner")

	body, ct := multipartBody(t, "file", "cv.txt", []byte("text"))
	resp := doUpload(r, f.job.ID, owner, body, ct)
	var created Resume
	_ = json.Unmarshal(resp.Body.Bytes(), &created)

	retrier.err = ErrStatusConflict
	resp = doJSON(r, http.MethodPost, "/api/v1/resumes/"+created.ID+"/retry", owner)
	if resp.Code != http.StatusConflict {
		t.Fatalf("retry conflict expected 409, got %d", resp.Code)
	}

	retrier.err = nil
	resp = doJSON(r, http.MethodPost, "/api/v1/resumes/"+created.ID+"/retry", owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("retry expected 200, got %d", resp.Code)
	}

	resp = doJSON(r, http.MethodPost, "/api/v1/resumes/"+created.ID+"/retry", tokenFor("stranger"))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("stranger retry expected 404, got %d", resp.Code)
	}
}
