package certification

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/clock"
)

func multipartBody(t *testing.T, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="fire-safety.pdf"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(content)
	w.Close()
	return body, w.FormDataContentType()
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h := NewHandler(newTestEnv().svc)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.Get(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_UploadDocument_MissingFile(t *testing.T) {
	env := newTestEnv()
	cert := env.addCert(t, clock.NewDate(2026, 1, 1), nil)
	h := NewHandler(env.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(nil))
	req.Header.Set(echo.HeaderContentType, echo.MIMEMultipartForm+"; boundary=x")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cert.ID.String())

	err := h.UploadDocument(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_UploadAndDownloadDocument(t *testing.T) {
	env := newTestEnv()
	cert := env.addCert(t, clock.NewDate(2026, 1, 1), nil)
	h := NewHandler(env.svc)
	e := echo.New()

	body, ct := multipartBody(t, "application/pdf", []byte("%PDF-1.4 certificate"))
	req := httptest.NewRequest(http.MethodPut, "/", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cert.ID.String())
	if err := h.UploadDocument(c); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(cert.ID.String())
	if err := h.Document(c); err != nil {
		t.Fatalf("download: %v", err)
	}
	if rec.Body.String() != "%PDF-1.4 certificate" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", got)
	}
}

func TestHandler_UploadDocument_RejectsContentType(t *testing.T) {
	env := newTestEnv()
	cert := env.addCert(t, clock.NewDate(2026, 1, 1), nil)
	h := NewHandler(env.svc)
	e := echo.New()

	body, ct := multipartBody(t, "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPut, "/", body)
	req.Header.Set(echo.HeaderContentType, ct)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(cert.ID.String())

	err := h.UploadDocument(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %v", err)
	}
}
