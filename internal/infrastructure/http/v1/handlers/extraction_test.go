package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilanco/internal/domain/extraction"
	"bilanco/internal/infrastructure/http/v1/middleware"
)

type stubExtractor struct {
	result *extraction.RawExtractionResult
	err    error
}

func (s *stubExtractor) Extract(ctx context.Context, document io.Reader) (*extraction.RawExtractionResult, error) {
	return s.result, s.err
}

func extractionRouter(svc extraction.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h := NewExtractionHandler(NewBaseHandler(), svc)
	r.POST("/extractions", h.Extract)
	return r
}

func documentUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("document", "bilanco.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestExtract_PassesResultThrough(t *testing.T) {
	svc := &stubExtractor{result: &extraction.RawExtractionResult{
		Items: []extraction.RawLineItem{{Label: "Kasa", YearValues: map[string]string{"2024": "1.000,00"}}},
	}}
	router := extractionRouter(svc)

	body, contentType := documentUpload(t)
	req := httptest.NewRequest(http.MethodPost, "/extractions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got extraction.RawExtractionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Failed)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Kasa", got.Items[0].Label)
}

func TestExtract_OutageDegradesToEmptyResult(t *testing.T) {
	svc := &stubExtractor{err: errors.New("connection refused")}
	router := extractionRouter(svc)

	body, contentType := documentUpload(t)
	req := httptest.NewRequest(http.MethodPost, "/extractions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// The outage never surfaces as an HTTP error. The operator gets an
	// empty flagged result and can fall back to manual entry.
	require.Equal(t, http.StatusOK, rec.Code)

	var got extraction.RawExtractionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Failed)
	assert.True(t, got.Empty())
}

func TestExtract_MissingDocumentField(t *testing.T) {
	router := extractionRouter(&stubExtractor{})

	req := httptest.NewRequest(http.MethodPost, "/extractions", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}