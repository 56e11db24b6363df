package httpadapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/plant-id-assistant/internal/config"
	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

type fakeIdentifier struct {
	lastReq domain.IdentifyRequest
	calls   int
	result  *domain.IdentificationResult
	err     error
}

func (f *fakeIdentifier) Identify(_ context.Context, req domain.IdentifyRequest) (*domain.IdentificationResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCareAdvisor struct {
	lastReq domain.CareRequest
	guide   *domain.CareGuide
	err     error
}

func (f *fakeCareAdvisor) CareGuide(_ context.Context, req domain.CareRequest) (*domain.CareGuide, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.guide, nil
}

type fakeHistory struct {
	userID string
	page   int
	limit  int
	id     string

	records map[string]domain.HistoryRecord
	images  map[string][]byte
}

func (f *fakeHistory) ListHistory(_ context.Context, userID string, page, limit int) (*domain.HistoryPage, error) {
	f.userID, f.page, f.limit = userID, page, limit
	out := &domain.HistoryPage{CurrentPage: page, TotalPages: 1}
	for _, record := range f.records {
		out.Records = append(out.Records, record)
	}
	out.Total = len(out.Records)
	return out, nil
}

func (f *fakeHistory) GetHistory(_ context.Context, userID, id string) (*domain.HistoryRecord, error) {
	f.userID, f.id = userID, id
	record, ok := f.records[id]
	if !ok || record.UserID != userID {
		return nil, domain.WrapError(domain.ErrRecordNotFound, "get history", fmt.Errorf("record %s", id))
	}
	return &record, nil
}

func (f *fakeHistory) OpenHistoryImage(_ context.Context, userID, id string) (io.ReadCloser, error) {
	f.userID, f.id = userID, id
	image, ok := f.images[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrRecordNotFound, "open history image", fmt.Errorf("record %s", id))
	}
	return io.NopCloser(bytes.NewReader(image)), nil
}

type fakeIdentity map[string]string

func (f fakeIdentity) ResolveUser(_ context.Context, token string) (string, error) {
	userID, ok := f[token]
	if !ok {
		return "", domain.WrapError(domain.ErrUnauthorized, "resolve user", errors.New("unknown session"))
	}
	return userID, nil
}

type testDeps struct {
	identifier *fakeIdentifier
	care       *fakeCareAdvisor
	history    *fakeHistory
}

func newTestRouter(cfg config.Config) (http.Handler, *testDeps) {
	deps := &testDeps{
		identifier: &fakeIdentifier{result: &domain.IdentificationResult{
			ID:     "res-1",
			Source: domain.SourcePrimary,
			Suggestions: []domain.Suggestion{
				{Rank: 1, Label: "Monstera deliciosa", Probability: 0.93},
			},
		}},
		care: &fakeCareAdvisor{guide: &domain.CareGuide{
			Light: domain.CareAspect{Level: "bright indirect", Description: "Keep out of direct sun.", Tips: []string{"rotate monthly"}},
		}},
		history: &fakeHistory{
			records: map[string]domain.HistoryRecord{
				"rec-1": {ID: "rec-1", UserID: "user-7", CommonName: "Monstera"},
			},
			images: map[string][]byte{"rec-1": jpegHeader},
		},
	}
	if cfg.HistoryPageLimit == 0 {
		cfg.HistoryPageLimit = 10
	}
	rt := NewRouter(cfg, deps.identifier, deps.care, deps.history, fakeIdentity{"tok-7": "user-7"})
	return rt.Handler(), deps
}

func identifyBody(t *testing.T, image string) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"image": image})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestIdentifyAcceptsRawBase64(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/plants/identify", identifyBody(t, base64.StdEncoding.EncodeToString(jpegHeader)))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.identifier.lastReq.MimeType != "image/jpeg" {
		t.Fatalf("expected sniffed image/jpeg, got %q", deps.identifier.lastReq.MimeType)
	}
	if !bytes.Equal(deps.identifier.lastReq.Image, jpegHeader) {
		t.Fatalf("decoded image mismatch")
	}
	if deps.identifier.lastReq.UserID != "" {
		t.Fatalf("expected anonymous request, got user %q", deps.identifier.lastReq.UserID)
	}

	var result domain.IdentificationResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ID != "res-1" || len(result.Suggestions) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestIdentifyAcceptsDataURLAndResolvesUser(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})

	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString(jpegHeader)
	req := httptest.NewRequest(http.MethodPost, "/v1/plants/identify", identifyBody(t, image))
	req.Header.Set("Authorization", "Bearer tok-7")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.identifier.lastReq.MimeType != "image/png" {
		t.Fatalf("expected declared image/png, got %q", deps.identifier.lastReq.MimeType)
	}
	if deps.identifier.lastReq.UserID != "user-7" {
		t.Fatalf("expected user-7, got %q", deps.identifier.lastReq.UserID)
	}
}

func TestIdentifyRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{"},
		{name: "missing image", body: `{"image":""}`},
		{name: "bad base64", body: `{"image":"!!not-base64!!"}`},
		{name: "not an image", body: fmt.Sprintf(`{"image":%q}`, base64.StdEncoding.EncodeToString([]byte("hello world")))},
		{name: "data url without base64", body: `{"image":"data:image/png,abc"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler, deps := newTestRouter(config.Config{})

			req := httptest.NewRequest(http.MethodPost, "/v1/plants/identify", strings.NewReader(tc.body))
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
			body := decodeBody(t, res)
			if body["error"] != "identification failed" || body["detail"] == "" {
				t.Fatalf("unexpected error body: %v", body)
			}
			if deps.identifier.calls != 0 {
				t.Fatalf("identifier must not be called")
			}
		})
	}
}

func TestIdentifyMapsTemporaryErrorTo503(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.identifier.err = domain.WrapError(domain.ErrTemporary, "classify", errors.New("upstream timeout"))

	req := httptest.NewRequest(http.MethodPost, "/v1/plants/identify", identifyBody(t, base64.StdEncoding.EncodeToString(jpegHeader)))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if !strings.Contains(fmt.Sprint(body["detail"]), "upstream timeout") {
		t.Fatalf("expected upstream detail, got %v", body)
	}
}

func TestIdentifyRequiresAuthWhenConfigured(t *testing.T) {
	handler, deps := newTestRouter(config.Config{AuthRequired: true})

	req := httptest.NewRequest(http.MethodPost, "/v1/plants/identify", identifyBody(t, base64.StdEncoding.EncodeToString(jpegHeader)))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if deps.identifier.calls != 0 {
		t.Fatalf("identifier must not be called without a user")
	}
}

func TestUnknownTokenIsRejected(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/plants/identify", identifyBody(t, base64.StdEncoding.EncodeToString(jpegHeader)))
	req.Header.Set("Authorization", "Bearer expired")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestCareGuide(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/plants/care", strings.NewReader(`{"common_name":"Monstera","scientific_name":"Monstera deliciosa"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.care.lastReq.ScientificName != "Monstera deliciosa" {
		t.Fatalf("unexpected care request: %+v", deps.care.lastReq)
	}
	var guide domain.CareGuide
	if err := json.Unmarshal(res.Body.Bytes(), &guide); err != nil {
		t.Fatalf("decode guide: %v", err)
	}
	if guide.Light.Level != "bright indirect" {
		t.Fatalf("unexpected guide: %+v", guide)
	}
}

func TestCareGuideErrors(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/plants/care", strings.NewReader("nope")))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", res.Code)
	}

	deps.care.err = domain.WrapError(domain.ErrNotConfigured, "care guide", errors.New("generator disabled"))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/plants/care", strings.NewReader(`{"common_name":"Monstera"}`)))
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unconfigured generator, got %d", res.Code)
	}
}

func TestHistoryRequiresAuthentication(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})

	for _, path := range []string{"/v1/plants/history", "/v1/plants/history/rec-1", "/v1/plants/history/rec-1/image"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, res.Code)
		}
	}
}

func TestListHistoryPassesPagination(t *testing.T) {
	handler, deps := newTestRouter(config.Config{HistoryPageLimit: 25})

	req := httptest.NewRequest(http.MethodGet, "/v1/plants/history?page=2", nil)
	req.Header.Set("Authorization", "Bearer tok-7")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.history.userID != "user-7" || deps.history.page != 2 || deps.history.limit != 25 {
		t.Fatalf("unexpected pagination: user=%q page=%d limit=%d", deps.history.userID, deps.history.page, deps.history.limit)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/plants/history?limit=abc", nil)
	req.Header.Set("Authorization", "Bearer tok-7")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid limit, got %d", res.Code)
	}
}

func TestGetHistory(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/plants/history/rec-1", nil)
	req.Header.Set("Authorization", "Bearer tok-7")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if deps.history.id != "rec-1" {
		t.Fatalf("expected path id rec-1, got %q", deps.history.id)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/plants/history/missing", nil)
	req.Header.Set("Authorization", "Bearer tok-7")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestHistoryImageStreamsCapture(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/plants/history/rec-1/image", nil)
	req.Header.Set("Authorization", "Bearer tok-7")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", got)
	}
	if !bytes.Equal(res.Body.Bytes(), jpegHeader) {
		t.Fatalf("streamed image mismatch")
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), want: http.StatusBadRequest},
		{err: domain.WrapError(domain.ErrUnauthorized, "op", errors.New("x")), want: http.StatusUnauthorized},
		{err: domain.WrapError(domain.ErrRecordNotFound, "op", errors.New("x")), want: http.StatusNotFound},
		{err: domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
