package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/infra/metrics"
	"github.com/kislikjeka/caseledger/internal/statement"
	"github.com/kislikjeka/caseledger/internal/transport/httpapi/handler"
	"github.com/kislikjeka/caseledger/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

const caseID = "6f1c2a7e-3b0d-4f51-9a3e-1d2c3b4a5f60"

type testServer struct {
	*httptest.Server
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()

	snap, err := casefile.ReadSnapshotFile("../../casefile/testdata/snapshot.json")
	require.NoError(t, err)

	composer, err := statement.NewComposer(statement.DefaultLayout())
	require.NoError(t, err)

	reg := metrics.New(nil)
	reports := casefile.NewService(casefile.NewStaticSource(snap), composer, nil, reg, log)
	dists := distribution.NewService(distribution.NewMemoryRepository(), reports, nil, reg, log)

	jwtService := middleware.NewJWTService("router-test-secret")
	token, err := jwtService.GenerateToken("practitioner@example.com", time.Hour)
	require.NoError(t, err)

	r := NewRouter(Config{
		Logger:              log,
		AllowedOrigins:      []string{"http://localhost:3000"},
		ReportHandler:       handler.NewReportHandler(reports, composer, log),
		DistributionHandler: handler.NewDistributionHandler(dists, log),
		HealthHandler:       handler.NewHealthHandler(map[string]handler.Pinger{}),
		Metrics:             reg,
		MetricsHandler:      reg.Handler(),
		JWTMiddleware:       middleware.JWTMiddleware(jwtService),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, auth bool) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_PublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/health/detailed"} {
		resp := s.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"), path)
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/v1/cases/"+caseID+"/statement", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/cases/"+caseID+"/statement?to=2024-12-31", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_CaseReports(t *testing.T) {
	s := newTestServer(t)

	for _, kind := range []string{"statement", "trial-balance", "vat"} {
		resp := s.do(t, http.MethodGet, "/api/v1/cases/"+caseID+"/"+kind+"?to=2024-12-31", nil, true)
		require.Equal(t, http.StatusOK, resp.StatusCode, kind)

		var report casefile.Report
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		assert.Equal(t, caseID, report.CaseID.String())
	}

	resp := s.do(t, http.MethodGet, "/api/v1/cases/00000000-0000-4000-8000-000000000000/statement", nil, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_DeclareAndDelete(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/cases/" + caseID + "/distributions"

	resp := s.do(t, http.MethodPost, base, map[string]string{
		"distribution_type": "unsecured",
		"sum_to_distribute": "500",
	}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var decl distribution.Declaration
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decl))
	assert.Equal(t, "50.00p", decl.DividendRateLabel)
	assert.Equal(t, "practitioner@example.com", decl.DeclaredBy)
	assert.Len(t, decl.Lines, 2)
	assert.Len(t, decl.Inactive, 1)

	resp = s.do(t, http.MethodDelete, base+"/"+decl.ID.String(), nil, true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, base+"/"+decl.ID.String()+"?confirm=true", nil, true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodGet, base+"/"+decl.ID.String(), nil, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_MetricsUseRoutePatterns(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/api/v1/cases/"+caseID+"/vat?to=2024-12-31", nil, true)

	resp := s.do(t, http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `route="/api/v1/cases/{caseID}/vat"`)
	assert.False(t, strings.Contains(text, caseID), "metrics must not carry raw case ids")
	assert.Contains(t, text, "caseledger_report_built_total")
}
