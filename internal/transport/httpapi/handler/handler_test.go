package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
	"github.com/kislikjeka/caseledger/internal/statement"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

// MockReportService is a mock implementation of ReportServiceInterface
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Report(ctx context.Context, kind casefile.ReportKind, caseID uuid.UUID, opts casefile.ReportOptions) (*casefile.Report, error) {
	args := m.Called(ctx, kind, caseID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*casefile.Report), args.Error(1)
}

func (m *MockReportService) Invalidate(ctx context.Context, caseID uuid.UUID) error {
	args := m.Called(ctx, caseID)
	return args.Error(0)
}

type fakeDistributionService struct {
	result  *distribution.Result
	decls   map[uuid.UUID]*distribution.Declaration
	err     error
	lastReq distribution.Request
	deleted bool
	actor   string
}

func newFakeDistributionService() *fakeDistributionService {
	return &fakeDistributionService{decls: map[uuid.UUID]*distribution.Declaration{}}
}

func (f *fakeDistributionService) Preview(_ context.Context, req distribution.Request) (*distribution.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeDistributionService) Declare(_ context.Context, req distribution.Request) (*distribution.Declaration, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	d := distribution.NewDeclaration(req.CaseID, f.result, req.DeclaredBy, time.Now())
	f.decls[d.ID] = d
	return d, nil
}

func (f *fakeDistributionService) List(_ context.Context, caseID uuid.UUID) ([]*distribution.Declaration, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*distribution.Declaration
	for _, d := range f.decls {
		if d.CaseID == caseID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDistributionService) Get(_ context.Context, caseID, id uuid.UUID) (*distribution.Declaration, error) {
	d, ok := f.decls[id]
	if !ok || d.CaseID != caseID {
		return nil, distribution.ErrDeclarationNotFound
	}
	return d, nil
}

func (f *fakeDistributionService) Delete(_ context.Context, caseID, id uuid.UUID, confirm bool, actor string) error {
	if !confirm {
		return distribution.ErrDeletionNotConfirmed
	}
	if _, err := f.Get(context.Background(), caseID, id); err != nil {
		return err
	}
	delete(f.decls, id)
	f.deleted = true
	f.actor = actor
	return nil
}

func newComposer(t *testing.T) *statement.Composer {
	t.Helper()
	c, err := statement.NewComposer(statement.DefaultLayout())
	require.NoError(t, err)
	return c
}

func newRouter(t *testing.T, reports ReportServiceInterface, dists DistributionServiceInterface) *chi.Mux {
	t.Helper()
	rh := NewReportHandler(reports, newComposer(t), logger.Discard())
	dh := NewDistributionHandler(dists, logger.Discard())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), logger.SubjectKey, "practitioner@example.com")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/reports/{kind}", rh.ComputeReport)
	r.Get("/cases/{caseID}/statement", rh.GetCaseReport(casefile.ReportStatement))
	r.Get("/cases/{caseID}/vat", rh.GetCaseReport(casefile.ReportVAT))
	r.Post("/cases/{caseID}/invalidate", rh.InvalidateCase)
	r.Post("/distributions/preview", dh.Calculate)
	r.Get("/cases/{caseID}/distributions", dh.List)
	r.Post("/cases/{caseID}/distributions", dh.Declare)
	r.Post("/cases/{caseID}/distributions/preview", dh.PreviewCase)
	r.Get("/cases/{caseID}/distributions/{id}", dh.Get)
	r.Delete("/cases/{caseID}/distributions/{id}", dh.Delete)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func testResult() *distribution.Result {
	return &distribution.Result{
		DistributionType:  distribution.CreditorUnsecured,
		SumToDistribute:   decimal.NewFromInt(1000),
		SumToRetain:       decimal.NewFromInt(100),
		NetDistribution:   decimal.NewFromInt(900),
		TotalClaims:       decimal.NewFromInt(4000),
		DividendRate:      decimal.RequireFromString("0.225"),
		DividendRateLabel: "22.50p",
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{distribution.ErrDeclarationNotFound, http.StatusNotFound},
		{casefile.ErrCaseNotFound, http.StatusNotFound},
		{distribution.ErrDeletionNotConfirmed, http.StatusConflict},
		{distribution.ErrInvalidDistribution, http.StatusUnprocessableEntity},
		{distribution.ErrNoEligibleClaims, http.StatusUnprocessableEntity},
		{distribution.ErrInvalidDistributionType, http.StatusUnprocessableEntity},
		{distribution.ErrMissingCaseID, http.StatusUnprocessableEntity},
		{casefile.ErrInvalidReportKind, http.StatusUnprocessableEntity},
		{ledger.ErrPeriodReversed, http.StatusUnprocessableEntity},
		{ledger.ErrPeriodBeforeInception, http.StatusUnprocessableEntity},
		{ledger.ErrPeriodStartsEarly, http.StatusUnprocessableEntity},
		{errors.Join(casefile.ErrInvalidSnapshot, casefile.ErrMissingAppointment), http.StatusUnprocessableEntity},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestComputeReport_Statement(t *testing.T) {
	raw, err := os.ReadFile("../../../casefile/testdata/snapshot.json")
	require.NoError(t, err)

	r := newRouter(t, &MockReportService{}, newFakeDistributionService())
	rec := do(t, r, http.MethodPost, "/reports/statement", map[string]interface{}{
		"snapshot":  json.RawMessage(raw),
		"period_to": "2024-12-31",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report casefile.Report
	decodeBody(t, rec, &report)
	assert.Equal(t, casefile.ReportStatement, report.Kind)
	assert.NotNil(t, report.Statement)
	assert.Nil(t, report.TrialBalance)
	assert.Equal(t, "2024-12-31", report.Window.PeriodTo.Format(dateLayout))
}

func TestComputeReport_TrialBalance(t *testing.T) {
	raw, err := os.ReadFile("../../../casefile/testdata/snapshot.json")
	require.NoError(t, err)

	r := newRouter(t, &MockReportService{}, newFakeDistributionService())
	rec := do(t, r, http.MethodPost, "/reports/trial-balance", map[string]interface{}{
		"snapshot":  json.RawMessage(raw),
		"period_to": "2024-12-31",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report casefile.Report
	decodeBody(t, rec, &report)
	assert.Equal(t, casefile.ReportTrialBalance, report.Kind)
	require.NotNil(t, report.TrialBalance)
	assert.NotEmpty(t, report.TrialBalance.Rows)
}

func TestComputeReport_Errors(t *testing.T) {
	raw, err := os.ReadFile("../../../casefile/testdata/snapshot.json")
	require.NoError(t, err)
	r := newRouter(t, &MockReportService{}, newFakeDistributionService())

	t.Run("unknown kind", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/reports/balance-sheet", map[string]interface{}{"snapshot": json.RawMessage(raw)})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing snapshot", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/reports/statement", map[string]interface{}{"period_to": "2024-12-31"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "snapshot")
	})

	t.Run("bad date", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/reports/vat", map[string]interface{}{
			"snapshot":  json.RawMessage(raw),
			"period_to": "31/12/2024",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "period_to")
	})

	t.Run("reversed period", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/reports/statement", map[string]interface{}{
			"snapshot":    json.RawMessage(raw),
			"period_from": "2024-06-01",
			"period_to":   "2024-01-01",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/reports/statement", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetCaseReport(t *testing.T) {
	caseID := uuid.New()
	wantOpts := casefile.ReportOptions{
		PeriodFrom:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodTo:          time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		BankAccount:       "Current",
		IncludeUnapproved: true,
	}

	svc := &MockReportService{}
	svc.On("Report", mock.Anything, casefile.ReportStatement, caseID, wantOpts).
		Return(&casefile.Report{Kind: casefile.ReportStatement, CaseID: caseID}, nil)
	r := newRouter(t, svc, newFakeDistributionService())

	rec := do(t, r, http.MethodGet, "/cases/"+caseID.String()+"/statement?from=2024-01-01&to=2024-03-31&account=Current&include_unapproved=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Warning"))

	var report casefile.Report
	decodeBody(t, rec, &report)
	assert.Equal(t, caseID, report.CaseID)
	svc.AssertExpectations(t)
}

func TestGetCaseReport_CarriesCaseIDInContext(t *testing.T) {
	caseID := uuid.New()
	svc := &MockReportService{}
	svc.On("Report", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Value(logger.CaseIDKey) == caseID.String()
	}), casefile.ReportVAT, caseID, casefile.ReportOptions{}).
		Return(&casefile.Report{Kind: casefile.ReportVAT}, nil)

	rec := do(t, newRouter(t, svc, newFakeDistributionService()), http.MethodGet, "/cases/"+caseID.String()+"/vat", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetCaseReport_Stale(t *testing.T) {
	svc := &MockReportService{}
	svc.On("Report", mock.Anything, casefile.ReportVAT, mock.Anything, casefile.ReportOptions{}).
		Return(&casefile.Report{Stale: true}, nil)
	r := newRouter(t, svc, newFakeDistributionService())

	rec := do(t, r, http.MethodGet, "/cases/"+uuid.NewString()+"/vat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Warning"), "Stale")
}

func TestGetCaseReport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"invalid case id", "/cases/not-a-uuid/statement", nil, http.StatusBadRequest},
		{"invalid flag", "/cases/" + uuid.NewString() + "/statement?include_unapproved=maybe", nil, http.StatusBadRequest},
		{"invalid date", "/cases/" + uuid.NewString() + "/statement?from=yesterday", nil, http.StatusBadRequest},
		{"case not found", "/cases/" + uuid.NewString() + "/statement", casefile.ErrCaseNotFound, http.StatusNotFound},
		{"source failure", "/cases/" + uuid.NewString() + "/statement", errors.New("dial tcp: refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockReportService{}
			if tt.err != nil {
				svc.On("Report", mock.Anything, casefile.ReportStatement, mock.Anything, mock.Anything).Return(nil, tt.err)
			}
			rec := do(t, newRouter(t, svc, newFakeDistributionService()), http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "dial tcp")
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestInvalidateCase(t *testing.T) {
	caseID := uuid.New()
	svc := &MockReportService{}
	svc.On("Invalidate", mock.Anything, caseID).Return(nil)
	r := newRouter(t, svc, newFakeDistributionService())

	rec := do(t, r, http.MethodPost, "/cases/"+caseID.String()+"/invalidate", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestCalculate(t *testing.T) {
	r := newRouter(t, &MockReportService{}, newFakeDistributionService())
	claims := []distribution.Claim{
		{ID: uuid.New(), CreditorType: distribution.CreditorUnsecured, CreditorName: "Acme", BalanceSubmitted: decimal.NewFromInt(1000)},
		{ID: uuid.New(), CreditorType: distribution.CreditorUnsecured, CreditorName: "HMRC", BalanceSubmitted: decimal.NewFromInt(3000)},
		{ID: uuid.New(), CreditorType: distribution.CreditorPreferential, CreditorName: "Staff", BalanceSubmitted: decimal.NewFromInt(500)},
	}

	rec := do(t, r, http.MethodPost, "/distributions/preview", map[string]interface{}{
		"distribution_type": "unsecured",
		"sum_to_distribute": "£1,000.00",
		"sum_to_retain":     "100",
		"claims":            claims,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result distribution.Result
	decodeBody(t, rec, &result)
	assert.Equal(t, "22.50p", result.DividendRateLabel)
	assert.Equal(t, "900", result.NetDistribution.String())
	require.Len(t, result.Lines, 2)
	assert.Equal(t, "900", result.TotalPayments().String())
}

func TestCalculate_Errors(t *testing.T) {
	claims := []distribution.Claim{
		{ID: uuid.New(), CreditorType: distribution.CreditorUnsecured, CreditorName: "Acme", BalanceSubmitted: decimal.NewFromInt(1000)},
	}
	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"unknown type", map[string]interface{}{"distribution_type": "equity", "sum_to_distribute": "10", "claims": claims}, http.StatusBadRequest},
		{"missing sum", map[string]interface{}{"distribution_type": "unsecured", "claims": claims}, http.StatusBadRequest},
		{"bad amount", map[string]interface{}{"distribution_type": "unsecured", "sum_to_distribute": "ten", "claims": claims}, http.StatusBadRequest},
		{"negative", map[string]interface{}{"distribution_type": "unsecured", "sum_to_distribute": "-10", "claims": claims}, http.StatusUnprocessableEntity},
		{"nothing to distribute", map[string]interface{}{"distribution_type": "unsecured", "sum_to_distribute": "100", "sum_to_retain": "100", "claims": claims}, http.StatusUnprocessableEntity},
		{"no eligible claims", map[string]interface{}{"distribution_type": "preferential", "sum_to_distribute": "100", "claims": claims}, http.StatusUnprocessableEntity},
	}
	r := newRouter(t, &MockReportService{}, newFakeDistributionService())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/distributions/preview", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestPreviewCase(t *testing.T) {
	svc := newFakeDistributionService()
	svc.result = testResult()
	r := newRouter(t, &MockReportService{}, svc)
	caseID := uuid.New()

	rec := do(t, r, http.MethodPost, "/cases/"+caseID.String()+"/distributions/preview", map[string]string{
		"distribution_type": "unsecured",
		"sum_to_distribute": "1000",
		"sum_to_retain":     "100",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, caseID, svc.lastReq.CaseID)
	assert.Empty(t, svc.lastReq.DeclaredBy)
	assert.True(t, svc.lastReq.SumToRetain.Equal(decimal.NewFromInt(100)))
}

func TestDistributionLifecycle(t *testing.T) {
	svc := newFakeDistributionService()
	svc.result = testResult()
	r := newRouter(t, &MockReportService{}, svc)
	caseID := uuid.New()
	base := "/cases/" + caseID.String() + "/distributions"

	rec := do(t, r, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var empty DistributionListResponse
	decodeBody(t, rec, &empty)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Declarations)

	rec = do(t, r, http.MethodPost, base, map[string]string{
		"distribution_type": "unsecured",
		"sum_to_distribute": "1000",
		"sum_to_retain":     "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var decl distribution.Declaration
	decodeBody(t, rec, &decl)
	assert.Equal(t, "practitioner@example.com", decl.DeclaredBy)
	assert.Equal(t, "22.50p", decl.DividendRateLabel)

	rec = do(t, r, http.MethodGet, base+"/"+decl.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, base, nil)
	var list DistributionListResponse
	decodeBody(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	rec = do(t, r, http.MethodDelete, base+"/"+decl.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, svc.deleted)

	rec = do(t, r, http.MethodDelete, base+"/"+decl.ID.String()+"?confirm=true", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "practitioner@example.com", svc.actor)

	rec = do(t, r, http.MethodGet, base+"/"+decl.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDistribution_BadIDs(t *testing.T) {
	r := newRouter(t, &MockReportService{}, newFakeDistributionService())

	rec := do(t, r, http.MethodGet, "/cases/nope/distributions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/cases/"+uuid.NewString()+"/distributions/nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodDelete, "/cases/"+uuid.NewString()+"/distributions/"+uuid.NewString()+"?confirm=perhaps", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	healthy := NewHealthHandler(map[string]Pinger{
		"database": PingerFunc(func(context.Context) error { return nil }),
	})
	rec := httptest.NewRecorder()
	healthy.GetReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	degraded := NewHealthHandler(map[string]Pinger{
		"database": PingerFunc(func(context.Context) error { return nil }),
		"redis":    PingerFunc(func(context.Context) error { return errors.New("refused") }),
	})
	rec = httptest.NewRecorder()
	degraded.GetReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis not ready")

	rec = httptest.NewRecorder()
	degraded.GetHealthDetailed(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["database"])

	rec = httptest.NewRecorder()
	GetHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
