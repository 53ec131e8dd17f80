package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/oikonomos/ledger-service/internal/app"
	"github.com/oikonomos/ledger-service/internal/auth"
	"github.com/oikonomos/ledger-service/internal/domain"
	"github.com/oikonomos/ledger-service/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@oikonomos.local"
	adminPassword = "ChangeMe123!"
)

type apiFixture struct {
	server *httptest.Server
	token  string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	st := memory.NewStore()
	ledger := app.NewService(st, nil, zerolog.Nop(), app.ServiceConfig{})
	identity, err := auth.NewService(st, nil, zerolog.Nop(), auth.Config{JWTSecret: "api-test-secret"})
	require.NoError(t, err)
	_, err = identity.EnsureDefaultAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	router := NewRouter(NewHandlers(ledger, identity), RouterConfig{
		APIPrefix:      "/api",
		AllowedOrigins: []string{"http://localhost:1420"},
	}, zerolog.Nop())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	f := &apiFixture{server: server}
	var tokens domain.AuthTokens
	status := f.do(t, http.MethodPost, "/api/auth/login", domain.LoginInput{Email: adminEmail, Password: adminPassword}, &tokens)
	require.Equal(t, http.StatusOK, status)
	f.token = tokens.AccessToken
	return f
}

// do sends body as JSON with the fixture's bearer token and decodes the response into out.
func (f *apiFixture) do(t *testing.T, method, path string, body, out interface{}) int {
	t.Helper()
	return f.doWithToken(t, f.token, method, path, body, out)
}

func (f *apiFixture) doWithToken(t *testing.T, token, method, path string, body, out interface{}) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *apiFixture) createAccount(t *testing.T, name string, typ domain.AccountType, balance int64) domain.Account {
	t.Helper()
	var account domain.Account
	status := f.do(t, http.MethodPost, "/api/accounts", domain.CreateAccountInput{
		Name:                name,
		AccountType:         typ,
		Purpose:             domain.PurposeLifeSupport,
		InitialBalanceCents: balance,
	}, &account)
	require.Equal(t, http.StatusCreated, status)
	return account
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	var body map[string]string
	status := f.doWithToken(t, "", http.MethodGet, "/healthz", nil, &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["store"])
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{name: "missing", token: "", code: codeUnauthorized},
		{name: "garbage", token: "not-a-jwt", code: codeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			status := f.doWithToken(t, tt.token, http.MethodGet, "/api/accounts", nil, &body)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tt.code, body.Code)
			assert.NotNil(t, body.Details)
		})
	}
}

func TestAuthFlow(t *testing.T) {
	f := newAPIFixture(t)

	var me domain.CurrentUser
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/auth/me", nil, &me))
	assert.Equal(t, adminEmail, me.Email)

	var errBody errorResponse
	status := f.doWithToken(t, "", http.MethodPost, "/api/auth/login", domain.LoginInput{Email: adminEmail, Password: "wrong"}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, codeInvalidCredentials, errBody.Code)

	var tokens domain.AuthTokens
	require.Equal(t, http.StatusOK, f.doWithToken(t, "", http.MethodPost, "/api/auth/login", domain.LoginInput{Email: adminEmail, Password: adminPassword}, &tokens))

	var rotated domain.AuthTokens
	require.Equal(t, http.StatusOK, f.doWithToken(t, "", http.MethodPost, "/api/auth/refresh", domain.TokenRefreshInput{RefreshToken: tokens.RefreshToken}, &rotated))
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	var ok map[string]bool
	require.Equal(t, http.StatusOK, f.doWithToken(t, "", http.MethodPost, "/api/auth/logout", domain.TokenRefreshInput{RefreshToken: rotated.RefreshToken}, &ok))
	assert.True(t, ok["ok"])

	errBody = errorResponse{}
	status = f.doWithToken(t, "", http.MethodPost, "/api/auth/refresh", domain.TokenRefreshInput{RefreshToken: rotated.RefreshToken}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, codeUnauthorized, errBody.Code)
}

func TestAccountsAndTransactions(t *testing.T) {
	f := newAPIFixture(t)
	checking := f.createAccount(t, "Checking", domain.AccountTypeAsset, 10_000)
	card := f.createAccount(t, "Card", domain.AccountTypeLiability, -3_000)

	var tx domain.Transaction
	status := f.do(t, http.MethodPost, "/api/transactions", domain.CreateTransactionInput{
		AmountCents:   2_000,
		FromAccountID: &checking.ID,
		ToAccountID:   &card.ID,
		OccurredAt:    strPtr("2026-02-22T14:30:15+02:00"),
	}, &tx)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "2026-02-22T12:30:15Z", tx.OccurredAt.Format("2006-01-02T15:04:05Z07:00"))

	var got domain.Account
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/accounts/"+card.ID.String(), nil, &got))
	assert.Equal(t, int64(-1_000), got.BalanceCents)

	var page domain.TransactionPage
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/transactions?periodYm=2026-02", nil, &page))
	assert.Equal(t, 1, page.Total)

	var fetched domain.Transaction
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/transactions/"+tx.ID.String(), nil, &fetched))
	assert.Equal(t, tx.ID, fetched.ID)

	var accounts []domain.Account
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/accounts", nil, &accounts))
	require.Len(t, accounts, 2)
	assert.Equal(t, "Card", accounts[0].Name)
}

func TestErrorEnvelope(t *testing.T) {
	f := newAPIFixture(t)
	checking := f.createAccount(t, "Checking", domain.AccountTypeAsset, 1_000)
	card := f.createAccount(t, "Card", domain.AccountTypeLiability, -100)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{
			name: "non-positive amount", method: http.MethodPost, path: "/api/transactions",
			body:   domain.CreateTransactionInput{AmountCents: 0, FromAccountID: &checking.ID},
			status: http.StatusBadRequest, code: codeInvalidInput,
		},
		{
			name: "liability pushed positive", method: http.MethodPost, path: "/api/transactions",
			body:   domain.CreateTransactionInput{AmountCents: 500, FromAccountID: &checking.ID, ToAccountID: &card.ID},
			status: http.StatusBadRequest, code: codeInvalidInput,
		},
		{
			name: "unknown category", method: http.MethodPost, path: "/api/transactions",
			body:   domain.CreateTransactionInput{AmountCents: 5, FromAccountID: &checking.ID, CategoryID: idPtr(uuid.New())},
			status: http.StatusBadRequest, code: codeIntegrity,
		},
		{
			name: "unknown account", method: http.MethodGet, path: "/api/accounts/" + uuid.NewString(),
			status: http.StatusNotFound, code: codeNotFound,
		},
		{
			name: "malformed account id", method: http.MethodGet, path: "/api/accounts/nope",
			status: http.StatusBadRequest, code: codeInvalidInput,
		},
		{
			name: "bad period", method: http.MethodGet, path: "/api/reports/cash?periodYm=2026-13",
			status: http.StatusBadRequest, code: codeInvalidInput,
		},
		{
			name: "unknown route", method: http.MethodGet, path: "/api/nothing-here",
			status: http.StatusNotFound, code: codeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			status := f.do(t, tt.method, tt.path, tt.body, &body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestIntegrityErrorCarriesConstraint(t *testing.T) {
	f := newAPIFixture(t)
	checking := f.createAccount(t, "Checking", domain.AccountTypeAsset, 1_000)

	var body errorResponse
	status := f.do(t, http.MethodPost, "/api/transactions", domain.CreateTransactionInput{
		AmountCents:   5,
		FromAccountID: &checking.ID,
		PayeeID:       idPtr(uuid.New()),
	}, &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, codeIntegrity, body.Code)
	assert.NotEmpty(t, body.Details["constraint"])
}

func TestAssetPurchaseReconcileAndReports(t *testing.T) {
	f := newAPIFixture(t)
	checking := f.createAccount(t, "Checking", domain.AccountTypeAsset, 10_000)
	laptop := f.createAccount(t, "Laptop", domain.AccountTypeAsset, 0)

	var purchase domain.AssetPurchaseResult
	status := f.do(t, http.MethodPost, "/api/asset-purchases", domain.CreateAssetPurchaseInput{
		AmountCents:    1_000,
		FromAccountID:  checking.ID,
		AssetAccountID: laptop.ID,
		OccurredAt:     strPtr("2026-01-20T10:00:00Z"),
		Strategy:       domain.StrategyLinear,
		TotalPeriods:   3,
		StartDate:      "2026-01-20",
	}, &purchase)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, domain.ScheduleActive, purchase.Schedule.Status)

	var utility domain.Report
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/reports/utility?periodYm=2026-01", nil, &utility))
	assert.Equal(t, int64(333), utility.TotalExpenseCents)
	require.Len(t, utility.Items, 1)
	assert.Equal(t, "Depreciation", utility.Items[0].Label)

	var detail domain.ScheduleDetail
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/schedules/"+purchase.Schedule.ID.String(), nil, &detail))
	require.Len(t, detail.Postings, 1)
	assert.Equal(t, int64(333), detail.Postings[0].AmountCents)

	var schedules []domain.AmortizationSchedule
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/schedules", nil, &schedules))
	assert.Len(t, schedules, 1)

	var cash domain.Report
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/reports/cash?periodYm=2026-01", nil, &cash))
	assert.Equal(t, int64(1_000), cash.TotalExpenseCents)

	var result domain.ReconcileResult
	status = f.do(t, http.MethodPost, "/api/reconciliations", domain.ReconcileInput{
		AccountID:          checking.ID,
		ActualBalanceCents: 9_500,
		OccurredAt:         strPtr("2026-01-31T18:00:00Z"),
	}, &result)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(500), result.DeltaCents)
	require.NotNil(t, result.AdjustmentTransaction)

	var snapshots []domain.BalanceSnapshot
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/accounts/"+checking.ID.String()+"/snapshots", nil, &snapshots))
	require.Len(t, snapshots, 1)
	assert.Equal(t, int64(500), snapshots[0].DeltaCents)

	var kpi domain.AdjustmentKPI
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/kpis/adjustment?fromPeriodYm=2026-01&toPeriodYm=2026-01", nil, &kpi))
	assert.Equal(t, int64(500), kpi.AdjustmentTotalCents)
}

func TestReferenceData(t *testing.T) {
	f := newAPIFixture(t)

	var food domain.Category
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/categories", domain.CreateCategoryInput{Name: "Food"}, &food))
	var tag domain.Tag
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/tags", domain.CreateTagInput{Name: "travel"}, &tag))
	var payee domain.Payee
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/payees", domain.CreatePayeeInput{Name: "Grocer", DefaultCategoryID: &food.ID}, &payee))

	var categories []domain.Category
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/categories", nil, &categories))
	assert.Len(t, categories, 1)
	var tags []domain.Tag
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/tags", nil, &tags))
	assert.Len(t, tags, 1)
	var payees []domain.Payee
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/payees", nil, &payees))
	require.Len(t, payees, 1)
	assert.Equal(t, food.ID, *payees[0].DefaultCategoryID)

	var info domain.SystemInfo
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/system/init", nil, &info))
	assert.Equal(t, "memory", info.StoreDriver)
	assert.Equal(t, "USD", info.DisplayCurrency)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer  abc ", token: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer", ok: false},
		{header: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := bearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func strPtr(s string) *string { return &s }

func idPtr(id uuid.UUID) *uuid.UUID { return &id }
