package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"ledger/internal/auth"
	"ledger/internal/ledger"
	"ledger/internal/reporting"
	"ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type ServerTestSuite struct {
	suite.Suite
	repo   *storage.Repository
	server *Server
	cookie *http.Cookie
}

func (s *ServerTestSuite) SetupTest() {
	repo, err := storage.NewRepository(":memory:")
	require.NoError(s.T(), err)
	s.repo = repo

	authSvc := auth.NewService(repo, time.Hour, bcrypt.MinCost)
	ledgerSvc := ledger.NewService(repo, nil)
	reportSvc := reporting.NewService(repo)

	s.server = NewServer(":0", authSvc, ledgerSvc, reportSvc, Options{RateLimitPerMinute: 1000})
	s.cookie = nil
}

func (s *ServerTestSuite) TearDownTest() {
	if s.server != nil {
		s.server.Shutdown(context.Background())
	}
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *ServerTestSuite) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}

	w := httptest.NewRecorder()
	s.server.Server.Handler.ServeHTTP(w, req)
	return w
}

// logIn registers the user if needed and stores the session cookie for
// subsequent requests.
func (s *ServerTestSuite) logIn(username, password string) {
	form := url.Values{
		"username":         {username},
		"password":         {password},
		"confirm_password": {password},
	}
	w := s.do(http.MethodPost, "/signup", form)
	require.Equal(s.T(), http.StatusSeeOther, w.Code)

	w = s.do(http.MethodPost, "/login", url.Values{
		"username": {username},
		"password": {password},
	})
	require.Equal(s.T(), http.StatusSeeOther, w.Code)
	require.Equal(s.T(), "/", w.Header().Get("Location"))

	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			s.cookie = c
		}
	}
	require.NotNil(s.T(), s.cookie, "login must set a session cookie")
}

func (s *ServerTestSuite) addExpense(date, amount, category, description string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/add", url.Values{
		"date":        {date},
		"amount":      {amount},
		"category":    {category},
		"description": {description},
	})
}

func (s *ServerTestSuite) decodeDashboard(w *httptest.ResponseRecorder) dashboardJSON {
	var dash dashboardJSON
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &dash))
	return dash
}

func (s *ServerTestSuite) TestHealthEndpoints() {
	assert.Equal(s.T(), http.StatusOK, s.do(http.MethodGet, "/healthz", nil).Code)
	assert.Equal(s.T(), http.StatusOK, s.do(http.MethodGet, "/readyz", nil).Code)
}

func (s *ServerTestSuite) TestUnauthenticatedRedirectsToLogin() {
	for _, target := range []string{"/", "/monthly_expenses", "/weekly_expenses", "/analyze"} {
		w := s.do(http.MethodGet, target, nil)
		assert.Equal(s.T(), http.StatusSeeOther, w.Code, target)
		assert.Equal(s.T(), "/login", w.Header().Get("Location"), target)
	}

	w := s.addExpense("2024-01-05", "50", "food", "")
	assert.Equal(s.T(), http.StatusSeeOther, w.Code)
	assert.Equal(s.T(), "/login", w.Header().Get("Location"))
}

func (s *ServerTestSuite) TestSignUpValidation() {
	w := s.do(http.MethodPost, "/signup", url.Values{
		"username":         {"alice"},
		"password":         {"pw"},
		"confirm_password": {"other"},
	})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
	assert.Contains(s.T(), w.Body.String(), "error")
}

func (s *ServerTestSuite) TestLogInWrongPassword() {
	s.logIn("alice", "secret")
	s.cookie = nil

	w := s.do(http.MethodPost, "/login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *ServerTestSuite) TestExpenseLifecycle() {
	s.logIn("alice", "secret")

	w := s.addExpense("2024-01-05", "50", "food", "groceries")
	require.Equal(s.T(), http.StatusSeeOther, w.Code)
	assert.Equal(s.T(), "/", w.Header().Get("Location"))

	dash := s.decodeDashboard(s.do(http.MethodGet, "/", nil))
	require.Len(s.T(), dash.Expenses, 1)
	exp := dash.Expenses[0]
	assert.Equal(s.T(), "2024-01-05", exp.Date)
	assert.InDelta(s.T(), 50.0, exp.Amount, 0.001)
	assert.Equal(s.T(), "food", exp.Category)

	w = s.do(http.MethodPost, "/edit/"+idString(exp.ID), url.Values{
		"date":        {"2024-02-01"},
		"amount":      {"10.50"},
		"category":    {"transport"},
		"description": {"bus"},
	})
	require.Equal(s.T(), http.StatusSeeOther, w.Code)

	dash = s.decodeDashboard(s.do(http.MethodGet, "/", nil))
	require.Len(s.T(), dash.Expenses, 1)
	assert.Equal(s.T(), "2024-02-01", dash.Expenses[0].Date)
	assert.Equal(s.T(), "transport", dash.Expenses[0].Category)

	w = s.do(http.MethodPost, "/delete/"+idString(exp.ID), nil)
	require.Equal(s.T(), http.StatusSeeOther, w.Code)

	// Deleting again reports the row as missing
	w = s.do(http.MethodPost, "/delete/"+idString(exp.ID), nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	dash = s.decodeDashboard(s.do(http.MethodGet, "/", nil))
	assert.Empty(s.T(), dash.Expenses)
}

func (s *ServerTestSuite) TestAddExpenseValidation() {
	s.logIn("alice", "secret")

	cases := []struct {
		name                   string
		date, amount, category string
	}{
		{"bad date", "05/01/2024", "50", "food"},
		{"zero amount", "2024-01-05", "0", "food"},
		{"empty category", "2024-01-05", "50", ""},
	}
	for _, tc := range cases {
		w := s.addExpense(tc.date, tc.amount, tc.category, "")
		assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code, tc.name)
	}
}

func (s *ServerTestSuite) TestEditMissingExpense() {
	s.logIn("alice", "secret")

	w := s.do(http.MethodPost, "/edit/9999", url.Values{
		"date":     {"2024-01-05"},
		"amount":   {"50"},
		"category": {"food"},
	})
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *ServerTestSuite) TestIncomeAndDashboardTotals() {
	s.logIn("alice", "secret")

	w := s.do(http.MethodPost, "/set_income", url.Values{"amount": {"1200.50"}})
	require.Equal(s.T(), http.StatusSeeOther, w.Code)

	// Zero income is accepted
	w = s.do(http.MethodPost, "/set_income", url.Values{"amount": {"0"}})
	require.Equal(s.T(), http.StatusSeeOther, w.Code)

	w = s.do(http.MethodPost, "/set_income", url.Values{"amount": {"-5"}})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)

	s.addExpense("2024-01-05", "50", "food", "")
	s.addExpense("2024-01-20", "30", "food", "")

	dash := s.decodeDashboard(s.do(http.MethodGet, "/", nil))
	assert.InDelta(s.T(), 1200.50, dash.TotalIncome, 0.001)
	assert.InDelta(s.T(), 80.0, dash.TotalExpense, 0.001)
	require.Len(s.T(), dash.ByCategory, 1)
	assert.Equal(s.T(), "food", dash.ByCategory[0].Category)
	assert.InDelta(s.T(), 80.0, dash.ByCategory[0].Total, 0.001)
}

func (s *ServerTestSuite) TestReportsEndpoints() {
	s.logIn("alice", "secret")

	// Two months back can never normalize into the current month, so the
	// monthly and weekly assertions hold on any calendar date.
	today := time.Now().Format("2006-01-02")
	old := time.Now().AddDate(0, -2, 0).Format("2006-01-02")

	s.addExpense(today, "30", "food", "")
	s.addExpense(old, "50", "transport", "")

	var weekly reportJSON
	w := s.do(http.MethodGet, "/weekly_expenses", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &weekly))
	require.Len(s.T(), weekly.Expenses, 1)
	assert.InDelta(s.T(), 30.0, weekly.Total, 0.001)

	var monthly reportJSON
	w = s.do(http.MethodGet, "/monthly_expenses", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &monthly))
	assert.InDelta(s.T(), 30.0, monthly.Total, 0.001)

	var analysis analysisJSON
	w = s.do(http.MethodGet, "/analyze", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.InDelta(s.T(), 80.0, analysis.Total, 0.001)
	assert.Len(s.T(), analysis.ByCategory, 2)
}

func (s *ServerTestSuite) TestDashboardCacheInvalidation() {
	s.logIn("alice", "secret")

	s.addExpense("2024-01-05", "50", "food", "")
	dash := s.decodeDashboard(s.do(http.MethodGet, "/", nil))
	require.Len(s.T(), dash.Expenses, 1)

	// A write after the cached read must show up on the next read
	s.addExpense("2024-01-20", "30", "food", "")
	dash = s.decodeDashboard(s.do(http.MethodGet, "/", nil))
	assert.Len(s.T(), dash.Expenses, 2)
}

func (s *ServerTestSuite) TestLogOut() {
	s.logIn("alice", "secret")

	w := s.do(http.MethodGet, "/logout", nil)
	assert.Equal(s.T(), http.StatusSeeOther, w.Code)
	assert.Equal(s.T(), "/login", w.Header().Get("Location"))

	// The old cookie no longer opens the dashboard
	w = s.do(http.MethodGet, "/", nil)
	assert.Equal(s.T(), http.StatusSeeOther, w.Code)
	assert.Equal(s.T(), "/login", w.Header().Get("Location"))
}

func (s *ServerTestSuite) TestSecurityHeaders() {
	w := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(s.T(), "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(s.T(), "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(s.T(), w.Header().Get("Content-Security-Policy"))
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
