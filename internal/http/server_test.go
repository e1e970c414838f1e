package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"obras/internal/amqp"
	"obras/internal/storage"
)

// recordingPublisher captures published alerts for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	alerts []*amqp.BudgetAlertMessage
}

func (p *recordingPublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, msg)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

type testServer struct {
	*httptest.Server
	repo   *storage.Repository
	alerts *recordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	alerts := &recordingPublisher{}
	srv := NewServer(":0", repo, alerts, nil)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, repo: repo, alerts: alerts}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (ts *testServer) createDepartment(t *testing.T, name string) int64 {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/departments", map[string]string{"name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create department status = %d", resp.StatusCode)
	}
	var view struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &view)
	return view.ID
}

func (ts *testServer) createProject(t *testing.T, name string, departmentID int64) int64 {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/projects", map[string]any{
		"name":          name,
		"department_id": departmentID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project status = %d", resp.StatusCode)
	}
	var view struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &view)
	return view.ID
}

func (ts *testServer) createMeasurement(t *testing.T, departmentID int64, name, start, end string) int64 {
	t.Helper()
	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/departments/%d/measurements", departmentID),
		map[string]string{"name": name, "start_date": start, "end_date": end})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create measurement status = %d", resp.StatusCode)
	}
	var view struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &view)
	return view.ID
}

func (ts *testServer) allocate(t *testing.T, measurementID, projectID int64, initial, alternate, source string) {
	t.Helper()
	resp := ts.do(t, http.MethodPut,
		fmt.Sprintf("/measurements/%d/allocations/%d", measurementID, projectID),
		map[string]string{
			"initial_amount":   initial,
			"alternate_amount": alternate,
			"selected_source":  source,
		})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert allocation status = %d", resp.StatusCode)
	}
}

func TestDepartmentLifecycle(t *testing.T) {
	ts := newTestServer(t)

	id := ts.createDepartment(t, "Secretaria de Infraestrutura")

	resp := ts.do(t, http.MethodPost, "/departments", map[string]string{"name": "Secretaria de Infraestrutura"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate department status = %d, want 409", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodPost, "/departments", map[string]string{"name": "ab"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("short name status = %d, want 422", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/departments/%d", id), nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get department status = %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/departments/9999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing department status = %d, want 404", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodDelete, fmt.Sprintf("/departments/%d", id), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete department status = %d, want 204", resp.StatusCode)
	}
}

func TestMeasurementSummaryEndpoint(t *testing.T) {
	ts := newTestServer(t)

	dep := ts.createDepartment(t, "Secretaria de Infraestrutura")
	project := ts.createProject(t, "Pavimentação da Rua Central", dep)
	m := ts.createMeasurement(t, dep, "Medição Agosto 2025", "2025-08-01", "2025-08-31")
	ts.allocate(t, m, project, "1000,00", "1200,00", "initial")

	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/projects/%d/expenses", project),
		map[string]string{"description": "compra de asfalto", "amount": "300,00", "date": "2025-08-15"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create expense status = %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/measurements/%d/summary", m), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}
	var summary struct {
		Allocated float64 `json:"orcamento_total"`
		Spent     float64 `json:"gasto_no_periodo"`
		Result    float64 `json:"resultado"`
	}
	decodeBody(t, resp, &summary)
	if summary.Allocated != 1000.00 || summary.Spent != 300.00 || summary.Result != 700.00 {
		t.Errorf("summary = %+v, want 1000/300/700", summary)
	}
}

func TestAllocationRejectsForeignProject(t *testing.T) {
	ts := newTestServer(t)

	dep := ts.createDepartment(t, "Secretaria de Infraestrutura")
	other := ts.createDepartment(t, "Secretaria de Educação")
	foreign := ts.createProject(t, "Reforma da Escola Municipal", other)
	m := ts.createMeasurement(t, dep, "Medição Agosto 2025", "2025-08-01", "2025-08-31")

	resp := ts.do(t, http.MethodPut,
		fmt.Sprintf("/measurements/%d/allocations/%d", m, foreign),
		map[string]string{"initial_amount": "1000,00", "alternate_amount": "0", "selected_source": "initial"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("foreign allocation status = %d, want 422", resp.StatusCode)
	}
}

func TestCreateMeasurementInvalidPeriod(t *testing.T) {
	ts := newTestServer(t)
	dep := ts.createDepartment(t, "Secretaria de Infraestrutura")

	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/departments/%d/measurements", dep),
		map[string]string{"name": "Medição Invertida", "start_date": "2025-08-31", "end_date": "2025-08-01"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("inverted period status = %d, want 422", resp.StatusCode)
	}
}

func TestOverBudgetExpenseWarnsAndAlerts(t *testing.T) {
	ts := newTestServer(t)

	dep := ts.createDepartment(t, "Secretaria de Infraestrutura")
	project := ts.createProject(t, "Pavimentação da Rua Central", dep)
	m := ts.createMeasurement(t, dep, "Medição Agosto 2025", "2025-08-01", "2025-08-31")
	ts.allocate(t, m, project, "100,00", "0", "initial")

	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/projects/%d/expenses", project),
		map[string]string{"description": "aditivo contratual", "amount": "250,00", "date": "2025-08-10"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("over-budget expense status = %d, want 201 (warn, not reject)", resp.StatusCode)
	}
	var view struct {
		ID      int64  `json:"id"`
		Warning string `json:"warning"`
	}
	decodeBody(t, resp, &view)
	if view.Warning == "" {
		t.Error("over-budget expense response missing warning")
	}
	if ts.alerts.count() != 1 {
		t.Errorf("published alerts = %d, want 1", ts.alerts.count())
	}

	// The expense persisted despite exceeding the budget.
	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/projects/%d/expenses", project), nil)
	var expenses []struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &expenses)
	if len(expenses) != 1 || expenses[0].ID != view.ID {
		t.Errorf("expenses after over-budget write = %+v", expenses)
	}
}

func TestWithinBudgetExpenseNoWarning(t *testing.T) {
	ts := newTestServer(t)

	dep := ts.createDepartment(t, "Secretaria de Infraestrutura")
	project := ts.createProject(t, "Pavimentação da Rua Central", dep)
	m := ts.createMeasurement(t, dep, "Medição Agosto 2025", "2025-08-01", "2025-08-31")
	ts.allocate(t, m, project, "1000,00", "0", "initial")

	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/projects/%d/expenses", project),
		map[string]string{"description": "compra de brita", "amount": "100,00", "date": "2025-08-05"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expense status = %d", resp.StatusCode)
	}
	var view struct {
		Warning string `json:"warning"`
	}
	decodeBody(t, resp, &view)
	if view.Warning != "" {
		t.Errorf("unexpected warning: %q", view.Warning)
	}
	if ts.alerts.count() != 0 {
		t.Errorf("published alerts = %d, want 0", ts.alerts.count())
	}
}

func TestDepartmentChartPayload(t *testing.T) {
	ts := newTestServer(t)

	dep := ts.createDepartment(t, "Secretaria de Infraestrutura")

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/departments/%d/chart", dep), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chart status = %d", resp.StatusCode)
	}
	var payload map[string]json.RawMessage
	decodeBody(t, resp, &payload)
	for _, key := range []string{"labels", "gastos", "saldos", "teto_orcamento", "medicoes"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("chart payload missing key %q", key)
		}
	}
	// Empty department: arrays must be [] rather than null.
	if string(payload["labels"]) != "[]" {
		t.Errorf("labels = %s, want []", payload["labels"])
	}
}

func TestProjectChartPayload(t *testing.T) {
	ts := newTestServer(t)

	dep := ts.createDepartment(t, "Secretaria de Infraestrutura")
	project := ts.createProject(t, "Pavimentação da Rua Central", dep)
	m := ts.createMeasurement(t, dep, "Medição Agosto 2025", "2025-08-01", "2025-08-31")
	ts.allocate(t, m, project, "1000,00", "0", "initial")
	resp := ts.do(t, http.MethodPost, fmt.Sprintf("/projects/%d/expenses", project),
		map[string]string{"description": "compra de asfalto", "amount": "300,00", "date": "2025-08-15"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expense status = %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/projects/%d/chart", project), nil)
	var chart map[string]float64
	decodeBody(t, resp, &chart)
	if chart["gasto_da_obra"] != 300.00 {
		t.Errorf("gasto_da_obra = %.2f, want 300.00", chart["gasto_da_obra"])
	}
	if chart["saldo_da_secretaria"] != 700.00 {
		t.Errorf("saldo_da_secretaria = %.2f, want 700.00", chart["saldo_da_secretaria"])
	}
}

func TestDepartmentOverviewEndpoint(t *testing.T) {
	ts := newTestServer(t)

	dep := ts.createDepartment(t, "Secretaria de Infraestrutura")
	project := ts.createProject(t, "Pavimentação da Rua Central", dep)
	m := ts.createMeasurement(t, dep, "Medição Agosto 2025", "2025-08-01", "2025-08-31")
	ts.allocate(t, m, project, "1000,00", "0", "initial")

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/departments/%d/overview", dep), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("overview status = %d", resp.StatusCode)
	}
	var overview struct {
		Name         string  `json:"nome"`
		Consolidated float64 `json:"orcamento_consolidado"`
		RemainingPct float64 `json:"percentual_restante"`
	}
	decodeBody(t, resp, &overview)
	if overview.Name != "Secretaria de Infraestrutura" {
		t.Errorf("nome = %q", overview.Name)
	}
	if overview.Consolidated != 1000.00 {
		t.Errorf("orcamento_consolidado = %.2f, want 1000.00", overview.Consolidated)
	}
	if overview.RemainingPct != 100.00 {
		t.Errorf("percentual_restante = %.2f, want 100.00", overview.RemainingPct)
	}
}

func TestPublishSheetsUnconfigured(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/report/sheets", nil)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("sheets publish status = %d, want 501", resp.StatusCode)
	}
}

func TestReportXLSXEndpoint(t *testing.T) {
	ts := newTestServer(t)

	dep := ts.createDepartment(t, "Secretaria de Infraestrutura")
	ts.createProject(t, "Pavimentação da Rua Central", dep)

	resp := ts.do(t, http.MethodGet, "/report/xlsx", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("xlsx status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", ct)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/departments", map[string]string{
		"name":  "Secretaria de Infraestrutura",
		"bogus": "field",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", resp.StatusCode)
	}
}
