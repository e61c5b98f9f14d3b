package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ordenes-backend/internal/config"
	"ordenes-backend/internal/database"
	"ordenes-backend/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// startServer wires the full stack against a throwaway database and returns
// a client that keeps its session cookie between calls.
func startServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db

	hash, err := bcrypt.GenerateFromPassword([]byte("Admin123!"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin := models.Worker{Name: "Supervisor", Code: "ADMIN", Role: models.RoleAdmin, PasswordHash: string(hash)}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	r, err := NewRouter(&config.Config{
		SessionSecret:           "test-secret",
		ImportOverwriteNonDraft: true,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return srv, &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	if out != nil {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	} else {
		resp.Body.Close()
	}
	return resp
}

func loginAdmin(t *testing.T, client *http.Client, base string) {
	t.Helper()
	resp := doJSON(t, client, http.MethodPost, base+"/api/login-admin",
		map[string]string{"codigo": "ADMIN", "password": "Admin123!"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin login: status %d", resp.StatusCode)
	}
}

func TestHealthIsPublic(t *testing.T) {
	srv, client := startServer(t)
	resp, err := client.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	srv, client := startServer(t)
	resp, err := client.Get(srv.URL + "/api/ordenes")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without session", resp.StatusCode)
	}
}

func TestOperarioCannotCreateOrders(t *testing.T) {
	srv, client := startServer(t)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/login-operario",
		map[string]string{"codigo": "W-1", "nombre": "Juan"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("operario login: status %d", resp.StatusCode)
	}

	resp, err := client.Get(srv.URL + "/api/ordenes")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("list as operario: status %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, client, http.MethodPost, srv.URL+"/api/ordenes",
		map[string]string{"numero_orden": "OT-1"}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("create as operario: status %d, want 403", resp.StatusCode)
	}
}

func TestOrderWorkflowEndToEnd(t *testing.T) {
	srv, client := startServer(t)
	loginAdmin(t, client, srv.URL)

	// create a draft with two activities
	var order models.WorkOrder
	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/ordenes", map[string]interface{}{
		"numero_orden": "OT-300",
		"descripcion":  "Revisión general",
		"actividades": []map[string]string{
			{"descripcion": "Desmontar"},
			{"descripcion": "Montar"},
		},
	}, &order)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: status %d", resp.StatusCode)
	}
	if order.State != models.OrderDraft || len(order.Activities) != 2 {
		t.Fatalf("order = state %s, %d activities", order.State, len(order.Activities))
	}
	if order.SupervisorCode != "ADMIN" {
		t.Errorf("supervisor code = %q, want taken from the session", order.SupervisorCode)
	}

	// approve
	resp = doJSON(t, client, http.MethodPost, fmt.Sprintf("%s/api/ordenes/%d/aprobar", srv.URL, order.ID),
		map[string]string{"codigo_trabajador": "W-7"}, &order)
	if resp.StatusCode != http.StatusOK || order.State != models.OrderPending {
		t.Fatalf("approve: status %d state %s", resp.StatusCode, order.State)
	}

	// run the first activity through its whole timer cycle
	actID := order.Activities[0].ID
	var act models.Activity
	for _, step := range []string{"iniciar", "pausar", "reanudar", "finalizar"} {
		resp = doJSON(t, client, http.MethodPost,
			fmt.Sprintf("%s/api/actividades/%d/%s", srv.URL, actID, step),
			map[string]string{}, &act)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", step, resp.StatusCode)
		}
	}
	if act.TimerState != models.TimerFinished {
		t.Fatalf("activity state = %s, want FINISHED", act.TimerState)
	}
	if act.ExecutorName != "Supervisor" {
		t.Errorf("executor = %q, want defaulted from session", act.ExecutorName)
	}

	// the bitácora has the full sequence
	var events []models.AuditEvent
	resp = doJSON(t, client, http.MethodGet,
		fmt.Sprintf("%s/api/actividades/%d/bitacora", srv.URL, actID), nil, &events)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bitacora: status %d", resp.StatusCode)
	}
	wantEvents := []models.AuditEventType{models.EventStarted, models.EventPaused, models.EventResumed, models.EventFinished}
	if len(events) != len(wantEvents) {
		t.Fatalf("got %d events, want %d", len(events), len(wantEvents))
	}
	for i, e := range events {
		if e.EventType != wantEvents[i] {
			t.Errorf("event %d = %s, want %s", i, e.EventType, wantEvents[i])
		}
	}

	// close the order
	resp = doJSON(t, client, http.MethodPost,
		fmt.Sprintf("%s/api/ordenes/%d/finalizar", srv.URL, order.ID), map[string]string{}, &order)
	if resp.StatusCode != http.StatusOK || order.State != models.OrderFinished {
		t.Fatalf("finish order: status %d state %s", resp.StatusCode, order.State)
	}

	// a second finish conflicts with the lifecycle
	resp = doJSON(t, client, http.MethodPost,
		fmt.Sprintf("%s/api/ordenes/%d/finalizar", srv.URL, order.ID), map[string]string{}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("double finish: status %d, want 400", resp.StatusCode)
	}

	// the finished order shows up in the export
	resp, err := client.Get(srv.URL + "/api/export?formato=csv")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "OT-300") {
		t.Errorf("export output missing OT-300:\n%s", data)
	}
}

func TestImportUploadEndToEnd(t *testing.T) {
	srv, client := startServer(t)
	loginAdmin(t, client, srv.URL)

	csvBody := "Orden,Texto breve,Operación,Texto breve operación\n" +
		"OT-900,Bomba,0010,Desmontar\n" +
		"OT-900,Bomba,0020,Montar\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("archivo", "plan.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte(csvBody)); err != nil {
		t.Fatalf("write: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/import", &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("import: status %d: %s", resp.StatusCode, body)
	}

	var report struct {
		Created int `json:"creadas"`
		Failed  int `json:"fallidas"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Created != 2 || report.Failed != 0 {
		t.Errorf("report = %+v, want 2 created", report)
	}

	var orders []models.WorkOrder
	r2 := doJSON(t, client, http.MethodGet, srv.URL+"/api/ordenes?estado=DRAFT", nil, &orders)
	if r2.StatusCode != http.StatusOK || len(orders) != 1 {
		t.Fatalf("list drafts: status %d, %d orders", r2.StatusCode, len(orders))
	}
	if len(orders[0].Activities) != 2 {
		t.Errorf("imported order has %d activities, want 2", len(orders[0].Activities))
	}
}

func TestRouterFailsOnUnenumeratedEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("endpoints:\n  health: [public]\n"), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	_, err := NewRouter(&config.Config{SessionSecret: "s", AccessPolicyFile: path})
	if err == nil {
		t.Fatal("expected router build to fail with a partial policy")
	}
}
