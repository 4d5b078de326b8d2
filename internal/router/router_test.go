package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medcontrol-backend/internal/adapters/auth/jwtauth"
	"medcontrol-backend/internal/router"
)

func TestHTTP_EndToEnd_MedicineLifecycle(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	userA := "user-a"
	userB := "user-b"

	tomorrow := time.Now().UTC().Add(24 * time.Hour).Truncate(24 * time.Hour)
	dateEnd := tomorrow.Add(48 * time.Hour)

	// 1) Sin identidad no hay acceso
	{
		st, _ := doReq(t, ts.URL, "GET", "/medicines", "", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 without identity, got %d", st)
		}
	}

	// 2) Crear medicamento con horarios fijos: 2 dosis por día, 3 días
	medicineID := ""
	{
		st, body := doReq(t, ts.URL, "POST", "/medicines", userA, map[string]any{
			"name":            "Amoxicilina",
			"dosage":          "500mg",
			"fixed_schedules": "08:00,20:00",
			"date_start":      tomorrow.Format(time.RFC3339),
			"date_end":        dateEnd.Format(time.RFC3339),
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 creating medicine, got %d body=%s", st, string(body))
		}
		var resp map[string]any
		mustDecode(t, body, &resp)
		medicineID, _ = resp["id"].(string)
		if medicineID == "" {
			t.Fatalf("expected medicine id in response, body=%s", string(body))
		}
	}

	// 3) El calendario quedó generado
	{
		st, body := doReq(t, ts.URL, "GET", "/medicines/"+medicineID+"/dosages", userA, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 listing dosages, got %d body=%s", st, string(body))
		}
		var doses []map[string]any
		mustDecode(t, body, &doses)
		if len(doses) != 6 {
			t.Fatalf("expected 6 generated dosages, got %d body=%s", len(doses), string(body))
		}
		for _, d := range doses {
			if d["status"] != "pending" {
				t.Fatalf("expected pending dose, got %v", d["status"])
			}
		}
	}

	// 4) Nombre duplicado para el mismo usuario
	{
		st, body := doReq(t, ts.URL, "POST", "/medicines", userA, map[string]any{
			"name":            "amoxicilina",
			"dosage":          "250mg",
			"frequency_hours": 8,
			"date_start":      tomorrow.Format(time.RFC3339),
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 for duplicate name, got %d body=%s", st, string(body))
		}
	}

	// 5) Otro usuario no ve el medicamento
	{
		st, _ := doReq(t, ts.URL, "GET", "/medicines/"+medicineID, userB, nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 for foreign medicine, got %d", st)
		}
	}

	// 6) Dosis manual, y duplicada dentro de la ventana de 5 minutos
	dosageID := ""
	manualTime := tomorrow.Add(12 * time.Hour)
	{
		st, body := doReq(t, ts.URL, "POST", "/dosages", userA, map[string]any{
			"medicine_id":   medicineID,
			"expected_time": manualTime.Format(time.RFC3339),
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 creating manual dosage, got %d body=%s", st, string(body))
		}
		var resp map[string]any
		mustDecode(t, body, &resp)
		dosageID, _ = resp["id"].(string)

		st, body = doReq(t, ts.URL, "POST", "/dosages", userA, map[string]any{
			"medicine_id":   medicineID,
			"expected_time": manualTime.Add(2 * time.Minute).Format(time.RFC3339),
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 for duplicate dosage, got %d body=%s", st, string(body))
		}
	}

	// 7) Marcar tomada (2 minutos tarde sigue siendo taken)
	{
		st, body := doReq(t, ts.URL, "POST", "/dosages/"+dosageID+"/take", userA, map[string]any{
			"taken_at": manualTime.Add(2 * time.Minute).Format(time.RFC3339),
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 taking dose, got %d body=%s", st, string(body))
		}
		var resp map[string]any
		mustDecode(t, body, &resp)
		if resp["status"] != "taken" {
			t.Fatalf("expected taken, got %v", resp["status"])
		}
		if _, has := resp["late_minutes"]; has {
			t.Fatalf("expected no late_minutes for on-time dose, body=%s", string(body))
		}
	}

	// 8) Estados terminales: ni repetir toma ni borrar
	{
		st, _ := doReq(t, ts.URL, "POST", "/dosages/"+dosageID+"/take", userA, nil)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 taking twice, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "DELETE", "/dosages/"+dosageID, userA, nil)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 deleting taken dose, got %d", st)
		}
	}

	// 9) PATCH de campos sin regla no toca el calendario
	{
		st, body := doReq(t, ts.URL, "PATCH", "/medicines/"+medicineID, userA, map[string]any{
			"observations": "con el desayuno",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 patching medicine, got %d body=%s", st, string(body))
		}
	}

	// 10) Borrar el medicamento arrastra sus dosis
	{
		st, body := doReq(t, ts.URL, "DELETE", "/medicines/"+medicineID, userA, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 deleting medicine, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "GET", "/medicines/"+medicineID, userA, nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", st)
		}
		st, body = doReq(t, ts.URL, "GET", "/dosages", userA, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 listing dosages, got %d", st)
		}
		var doses []map[string]any
		mustDecode(t, body, &doses)
		if len(doses) != 0 {
			t.Fatalf("expected no dosages after cascade delete, got %d", len(doses))
		}
	}
}

func TestHTTP_EndToEnd_JWTAuth(t *testing.T) {
	secret := []byte("router-test-secret")
	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier: jwtauth.NewVerifier(secret),
		JWTSecret:    secret,
	}))
	defer ts.Close()

	// 1) Registro y login
	{
		st, body := doReq(t, ts.URL, "POST", "/auth/register", "", map[string]any{
			"email":    "ana@example.com",
			"password": "secret123",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 registering, got %d body=%s", st, string(body))
		}
	}

	token := ""
	{
		st, body := doReq(t, ts.URL, "POST", "/auth/login", "", map[string]any{
			"email":    "ana@example.com",
			"password": "secret123",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 logging in, got %d body=%s", st, string(body))
		}
		var resp map[string]any
		mustDecode(t, body, &resp)
		token, _ = resp["token"].(string)
		if token == "" {
			t.Fatalf("expected token in login response, body=%s", string(body))
		}
	}

	// 2) Con Bearer token se opera normalmente
	{
		st, body := doBearerReq(t, ts.URL, "POST", "/medicines", token, map[string]any{
			"name":            "Vitamina D",
			"dosage":          "1 cápsula",
			"frequency_hours": 24,
			"date_start":      time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 with bearer token, got %d body=%s", st, string(body))
		}
	}

	// 3) Token inválido no identifica
	{
		st, _ := doBearerReq(t, ts.URL, "GET", "/medicines", "not-a-token", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 with bad token, got %d", st)
		}
	}

	// 4) En modo verifier el header de dev se ignora
	{
		st, _ := doReq(t, ts.URL, "GET", "/medicines", "user-a", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 for debug header in verifier mode, got %d", st)
		}
	}
}

func doReq(t *testing.T, base, method, path, debugUserID string, payload map[string]any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, base+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func doBearerReq(t *testing.T, base, method, path, token string, payload map[string]any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, base+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func mustDecode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode body %s: %v", string(body), err)
	}
}
