package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	WriteError(rec, req, http.StatusNotFound, "lesson not found")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if body.Error != "lesson not found" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Code string `json:"code"`
	}
	testCases := []struct {
		name    string
		body    string
		max     int64
		wantErr bool
	}{
		{"valid", `{"code":"1+1"}`, 0, false},
		{"empty", ``, 0, true},
		{"unknown field", `{"code":"x","extra":1}`, 0, true},
		{"trailing value", `{"code":"x"} {"code":"y"}`, 0, true},
		{"too large", `{"code":"xxxxxxxxxxxxxxxx"}`, 8, true},
		{"malformed", `{"code":`, 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var p payload
			err := DecodeJSON(rec, req, &p, tc.max)
			if (err != nil) != tc.wantErr {
				t.Fatalf("DecodeJSON err = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && p.Code != "1+1" {
				t.Errorf("Code = %q", p.Code)
			}
		})
	}
}
