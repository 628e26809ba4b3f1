package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestError_WritesCodeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, apperr.ErrAdminCannotLeave.Wrap(errors.New("internal detail")))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusForbidden)
	}
	if strings.Contains(rec.Body.String(), "internal detail") {
		t.Error("cause leaked into response body")
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error.Code != "admin_cannot_leave" {
		t.Errorf("code: got %q, want %q", body.Error.Code, "admin_cannot_leave")
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		ct      string
		wantErr bool
	}{
		{"valid", `{"name":"hiking"}`, "application/json", false},
		{"no content type", `{"name":"hiking"}`, "", false},
		{"empty body", ``, "application/json", true},
		{"unknown field", `{"nme":"x"}`, "application/json", true},
		{"wrong content type", `name=x`, "application/x-www-form-urlencoded", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}
			var p payload
			err := Decode(req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && apperr.KindOf(err) != apperr.KindInvalidInput {
				t.Errorf("kind: got %q, want invalid_input", apperr.KindOf(err))
			}
		})
	}
}

func TestPathID(t *testing.T) {
	oid := primitive.NewObjectID()
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", oid.Hex(), false},
		{"malformed", "not-an-id", true},
		{"missing", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.value)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			got, err := PathID(req, "id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("PathID err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperr.ErrBadID) {
				t.Errorf("expected ErrBadID, got %v", err)
			}
			if !tt.wantErr && got != oid {
				t.Errorf("PathID = %s, want %s", got.Hex(), oid.Hex())
			}
		})
	}
}
