package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jmerrifield20/linkaday/internal/profiledoc"
	"github.com/jmerrifield20/linkaday/internal/profiles"
)

func profileWithData() *profiles.Profile {
	p := profiles.NewDefault("u1", "u1@example.com")
	p.ProfileJSON[profiledoc.SectionVoice] = profiledoc.Section{"tone": "punchy"}
	return p
}

func TestExport_PostsSignedPayload(t *testing.T) {
	var (
		gotBody []byte
		gotSig  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := NewExporter(srv.URL, "s3cret", zap.NewNop())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	var recorded []bool
	e.SetMetricsRecorder(func(ok bool) { recorded = append(recorded, ok) })

	if err := e.Export(context.Background(), profileWithData()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var got Payload
	if err := json.Unmarshal(gotBody, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.UserID != "u1" || got.Email != "u1@example.com" || !got.ExportedAt.Equal(fixed) {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.ProfileJSON[profiledoc.SectionVoice]["tone"] != "punchy" {
		t.Errorf("profile_json not forwarded: %v", got.ProfileJSON)
	}
	if gotSig != signPayload(gotBody, "s3cret") {
		t.Errorf("signature = %q", gotSig)
	}
	if len(recorded) != 1 || !recorded[0] {
		t.Errorf("metrics = %v", recorded)
	}
}

func TestExport_NoSecretNoSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(SignatureHeader) != "" {
			t.Error("signature header sent without a secret")
		}
	}))
	defer srv.Close()

	if err := NewExporter(srv.URL, "", zap.NewNop()).Export(context.Background(), profileWithData()); err != nil {
		t.Fatalf("Export: %v", err)
	}
}

func TestExport_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewExporter(srv.URL, "", zap.NewNop()).Export(context.Background(), profileWithData())
	var derr *DeliveryError
	if !errors.As(err, &derr) || derr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected DeliveryError 502, got %v", err)
	}
}

func TestExport_Preconditions(t *testing.T) {
	e := NewExporter("", "", zap.NewNop())
	if err := e.Export(context.Background(), profileWithData()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}

	e = NewExporter("http://127.0.0.1:1", "", zap.NewNop())
	empty := profiles.NewDefault("u1", "")
	empty.ProfileJSON = nil
	if err := e.Export(context.Background(), empty); !errors.Is(err, ErrNoProfileData) {
		t.Errorf("nil document: expected ErrNoProfileData, got %v", err)
	}
	empty.ProfileJSON = profiledoc.Document{}
	if err := e.Export(context.Background(), empty); !errors.Is(err, ErrNoProfileData) {
		t.Errorf("zero-section document: expected ErrNoProfileData, got %v", err)
	}
}

func TestExport_DefaultDocumentIsSent(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewExporter(srv.URL, "", zap.NewNop()).Export(context.Background(), profiles.NewDefault("u1", "u1@example.com"))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(got.ProfileJSON) != len(profiledoc.Sections) {
		t.Errorf("exported %d sections, want %d", len(got.ProfileJSON), len(profiledoc.Sections))
	}
}

func TestExport_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	if err := NewExporter(url, "", zap.NewNop()).Export(context.Background(), profileWithData()); err == nil {
		t.Fatal("expected transport error")
	}
}
