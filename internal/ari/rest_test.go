package ari

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Answer(t *testing.T) {
	var gotPath, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "xivo", "secret")
	if err := client.Answer(context.Background(), "chan-1"); err != nil {
		t.Fatalf("Answer() failed: %v", err)
	}
	if gotPath != "/ari/channels/chan-1/answer" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "xivo" || gotPass != "secret" {
		t.Errorf("basic auth = %q:%q", gotUser, gotPass)
	}
}

func TestClient_Answer_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "xivo", "secret")
	err := client.Answer(context.Background(), "chan-1")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	var opErr *OperationError
	if opErr, _ = err.(*OperationError); opErr == nil {
		t.Fatalf("expected *OperationError, got %T", err)
	}
	if opErr.StatusCode != 500 {
		t.Errorf("StatusCode = %d", opErr.StatusCode)
	}
}

func TestClient_Play(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "xivo", "secret")
	if err := client.Play(context.Background(), "chan-1", "sound:custom/abc123"); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	if gotQuery != "media=sound%3Acustom%2Fabc123" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestClient_Record(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Encode()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "xivo", "secret")
	err := client.Record(context.Background(), "chan-1", RecordOptions{
		Name:        "r1",
		MaxDuration: 10 * time.Second,
		MaxSilence:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if gotQuery == "" {
		t.Fatal("expected non-empty query")
	}
}

func TestClient_Originate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"new-chan-42"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "xivo", "secret")
	id, err := client.Originate(context.Background(), OriginateOptions{
		Endpoint: "PJSIP/101",
		App:      "receptionniste",
		AppArgs:  "transfer,chan-1",
		Timeout:  3 * time.Second,
		CallerID: "+41791234567",
	})
	if err != nil {
		t.Fatalf("Originate() failed: %v", err)
	}
	if id != "new-chan-42" {
		t.Errorf("id = %q", id)
	}
}

func TestClient_Originate_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "xivo", "secret")
	_, err := client.Originate(context.Background(), OriginateOptions{Endpoint: "PJSIP/101"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestClient_Hangup(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "xivo", "secret")
	if err := client.Hangup(context.Background(), "chan-1"); err != nil {
		t.Fatalf("Hangup() failed: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q", gotMethod)
	}
}
