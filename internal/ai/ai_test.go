package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"potencialize/internal/apperr"
)

func TestMistralClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing auth header")
		}
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "m" || len(req.Messages) != 1 {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Olá"}}]}`))
	}))
	defer srv.Close()

	c := NewMistralClient("key", srv.URL, "m", time.Second, nil)
	got, err := c.Complete(context.Background(), "hi")
	if err != nil || got != "Olá" {
		t.Fatalf("Complete = %q, %v", got, err)
	}
}

func TestMistralClientServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewMistralClient("key", srv.URL, "m", time.Second, nil)
	if _, err := c.Complete(context.Background(), "hi"); !errors.Is(err, apperr.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestAssistantOfflineFallback(t *testing.T) {
	a := NewAssistant(nil)
	text, err := a.Proposal(context.Background(), ProposalInput{Client: "Acme", Products: []string{"Diagnóstico Domínio"}, Value: 300000})
	if err != nil {
		t.Fatalf("proposal: %v", err)
	}
	if !strings.Contains(text, "Acme") || !strings.Contains(text, "R$ 3.000,00") {
		t.Fatalf("unexpected draft %q", text)
	}
}
