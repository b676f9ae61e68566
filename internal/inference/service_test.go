package inference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/medtech/go-cds/internal/domain/drugcheck"
	"github.com/medtech/go-cds/internal/domain/recommend"
	"github.com/medtech/go-cds/internal/domain/triage"
	"github.com/medtech/go-cds/pkg/circuitbreaker"
)

func newService(t *testing.T, baseURL string) *Service {
	t.Helper()
	var client *Client
	if baseURL != "" {
		client = NewClient(ClientConfig{BaseURL: baseURL}, zap.NewNop())
	}
	svc, err := NewService(client, circuitbreaker.NewManager(zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestTriageUsesRemoteResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/triage/assess" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"urgencyLevel":2,"explanation":"Model assessment.","confidence":0.91,"source":"ai","recommendedAction":"Urgent care."}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	res := svc.Triage(context.Background(), triage.Input{Symptoms: "mild cough"}, false)

	if res.Source != triage.SourceAI {
		t.Errorf("source = %s, want ai", res.Source)
	}
	if res.Level != 2 || res.Category != triage.CategoryHigh {
		t.Errorf("got level %d category %s, want 2/High", res.Level, res.Category)
	}
	if res.Confidence != 0.91 {
		t.Errorf("confidence = %v, want 0.91", res.Confidence)
	}
}

func TestTriageFallsBackOnRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	res := svc.Triage(context.Background(), triage.Input{Symptoms: "chest pain"}, false)

	if res.Source != triage.SourceRuleBased {
		t.Errorf("source = %s, want rule-based", res.Source)
	}
	if res.Level != 1 {
		t.Errorf("level = %d, want 1 for chest pain", res.Level)
	}
	if res.Confidence != 0.70 {
		t.Errorf("confidence = %v, want fallback 0.70", res.Confidence)
	}
}

func TestTriageFallsBackOnInvalidRemoteLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"urgencyLevel":9,"explanation":"bad","confidence":0.9}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	res := svc.Triage(context.Background(), triage.Input{Symptoms: "headache"}, false)

	if res.Source != triage.SourceRuleBased {
		t.Errorf("source = %s, want rule-based after invalid remote level", res.Source)
	}
}

func TestTriageForceAIBypassesOpenCircuit(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)

	// Trip the breaker open.
	for i := 0; i < 5; i++ {
		svc.Triage(context.Background(), triage.Input{Symptoms: "cough"}, false)
	}
	before := calls.Load()

	// Normal requests are now short-circuited.
	svc.Triage(context.Background(), triage.Input{Symptoms: "cough"}, false)
	if calls.Load() != before {
		t.Errorf("open circuit still reached the remote service")
	}

	// forceAI still reaches the remote service, then falls back.
	res := svc.Triage(context.Background(), triage.Input{Symptoms: "cough"}, true)
	if calls.Load() != before+1 {
		t.Errorf("forceAI did not reach the remote service")
	}
	if res.Source != triage.SourceRuleBased {
		t.Errorf("source = %s, want rule-based after forced remote failure", res.Source)
	}
}

func TestTriageWithoutClientUsesRules(t *testing.T) {
	svc := newService(t, "")
	res := svc.Triage(context.Background(), triage.Input{Symptoms: "severe bleeding"}, false)
	if res.Source != triage.SourceRuleBased || res.Level != 1 {
		t.Errorf("got %s/%d, want rule-based/1", res.Source, res.Level)
	}
}

func TestVerifyDrugWithoutImageSkipsRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote service should not be called without an image")
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	res := svc.VerifyDrug(context.Background(), drugcheck.Input{DrugName: "Aspirin", BatchNumber: "AB123456"})

	if res.Source != drugcheck.SourceRuleBased {
		t.Errorf("source = %s, want rule-based", res.Source)
	}
	if !res.IsAuthentic || res.Status != drugcheck.StatusAuthentic {
		t.Errorf("got %s/%v, want authentic/true", res.Status, res.IsAuthentic)
	}
}

func TestVerifyDrugRemotePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/drugs/analyze" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"drugName":"Aspirin","verificationStatus":"counterfeit","confidence":0.88,"source":"ml"}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	res := svc.VerifyDrug(context.Background(), drugcheck.Input{
		DrugName: "Aspirin", BatchNumber: "AB123456", Image: []byte{0xff, 0xd8},
	})

	if res.Status != drugcheck.StatusCounterfeit {
		t.Errorf("status = %s, want counterfeit", res.Status)
	}
	if res.IsAuthentic {
		t.Error("counterfeit result must not be marked authentic")
	}
	if res.Source != drugcheck.SourceML {
		t.Errorf("source = %s, want ml", res.Source)
	}
}

func TestVerifyDrugFallsBackOnRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	res := svc.VerifyDrug(context.Background(), drugcheck.Input{
		BatchNumber: "XY12", Image: []byte{0x01},
	})

	if res.Source != drugcheck.SourceRuleBased {
		t.Errorf("source = %s, want rule-based", res.Source)
	}
	if res.Status != drugcheck.StatusSuspicious {
		t.Errorf("status = %s, want suspicious for short batch", res.Status)
	}
}

func TestRecommendDrugRemotePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/drugs/recommend" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"drugCategory":"Antibiotic","warning":"","confidence":0.93,"source":"ml"}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	res := svc.RecommendDrug(context.Background(), recommend.Input{Condition: "bacterial infection", Age: 40})

	if res.DrugCategory != "Antibiotic" {
		t.Errorf("category = %q, want Antibiotic", res.DrugCategory)
	}
	if res.Source != recommend.SourceML {
		t.Errorf("source = %s, want ml", res.Source)
	}
	if res.Confidence != 0.93 {
		t.Errorf("confidence = %v, want 0.93", res.Confidence)
	}
}

func TestRecommendDrugFallsBackOnRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	res := svc.RecommendDrug(context.Background(), recommend.Input{
		Condition: "migraine", Age: 40, Allergy: "aspirin",
	})

	if res.Source != recommend.SourceRuleBased {
		t.Errorf("source = %s, want rule-based", res.Source)
	}
	if res.DrugCategory != "Analgesic" {
		t.Errorf("category = %q, want Analgesic", res.DrugCategory)
	}
	if res.Warning == "" {
		t.Error("expected aspirin allergy warning from fallback")
	}
}

func TestRecommendDrugFallsBackOnEmptyCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"warning":"","confidence":0.5}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	res := svc.RecommendDrug(context.Background(), recommend.Input{Condition: "fever", Age: 30})

	if res.Source != recommend.SourceRuleBased {
		t.Errorf("source = %s, want rule-based after empty remote category", res.Source)
	}
	if res.DrugCategory != "Antipyretic" {
		t.Errorf("category = %q, want Antipyretic", res.DrugCategory)
	}
}

func TestRecommendDrugWithoutClientUsesRules(t *testing.T) {
	svc := newService(t, "")
	res := svc.RecommendDrug(context.Background(), recommend.Input{Condition: "dry cough", Age: 30})
	if res.Source != recommend.SourceRuleBased || res.DrugCategory != "Antitussive" {
		t.Errorf("got %s/%q, want rule-based/Antitussive", res.Source, res.DrugCategory)
	}
}

func TestChatHasNoFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	if _, err := svc.Chat(context.Background(), "interaction check", ""); err == nil {
		t.Error("expected chat error when remote is down")
	}

	offline := newService(t, "")
	if _, err := offline.Chat(context.Background(), "hello", ""); err == nil {
		t.Error("expected chat error without a configured client")
	}
}

func TestChatReturnsRemoteAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"response":"No known interactions."}`))
	}))
	defer srv.Close()

	svc := newService(t, srv.URL)
	answer, err := svc.Chat(context.Background(), "interactions?", "patient context")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "No known interactions." {
		t.Errorf("answer = %q", answer)
	}
}
