package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medtech/go-cds/internal/domain/triage"
)

type fakeTriageDecider struct {
	lastInput   triage.Input
	lastForceAI bool
	result      triage.Result
}

func (f *fakeTriageDecider) Triage(_ context.Context, in triage.Input, forceAI bool) *triage.Result {
	f.lastInput = in
	f.lastForceAI = forceAI
	res := f.result
	res.Symptoms = in.Symptoms
	return &res
}

type fakeTriageStore struct {
	saved   []*triage.Record
	saveErr error
}

func (f *fakeTriageStore) Save(_ context.Context, rec *triage.Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeTriageStore) GetByID(_ context.Context, id string) (*triage.Record, error) {
	for _, rec := range f.saved {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, context.Canceled
}

func (f *fakeTriageStore) List(_ context.Context, page, limit int) ([]*triage.Record, int, error) {
	return f.saved, len(f.saved), nil
}

func (f *fakeTriageStore) ListByPatient(_ context.Context, patientID string) ([]*triage.Record, error) {
	var out []*triage.Record
	for _, rec := range f.saved {
		if rec.PatientID == patientID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func ruleResult(level int) triage.Result {
	return triage.Result{
		Level:             level,
		Category:          triage.CategoryForLevel(level),
		Explanation:       "Critical symptoms detected requiring immediate attention.",
		Confidence:        0.70,
		Source:            triage.SourceRuleBased,
		RecommendedAction: "Immediate medical attention required. Call emergency services or proceed to the emergency department.",
	}
}

func postTriage(t *testing.T, h *TriageHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestAssessPersistsAndResponds(t *testing.T) {
	decider := &fakeTriageDecider{result: ruleResult(1)}
	store := &fakeTriageStore{}
	h := NewTriageHandler(decider, store, nil, nil)

	rec := postTriage(t, h, `{"patientName":"Jane Roe","age":34,"gender":"female","symptoms":"chest pain","duration":"1 hour"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp triage.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.Level != 1 || resp.Result.Category != triage.CategoryEmergency {
		t.Errorf("got %d/%s, want 1/Emergency", resp.Result.Level, resp.Result.Category)
	}
	if !strings.Contains(resp.Result.Explanation, "MEDICAL DISCLAIMER") {
		t.Error("response explanation missing the medical disclaimer")
	}
	if resp.PatientID == "" {
		t.Error("missing patient id should be generated")
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved %d records, want 1", len(store.saved))
	}
	if strings.Contains(store.saved[0].Result.Explanation, "MEDICAL DISCLAIMER") {
		t.Error("stored explanation should not carry the disclaimer")
	}
}

func TestAssessForceAIFlag(t *testing.T) {
	decider := &fakeTriageDecider{result: ruleResult(3)}
	h := NewTriageHandler(decider, &fakeTriageStore{}, nil, nil)

	postTriage(t, h, `{"patientName":"Jane","age":30,"symptoms":"cough","forceAI":true}`)
	if !decider.lastForceAI {
		t.Error("forceAI flag was not forwarded to the decider")
	}
}

func TestAssessValidation(t *testing.T) {
	h := NewTriageHandler(&fakeTriageDecider{result: ruleResult(5)}, &fakeTriageStore{}, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing name", `{"age":30,"symptoms":"cough"}`},
		{"missing symptoms", `{"patientName":"Jane","age":30}`},
		{"negative age", `{"patientName":"Jane","age":-1,"symptoms":"cough"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postTriage(t, h, tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListReturnsPagedEnvelope(t *testing.T) {
	store := &fakeTriageStore{}
	h := NewTriageHandler(&fakeTriageDecider{result: ruleResult(4)}, store, nil, nil)
	postTriage(t, h, `{"patientName":"Jane","age":30,"symptoms":"cough"}`)

	req := httptest.NewRequest("GET", "/?page=1&pageSize=10", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Total      int `json:"total"`
		Page       int `json:"page"`
		PageSize   int `json:"pageSize"`
		TotalPages int `json:"totalPages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Page != 1 || resp.PageSize != 10 || resp.TotalPages != 1 {
		t.Errorf("unexpected envelope: %+v", resp)
	}
}

func TestGetUnknownIDReturns404(t *testing.T) {
	h := NewTriageHandler(&fakeTriageDecider{result: ruleResult(5)}, &fakeTriageStore{}, nil, nil)

	req := httptest.NewRequest("GET", "/no-such-id", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
