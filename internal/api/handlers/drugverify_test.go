package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medtech/go-cds/internal/domain/drugcheck"
)

type fakeDrugDecider struct {
	lastInput drugcheck.Input
}

func (f *fakeDrugDecider) VerifyDrug(_ context.Context, in drugcheck.Input) *drugcheck.Result {
	f.lastInput = in
	return &drugcheck.Result{
		DrugName:    in.DrugName,
		BatchNumber: in.BatchNumber,
		IsAuthentic: true,
		Confidence:  0.75,
		Status:      drugcheck.StatusAuthentic,
		Source:      drugcheck.SourceRuleBased,
	}
}

type fakeDrugStore struct {
	saved []*drugcheck.Record
}

func (f *fakeDrugStore) Save(_ context.Context, rec *drugcheck.Record) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeDrugStore) History(_ context.Context, page, limit int) ([]*drugcheck.Record, int, error) {
	return f.saved, len(f.saved), nil
}

func TestVerifyJSONBody(t *testing.T) {
	decider := &fakeDrugDecider{}
	store := &fakeDrugStore{}
	h := NewDrugVerifyHandler(decider, store, nil, nil)

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"drugName":"Aspirin","batchNumber":"AB123456"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if decider.lastInput.BatchNumber != "AB123456" {
		t.Errorf("batch = %q", decider.lastInput.BatchNumber)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved %d records, want 1", len(store.saved))
	}

	var resp drugcheck.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Result.Status != drugcheck.StatusAuthentic || !resp.Result.IsAuthentic {
		t.Errorf("got %s/%v", resp.Result.Status, resp.Result.IsAuthentic)
	}
}

func TestVerifyMultipartWithImage(t *testing.T) {
	decider := &fakeDrugDecider{}
	h := NewDrugVerifyHandler(decider, &fakeDrugStore{}, nil, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("drugName", "Aspirin")
	mw.WriteField("batchNumber", "AB123456")
	fw, _ := mw.CreateFormFile("image", "pack.jpg")
	fw.Write([]byte{0xff, 0xd8, 0xff})
	mw.Close()

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(decider.lastInput.Image) != 3 {
		t.Errorf("image bytes = %d, want 3", len(decider.lastInput.Image))
	}
	if decider.lastInput.DrugName != "Aspirin" {
		t.Errorf("drug name = %q", decider.lastInput.DrugName)
	}
}

func TestVerifyRejectsBadBody(t *testing.T) {
	h := NewDrugVerifyHandler(&fakeDrugDecider{}, &fakeDrugStore{}, nil, nil)

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	store := &fakeDrugStore{saved: []*drugcheck.Record{{ID: "v-1"}}}
	h := NewDrugVerifyHandler(&fakeDrugDecider{}, store, nil, nil)

	req := httptest.NewRequest("GET", "/history", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}
