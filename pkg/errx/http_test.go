package errx_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tw-smith/authserver/pkg/errx"
)

func TestToHTTPResponse(t *testing.T) {
	reg := errx.NewRegistry("TEST")
	code := reg.Register("TEAPOT", errx.TypeValidation, 418, "short and stout")

	resp := reg.New(code).ToHTTPResponse()
	if resp.Error != "short and stout" {
		t.Errorf("Error = %q", resp.Error)
	}
	if resp.Code != "TEST_TEAPOT" {
		t.Errorf("Code = %q", resp.Code)
	}
	if resp.Type != string(errx.TypeValidation) {
		t.Errorf("Type = %q", resp.Type)
	}
	if resp.Status != 418 {
		t.Errorf("Status = %d", resp.Status)
	}
}

func TestToHTTPResponse_OmitsEmptyDetails(t *testing.T) {
	reg := errx.NewRegistry("TEST")
	code := reg.Register("TEAPOT", errx.TypeValidation, 418, "short and stout")

	raw, err := json.Marshal(reg.New(code).ToHTTPResponse())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(raw), "details") {
		t.Fatalf("empty details should not appear on the wire: %s", raw)
	}
}

func TestToHTTPResponse_CarriesDetails(t *testing.T) {
	reg := errx.NewRegistry("TEST")
	code := reg.Register("TEAPOT", errx.TypeValidation, 418, "short and stout")

	resp := reg.New(code).WithDetail("field", "email").ToHTTPResponse()
	if resp.Details["field"] != "email" {
		t.Fatalf("Details = %v", resp.Details)
	}
}

func TestToHTTPResponse_HidesCause(t *testing.T) {
	reg := errx.NewRegistry("TEST")
	code := reg.Register("TEAPOT", errx.TypeInternal, 500, "brewing failed")

	resp := reg.NewWithCause(code, errors.New("pq: connection refused")).ToHTTPResponse()
	if strings.Contains(resp.Error, "connection refused") {
		t.Fatalf("cause leaked onto the wire: %q", resp.Error)
	}
}
