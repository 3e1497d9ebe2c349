package contract_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"forward-visa/internal/contract"
	"forward-visa/internal/forward"
)

const forwardURL = "https://forward-api-qa.ckotech.co/forward"

func jsonHeader() http.Header {
	return http.Header{"Content-Type": []string{"application/json"}}
}

func TestDefault_Loads(t *testing.T) {
	v, err := contract.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if v.Title() != "Forward API" {
		t.Fatalf("title = %q", v.Title())
	}
}

func TestCheckForward_OK(t *testing.T) {
	v, err := contract.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	body := []byte(`{"request_id":"fwd_1","destination_response":{"status":200,"headers":{"x":["1"]},"body":"{}"}}`)
	if err := v.CheckForward(context.Background(), forwardURL, http.StatusOK, jsonHeader(), body); err != nil {
		t.Fatalf("CheckForward: %v", err)
	}
}

func TestCheckForward_MissingDestinationResponse(t *testing.T) {
	v, err := contract.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	err = v.CheckForward(context.Background(), forwardURL, http.StatusOK, jsonHeader(), []byte(`{"request_id":"fwd_1"}`))
	var se *forward.ResponseShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ResponseShapeError, got %v", err)
	}
}

func TestCheckForward_BodyNotString(t *testing.T) {
	v, err := contract.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	body := []byte(`{"destination_response":{"body":{"data":"{}"}}}`)
	if err := v.CheckForward(context.Background(), forwardURL, http.StatusOK, jsonHeader(), body); err == nil {
		t.Fatal("expected contract violation for non-string body")
	}
}

func TestCheckForward_MissingContentType(t *testing.T) {
	v, err := contract.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	body := []byte(`{"destination_response":{"body":"{}"}}`)
	if err := v.CheckForward(context.Background(), forwardURL, http.StatusOK, http.Header{}, body); err == nil {
		t.Fatal("expected failure: missing response Content-Type must break contract")
	}
}

func TestValidateResponse_UnknownRoute(t *testing.T) {
	v, err := contract.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	_, err = v.ValidateResponse(context.Background(), http.MethodPost, "https://forward-api-qa.ckotech.co/other", http.StatusOK, jsonHeader(), []byte(`{}`))
	if err == nil {
		t.Fatal("expected route not found")
	}
}

func TestCheckForward_PrefixedURL(t *testing.T) {
	v, err := contract.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	body := []byte(`{"request_id":"fwd_1","destination_response":{"status":200,"headers":{},"body":"{}"}}`)
	for _, u := range []string{
		"https://gateway.example.com/v1/forward",
		"http://127.0.0.1:8080/api/forward?x=1",
		"http://127.0.0.1:8080",
	} {
		if err := v.CheckForward(context.Background(), u, http.StatusOK, jsonHeader(), body); err != nil {
			t.Fatalf("CheckForward(%s): %v", u, err)
		}
	}
}

const customSpec = `
openapi: 3.0.3
info: { title: Custom, version: "1" }
paths:
  /forward:
    post:
      responses:
        "200": { description: ok }
`

func TestLoadFromBytes_Custom(t *testing.T) {
	v, err := contract.LoadFromBytes([]byte(customSpec))
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if _, err := v.ValidateResponse(context.Background(), http.MethodPost, forwardURL, http.StatusOK, http.Header{}, nil); err != nil {
		t.Fatalf("ValidateResponse: %v", err)
	}
	if v.Title() != "Custom" {
		t.Fatalf("title = %q", v.Title())
	}
}
