package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestParseListing(t *testing.T) {
	codes, err := ParseListing([]byte(listingPage))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ALK", "KMB", "ALK", "RMDEN21"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("codes = %v, want %v", codes, want)
	}
}

func TestParseDropdown(t *testing.T) {
	codes, err := ParseDropdown([]byte(dropdownPage))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ADIN", "ALK", "KMB"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("codes = %v, want %v", codes, want)
	}
}

func TestFilterCodes(t *testing.T) {
	tests := []struct {
		name     string
		codes    []string
		excluded []string
		want     []string
	}{
		{"drops digits", []string{"ALK", "RMDEN21", "KMB"}, nil, []string{"ALK", "KMB"}},
		{"drops excluded", []string{"ALK", "MSEI", "KMB"}, []string{"msei"}, []string{"ALK", "KMB"}},
		{"keeps order", []string{"ZAS", "ADIN"}, nil, []string{"ZAS", "ADIN"}},
		{"empty", nil, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterCodes(tt.codes, tt.excluded)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterCodes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListIssuerCodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/en/issuers/a", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage))
	})
	mux.HandleFunc("/en/issuers/b", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<table id="otherlisting-table"><tr><td>ZAS</td></tr><tr><td>KMB</td></tr></table>`))
	})
	mux.HandleFunc("/en/issuers/down", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(server.URL)

	t.Run("merges pages in order", func(t *testing.T) {
		codes, err := c.ListIssuerCodes(context.Background(), []string{"/en/issuers/a", "/en/issuers/b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"ALK", "KMB", "RMDEN21", "ZAS"}
		if !reflect.DeepEqual(codes, want) {
			t.Errorf("codes = %v, want %v", codes, want)
		}
	})

	t.Run("skips unreachable page", func(t *testing.T) {
		codes, err := c.ListIssuerCodes(context.Background(), []string{"/en/issuers/down", "/en/issuers/b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"ZAS", "KMB"}
		if !reflect.DeepEqual(codes, want) {
			t.Errorf("codes = %v, want %v", codes, want)
		}
	})

	t.Run("all pages failing is an error", func(t *testing.T) {
		_, err := c.ListIssuerCodes(context.Background(), []string{"/en/issuers/down"})
		if !errors.Is(err, ErrNoListings) {
			t.Fatalf("expected ErrNoListings, got %v", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
			t.Errorf("expected wrapped 502 APIError, got %v", err)
		}
	})
}

func TestDropdownCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/en/stats/symbolhistory/ALK" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(dropdownPage))
	}))
	defer server.Close()

	codes, err := NewClient(server.URL).DropdownCodes(context.Background(), "ALK")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != 3 {
		t.Errorf("len(codes) = %d, want 3", len(codes))
	}
}
