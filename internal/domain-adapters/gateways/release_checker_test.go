package gateways

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReleaseChecker_LatestVersion(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/repos/lanterndata/lantern/releases/latest":
			_, _ = w.Write([]byte(`{"tag_name":"v0.5.1","prerelease":false,"draft":false}`))
		case "/repos/acme/draft/releases/latest":
			_, _ = w.Write([]byte(`{"tag_name":"v9.9.9","draft":true}`))
		default:
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	checker := NewReleaseChecker("secret")
	checker.SetAPIBase(srv.URL + "/")

	tests := []struct {
		name    string
		source  string
		want    string
		wantErr bool
	}{
		{"github release", "github-release:lanterndata/lantern", "0.5.1", false},
		{"static", "static:1.2.3", "1.2.3", false},
		{"draft", "github-release:acme/draft", "", true},
		{"missing repo", "github-release:acme/missing", "", true},
		{"unknown kind", "pypi:lantern", "", true},
		{"no separator", "lantern", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checker.LatestVersion(context.Background(), tt.source)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LatestVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("LatestVersion() = %v, want %v", got, tt.want)
			}
		})
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}
