package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "anon.key")
	emptyFile := filepath.Join(dir, "empty.key")

	if err := os.WriteFile(keyFile, []byte("  file-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GIGBOARD_TEST_SECRET", " env-secret ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{File: keyFile, Env: "GIGBOARD_TEST_SECRET", Value: "inline"}, want: "file-secret"},
		{name: "env before inline", src: Source{Env: "GIGBOARD_TEST_SECRET", Value: "inline"}, want: "env-secret"},
		{name: "unset env falls back to inline", src: Source{Env: "GIGBOARD_TEST_UNSET", Value: " inline "}, want: "inline"},
		{name: "empty file", src: Source{Name: "backend key", File: emptyFile}, wantErr: "backend key file"},
		{name: "missing file", src: Source{Name: "backend key", File: filepath.Join(dir, "nope")}, wantErr: "reading backend key"},
		{name: "nothing configured", src: Source{}, wantErr: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
