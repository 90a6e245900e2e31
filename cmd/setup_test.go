package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	env := map[string]string{
		"GROQ_API_KEY":      "gsk",
		"DASHSCOPE_API_KEY": "sk-1",
		"GCS_BUCKET":        "",
		"UNKNOWN_KEY":       "ignored",
	}

	if err := writeEnvFile(path, env); err != nil {
		t.Fatalf("writeEnvFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "DASHSCOPE_API_KEY=sk-1\nGROQ_API_KEY=gsk\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestRequired(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty", "", true},
		{"blank", "   ", true},
		{"set", "key", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := required("Key")(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("required(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestProviderKeysCoverProviders(t *testing.T) {
	for _, name := range []string{"tongyi", "volcengine", "groq", "deepseek", "gemini"} {
		keys := providerKeys[name]
		if len(keys) == 0 {
			t.Errorf("no keys for %s", name)
		}
		for _, k := range keys {
			found := false
			for _, e := range envOrder {
				if e == k.env {
					found = true
				}
			}
			if !found {
				t.Errorf("%s is not written to .env", k.env)
			}
		}
	}
}
