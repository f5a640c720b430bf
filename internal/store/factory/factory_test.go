package factory

import (
	"path/filepath"
	"testing"
)

func TestBackendTypeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory needs nothing", Config{Type: MemoryBackend}, false},
		{"sqlite needs path", Config{Type: SQLiteBackend}, true},
		{"rest needs url", Config{Type: RemoteBackend, RemoteAPIKey: "k"}, true},
		{"rest needs key", Config{Type: RemoteBackend, RemoteURL: "https://x"}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"empty type", Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryStore(t *testing.T) {
	s, err := New(nil).CreateStore(Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	defer s.Close()
}

func TestCreateSQLiteStore(t *testing.T) {
	s, err := New(nil).CreateStore(Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	defer s.Close()
}

func TestCreateRemoteStoreDefaultsToken(t *testing.T) {
	s, err := New(nil).CreateStore(Config{
		Type:         RemoteBackend,
		RemoteURL:    "https://example.test",
		RemoteAPIKey: "anon",
	})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	defer s.Close()
}
