package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateForDeletion(t *testing.T) {
	validator := NewPathValidator()
	tmpFile := filepath.Join(t.TempDir(), "deleteme.txt")
	if err := os.WriteFile(tmpFile, []byte("x"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"regular temp file", tmpFile, false},
		{"missing file is validated literally", filepath.Join(t.TempDir(), "gone.txt"), false},
		{"relative path", "some/file.txt", true},
		{"empty path", "", true},
		{"null byte", "/tmp/a\x00b", true},
		{"root", "/", true},
		{"etc", "/etc", true},
		{"usr", "/usr", true},
		{"file under etc is allowed", "/etc/definitely-not-a-real-dupfinder-file", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateForDeletion(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateForDeletion(%q) = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateForDeletionRejectsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if err := NewPathValidator().ValidateForDeletion(home); err == nil {
		t.Error("home directory must be protected")
	}
}

func TestValidateForDeletionResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "sneaky")
	if err := os.Symlink("/etc", link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	if err := NewPathValidator().ValidateForDeletion(link); err == nil {
		t.Error("symlink to a protected directory must be rejected")
	}
}
