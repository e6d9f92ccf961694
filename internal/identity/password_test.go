package identity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePassword_Env(t *testing.T) {
	t.Setenv("STAKEDESK_TEST_PW", "from-env")

	pw, err := ResolvePassword(PasswordSources{EnvVar: "STAKEDESK_TEST_PW", SkipKeyrings: true})
	if err != nil {
		t.Fatalf("ResolvePassword: %v", err)
	}
	if pw != "from-env" {
		t.Errorf("password = %q", pw)
	}
}

func TestResolvePassword_FileFirstLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw")
	if err := os.WriteFile(path, []byte("from-file\r\nignored\n"), 0600); err != nil {
		t.Fatal(err)
	}

	pw, err := ResolvePassword(PasswordSources{EnvVar: "STAKEDESK_TEST_UNSET", File: path, SkipKeyrings: true})
	if err != nil {
		t.Fatalf("ResolvePassword: %v", err)
	}
	if pw != "from-file" {
		t.Errorf("password = %q", pw)
	}
}

func TestResolvePassword_MissingFile(t *testing.T) {
	_, err := ResolvePassword(PasswordSources{File: filepath.Join(t.TempDir(), "nope"), SkipKeyrings: true})
	if err == nil {
		t.Fatal("expected error for missing password file")
	}
}

func TestResolvePassword_Prompt(t *testing.T) {
	aborted := errors.New("aborted")

	pw, err := ResolvePassword(PasswordSources{SkipKeyrings: true, Prompt: func() (string, error) { return "typed", nil }})
	if err != nil || pw != "typed" {
		t.Fatalf("got %q, %v", pw, err)
	}

	_, err = ResolvePassword(PasswordSources{SkipKeyrings: true, Prompt: func() (string, error) { return "", aborted }})
	if !errors.Is(err, aborted) {
		t.Fatalf("expected prompt error, got %v", err)
	}
}

func TestResolvePassword_NothingAvailable(t *testing.T) {
	if _, err := ResolvePassword(PasswordSources{SkipKeyrings: true}); !errors.Is(err, ErrNoPassword) {
		t.Fatalf("expected ErrNoPassword, got %v", err)
	}
}
