package gitsource

import (
	"path/filepath"
	"testing"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "https", url: "https://github.com/user/notes.git", want: filepath.Join("repos", "github.com", "user", "notes")},
		{name: "https without suffix", url: "https://gitlab.com/team/deck", want: filepath.Join("repos", "gitlab.com", "team", "deck")},
		{name: "scp-like", url: "git@github.com:user/notes.git", want: filepath.Join("repos", "github.com", "user", "notes")},
		{name: "local path", url: "/home/user/notes", wantErr: true},
		{name: "https without repo", url: "https://github.com/", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LocalPath("repos", tc.url)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected an error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LocalPath() returned an unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsGitURL(t *testing.T) {
	for path, want := range map[string]bool{
		"https://github.com/u/r.git": true,
		"git@github.com:u/r.git":     true,
		"/srv/notes.git":             true,
		"./notes":                    false,
		"/home/user/notes":           false,
	} {
		if got := IsGitURL(path); got != want {
			t.Errorf("IsGitURL(%q) = %v, want %v", path, got, want)
		}
	}
}
