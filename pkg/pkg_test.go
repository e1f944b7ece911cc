package pkg

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	if Name != "cs" {
		t.Errorf("Name = %q, want %q", Name, "cs")
	}
}

func TestVersion(t *testing.T) {
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("read VERSION: %v", err)
	}

	if content := strings.TrimSpace(string(buf)); Version != content {
		t.Errorf("Version = %q, want %q", Version, content)
	}

	if strings.ContainsAny(Version, " \n") {
		t.Errorf("Version %q contains whitespace", Version)
	}
}

func TestAuthor(t *testing.T) {
	if !slices.ContainsFunc(Author, func(a AuthorInfo) bool {
		return a.Name == "ardnew" && a.Email == "andrew@ardnew.com"
	}) {
		t.Errorf("Author = %v, missing ardnew", Author)
	}

	for i, author := range Author {
		if author.Name == "" && author.Email == "" {
			t.Errorf("Author[%d] must define at least Name or Email", i)
		}
	}
}

func TestPrefix(t *testing.T) {
	// test binaries resolve to the command name
	if got := Prefix(); got != Name {
		t.Errorf("Prefix() = %q, want %q", got, Name)
	}
}

func TestPaths(t *testing.T) {
	if got, want := ConfigPath("config"), filepath.Join(ConfigDir(), "config"); got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}

	if got, want := CachePath("history.db"), filepath.Join(CacheDir(), "history.db"); got != want {
		t.Errorf("CachePath = %q, want %q", got, want)
	}

	if filepath.Base(ConfigDir()) != Prefix() || filepath.Base(CacheDir()) != Prefix() {
		t.Errorf("directories %q, %q not rooted at prefix", ConfigDir(), CacheDir())
	}
}
