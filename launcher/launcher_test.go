package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestParseFstabOpts(t *testing.T) {
	cases := []struct {
		in        string
		wantFlags uintptr
		wantData  string
	}{
		{"defaults", 0, ""},
		{"bind", unix.MS_BIND, ""},
		{"bind,defaults", unix.MS_BIND, ""},
		{"ro,noexec", 0, "ro,noexec"},
		{"bind,ro", unix.MS_BIND, "ro"},
		{"", 0, ""},
	}
	for _, c := range cases {
		flags, data := parseFstabOpts(c.in)
		if flags != c.wantFlags || data != c.wantData {
			t.Errorf("parseFstabOpts(%q) = (%v, %q), want (%v, %q)", c.in, flags, data, c.wantFlags, c.wantData)
		}
	}
}

func TestResolvePathAbsoluteUnchanged(t *testing.T) {
	if got := resolvePath("/bin/echo"); got != "/bin/echo" {
		t.Errorf("got %q, want /bin/echo", got)
	}
}

func TestResolvePathSearchesPATH(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "mytool")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)
	if got := resolvePath("mytool"); got != bin {
		t.Errorf("got %q, want %q", got, bin)
	}
}

func TestResolvePathFallsBackToNameWhenNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if got := resolvePath("nonexistent-binary"); got != "nonexistent-binary" {
		t.Errorf("got %q, want nonexistent-binary", got)
	}
}
