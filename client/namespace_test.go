package client

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type testLogger struct{ lines []string }

func (l *testLogger) Printf(format string, v ...interface{}) {
	l.lines = append(l.lines, format)
}

func TestParseNamespaceSpec(t *testing.T) {
	got, err := ParseNamespaceSpec("/bin:/lib=/usr/lib")
	if err != nil {
		t.Fatal(err)
	}
	want := []NamespaceEntry{
		{Target: "/bin", Source: "/bin"},
		{Target: "/lib", Source: "/usr/lib"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseNamespaceSpecEmpty(t *testing.T) {
	got, err := ParseNamespaceSpec("")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestParseNamespaceSpecRejectsEmptyPart(t *testing.T) {
	if _, err := ParseNamespaceSpec("/bin::/lib"); err == nil {
		t.Fatal("expected error for empty part")
	}
}

func TestBuildFsTabSkipsDuplicateTargets(t *testing.T) {
	entries := []NamespaceEntry{
		{Target: "/bin", Source: "/bin"},
		{Target: "/bin", Source: "/other"},
	}
	log := &testLogger{}
	tab := BuildFsTab(entries, "/tmp", log)
	if len(tab) != 1 {
		t.Fatalf("got %d entries, want 1", len(tab))
	}
	if tab[0].Spec != "/tmp/mnt9p/bin" {
		t.Fatalf("got spec %q", tab[0].Spec)
	}
	if len(log.lines) != 1 {
		t.Fatalf("expected one warning, got %d", len(log.lines))
	}
}

func TestBuildFsTabFields(t *testing.T) {
	entries := []NamespaceEntry{{Target: "/x", Source: "/y"}}
	tab := BuildFsTab(entries, "/tmp", &testLogger{})
	want := tab[0]
	if want.File != "/x" || want.Spec != "/tmp/mnt9p/y" || want.Vfstype != "none" || want.Mntops != "defaults,bind" {
		t.Fatalf("unexpected fstab entry: %+v", want)
	}
}

func TestParseFstabFileSkipsCommentsAndBlanks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fstab")
	content := "# comment\n\n/src /dst none defaults,bind 0 0\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	tab, err := ParseFstabFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab) != 1 {
		t.Fatalf("got %d entries, want 1", len(tab))
	}
	if tab[0].Spec != "/src" || tab[0].File != "/dst" || tab[0].Mntops != "defaults,bind" {
		t.Fatalf("unexpected entry: %+v", tab[0])
	}
}

func TestParseFstabFileRejectsShortLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fstab")
	if err := os.WriteFile(path, []byte("/src /dst\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseFstabFile(path); err == nil {
		t.Fatal("expected error for malformed line")
	}
}
