package passthrough

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/u-root/cpu/p9"
)

func attachRoot(t *testing.T) *Node {
	t.Helper()
	fs := &FS{Root: t.TempDir()}
	n, err := fs.Attach("", "")
	if err != nil {
		t.Fatal(err)
	}
	return n.(*Node)
}

func TestWalkMissingFails(t *testing.T) {
	root := attachRoot(t)
	if _, err := root.Walk("nope"); err == nil {
		t.Fatal("expected error walking nonexistent entry")
	}
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	root := attachRoot(t)
	child := root.Clone().(*Node)
	if _, err := child.Create("greeting", os.O_RDWR, 0644, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := child.WriteAt([]byte("hello"), 0); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	n, err := child.ReadAt(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || string(buf) != "hello" {
		t.Fatalf("got %q, want hello", buf[:n])
	}
	if err := child.Clunk(); err != nil {
		t.Fatal(err)
	}
}

func TestMkdirAndWalk(t *testing.T) {
	root := attachRoot(t)
	if _, err := root.Mkdir("sub", 0755, 0); err != nil {
		t.Fatal(err)
	}
	sub, err := root.Walk("sub")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Qid().Type != p9.QTDIR {
		t.Fatalf("expected QTDIR, got %v", sub.Qid().Type)
	}
}

func TestReaddirOffsetBeyondEndIsEmpty(t *testing.T) {
	root := attachRoot(t)
	if _, err := root.Mkdir("only", 0755, 0); err != nil {
		t.Fatal(err)
	}
	entries, err := root.Readdir(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries past end, got %d", len(entries))
	}
}

func TestReaddirFromZero(t *testing.T) {
	root := attachRoot(t)
	if _, err := root.Mkdir("a", 0755, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := root.Mkdir("b", 0755, 0); err != nil {
		t.Fatal(err)
	}
	entries, err := root.Readdir(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestSetattrMode(t *testing.T) {
	root := attachRoot(t)
	child := root.Clone().(*Node)
	if _, err := child.Create("f", os.O_RDWR, 0600, 0); err != nil {
		t.Fatal(err)
	}
	if err := child.Setattr(p9.SetAttr{Valid: p9.SetattrMode, Mode: 0400}); err != nil {
		t.Fatal(err)
	}
	st, err := child.Getattr()
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode&0777 != 0400 {
		t.Fatalf("got mode %o, want 0400", st.Mode&0777)
	}
}

func TestRenameMovesFile(t *testing.T) {
	root := attachRoot(t)
	child := root.Clone().(*Node)
	if _, err := child.Create("old", os.O_RDWR, 0644, 0); err != nil {
		t.Fatal(err)
	}
	if err := child.Rename(root, "new"); err != nil {
		t.Fatal(err)
	}
	if _, err := root.Walk("old"); err == nil {
		t.Fatal("expected old name to be gone")
	}
	if _, err := root.Walk("new"); err != nil {
		t.Fatal(err)
	}
}

func TestSymlinkReadlink(t *testing.T) {
	root := attachRoot(t)
	if _, err := root.Symlink("link", "target", 0); err != nil {
		t.Fatal(err)
	}
	link, err := root.Walk("link")
	if err != nil {
		t.Fatal(err)
	}
	dest, err := link.(*Node).Readlink()
	if err != nil {
		t.Fatal(err)
	}
	if dest != "target" {
		t.Fatalf("got %q, want target", dest)
	}
}

func TestRemoveDeletesEntry(t *testing.T) {
	root := attachRoot(t)
	child := root.Clone().(*Node)
	if _, err := child.Create("gone", os.O_RDWR, 0644, 0); err != nil {
		t.Fatal(err)
	}
	if err := child.Remove(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Lstat(filepath.Join(root.path, "gone")); !os.IsNotExist(err) {
		t.Fatalf("expected file gone, got err=%v", err)
	}
}
