package session

import "testing"

func TestCommandReqRoundTrip(t *testing.T) {
	want := CommandReq{
		Program: "sh",
		Args:    []string{"-c", "echo hi"},
		Envs:    []EnvVar{{Key: "FOO", Val: "bar"}, {Key: "BAZ", Val: ""}},
		Fstab: []FsTab{
			{Spec: "/mnt9p/bin", File: "/bin", Vfstype: "none", Mntops: "defaults,bind", Freq: 0, Passno: 0},
		},
		TTY:    true,
		Ninep:  true,
		TmpMnt: "/tmp",
		UID:    1000,
		GID:    1000,
	}
	got, err := DecodeCommandReq(want.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got.Program != want.Program || got.TTY != want.TTY || got.Ninep != want.Ninep {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.Args) != 2 || got.Args[1] != "echo hi" {
		t.Fatalf("args mismatch: %+v", got.Args)
	}
	if len(got.Envs) != 2 || got.Envs[0].Key != "FOO" || got.Envs[0].Val != "bar" {
		t.Fatalf("envs mismatch: %+v", got.Envs)
	}
	if len(got.Fstab) != 1 || got.Fstab[0].File != "/bin" {
		t.Fatalf("fstab mismatch: %+v", got.Fstab)
	}
	if got.UID != 1000 || got.GID != 1000 || got.TmpMnt != "/tmp" {
		t.Fatalf("scalar fields mismatch: %+v", got)
	}
}

func TestCommandReqEmptyRoundTrip(t *testing.T) {
	want := CommandReq{Program: "true"}
	got, err := DecodeCommandReq(want.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got.Program != "true" || len(got.Args) != 0 || len(got.Envs) != 0 || len(got.Fstab) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeCommandReqTruncated(t *testing.T) {
	if _, err := DecodeCommandReq([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding truncated buffer")
	}
}
