package client

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/u-root/cpu/session"
)

// NamespaceEntry is one `target` or `target=source` part of a
// --namespace spec.
type NamespaceEntry struct {
	Target string
	Source string
}

// ParseNamespaceSpec parses the `<part>(':'<part>)*` grammar of the
// --namespace flag, where each part is either a bare mount point
// (source defaults to the same path) or `target=source`.
func ParseNamespaceSpec(spec string) ([]NamespaceEntry, error) {
	if spec == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ":")
	entries := make([]NamespaceEntry, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("client: empty part in namespace spec %q", spec)
		}
		if i := strings.IndexByte(p, '='); i >= 0 {
			entries = append(entries, NamespaceEntry{Target: p[:i], Source: p[i+1:]})
		} else {
			entries = append(entries, NamespaceEntry{Target: p, Source: p})
		}
	}
	return entries, nil
}

// BuildFsTab turns namespace entries into the FsTab records the
// launcher bind-mounts into the remote root, rooted under
// tmpMnt+"/mnt9p" where the client's passthrough 9P server is mounted.
// Duplicate targets are silently skipped after a warning, keeping the
// first occurrence.
func BuildFsTab(entries []NamespaceEntry, tmpMnt string, log Logger) []session.FsTab {
	seen := make(map[string]bool, len(entries))
	tab := make([]session.FsTab, 0, len(entries))
	for _, e := range entries {
		if seen[e.Target] {
			log.Printf("client: duplicate namespace target %q ignored", e.Target)
			continue
		}
		seen[e.Target] = true
		tab = append(tab, session.FsTab{
			Spec:    tmpMnt + "/mnt9p" + e.Source,
			File:    e.Target,
			Vfstype: "none",
			Mntops:  "defaults,bind",
			Freq:    0,
			Passno:  0,
		})
	}
	return tab
}

// ParseFstabFile reads an /etc/fstab-syntax file, skipping blank lines
// and lines starting with '#'.
func ParseFstabFile(path string) ([]session.FsTab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tab []session.FsTab
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("client: malformed fstab line %q", line)
		}
		entry := session.FsTab{
			Spec:    fields[0],
			File:    fields[1],
			Vfstype: fields[2],
			Mntops:  fields[3],
		}
		if len(fields) >= 5 {
			if entry.Freq, err = parseUint32(fields[4]); err != nil {
				return nil, fmt.Errorf("client: fstab freq field: %w", err)
			}
		}
		if len(fields) >= 6 {
			if entry.Passno, err = parseUint32(fields[5]); err != nil {
				return nil, fmt.Errorf("client: fstab passno field: %w", err)
			}
		}
		tab = append(tab, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tab, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}
