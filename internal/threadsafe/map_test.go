package threadsafe

import "testing"

func TestMap(t *testing.T) {
	m := NewMap[string, int]()
	m.Put("foo", 82)

	if v, ok := m.Get("foo"); !ok || v != 82 {
		t.Errorf("Get(%q) = %v, %v; want 82, true", "foo", v, ok)
	}
	if _, ok := m.Get("bar"); ok {
		t.Error("Get(\"bar\") returned true for non-existant key")
	}
	if !m.Add("bar", 1) {
		t.Error("Add(\"bar\") returned false for new key")
	}
	if m.Add("bar", 2) {
		t.Error("Add(\"bar\") returned true for existing key")
	}

	ok := m.Update("foo", func(v int) int { return v + 1 })
	if !ok {
		t.Error("Update did not find \"foo\" in map")
	}
	if v, _ := m.Get("foo"); v != 83 {
		t.Errorf("Update did not update value for \"foo\" (%v)", v)
	}

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	m.Del("foo")
	if _, ok := m.Get("foo"); ok {
		t.Error("Get(\"foo\") returned true after Del")
	}
}
