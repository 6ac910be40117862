package main

import "testing"

func TestNewBagMetadata(t *testing.T) {
	data := []struct {
		path   string
		number int
		ok     bool
	}{
		{"/recordings/mission_0.db3", 0, true},
		{"/recordings/mission_12.db3", 12, true},
		{"/recordings/mission_3.db3.xz", 3, true},
		{"/recordings/mission_3.db3.lz4", 3, true},
		{"/recordings/metadata.yaml", 0, false},
		{"/recordings/mission.db3", 0, false},
		{"/recordings/mission_0.db3-wal", 0, false},
	}
	for _, d := range data {
		bag := newBagMetadata(d.path, true)
		if (bag != nil) != d.ok {
			t.Errorf("newBagMetadata(%q) = %v, want ok=%v", d.path, bag, d.ok)
			continue
		}
		if bag != nil && bag.number != d.number {
			t.Errorf("newBagMetadata(%q).number = %d, want %d", d.path, bag.number, d.number)
		}
	}
}
