package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"

	"github.com/tiiuae/rosbag-data-exporter/internal/rosbag"
)

var testBatch = &rosbag.Batch{Records: []rosbag.Record{
	{Topic: "/status", Data: "ok"},
	{Topic: "/log", Data: "two\nlines"},
}}

func TestWriteBatchFormats(t *testing.T) {
	data := []struct {
		format formatValue
		want   string
	}{
		{formatJSONL, `{"topic":"/status","data":"ok"}
{"topic":"/log","data":"two\nlines"}
`},
		{formatCSV, `topic,data
/status,ok
/log,"two
lines"
`},
	}
	for _, d := range data {
		var buf bytes.Buffer
		if err := writeBatch(&buf, d.format, testBatch); err != nil {
			t.Fatalf("%s: %v", d.format, err)
		}
		if buf.String() != d.want {
			t.Errorf("%s:\ngot:\n%swant:\n%s", d.format, buf.String(), d.want)
		}
	}
}

func TestWriteBatchYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeBatch(&buf, formatYAML, testBatch); err != nil {
		t.Fatal(err)
	}
	var got []rosbag.Record
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(testBatch.Records) {
		t.Fatalf("got %d records, want %d", len(got), len(testBatch.Records))
	}
	for i, rec := range got {
		if rec != testBatch.Records[i] {
			t.Errorf("record %d = %+v, want %+v", i, rec, testBatch.Records[i])
		}
	}
}

func TestArtifactPath(t *testing.T) {
	data := []struct {
		bag  string
		mode compressionMode
		want string
	}{
		{"/recordings/mission_0.db3", compressionNone, "out/mission_0.jsonl"},
		{"/recordings/mission_0.db3.xz", compressionNone, "out/mission_0.jsonl"},
		{"/recordings/mission_3.db3", compressionXZ, "out/mission_3.jsonl.xz"},
	}
	for _, d := range data {
		got := artifactPath("out", d.bag, formatJSONL, d.mode)
		if got != filepath.FromSlash(d.want) {
			t.Errorf("artifactPath(%q) = %q, want %q", d.bag, got, d.want)
		}
	}
}

func TestWriteArtifactCompressed(t *testing.T) {
	dir := t.TempDir()
	path, err := writeArtifact(dir, "mission_0.db3", formatJSONL, compressionXZ, testBatch)
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r, err := xz.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	var want bytes.Buffer
	if err := writeBatch(&want, formatJSONL, testBatch); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, want.Bytes()) {
		t.Errorf("decompressed artifact mismatch:\ngot:\n%s\nwant:\n%s", raw, want.Bytes())
	}
}
