package rosbag

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	std_msgs_msg "github.com/tiiuae/rosbag-data-exporter/msgs/std_msgs/msg"
)

func writeTestBag(t *testing.T, path string, records []Record) {
	t.Helper()
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	topics := map[string]bool{}
	for _, rec := range records {
		if !topics[rec.Topic] {
			err := w.CreateTopic(rec.Topic, std_msgs_msg.StringTypeName, "cdr")
			if err != nil {
				t.Fatal(err)
			}
			topics[rec.Topic] = true
		}
	}
	for i, rec := range records {
		msg := std_msgs_msg.NewString()
		msg.Data = rec.Data
		body, err := msg.SerializeCDR()
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteSerialized(rec.Topic, int64(i), body); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReaderRoundTrip(t *testing.T) {
	records := []Record{
		{Topic: "/status", Data: "ok"},
		{Topic: "/log", Data: "first"},
		{Topic: "/status", Data: "still ok"},
	}
	path := filepath.Join(t.TempDir(), "test_0.db3")
	writeTestBag(t, path, records)

	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	topics, err := r.Topics()
	if err != nil {
		t.Fatal(err)
	}
	wantTopics := []TopicInfo{
		{Name: "/status", Type: std_msgs_msg.StringTypeName, SerializationFormat: "cdr"},
		{Name: "/log", Type: std_msgs_msg.StringTypeName, SerializationFormat: "cdr"},
	}
	if diff := cmp.Diff(wantTopics, topics); diff != "" {
		t.Errorf("Topics mismatch (-want +got):\n%s", diff)
	}

	n, err := r.MessageCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != len(records) {
		t.Errorf("MessageCount = %d, want %d", n, len(records))
	}

	var got []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		msg := std_msgs_msg.NewString()
		if err := msg.DeserializeCDR(rec.Data); err != nil {
			t.Fatal(err)
		}
		got = append(got, Record{Topic: rec.Topic, Data: msg.Data})
	}
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateWriterRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_0.db3")
	writeTestBag(t, path, nil)
	if _, err := CreateWriter(path); err == nil {
		t.Fatal("CreateWriter on an existing file should fail")
	}
}

func TestWriteSerializedUnknownTopic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_0.db3")
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.WriteSerialized("/nope", 0, []byte{0}); err == nil {
		t.Fatal("writing to an undeclared topic should fail")
	}
}
