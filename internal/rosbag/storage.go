// Package rosbag reads rosbag2 recordings stored in the sqlite3 storage
// plugin format and exports their messages as decoded (topic, payload)
// pairs.
package rosbag

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// The sqlite3 storage plugin schema as written by rosbag2.
const storageSchema = `
CREATE TABLE topics(
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	serialization_format TEXT NOT NULL,
	offered_qos_profiles TEXT NOT NULL DEFAULT '');
CREATE TABLE messages(
	id INTEGER PRIMARY KEY,
	topic_id INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	data BLOB NOT NULL);
`

// TopicInfo describes one recorded channel.
type TopicInfo struct {
	Name                string
	Type                string
	SerializationFormat string
}

// StoredRecord is one raw record as read from storage. Data is valid until
// the next call to Next.
type StoredRecord struct {
	Topic               string
	Type                string
	SerializationFormat string
	Timestamp           int64
	Data                []byte
}

// Reader iterates the records of a single sqlite3 storage file in storage
// order. It is not safe for concurrent use.
type Reader struct {
	db   *sql.DB
	rows *sql.Rows
	rec  StoredRecord
}

// OpenReader opens path for sequential read. A missing path is reported as
// ErrNotFound and a file that is not a rosbag2 sqlite3 database as
// ErrUnsupportedStorage.
func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	r := &Reader{db: db}
	if err := r.checkSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) checkSchema() error {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('topics', 'messages')`,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedStorage, err)
	}
	if n != 2 {
		return fmt.Errorf("%w: missing rosbag2 tables", ErrUnsupportedStorage)
	}
	return nil
}

// Topics returns the channels declared in the storage file.
func (r *Reader) Topics() ([]TopicInfo, error) {
	rows, err := r.db.Query(`SELECT name, type, serialization_format FROM topics ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read topics: %w", err)
	}
	defer rows.Close()
	var topics []TopicInfo
	for rows.Next() {
		var t TopicInfo
		if err := rows.Scan(&t.Name, &t.Type, &t.SerializationFormat); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// MessageCount returns the total number of stored records.
func (r *Reader) MessageCount() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// Next returns the next record in storage order, or io.EOF when the
// recording is exhausted.
func (r *Reader) Next() (*StoredRecord, error) {
	if r.rows == nil {
		var err error
		r.rows, err = r.db.Query(`
			SELECT topics.name, topics.type, topics.serialization_format,
			       messages.timestamp, messages.data
			FROM messages JOIN topics ON messages.topic_id = topics.id
			ORDER BY messages.id`)
		if err != nil {
			return nil, fmt.Errorf("failed to read messages: %w", err)
		}
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	rec := &r.rec
	err := r.rows.Scan(&rec.Topic, &rec.Type, &rec.SerializationFormat, &rec.Timestamp, &rec.Data)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Reader) Close() error {
	if r.rows != nil {
		r.rows.Close()
	}
	return r.db.Close()
}

// Writer produces sqlite3 storage files. It exists for tooling and tests;
// bag recording as a product feature is out of scope.
type Writer struct {
	db       *sql.DB
	topicIDs map[string]int64
}

// CreateWriter creates a new storage file at path. The file must not exist.
func CreateWriter(path string) (*Writer, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("storage file already exists: %s", path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	if _, err := db.Exec(storageSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create storage schema: %w", err)
	}
	return &Writer{db: db, topicIDs: make(map[string]int64)}, nil
}

// CreateTopic declares a channel. Records can only be written to declared
// channels.
func (w *Writer) CreateTopic(name, typeName, serializationFormat string) error {
	res, err := w.db.Exec(
		`INSERT INTO topics(name, type, serialization_format) VALUES(?, ?, ?)`,
		name, typeName, serializationFormat,
	)
	if err != nil {
		return fmt.Errorf("failed to create topic '%s': %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.topicIDs[name] = id
	return nil
}

// OpenWriter opens an existing storage file for appending and loads its
// declared channels.
func OpenWriter(path string) (*Writer, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	w := &Writer{db: db, topicIDs: make(map[string]int64)}
	rows, err := db.Query(`SELECT id, name FROM topics`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedStorage, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			db.Close()
			return nil, err
		}
		w.topicIDs[name] = id
	}
	if err := rows.Err(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

// WriteSerialized appends one already-serialized record to a declared
// channel.
func (w *Writer) WriteSerialized(topic string, timestamp int64, data []byte) error {
	id, ok := w.topicIDs[topic]
	if !ok {
		return fmt.Errorf("topic '%s' has not been created", topic)
	}
	_, err := w.db.Exec(
		`INSERT INTO messages(topic_id, timestamp, data) VALUES(?, ?, ?)`,
		id, timestamp, data,
	)
	if err != nil {
		return fmt.Errorf("failed to write record on '%s': %w", topic, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.db.Close()
}
