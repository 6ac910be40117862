package rosbag

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/hashicorp/go-multierror"

	"github.com/tiiuae/rosbag-data-exporter/msgs"
	std_msgs_msg "github.com/tiiuae/rosbag-data-exporter/msgs/std_msgs/msg"
)

const (
	storageIdentifier   = "sqlite3"
	serializationFormat = "cdr"
)

// Record is one exported (topic, payload) pair. Both strings are
// independent copies owned by the caller; they do not reference decoder or
// storage buffers.
type Record struct {
	Topic string `json:"topic" yaml:"topic"`
	Data  string `json:"data" yaml:"data"`
}

// Batch is the result of one export: records in storage order plus, in
// skip mode, diagnostics for every record that was dropped.
type Batch struct {
	Records []Record
	Skipped []*DecodeError
}

// Count returns the number of exported records. It always equals
// len(b.Records).
func (b *Batch) Count() int {
	return len(b.Records)
}

// Err returns the collected diagnostics of all skipped records, or nil if
// nothing was skipped.
func (b *Batch) Err() error {
	var errs *multierror.Error
	for _, derr := range b.Skipped {
		errs = multierror.Append(errs, derr)
	}
	return errs.ErrorOrNil()
}

// Logger is the sink for per-record diagnostics in skip mode.
type Logger interface {
	Errorf(format string, a ...interface{}) error
}

type stdLogger struct{}

func (stdLogger) Errorf(format string, a ...interface{}) error {
	log.Printf(format, a...)
	return nil
}

// Exporter decodes every record of a recording as one fixed message type
// and collects the results. The zero value exports all topics as
// std_msgs/msg/String and aborts on the first undecodable record.
type Exporter struct {
	// TypeName is the full name of the schema every record is decoded
	// as. If empty, std_msgs/msg/String is used.
	TypeName string

	// Topics restricts the export to the named channels. If empty, all
	// channels are exported.
	Topics []string

	// SkipDecodeErrors drops undecodable records and collects them in
	// Batch.Skipped instead of aborting the export.
	SkipDecodeErrors bool

	// Logger receives a diagnostic for every skipped record. If nil, the
	// standard logger is used.
	Logger Logger
}

// Export reads the recording at path and returns its records in storage
// order. The path may be a single storage file, an xz or lz4 compressed
// storage file, or a bag directory with a metadata.yaml. The whole
// recording is drained before Export returns; ctx cancels between records.
func (e *Exporter) Export(ctx context.Context, path string) (*Batch, error) {
	ts, err := e.resolveType()
	if err != nil {
		return nil, err
	}
	files, err := e.resolveStorageFiles(path)
	if err != nil {
		return nil, err
	}
	var topics map[string]bool
	if len(e.Topics) > 0 {
		topics = make(map[string]bool, len(e.Topics))
		for _, t := range e.Topics {
			topics[t] = true
		}
	}
	batch := &Batch{Records: []Record{}}
	index := 0
	for _, file := range files {
		if err := e.exportFile(ctx, file, ts, topics, batch, &index); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

// resolveType is the one-time schema setup: it maps the type name to a
// registered type support and checks that the type carries a text payload.
func (e *Exporter) resolveType() (msgs.TypeSupport, error) {
	name := e.TypeName
	if name == "" {
		name = std_msgs_msg.StringTypeName
	}
	ts, ok := msgs.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown type '%s', registered types: %v",
			ErrSchemaResolution, name, msgs.RegisteredTypeNames())
	}
	if _, ok := ts.New().(msgs.TextPayload); !ok {
		return nil, fmt.Errorf("%w: type '%s' has no text payload", ErrSchemaResolution, name)
	}
	return ts, nil
}

func (e *Exporter) resolveStorageFiles(path string) ([]string, error) {
	if !isBagDir(path) {
		return []string{path}, nil
	}
	meta, err := ReadMetadata(path)
	if err != nil {
		return nil, err
	}
	return meta.StorageFiles(path)
}

func (e *Exporter) exportFile(
	ctx context.Context,
	path string,
	ts msgs.TypeSupport,
	topics map[string]bool,
	batch *Batch,
	index *int,
) error {
	if isCompressed(path) {
		scratch, cleanup, err := uncompress(path)
		if err != nil {
			return err
		}
		defer cleanup()
		path = scratch
	}
	r, err := OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		i := *index
		*index++
		if topics != nil && !topics[rec.Topic] {
			continue
		}
		if err := e.decodeRecord(rec, i, ts, batch); err != nil {
			return err
		}
	}
}

func (e *Exporter) decodeRecord(rec *StoredRecord, index int, ts msgs.TypeSupport, batch *Batch) error {
	if rec.Type != ts.TypeName() {
		return e.recordFailure(batch, &DecodeError{
			Index: index,
			Topic: rec.Topic,
			Err:   fmt.Errorf("%w: recorded as '%s'", ErrTypeMismatch, rec.Type),
		})
	}
	if rec.SerializationFormat != serializationFormat {
		return e.recordFailure(batch, &DecodeError{
			Index: index,
			Topic: rec.Topic,
			Err:   fmt.Errorf("unsupported serialization format '%s'", rec.SerializationFormat),
		})
	}
	msg := ts.New()
	if err := msg.DeserializeCDR(rec.Data); err != nil {
		return e.recordFailure(batch, &DecodeError{Index: index, Topic: rec.Topic, Err: err})
	}
	batch.Records = append(batch.Records, Record{
		Topic: rec.Topic,
		Data:  msg.(msgs.TextPayload).Payload(),
	})
	return nil
}

// recordFailure applies the decode failure policy: abort with the error by
// default, or drop the record and keep its diagnostic in skip mode.
func (e *Exporter) recordFailure(batch *Batch, derr *DecodeError) error {
	if !e.SkipDecodeErrors {
		return derr
	}
	batch.Skipped = append(batch.Skipped, derr)
	logger := e.Logger
	if logger == nil {
		logger = stdLogger{}
	}
	logger.Errorf("skipping record: %v", derr)
	return nil
}
