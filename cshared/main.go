// Package main builds the c-shared export surface of the exporter:
//
//	go build -buildmode=c-shared -o librosbagexport.so ./cshared
//
// Foreign callers get the recording as a flat, length-known array of
// (topic, data) C string pairs. Unlike the Go API, C strings cannot carry
// embedded NULs; payloads containing one are truncated at the first NUL.
package main

/*
#include <stdlib.h>

typedef struct {
	char* topic;
	char* data;
} RosbagMsg;

typedef struct {
	RosbagMsg* data;
	size_t len;
} RosbagData;
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"github.com/tiiuae/rosbag-data-exporter/internal/rosbag"
)

var (
	lastErrMutex sync.Mutex
	lastErr      string
)

func setLastError(err error) {
	lastErrMutex.Lock()
	defer lastErrMutex.Unlock()
	if err == nil {
		lastErr = ""
	} else {
		lastErr = err.Error()
	}
}

// ReadRosbag exports the recording at path as a flat array of (topic, data)
// pairs. On failure the returned array is empty and the cause is available
// through LastRosbagError. The caller owns the result and releases it with
// a single FreeRosbagData call.
//
//export ReadRosbag
func ReadRosbag(path *C.char) C.RosbagData {
	exporter := &rosbag.Exporter{}
	batch, err := exporter.Export(context.Background(), C.GoString(path))
	setLastError(err)
	if err != nil || batch.Count() == 0 {
		return C.RosbagData{}
	}
	size := C.size_t(batch.Count()) * C.size_t(unsafe.Sizeof(C.RosbagMsg{}))
	arr := (*C.RosbagMsg)(C.malloc(size))
	cmsgs := (*[1 << 30]C.RosbagMsg)(unsafe.Pointer(arr))[:batch.Count():batch.Count()]
	for i, rec := range batch.Records {
		cmsgs[i].topic = C.CString(rec.Topic)
		cmsgs[i].data = C.CString(rec.Data)
	}
	return C.RosbagData{data: arr, len: C.size_t(batch.Count())}
}

// FreeRosbagData releases an array returned by ReadRosbag, including every
// element's strings.
//
//export FreeRosbagData
func FreeRosbagData(data C.RosbagData) {
	if data.data == nil {
		return
	}
	cmsgs := (*[1 << 30]C.RosbagMsg)(unsafe.Pointer(data.data))[:data.len:data.len]
	for i := range cmsgs {
		C.free(unsafe.Pointer(cmsgs[i].topic))
		C.free(unsafe.Pointer(cmsgs[i].data))
	}
	C.free(unsafe.Pointer(data.data))
}

// LastRosbagError returns the failure cause of the most recent ReadRosbag
// call, or NULL if it succeeded. The caller frees the returned string.
//
//export LastRosbagError
func LastRosbagError() *C.char {
	lastErrMutex.Lock()
	defer lastErrMutex.Unlock()
	if lastErr == "" {
		return nil
	}
	return C.CString(lastErr)
}

func main() {}
