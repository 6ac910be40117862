package main

import (
	"container/heap"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/semaphore"
)

type loggerInterface interface {
	Infof(format string, a ...interface{}) error
	Errorf(format string, a ...interface{}) error
	Errorln(a ...interface{}) error
}

type stdLogger struct{}

func (stdLogger) Infof(format string, a ...interface{}) error {
	log.Printf(format, a...)
	return nil
}

func (stdLogger) Errorf(format string, a ...interface{}) error {
	log.Printf(format, a...)
	return nil
}

func (stdLogger) Errorln(a ...interface{}) error {
	log.Println(a...)
	return nil
}

type bagQueue []*bagMetadata

func (a bagQueue) Len() int { return len(a) }

func (a bagQueue) Swap(i, j int) {
	a[i], a[j] = a[j], a[i]
	a[i].index = i
	a[j].index = j
}

// Live bags are exported newest first so fresh data reaches the backend
// quickly; backlog is drained oldest first. Live bags go before backlog.
func (a bagQueue) Less(i, j int) bool {
	if a[i].isNew && a[j].isNew {
		return a[i].number > a[j].number
	} else if !a[i].isNew && !a[j].isNew {
		return a[i].number < a[j].number
	} else {
		return a[i].isNew
	}
}

func (a *bagQueue) Push(x interface{}) {
	n := len(*a)
	item := x.(*bagMetadata)
	item.index = n
	*a = append(*a, item)
}

func (a *bagQueue) Pop() interface{} {
	old := *a
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*a = old[0 : n-1]
	return item
}

type exportBagFunc = func(context.Context, *bagMetadata) error

// exportManager queues completed bags and exports them with a bounded
// number of concurrent workers.
type exportManager struct {
	exportBag         exportBagFunc
	removeAfterExport bool
	logger            loggerInterface

	mutex sync.Mutex
	// Guarded by mutex.
	workerCount *semaphore.Weighted
	// Guarded by mutex.
	queue bagQueue
}

func newExportManager(workerCount int, exportBag exportBagFunc, logger loggerInterface) *exportManager {
	return &exportManager{
		workerCount: semaphore.NewWeighted(int64(workerCount)),
		exportBag:   exportBag,
		logger:      logger,
	}
}

// LoadExistingBags queues the backlog already present in dir, including
// compressed splits and splits in subdirectories.
func (m *exportManager) LoadExistingBags(dir string) error {
	dir = escapeMatchPattern(filepath.Clean(dir))
	for _, pattern := range []string{"/*.db3", "/*.db3.xz", "/*.db3.lz4", "/*/*.db3"} {
		if err := m.addGlob(dir + pattern); err != nil {
			return err
		}
	}
	heap.Init(&m.queue)
	return nil
}

func (m *exportManager) addGlob(pattern string) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, match := range matches {
		if bag := newBagMetadata(match, false); bag != nil {
			m.queue = append(m.queue, bag)
		}
	}
	return nil
}

func (m *exportManager) SetWorkerCount(n int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.workerCount = semaphore.NewWeighted(int64(n))
}

// StartWorker exports queued bags until the queue is empty, the worker
// limit is reached or ctx is cancelled.
func (m *exportManager) StartWorker(ctx context.Context) {
	for ctx.Err() == nil {
		bag, release := m.acquireBag()
		if bag == nil {
			return
		}
		m.logger.Infof("bag '%s' is ready", bag.path)
		if err := m.exportBag(ctx, bag); err != nil {
			m.logger.Errorf("failed to export bag '%s': %v", bag.path, err)
		} else {
			m.logger.Infof("bag '%s' exported successfully", bag.path)
			if m.removeAfterExport {
				m.removeBagFiles(bag)
			}
		}
		release()
	}
}

func (m *exportManager) acquireBag() (*bagMetadata, func()) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.workerCount.TryAcquire(1) {
		return nil, nil
	}
	bag := m.nextBag()
	if bag == nil {
		m.workerCount.Release(1)
		return nil, nil
	}
	sem := m.workerCount
	return bag, func() { sem.Release(1) }
}

func (m *exportManager) removeBagFiles(bag *bagMetadata) {
	matches, err := filepath.Glob(escapeMatchPattern(bag.path) + "*")
	if err != nil {
		m.logger.Errorf("failed to remove files for '%s': %v", bag.path, err)
		return
	}
	for _, match := range matches {
		if err = os.Remove(match); err != nil {
			m.logger.Errorf("failed to remove '%s': %v", match, err)
		}
	}
	bagDir := filepath.Dir(bag.path)
	if err = os.Remove(bagDir); err != nil && !isDirNotEmpty(err) {
		m.logger.Errorf("failed to remove '%s': %v", bagDir, err)
	}
}

func isDirNotEmpty(err error) bool {
	return errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST)
}

func (m *exportManager) AddBag(ctx context.Context, bag *bagMetadata) {
	m.mutex.Lock()
	heap.Push(&m.queue, bag)
	m.mutex.Unlock()
	go m.StartWorker(ctx)
}

// Callers must hold m.mutex.
func (m *exportManager) nextBag() *bagMetadata {
	if len(m.queue) == 0 {
		return nil
	}
	bag := heap.Pop(&m.queue).(*bagMetadata)
	if len(m.queue) < cap(m.queue)/3 {
		old := m.queue
		m.queue = make(bagQueue, len(old))
		copy(m.queue, old)
	}
	return bag
}

// escapeMatchPattern escapes glob metacharacters so a literal path can be
// used as a filepath.Glob prefix.
func escapeMatchPattern(s string) string {
	return strings.NewReplacer(
		`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`,
	).Replace(s)
}
