package main

import (
	"container/heap"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeLogger struct{}

func (l fakeLogger) Infof(string, ...interface{}) error  { return nil }
func (l fakeLogger) Errorf(string, ...interface{}) error { return nil }
func (l fakeLogger) Errorln(...interface{}) error        { return nil }

func TestExportManager(t *testing.T) {
	const (
		workerCount = 5
		bagCount    = 100
	)
	var (
		mutex    sync.Mutex
		exported bagQueue
		done     = make(chan struct{})

		manager *exportManager
		ctx     = context.Background()
		//#nosec G404 -- Tests should be deterministic.
		rnd = rand.New(rand.NewSource(42))
	)
	manager = newExportManager(workerCount, func(ctx context.Context, bag *bagMetadata) error {
		time.Sleep(10 * time.Millisecond)
		mutex.Lock()
		defer mutex.Unlock()
		exported = append(exported, bag)
		if len(exported) == bagCount {
			close(done)
		}
		return nil
	}, fakeLogger{})
	Convey("Scenario: exportManager drains its queue with bounded workers", t, func() {
		Convey("The correct number of bags are exported", func() {
			for i := 0; i < bagCount; i++ {
				manager.AddBag(ctx, &bagMetadata{
					path:   fmt.Sprint("/tmp/exportmanager_test/example/path/bag", i, ".db3"),
					number: i,
					isNew:  rnd.Int()%3 == 0,
				})
			}
			<-done
			mutex.Lock()
			defer mutex.Unlock()
			So(len(exported), ShouldEqual, bagCount)
		})
	})
}

func TestBagQueueOrder(t *testing.T) {
	Convey("Scenario: the queue interleaves live and backlog bags correctly", t, func() {
		var (
			next    *bagMetadata
			manager = newExportManager(1, nil, fakeLogger{})
		)
		// Bags are pushed and popped by hand so no worker runs and the nil
		// export func is never called.
		add := func(number int, isNew bool) {
			manager.mutex.Lock()
			defer manager.mutex.Unlock()
			heap.Push(&manager.queue, &bagMetadata{
				path:   fmt.Sprintf("bag_%d.db3", number),
				number: number,
				isNew:  isNew,
			})
		}
		add(0, false)
		add(1, false)
		add(7, true)
		add(9, true)

		pop := func() *bagMetadata {
			manager.mutex.Lock()
			defer manager.mutex.Unlock()
			return manager.nextBag()
		}
		Convey("Live bags come first, newest first", func() {
			next = pop()
			So(next.number, ShouldEqual, 9)
			next = pop()
			So(next.number, ShouldEqual, 7)
		})
		Convey("Then backlog, oldest first", func() {
			pop()
			pop()
			next = pop()
			So(next.number, ShouldEqual, 0)
			next = pop()
			So(next.number, ShouldEqual, 1)
			So(pop(), ShouldBeNil)
		})
	})
}
