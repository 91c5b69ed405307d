// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conc

import (
	"golang.org/x/sync/errgroup"
)

type future interface {
	wait()
	OK() bool
	Err() error
}

// Future is the result of an asynchronous task.
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		ch: make(chan struct{}),
	}
}

func (future *Future[T]) wait() {
	<-future.ch
}

// Await blocks until the task finishes and returns its result.
func (future *Future[T]) Await() (T, error) {
	future.wait()
	return future.value, future.err
}

// Value blocks and returns the result value.
func (future *Future[T]) Value() T {
	future.wait()
	return future.value
}

// OK blocks and reports whether the task succeeded.
func (future *Future[T]) OK() bool {
	future.wait()
	return future.err == nil
}

// Err blocks and returns the task error.
func (future *Future[T]) Err() error {
	future.wait()
	return future.err
}

// Inner returns a channel closed when the task finishes.
func (future *Future[T]) Inner() <-chan struct{} {
	return future.ch
}

// Go runs fn in a new goroutine and returns its future.
func Go[T any](fn func() (T, error)) *Future[T] {
	future := newFuture[T]()
	go func() {
		future.value, future.err = fn()
		close(future.ch)
	}()
	return future
}

// AwaitAll waits for every future and returns the first error found.
func AwaitAll[T future](futures ...T) error {
	eg := errgroup.Group{}
	for _, f := range futures {
		eg.Go(func() error {
			f.wait()
			return f.Err()
		})
	}
	return eg.Wait()
}
