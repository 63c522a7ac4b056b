// worker.go - worker goroutine lifecycle management.
// Copyright (C) 2025  The triplex Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package worker provides a simple goroutine worker lifecycle abstraction,
// intended to be composed with types that own long-running goroutines.
package worker

import "sync"

// Worker is a set of managed background goroutines.  It is expected to be
// embedded into structs that spawn workers, giving them Go, Halt and HaltCh.
type Worker struct {
	initOnce sync.Once
	haltOnce sync.Once

	wg     sync.WaitGroup
	haltCh chan struct{}
}

func (w *Worker) init() {
	w.haltCh = make(chan struct{})
}

// Go spawns fn in a new goroutine owned by the Worker.
func (w *Worker) Go(fn func()) {
	w.initOnce.Do(w.init)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
}

// Halt signals all of the Worker's goroutines to terminate, and waits till
// all of them have done so.  It is safe to call Halt more than once.
func (w *Worker) Halt() {
	w.initOnce.Do(w.init)
	w.haltOnce.Do(func() { close(w.haltCh) })
	w.wg.Wait()
}

// HaltCh returns the channel that will be closed at Halt time.  Goroutines
// spawned via Go should select on it and return when it is readable.
func (w *Worker) HaltCh() <-chan struct{} {
	w.initOnce.Do(w.init)
	return w.haltCh
}
