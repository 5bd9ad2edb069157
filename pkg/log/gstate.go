// Copyright 2018 Irfan Sharif.
// Copyright 2018 The Kura Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"sync"
	"sync/atomic"
)

// registry is a copy-on-write map. Lookups happen on every logging
// statement and take no lock; updates are rare and replace the whole map.
type registry[V any] struct {
	mu sync.Mutex
	m  atomic.Pointer[map[string]V]
}

func (r *registry[V]) get(key string) (V, bool) {
	var zero V
	m := r.m.Load()
	if m == nil {
		return zero, false
	}
	v, ok := (*m)[key]
	return v, ok
}

// update applies fn to a private copy of the map, then publishes the copy.
func (r *registry[V]) update(fn func(m map[string]V)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]V)
	if m := r.m.Load(); m != nil {
		for k, v := range *m {
			next[k] = v
		}
	}
	fn(next)
	r.m.Store(&next)
}

var gstate struct {
	gmode       atomic.Int64
	tracePoints registry[struct{}] // keyed by fname.go:line
	fileModes   registry[Mode]     // keyed by fname.go
}

func init() {
	gstate.gmode.Store(int64(DefaultMode))
}

// SetGlobalLogMode sets the global log mode to the one specified. Logging
// outside what's included in the mode is thereby suppressed.
func SetGlobalLogMode(m Mode) {
	gstate.gmode.Store(int64(m))
}

// GetGlobalLogMode gets the currently set global log mode.
func GetGlobalLogMode() Mode {
	return Mode(gstate.gmode.Load())
}

// SetTracePoint enables the provided tracepoint. A tracepoint is of the form
// filename.go:line-number corresponding to the position of a logging
// statement that, once enabled, emits a backtrace whenever it executes,
// whatever its mode.
func SetTracePoint(tp string) {
	gstate.tracePoints.update(func(m map[string]struct{}) { m[tp] = struct{}{} })
}

// ResetTracePoint stops backtraces at the provided tracepoint.
func ResetTracePoint(tp string) {
	gstate.tracePoints.update(func(m map[string]struct{}) { delete(m, tp) })
}

// GetTracePoint checks if the corresponding tracepoint is enabled.
func GetTracePoint(tp string) (tpenabled bool) {
	_, ok := gstate.tracePoints.get(tp)
	return ok
}

// SetFileLogMode sets the log mode for the provided filename. Subsequent
// logging statements within the file get filtered accordingly.
func SetFileLogMode(fname string, m Mode) {
	gstate.fileModes.update(func(fm map[string]Mode) { fm[fname] = m })
}

// GetFileLogMode gets the log mode for the specified file.
func GetFileLogMode(fname string) (m Mode, ok bool) {
	return gstate.fileModes.get(fname)
}

// ResetFileLogMode resets the log mode for the provided filename. Subsequent
// logging statements within the file get filtered as per the global log mode.
func ResetFileLogMode(fname string) {
	gstate.fileModes.update(func(fm map[string]Mode) { delete(fm, fname) })
}
