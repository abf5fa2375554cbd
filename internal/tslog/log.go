/*
Copyright 2026 The PulseWave Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package tslog is a thin adapter around glog, the same role vitess's
// vt/log package plays for vtgate. The planner and record builder log
// through here rather than calling glog directly so the logging backend
// can be swapped without touching call sites.
package tslog

import (
	"github.com/golang/glog"
	"github.com/spf13/pflag"
)

// Flush ensures any pending log I/O is written.
var Flush = glog.Flush

// Level is the glog verbosity level used by V-gated logging.
type Level = glog.Level

func Infof(format string, args ...any)    { glog.Infof(format, args...) }
func Warningf(format string, args ...any) { glog.Warningf(format, args...) }
func Errorf(format string, args ...any)   { glog.Errorf(format, args...) }

// V reports whether verbosity level l is enabled, mirroring glog.V.
func V(l Level) glog.Verbose { return glog.V(l) }

// RegisterFlags installs the subset of glog's flags a host binary may want
// to expose, mirroring vt/log.RegisterFlags. Hosting binaries are outside
// this module's scope (spec.md §1 treats CLI surfaces as external); this
// exists only so one can be wired up without reaching into glog directly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Uint64Var(&glog.MaxSize, "log-rotate-max-size", glog.MaxSize, "size in bytes at which logs are rotated")
}
