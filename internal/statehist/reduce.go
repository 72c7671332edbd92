// Copyright 2024-2025 Andres Morey
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package statehist

import (
	"github.com/Checkmk/checkmk-sub006/internal/core"
	"github.com/Checkmk/checkmk-sub006/internal/filter"
	"github.com/Checkmk/checkmk-sub006/internal/logcache"
	"github.com/Checkmk/checkmk-sub006/internal/row"
)

// entryKind classifies a log entry for replay dispatch (§4.6
// "Replay"). The two "initial state" variants are split out from
// their ordinary counterparts only because the log-initial-states
// marker window closes on anything else (§4.6 "logging-initial-states
// markers").
type entryKind int

const (
	kindIgnore entryKind = iota
	kindHostState
	kindHostInitialState
	kindServiceState
	kindServiceInitialState
	kindHostDowntime
	kindServiceDowntime
	kindHostFlapping
	kindServiceFlapping
	kindTimeperiodTransition
	kindInitialStatesMarker
)

func kindOf(e *logcache.Entry) entryKind {
	switch e.Type {
	case logcache.TypeHostAlert, logcache.TypeCurrentHostState:
		return kindHostState
	case logcache.TypeInitialHostState:
		return kindHostInitialState
	case logcache.TypeServiceAlert, logcache.TypeCurrentServiceState:
		return kindServiceState
	case logcache.TypeInitialServiceState:
		return kindServiceInitialState
	case logcache.TypeHostDowntimeAlert:
		return kindHostDowntime
	case logcache.TypeServiceDowntimeAlert:
		return kindServiceDowntime
	case logcache.TypeHostFlappingAlert:
		return kindHostFlapping
	case logcache.TypeServiceFlappingAlert:
		return kindServiceFlapping
	case logcache.TypeTimeperiodTransition:
		return kindTimeperiodTransition
	case logcache.TypeLoggingInitialStates:
		return kindInitialStatesMarker
	default:
		return kindIgnore
	}
}

func isInitialStateKind(k entryKind) bool {
	return k == kindHostInitialState || k == kindServiceInitialState
}

// reducer holds the mutable replay state threaded through one
// Replay call (§4.6).
type reducer struct {
	since, until    int64
	queryTimeframe  int64
	onlyUpdate      bool
	inInitialWindow bool

	states  map[objKey]*trackedState
	order   []objKey
	blocked map[objKey]bool

	// notificationPeriods maps a timeperiod name to whether it was last
	// reported active; a name absent from the map defaults to active,
	// matching the source's "no information yet -> within period"
	// fallback (§4.6).
	notificationPeriods map[string]bool

	objectFilter filter.Filter
	tzOffset     int

	rows []*Row
}

// Replay walks cache's {alert, program, state} entries across
// [since, until) and reduces them to the "statehist" table's rows
// (§4.6). objectFilter, when non-nil, is the partial filter over
// current-host/current-service columns used to blacklist services the
// query can never match (§4.6 "If newly created and the object
// restriction rejects it, blacklist the key.").
func Replay(cache *logcache.Cache, adapter core.Adapter, since, until int64, objectFilter filter.Filter, tzOffset int) []*Row {
	queryTimeframe := until - since
	if queryTimeframe <= 0 {
		return nil
	}

	r := &reducer{
		since:               since,
		until:               until,
		queryTimeframe:      queryTimeframe,
		onlyUpdate:          true,
		states:              map[objKey]*trackedState{},
		blocked:             map[objKey]bool{},
		notificationPeriods: map[string]bool{},
		objectFilter:        objectFilter,
		tzOffset:            tzOffset,
	}

	cache.Entries(since, until, logcache.StateHistoryClasses, func(e *logcache.Entry) bool {
		r.step(adapter, e)
		return true
	})

	r.finalize()
	r.seedUnloggedObjects(adapter)

	return r.rows
}

func (r *reducer) step(adapter core.Adapter, e *logcache.Entry) {
	if r.onlyUpdate && e.Time >= r.since {
		for _, s := range r.states {
			s.from = r.since
		}
		r.onlyUpdate = false
	}

	k := kindOf(e)

	if r.inInitialWindow && !isInitialStateKind(k) {
		for _, s := range r.states {
			if s.mayNoLongerExist {
				s.hasVanished = true
				s.mayNoLongerExist = false
			}
		}
		r.inInitialWindow = false
	}

	switch k {
	case kindInitialStatesMarker:
		for _, s := range r.states {
			if !s.hasVanished {
				s.lastKnownTime = e.Time
				s.mayNoLongerExist = true
			}
		}
		r.inInitialWindow = true
	case kindTimeperiodTransition:
		if e.TimeperiodName != "" {
			r.notificationPeriods[e.TimeperiodName] = e.TimeperiodActive
		}
		for _, key := range r.order {
			r.applyTimeperiodTransition(r.states[key], e)
		}
	case kindHostState, kindHostInitialState:
		r.handleHostOrService(adapter, e, true, func(s *trackedState) bool { return r.applyHostState(s, e) })
	case kindServiceState, kindServiceInitialState:
		r.handleHostOrService(adapter, e, false, func(s *trackedState) bool { return r.applyServiceState(s, e) })
	case kindHostDowntime:
		r.handleHostOrService(adapter, e, true, func(s *trackedState) bool { return r.applyHostDowntime(s, e) })
	case kindServiceDowntime:
		r.handleHostOrService(adapter, e, false, func(s *trackedState) bool { return r.applyServiceDowntime(s, e) })
	case kindHostFlapping:
		r.handleHostOrService(adapter, e, true, func(s *trackedState) bool { return r.applyFlapping(s, e) })
	case kindServiceFlapping:
		r.handleHostOrService(adapter, e, false, func(s *trackedState) bool { return r.applyFlapping(s, e) })
	}
}

// handleHostOrService resolves the key an entry names, creates or
// fetches its tracked state, applies apply to it, refreshes its
// bookkeeping fields, and (for a host-level entry) propagates the
// same apply function onto every service tracked under that host
// (§4.6 "propagate the change to every service under the same host").
func (r *reducer) handleHostOrService(adapter core.Adapter, e *logcache.Entry, hostLevel bool, apply func(*trackedState) bool) {
	key := objKey{host: e.HostName}
	if !hostLevel {
		key.desc = e.Description
	}
	if key.host == "" {
		return
	}

	s := r.getOrCreate(adapter, key, e)
	if s == nil {
		return
	}

	r.reviveIfVanished(s, e.Time)
	s.lineno = e.Line
	s.mayNoLongerExist = false

	changed := apply(s)

	s.logOutput = e.PluginOutput
	s.longLogOutput = e.PluginOutput

	if hostLevel && changed {
		for _, child := range s.childServices {
			r.reviveIfVanished(child, e.Time)
			child.lineno = e.Line
			child.mayNoLongerExist = false
			apply(child)
			child.logOutput = e.PluginOutput
			child.longLogOutput = e.PluginOutput
		}
	}
}

func (r *reducer) getOrCreate(adapter core.Adapter, key objKey, e *logcache.Entry) *trackedState {
	if r.blocked[key] {
		return nil
	}
	if s, ok := r.states[key]; ok {
		return s
	}

	entryHost, _ := adapter.HostByName(e.HostName)
	var entryService *core.Service
	if e.Description != "" {
		entryService, _ = adapter.ServiceByKey(e.HostName, e.Description)
	}

	s := &trackedState{key: key, isHost: key.isHost(), host: entryHost, service: entryService, from: r.since}

	if !key.isHost() && r.objectFilter != nil {
		probe := &Row{HostName: key.host, Description: key.desc, Host: entryHost, Service: entryService}
		if !r.objectFilter.Accepts(row.Handle{Primary: probe}, r.tzOffset) {
			r.blocked[key] = true
			return nil
		}
	}

	if key.isHost() {
		for _, other := range r.states {
			if !other.isHost && other.key.host == key.host {
				s.childServices = append(s.childServices, other)
			}
		}
	} else if hostState, ok := r.states[objKey{host: key.host}]; ok {
		hostState.childServices = append(hostState.childServices, s)
		s.inHostDowntime = hostState.inHostDowntime
		s.hostDown = hostState.hostDown
	}

	if entryService != nil {
		s.notificationPeriod = entryService.NotificationPeriod
		s.servicePeriod = entryService.ServicePeriod
	} else if entryHost != nil {
		s.notificationPeriod = entryHost.NotificationPeriod
		s.servicePeriod = entryHost.ServicePeriod
	}
	s.inNotificationPeriod = r.periodActive(s.notificationPeriod)
	s.inServicePeriod = r.periodActive(s.servicePeriod)

	// A host/service that first appears well after the window opened
	// gets a grace period (nagios startup); beyond it, the gap since
	// since is logged as unmonitored (§4.6, mirroring the ten-minute
	// grace the source applies).
	if !r.onlyUpdate && e.Time-r.since > 10*60 {
		s.debugInfo = "UNMONITORED"
		s.state = -1
	}

	r.states[key] = s
	r.order = append(r.order, key)
	return s
}

func (r *reducer) periodActive(name string) bool {
	active, ok := r.notificationPeriods[name]
	if !ok {
		return true
	}
	return active
}

// emit appends s's current snapshot up to at (unless still in the
// pre-since-only-update phase) and advances its sub-interval start
// (§4.6 "emit the prior sub-interval ... and then advance from").
func (r *reducer) emit(s *trackedState, at int64) {
	if r.onlyUpdate {
		return
	}
	r.rows = append(r.rows, s.snapshot(at, r.queryTimeframe))
	s.from = at
}

// reviveIfVanished brings a previously-vanished object back to life
// when a fresh entry names it, closing out its UNMONITORED gap first
// (§4.6 "log-version or logging-initial-states markers ... confirmed
// missing objects transition to unmonitored").
func (r *reducer) reviveIfVanished(s *trackedState, at int64) {
	if !s.hasVanished {
		return
	}
	if !r.onlyUpdate {
		r.rows = append(r.rows, s.snapshot(s.lastKnownTime, r.queryTimeframe))
		s.from = s.lastKnownTime
	}
	s.mayNoLongerExist = false
	s.hasVanished = false
	s.state = -1
	s.debugInfo = "UNMONITORED"
	s.inDowntime = false
	s.isFlapping = false
	s.logOutput = ""
	s.longLogOutput = ""
	s.inNotificationPeriod = r.periodActive(s.notificationPeriod)
	s.inServicePeriod = r.periodActive(s.servicePeriod)
}

func (r *reducer) applyHostState(s *trackedState, e *logcache.Entry) bool {
	if s.isHost {
		if s.state == e.State {
			return false
		}
		r.emit(s, e.Time)
		s.state = e.State
		s.hostDown = e.State > 0
		s.debugInfo = "HOST STATE"
		return true
	}
	down := e.State > 0
	if s.hostDown == down {
		return false
	}
	r.emit(s, e.Time)
	s.hostDown = down
	s.debugInfo = "SVC HOST STATE"
	return true
}

func (r *reducer) applyServiceState(s *trackedState, e *logcache.Entry) bool {
	if s.state == e.State {
		return false
	}
	r.emit(s, e.Time)
	s.debugInfo = "SVC ALERT"
	s.state = e.State
	return true
}

func (r *reducer) applyHostDowntime(s *trackedState, e *logcache.Entry) bool {
	if s.inHostDowntime == e.Started {
		return false
	}
	r.emit(s, e.Time)
	if s.isHost {
		s.debugInfo = "HOST DOWNTIME"
		s.inDowntime = e.Started
	} else {
		s.debugInfo = "SVC HOST DOWNTIME"
	}
	s.inHostDowntime = e.Started
	return true
}

func (r *reducer) applyServiceDowntime(s *trackedState, e *logcache.Entry) bool {
	if s.inDowntime == e.Started {
		return false
	}
	r.emit(s, e.Time)
	s.debugInfo = "DOWNTIME SERVICE"
	s.inDowntime = e.Started
	return true
}

func (r *reducer) applyFlapping(s *trackedState, e *logcache.Entry) bool {
	if s.isFlapping == e.Started {
		return false
	}
	r.emit(s, e.Time)
	s.debugInfo = "FLAPPING"
	s.isFlapping = e.Started
	return true
}

// applyTimeperiodTransition re-evaluates s's in-notification-period
// and in-service-period flags when the transitioning timeperiod is the
// one s is bound to (§4.6 "re-evaluate affected state records'
// in-notification-period / in-service-period").
func (r *reducer) applyTimeperiodTransition(s *trackedState, e *logcache.Entry) {
	if s == nil || s.host == nil {
		return
	}
	if e.TimeperiodName == s.notificationPeriod && e.TimeperiodActive != s.inNotificationPeriod {
		r.emit(s, e.Time)
		s.debugInfo = "TIMEPERIOD"
		s.inNotificationPeriod = e.TimeperiodActive
	}
	if e.TimeperiodName == s.servicePeriod && e.TimeperiodActive != s.inServicePeriod {
		r.emit(s, e.Time)
		s.debugInfo = "TIMEPERIOD"
		s.inServicePeriod = e.TimeperiodActive
	}
}

// finalize emits each tracked state's closing sub-interval up to the
// window end, plus an extra UNMONITORED interval for anything still
// marked vanished when the window closed (§4.6 "Finalization").
func (r *reducer) finalize() {
	for _, key := range r.order {
		s := r.states[key]
		if s.hasVanished {
			r.rows = append(r.rows, s.snapshot(s.lastKnownTime, r.queryTimeframe))
			s.from = s.lastKnownTime
			s.state = -1
			s.debugInfo = "UNMONITORED"
			s.logOutput = ""
			s.longLogOutput = ""
		}
		r.rows = append(r.rows, s.snapshot(r.until, r.queryTimeframe))
	}
}

// seedUnloggedObjects guarantees invariant (iii): an object the
// monitoring core still reports, with no log entry at all in the
// window, still produces one sub-interval in its current state
// (§4.6 "Invariants").
func (r *reducer) seedUnloggedObjects(adapter core.Adapter) {
	for _, h := range adapter.Hosts() {
		key := objKey{host: h.Name}
		if _, ok := r.states[key]; ok {
			continue
		}
		if r.blocked[key] {
			continue
		}
		s := &trackedState{
			key: key, isHost: true, host: h,
			state:                h.State,
			hostDown:             h.State > 0,
			notificationPeriod:   h.NotificationPeriod,
			servicePeriod:        h.ServicePeriod,
			inNotificationPeriod: timeperiodActiveFor(adapter, h.NotificationPeriod, r.until),
			inServicePeriod:      timeperiodActiveFor(adapter, h.ServicePeriod, r.until),
			inDowntime:           currentlyInDowntime(adapter, h.Name, "", r.until),
			logOutput:            h.PluginOutput,
			longLogOutput:        h.PluginOutput,
			from:                 r.since,
		}
		s.inHostDowntime = s.inDowntime
		r.rows = append(r.rows, s.snapshot(r.until, r.queryTimeframe))
	}

	for _, svc := range adapter.Services() {
		key := objKey{host: svc.HostName, desc: svc.Description}
		if _, ok := r.states[key]; ok {
			continue
		}
		if r.blocked[key] {
			continue
		}
		if r.objectFilter != nil {
			probe := &Row{HostName: key.host, Description: key.desc, Service: svc}
			if !r.objectFilter.Accepts(row.Handle{Primary: probe}, r.tzOffset) {
				continue
			}
		}
		h, _ := adapter.HostByName(svc.HostName)
		s := &trackedState{
			key: key, isHost: false, host: h, service: svc,
			state:                svc.State,
			notificationPeriod:   svc.NotificationPeriod,
			servicePeriod:        svc.ServicePeriod,
			inNotificationPeriod: timeperiodActiveFor(adapter, svc.NotificationPeriod, r.until),
			inServicePeriod:      timeperiodActiveFor(adapter, svc.ServicePeriod, r.until),
			inDowntime:           currentlyInDowntime(adapter, svc.HostName, svc.Description, r.until),
			logOutput:            svc.PluginOutput,
			longLogOutput:        svc.PluginOutput,
			from:                 r.since,
		}
		if h != nil {
			s.hostDown = h.State > 0
			s.inHostDowntime = currentlyInDowntime(adapter, svc.HostName, "", r.until)
		}
		r.rows = append(r.rows, s.snapshot(r.until, r.queryTimeframe))
	}
}

// timeperiodActiveFor reports whether name is currently active, an
// unset period (empty name, nothing assigned) defaulting to active
// the same way periodActive's replay-time fallback does.
func timeperiodActiveFor(adapter core.Adapter, name string, at int64) bool {
	if name == "" {
		return true
	}
	return adapter.TimeperiodIsActive(name, at)
}

// currentlyInDowntime scans the adapter's live downtime list for one
// covering (hostName, description) at instant at, since core.Service
// carries no direct downtime flag of its own (§3 "Downtime").
func currentlyInDowntime(adapter core.Adapter, hostName, description string, at int64) bool {
	for _, d := range adapter.Downtimes() {
		if d.HostName != hostName || d.Description != description {
			continue
		}
		if d.Start <= at && at < d.End {
			return true
		}
	}
	return false
}
