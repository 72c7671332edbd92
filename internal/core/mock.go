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

package core

import "sync"

// MockAdapter is an in-memory Adapter used by tests, playing the role
// the teacher's *fake.Clientset plays in place of a live Kubernetes
// client.
type MockAdapter struct {
	mu sync.RWMutex

	hosts         map[string]*Host
	services      map[string]map[string]*Service // host -> description -> service
	contacts      map[string]*Contact
	hostGroups    map[string]*HostGroup
	serviceGroups map[string]*ServiceGroup
	comments      []*Comment
	downtimes     []*Downtime
	timeperiods   map[string]*Timeperiod
	activePeriods map[string]bool
	lastRotation  int64
	submitted     []string
}

// NewMockAdapter returns an empty MockAdapter ready for fixtures to populate.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		hosts:         map[string]*Host{},
		services:      map[string]map[string]*Service{},
		contacts:      map[string]*Contact{},
		hostGroups:    map[string]*HostGroup{},
		serviceGroups: map[string]*ServiceGroup{},
		timeperiods:   map[string]*Timeperiod{},
		activePeriods: map[string]bool{},
	}
}

func (m *MockAdapter) AddHost(h *Host) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosts[h.Name] = h
}

func (m *MockAdapter) AddService(s *Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDesc, ok := m.services[s.HostName]
	if !ok {
		byDesc = map[string]*Service{}
		m.services[s.HostName] = byDesc
	}
	byDesc[s.Description] = s
}

func (m *MockAdapter) AddContact(c *Contact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.Name] = c
}

func (m *MockAdapter) AddHostGroup(g *HostGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hostGroups[g.Name] = g
}

func (m *MockAdapter) AddServiceGroup(g *ServiceGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serviceGroups[g.Name] = g
}

func (m *MockAdapter) AddComment(c *Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, c)
}

func (m *MockAdapter) AddDowntime(d *Downtime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downtimes = append(m.downtimes, d)
}

func (m *MockAdapter) AddTimeperiod(tp *Timeperiod, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeperiods[tp.Name] = tp
	m.activePeriods[tp.Name] = active
}

func (m *MockAdapter) SetTimeperiodActive(name string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activePeriods[name] = active
}

func (m *MockAdapter) SetLastRotation(t int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRotation = t
}

func (m *MockAdapter) Hosts() []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Host, 0, len(m.hosts))
	for _, h := range m.hosts {
		out = append(out, h)
	}
	return out
}

func (m *MockAdapter) HostByName(name string) (*Host, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hosts[name]
	return h, ok
}

func (m *MockAdapter) Services() []*Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Service
	for _, byDesc := range m.services {
		for _, s := range byDesc {
			out = append(out, s)
		}
	}
	return out
}

func (m *MockAdapter) ServicesByHost(hostName string) []*Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Service
	for _, s := range m.services[hostName] {
		out = append(out, s)
	}
	return out
}

func (m *MockAdapter) ServiceByKey(hostName, description string) (*Service, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byDesc, ok := m.services[hostName]
	if !ok {
		return nil, false
	}
	s, ok := byDesc[description]
	return s, ok
}

func (m *MockAdapter) Contacts() []*Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		out = append(out, c)
	}
	return out
}

func (m *MockAdapter) ContactByName(name string) (*Contact, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[name]
	return c, ok
}

func (m *MockAdapter) HostGroups() []*HostGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*HostGroup, 0, len(m.hostGroups))
	for _, g := range m.hostGroups {
		out = append(out, g)
	}
	return out
}

func (m *MockAdapter) HostGroupByName(name string) (*HostGroup, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.hostGroups[name]
	return g, ok
}

func (m *MockAdapter) ServiceGroups() []*ServiceGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ServiceGroup, 0, len(m.serviceGroups))
	for _, g := range m.serviceGroups {
		out = append(out, g)
	}
	return out
}

func (m *MockAdapter) ServiceGroupByName(name string) (*ServiceGroup, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.serviceGroups[name]
	return g, ok
}

func (m *MockAdapter) Comments() []*Comment { return m.CommentsUnlocked() }

func (m *MockAdapter) CommentsUnlocked() []*Comment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Comment, len(m.comments))
	copy(out, m.comments)
	return out
}

func (m *MockAdapter) Downtimes() []*Downtime { return m.DowntimesUnlocked() }

func (m *MockAdapter) DowntimesUnlocked() []*Downtime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Downtime, len(m.downtimes))
	copy(out, m.downtimes)
	return out
}

func (m *MockAdapter) Timeperiods() []*Timeperiod {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Timeperiod, 0, len(m.timeperiods))
	for _, tp := range m.timeperiods {
		out = append(out, tp)
	}
	return out
}

func (m *MockAdapter) TimeperiodByName(name string) (*Timeperiod, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tp, ok := m.timeperiods[name]
	return tp, ok
}

func (m *MockAdapter) TimeperiodIsActive(name string, at int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activePeriods[name]
}

func (m *MockAdapter) LastRotation() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRotation
}

func (m *MockAdapter) SubmitCommand(raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, raw)
	return nil
}

// Submitted returns every command string passed to SubmitCommand, for
// test assertions.
func (m *MockAdapter) Submitted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.submitted))
	copy(out, m.submitted)
	return out
}
