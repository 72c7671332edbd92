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

// Package authz implements the per-user authorization gate of §4.4:
// strict vs loose visibility rules for hosts, services, and groups.
package authz

import (
	"slices"

	"github.com/Checkmk/checkmk-sub006/internal/config"
	"github.com/Checkmk/checkmk-sub006/internal/core"
)

// Gate is the authorization predicate set the query engine consults
// for every candidate row before it reaches a filter (§4.4).
type Gate struct {
	serviceMode config.AuthorizationMode
	groupMode   config.AuthorizationMode
}

func NewGate(serviceMode, groupMode config.AuthorizationMode) *Gate {
	return &Gate{serviceMode: serviceMode, groupMode: groupMode}
}

// User identifies the authenticated caller (the AuthUser header, §4.2).
// An empty Name means "no authentication" — every row is visible,
// matching the source's default unauthenticated admin access.
type User struct {
	Name string
}

func (g *Gate) IsAuthorizedForHost(u User, h *core.Host) bool {
	if u.Name == "" {
		return true
	}
	return slices.Contains(h.Contacts, u.Name)
}

// IsAuthorizedForService implements strict vs loose service visibility
// (§4.4): strict requires the service itself to name the contact;
// loose also grants access via the parent host's contacts.
func (g *Gate) IsAuthorizedForService(u User, h *core.Host, s *core.Service) bool {
	if u.Name == "" {
		return true
	}
	if slices.Contains(s.Contacts, u.Name) {
		return true
	}
	if g.serviceMode == config.AuthorizationLoose && h != nil {
		return slices.Contains(h.Contacts, u.Name)
	}
	return false
}

// IsAuthorizedForHostGroup implements any-member vs all-members group
// visibility (§4.4).
func (g *Gate) IsAuthorizedForHostGroup(u User, adapter core.Adapter, hg *core.HostGroup) bool {
	if u.Name == "" {
		return true
	}
	anyMember := false
	allMembers := true
	for _, name := range hg.Members {
		h, ok := adapter.HostByName(name)
		if !ok {
			continue
		}
		if g.IsAuthorizedForHost(u, h) {
			anyMember = true
		} else {
			allMembers = false
		}
	}
	if g.groupMode == config.AuthorizationLoose {
		return anyMember
	}
	return allMembers && len(hg.Members) > 0
}

// IsAuthorizedForServiceGroup mirrors IsAuthorizedForHostGroup for
// service groups.
func (g *Gate) IsAuthorizedForServiceGroup(u User, adapter core.Adapter, sg *core.ServiceGroup) bool {
	if u.Name == "" {
		return true
	}
	anyMember := false
	allMembers := true
	for _, pair := range sg.Members {
		h, _ := adapter.HostByName(pair[0])
		s, ok := adapter.ServiceByKey(pair[0], pair[1])
		if !ok {
			continue
		}
		if g.IsAuthorizedForService(u, h, s) {
			anyMember = true
		} else {
			allMembers = false
		}
	}
	if g.groupMode == config.AuthorizationLoose {
		return anyMember
	}
	return allMembers && len(sg.Members) > 0
}
