// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package inventory holds in-memory projections of fleet state updated by
// driver notifications. Steps read through these accessors instead of
// holding entity pointers, so churn (a host rebooting, an instance moving)
// is always observed fresh.
package inventory

import "sync"

// Feature: ORCHESTRATOR_INVENTORY
// Spec: spec.md section 4.4

// AdministrativeState mirrors the host admin lock state.
type AdministrativeState string

const (
	AdminLocked   AdministrativeState = "locked"
	AdminUnlocked AdministrativeState = "unlocked"
)

// OperationalState mirrors host operational readiness.
type OperationalState string

const (
	OperEnabled  OperationalState = "enabled"
	OperDisabled OperationalState = "disabled"
)

// Availability mirrors host reachability.
type Availability string

const (
	AvailOnline  Availability = "online"
	AvailOffline Availability = "offline"
)

// DeviceImageUpdate mirrors per-host firmware update progress.
type DeviceImageUpdate string

const (
	DeviceImageUpdateNone              DeviceImageUpdate = ""
	DeviceImageUpdatePending           DeviceImageUpdate = "pending"
	DeviceImageUpdateInProgress        DeviceImageUpdate = "in-progress"
	DeviceImageUpdateInProgressAborted DeviceImageUpdate = "in-progress-aborted"
	DeviceImageUpdateCompleted         DeviceImageUpdate = "completed"
	DeviceImageUpdateFailed            DeviceImageUpdate = "failed"
)

// Personality is the host role used to select an apply-type during planning.
type Personality string

const (
	PersonalityController Personality = "controller"
	PersonalityStorage    Personality = "storage"
	PersonalityWorker     Personality = "worker"
)

// HostServiceState tracks a single service's enable/disable progress on a
// host, as driven by disable-host-services / enable-host-services steps.
type HostServiceState string

const (
	ServiceStateEnabled  HostServiceState = "enabled"
	ServiceStateDisabled HostServiceState = "disabled"
)

// Host is a fleet member identified by (UUID, Name). Steps hold only Name
// and re-resolve on every access; Tables own the authoritative Host value.
type Host struct {
	UUID        string
	Name        string
	Admin       AdministrativeState
	Oper        OperationalState
	Avail       Availability
	Personality Personality

	SoftwareLoad string
	TargetLoad   string

	// HostServices maps a service name to its current state, e.g. "vim".
	HostServices map[string]HostServiceState

	DeviceImageUpdate DeviceImageUpdate

	// PatchCurrent and PatchFailed reflect the latest sw-patch-hosts poll.
	PatchCurrent bool
	PatchFailed  bool

	// KubeletVersion reflects the latest kube-host-upgrade poll.
	KubeletVersion string

	// KubeControlPlaneState reflects the host's kube-host-upgrade
	// control-plane progress, compared against a
	// kube-host-upgrade-control-plane step's target_state/
	// target_failure_state (spec.md section 4.2).
	KubeControlPlaneState string
}

func (h Host) IsLocked() bool   { return h.Admin == AdminLocked }
func (h Host) IsUnlocked() bool { return h.Admin == AdminUnlocked }
func (h Host) IsEnabled() bool  { return h.Oper == OperEnabled }
func (h Host) IsDisabled() bool { return h.Oper == OperDisabled }
func (h Host) IsOnline() bool   { return h.Avail == AvailOnline }

// Instance is a guest workload identified by UUID, pinned to a host at any
// point in time.
type Instance struct {
	UUID     string
	Name     string
	HostName string
	Admin    AdministrativeState
	Oper     OperationalState
}

// Tables is the sole writer-by-event-ingest, read-many projection of fleet
// state. Reads are snapshot-consistent for the duration of one
// handle_event dispatch because the controller never mutates Tables while a
// step's Apply or HandleEvent is executing.
type Tables struct {
	mu        sync.RWMutex
	hosts     map[string]Host     // keyed by name
	instances map[string]Instance // keyed by uuid
}

// NewTables returns an empty inventory projection.
func NewTables() *Tables {
	return &Tables{
		hosts:     make(map[string]Host),
		instances: make(map[string]Instance),
	}
}

// PutHost inserts or replaces a host row. Called from the event ingest path.
func (t *Tables) PutHost(h Host) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hosts[h.Name] = h
}

// DeleteHost removes a host row, e.g. on host-delete notifications.
func (t *Tables) DeleteHost(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.hosts, name)
}

// GetHost returns the host by name, or (Host{}, false) if it no longer
// exists.
func (t *Tables) GetHost(name string) (Host, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.hosts[name]
	return h, ok
}

// AllHosts returns a stable-ordered snapshot of all hosts (sorted by name).
func (t *Tables) AllHosts() []Host {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Host, 0, len(t.hosts))
	for _, h := range t.hosts {
		out = append(out, h)
	}
	sortHostsByName(out)
	return out
}

// PutInstance inserts or replaces an instance row.
func (t *Tables) PutInstance(i Instance) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.instances[i.UUID] = i
}

// DeleteInstance removes an instance row.
func (t *Tables) DeleteInstance(uuid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.instances, uuid)
}

// GetInstance returns the instance by uuid, or (Instance{}, false).
func (t *Tables) GetInstance(uuid string) (Instance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.instances[uuid]
	return i, ok
}

// OnHost returns every instance currently pinned to hostName.
func (t *Tables) OnHost(hostName string) []Instance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Instance
	for _, i := range t.instances {
		if i.HostName == hostName {
			out = append(out, i)
		}
	}
	sortInstancesByUUID(out)
	return out
}

// ExistOnHost reports whether any instance is currently pinned to hostName.
func (t *Tables) ExistOnHost(hostName string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, i := range t.instances {
		if i.HostName == hostName {
			return true
		}
	}
	return false
}

func sortHostsByName(hosts []Host) {
	for i := 1; i < len(hosts); i++ {
		for j := i; j > 0 && hosts[j-1].Name > hosts[j].Name; j-- {
			hosts[j-1], hosts[j] = hosts[j], hosts[j-1]
		}
	}
}

func sortInstancesByUUID(instances []Instance) {
	for i := 1; i < len(instances); i++ {
		for j := i; j > 0 && instances[j-1].UUID > instances[j].UUID; j-- {
			instances[j-1], instances[j] = instances[j], instances[j-1]
		}
	}
}
