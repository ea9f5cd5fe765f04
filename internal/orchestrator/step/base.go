// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package step

import (
	"sort"
	"time"

	"fleetctl/internal/orchestrator/inventory"
)

// RealClock reads the process monotonic clock via time.Now(), consuming
// only .Sub() deltas so wall-clock adjustments never affect timeouts.
type RealClock struct{ start time.Time }

// NewRealClock returns a Clock anchored at construction time.
func NewRealClock() *RealClock { return &RealClock{start: time.Now()} }

func (c *RealClock) MonotonicMillis() int64 {
	return time.Since(c.start).Milliseconds()
}

// hostsBase is embedded by every step kind that operates on a list of
// hosts. It owns the persisted entity_names and, separately, the live
// working set re-resolved on every FromDict.
type hostsBase struct {
	name        Kind
	timeoutSecs int64

	// hostNames is the persisted, reporting-stable list (never mutated
	// after construction).
	hostNames []string

	// liveHosts is the subset of hostNames still present in Tables as of
	// the last FromDict/construction. The firmware, patch, service, kube
	// and query steps iterate this for execution decisions; the lock,
	// unlock, reboot, swact and upgrade steps act on hostNames.
	liveHosts []string
}

func newHostsBase(kind Kind, timeoutSecs int64, hosts []string) hostsBase {
	cp := append([]string(nil), hosts...)
	return hostsBase{name: kind, timeoutSecs: timeoutSecs, hostNames: cp, liveHosts: cp}
}

func (b *hostsBase) Kind() Kind           { return b.name }
func (b *hostsBase) Name() string         { return string(b.name) }
func (b *hostsBase) TimeoutSecs() int64   { return b.timeoutSecs }
func (b *hostsBase) EntityNames() []string { return append([]string(nil), b.hostNames...) }

func (b *hostsBase) baseDict() map[string]any {
	return map[string]any{
		"name":          string(b.name),
		"timeout":       b.timeoutSecs,
		"entity_type":   "hosts",
		"entity_names":  append([]string(nil), b.hostNames...),
		"entity_uuids":  []string{},
	}
}

// resolveLive recomputes liveHosts from hostNames against tables, dropping
// any host that no longer exists while preserving hostNames for reporting.
func (b *hostsBase) resolveLive(tables *inventory.Tables) {
	live := make([]string, 0, len(b.hostNames))
	for _, name := range b.hostNames {
		if _, ok := tables.GetHost(name); ok {
			live = append(live, name)
		}
	}
	b.liveHosts = live
}

// instancesBase mirrors hostsBase for instance-uuid-entity steps, and
// additionally captures each instance's host at construction time so moves
// can be detected (spec.md section 3, "MUST reject work if the instance has
// since moved").
type instancesBase struct {
	name        Kind
	timeoutSecs int64

	instanceUUIDs []string
	// capturedHost maps instance uuid -> host name observed at build time.
	capturedHost map[string]string

	liveInstances []string
}

func newInstancesBase(kind Kind, timeoutSecs int64, instances []string, tables *inventory.Tables) instancesBase {
	cp := append([]string(nil), instances...)
	captured := make(map[string]string, len(cp))
	for _, uuid := range cp {
		if inst, ok := tables.GetInstance(uuid); ok {
			captured[uuid] = inst.HostName
		}
	}
	return instancesBase{
		name:          kind,
		timeoutSecs:   timeoutSecs,
		instanceUUIDs: cp,
		capturedHost:  captured,
		liveInstances: cp,
	}
}

func (b *instancesBase) Kind() Kind            { return b.name }
func (b *instancesBase) Name() string          { return string(b.name) }
func (b *instancesBase) TimeoutSecs() int64    { return b.timeoutSecs }
func (b *instancesBase) EntityNames() []string { return append([]string(nil), b.instanceUUIDs...) }

func (b *instancesBase) baseDict() map[string]any {
	captured := make(map[string]any, len(b.capturedHost))
	for uuid, host := range b.capturedHost {
		captured[uuid] = host
	}
	return map[string]any{
		"name":           string(b.name),
		"timeout":        b.timeoutSecs,
		"entity_type":    "instances",
		"entity_names":   []string{},
		"entity_uuids":   append([]string(nil), b.instanceUUIDs...),
		"captured_hosts": captured,
	}
}

func (b *instancesBase) resolveLive(tables *inventory.Tables) {
	live := make([]string, 0, len(b.instanceUUIDs))
	for _, uuid := range b.instanceUUIDs {
		if _, ok := tables.GetInstance(uuid); ok {
			live = append(live, uuid)
		}
	}
	b.liveInstances = live
}

// movedInstance returns the uuid of the first captured instance that has
// moved off its captured host, or "" if none have moved.
func (b *instancesBase) movedInstance(tables *inventory.Tables) (uuid, from, to string, moved bool) {
	names := append([]string(nil), b.instanceUUIDs...)
	sort.Strings(names)
	for _, id := range names {
		capturedHost, known := b.capturedHost[id]
		if !known {
			continue
		}
		inst, ok := tables.GetInstance(id)
		if !ok {
			continue
		}
		if inst.HostName != capturedHost {
			return id, capturedHost, inst.HostName, true
		}
	}
	return "", "", "", false
}

func stringsFromAny(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func boolFromDict(data map[string]any, key string, def bool) bool {
	if v, ok := data[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func stringFromDict(data map[string]any, key, def string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func intFromDict(data map[string]any, key string, def int64) int64 {
	switch v := data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return def
}
