// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transform

import "sync/atomic"

// Stats counts pipeline outcomes since the Transformer was created.
type Stats struct {
	Seen         uint64 `json:"seen"`
	Passthrough  uint64 `json:"passthrough"`
	Patched      uint64 `json:"patched"`
	PatchMissing uint64 `json:"patch_missing"`
	Remapped     uint64 `json:"remapped"`
	Decrypted    uint64 `json:"decrypted"`
	Failed       uint64 `json:"failed"`
}

type counters struct {
	seen         atomic.Uint64
	passthrough  atomic.Uint64
	patched      atomic.Uint64
	patchMissing atomic.Uint64
	remapped     atomic.Uint64
	decrypted    atomic.Uint64
	failed       atomic.Uint64
}

// Stats returns a snapshot of the counters. Counters are read one at a
// time, so a snapshot taken while classes are in flight may be
// slightly inconsistent across fields.
func (t *Transformer) Stats() Stats {
	return Stats{
		Seen:         t.stats.seen.Load(),
		Passthrough:  t.stats.passthrough.Load(),
		Patched:      t.stats.patched.Load(),
		PatchMissing: t.stats.patchMissing.Load(),
		Remapped:     t.stats.remapped.Load(),
		Decrypted:    t.stats.decrypted.Load(),
		Failed:       t.stats.failed.Load(),
	}
}
