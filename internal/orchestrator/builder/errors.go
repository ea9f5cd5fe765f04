// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package builder

import "fmt"

// errRequiredToVersion reports that a strategy kind requiring a
// to-version knob was built without one, surfacing synchronously as a
// planning error (spec.md section 7) rather than failing deep inside a
// step at apply time.
func errRequiredToVersion(kind string) error {
	return fmt.Errorf("%s strategy requires a non-empty to-version", kind)
}
