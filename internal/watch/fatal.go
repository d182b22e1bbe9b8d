// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"

	"golang.org/x/exp/slices"
)

// isFatalFsnotifyError reports whether err means the OS watch backend ran
// out of resources and will not deliver further events.
func isFatalFsnotifyError(err error) bool {
	return slices.ContainsFunc(fatalErrnos, func(errno error) bool {
		return errors.Is(err, errno)
	})
}
