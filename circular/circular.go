// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package circular

import "math/bits"

// NextExp2 returns the smallest power of 2 strictly greater than x, or 1 if
// x is not positive.
func NextExp2(x int) int {
	if x <= 0 {
		return 1
	}
	return 1 << uint(bits.Len64(uint64(x)))
}
