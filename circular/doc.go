// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package circular provides the power-of-two ring buffer behind the sliding
// probability window of the active-region profile.
package circular
