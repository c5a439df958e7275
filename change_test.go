// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeOpString(t *testing.T) {
	assert.Equal(t, "insert", Insert.String())
	assert.Equal(t, "remove", Remove.String())
	assert.Equal(t, "unknown", ChangeOp(9).String())
}
