// Copyright 2025 blast Authors
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

package reduction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCeilDiv(t *testing.T) {
	require.Equal(t, int64(1), ceilDiv(1, 4))
	require.Equal(t, int64(1), ceilDiv(4, 4))
	require.Equal(t, int64(2), ceilDiv(5, 4))
	require.Equal(t, int64(3), ceilDiv(9, 4))
}

func TestDotRejectsNonPositiveLength(t *testing.T) {
	e := &Engine{}
	_, _, err := e.Dot(nil, 0, 1, nil, 0, 1, 0)
	require.Error(t, err)
}
