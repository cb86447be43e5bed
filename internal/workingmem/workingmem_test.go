// Copyright 2025 Kadir Pekel
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

package workingmem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadirpekel/hectorassist/internal/workingmem"
)

func TestLinkCreatesThenReinforces(t *testing.T) {
	g := workingmem.New(1.0, 100.0)

	w := g.Link("a", "b", 2.0)
	assert.Equal(t, 2.0, w)

	w = g.Link("a", "b", 2.0)
	assert.Equal(t, 3.0, w)
}

func TestLinkCapsAtMaxWeight(t *testing.T) {
	g := workingmem.New(10.0, 5.0)

	w := g.Link("a", "b", 100.0)
	assert.Equal(t, 5.0, w)

	w = g.Link("a", "b", 0)
	assert.Equal(t, 5.0, w)
}

func TestAccessOnlyReinforcesExisting(t *testing.T) {
	g := workingmem.New(1.0, 100.0)

	_, ok := g.Access("a", "b")
	assert.False(t, ok)

	g.Link("a", "b", 1.0)
	w, ok := g.Access("a", "b")
	assert.True(t, ok)
	assert.Equal(t, 2.0, w)
}

func TestGetWeightHasNoSideEffects(t *testing.T) {
	g := workingmem.New(1.0, 100.0)
	g.Link("a", "b", 5.0)

	w1, _ := g.GetWeight("a", "b")
	w2, _ := g.GetWeight("a", "b")
	assert.Equal(t, w1, w2)
}

func TestGetActivationBoostSumsIncoming(t *testing.T) {
	g := workingmem.New(1.0, 100.0)
	g.Link("a", "target", 2.0)
	g.Link("b", "target", 3.0)

	assert.Equal(t, 5.0, g.GetActivationBoost("target"))
	assert.Equal(t, 0.0, g.GetActivationBoost("unknown"))
}

func TestDecayAllScalesWeights(t *testing.T) {
	g := workingmem.New(1.0, 100.0)
	g.Link("a", "b", 10.0)

	g.DecayAll(0.5)

	w, _ := g.GetWeight("a", "b")
	assert.Equal(t, 5.0, w)
}

func TestClearEmptiesGraph(t *testing.T) {
	g := workingmem.New(1.0, 100.0)
	g.Link("a", "b", 10.0)
	g.Clear()

	assert.Equal(t, 0.0, g.GetActivationBoost("b"))
}

func TestGetTopActivatedOrdersDescending(t *testing.T) {
	g := workingmem.New(1.0, 100.0)
	g.Link("a", "x", 1.0)
	g.Link("a", "y", 5.0)
	g.Link("b", "y", 5.0)

	top := g.GetTopActivated(10)
	assert.Equal(t, "y", top[0].NodeUUID)
	assert.Equal(t, 10.0, top[0].Boost)
	assert.Equal(t, "x", top[1].NodeUUID)
}
