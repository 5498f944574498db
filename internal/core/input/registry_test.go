package input

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/g3n/engine/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAttachDetach(t *testing.T) {
	r := NewRegistry(0)

	src := NewSource("s1", KindController, HandRight)
	r.Attach(src)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(src.ID)
	require.True(t, ok)
	assert.Equal(t, KindController, got.Kind)
	assert.Equal(t, HandRight, got.Handedness)

	removed, ok := r.Detach(src.ID)
	require.True(t, ok)
	assert.Equal(t, src.ID, removed.ID)
	assert.Equal(t, 0, r.Len())

	_, ok = r.Detach(src.ID)
	assert.False(t, ok)
}

func TestRegistryFindByKind(t *testing.T) {
	r := NewRegistry(0)
	r.Attach(NewSource("s1", KindHand, HandLeft))
	r.Attach(NewSource("s1", KindController, HandRight))

	_, ok := r.FindByKind(KindHand, HandRight)
	assert.False(t, ok)

	src, ok := r.FindByKind(KindController, HandRight)
	require.True(t, ok)
	assert.Equal(t, KindController, src.Kind)
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry(0)
	src := NewSource("s1", KindHand, HandLeft)
	src.SetMapping(UsageSpatialPointer, IdentityPose())
	r.Attach(src)

	got, ok := r.Get(src.ID)
	require.True(t, ok)
	got.Mappings[UsageSelect] = Mapping{Usage: UsageSelect}

	again, _ := r.Get(src.ID)
	_, leaked := again.Mappings[UsageSelect]
	assert.False(t, leaked, "mutating a returned copy must not affect the registry")
}

func TestRegistrySetMapping(t *testing.T) {
	r := NewRegistry(0)
	src := NewSource("s1", KindController, HandLeft)
	r.Attach(src)

	pose := Pose{
		Position: math32.Vector3{X: 1, Y: 2, Z: 3},
		Rotation: math32.Quaternion{W: 1},
	}
	require.True(t, r.SetMapping(src.ID, UsageSpatialPointer, pose))
	assert.False(t, r.SetMapping("no-such-source", UsageSpatialPointer, pose))

	got, _ := r.Get(src.ID)
	m, ok := got.Mapping(UsageSpatialPointer)
	require.True(t, ok)
	assert.Equal(t, pose.Position, m.Pose.Position)
}

func TestRegistrySweepStale(t *testing.T) {
	r := NewRegistry(0)

	stale := NewSource("s1", KindHand, HandLeft)
	stale.LastSeen = time.Now().Add(-time.Minute)
	r.Attach(stale)

	fresh := NewSource("s2", KindHand, HandRight)
	r.Attach(fresh)

	removed := r.SweepStale(10 * time.Second)
	require.Len(t, removed, 1)
	assert.Equal(t, stale.ID, removed[0].ID)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryDetachSession(t *testing.T) {
	r := NewRegistry(0)
	r.Attach(NewSource("headset-a", KindHand, HandLeft))
	r.Attach(NewSource("headset-a", KindController, HandRight))
	r.Attach(NewSource("headset-b", KindHand, HandRight))

	removed := r.DetachSession("headset-a")
	assert.Len(t, removed, 2)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	r := NewRegistry(8)

	var ids []string
	for i := 0; i < 32; i++ {
		src := NewSource(fmt.Sprintf("s%d", i%4), KindController, HandLeft)
		r.Attach(src)
		ids = append(ids, src.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.SetMapping(id, UsageSpatialPointer, IdentityPose())
				r.FindByKind(KindController, HandLeft)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 32, r.Len())
}
