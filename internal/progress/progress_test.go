package progress

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestReporter(buf *bytes.Buffer, total uint64) (*Reporter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r := NewReporter(buf, nil, "disk.img", total)
	r.now = clock.now
	r.start = clock.t
	r.lastTick = clock.t
	return r, clock
}

func TestUpdateIsThrottled(t *testing.T) {
	buf := &bytes.Buffer{}
	r, clock := newTestReporter(buf, 4<<20)

	clock.t = clock.t.Add(100 * time.Millisecond)
	r.Update(1 << 20)
	require.Empty(t, buf.String())

	clock.t = clock.t.Add(time.Second)
	r.Update(2 << 20)
	require.Contains(t, buf.String(), "disk.img: 2.0 MiB/4.0 MiB")
	require.Contains(t, buf.String(), "eta ")
}

func TestUpdateUnknownTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	r, clock := newTestReporter(buf, 0)
	clock.t = clock.t.Add(time.Second)
	r.Update(1024)
	require.Equal(t, "disk.img: 1.0 KiB 1.0 KiB/s\n", buf.String())
}

func TestDone(t *testing.T) {
	buf := &bytes.Buffer{}
	r, clock := newTestReporter(buf, 2048)
	clock.t = clock.t.Add(2 * time.Second)
	r.Done(2048)
	require.Equal(t, "disk.img: hashed 2.0 KiB in 2s (1.0 KiB/s)\n", buf.String())
}

func TestBuildEventETA(t *testing.T) {
	r, clock := newTestReporter(&bytes.Buffer{}, 300)
	clock.t = clock.t.Add(time.Second)
	e := r.buildEvent(100, clock.t)
	require.Equal(t, 2*time.Second, e.ETA)
	require.Equal(t, float64(100), e.AverageBps)
}
