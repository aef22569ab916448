package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/orientation"
	"github.com/banshee-data/arplayback/internal/playback"
	"github.com/banshee-data/arplayback/internal/testutil"
)

var (
	_ Provider = (*Playback)(nil)
	_ Provider = (*Mock)(nil)
)

func newPlayback(t *testing.T, n int) (*Playback, *playback.Driver) {
	t.Helper()
	ds, fsys := testutil.NewStoredDataset(t, n)
	r, err := playback.NewReader(ds, playback.ReaderOptions{})
	require.NoError(t, err)
	d, err := playback.NewDriver(r, playback.DriverOptions{ManualStepping: true})
	require.NoError(t, err)
	return NewPlayback(d, playback.NewFrameCache(fsys, ds)), d
}

func TestPlayback_RequiresStartAndFrame(t *testing.T) {
	p, d := newPlayback(t, 3)
	assert.Equal(t, KindPlayback, p.Kind())

	_, err := p.AcquireImage()
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, p.Start(context.Background()))
	_, err = p.AcquireImage()
	assert.ErrorIs(t, err, ErrNoFrame)
	_, _, err = p.AcquirePose()
	assert.ErrorIs(t, err, ErrNoFrame)

	d.Step()
	img, err := p.AcquireImage()
	require.NoError(t, err)
	assert.Equal(t, 0, img.Sequence)
	assert.Equal(t, capture.SyntheticImage(0), img.Data)

	p.Stop()
	_, err = p.AcquireImage()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestPlayback_StartRewinds(t *testing.T) {
	p, d := newPlayback(t, 3)
	d.Step()
	d.Step()
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, -1, d.Snapshot().FrameIndex)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Start(ctx))
}

func TestPlayback_DepthAndPose(t *testing.T) {
	p, d := newPlayback(t, 3)
	require.NoError(t, p.Start(context.Background()))
	d.Step()
	d.Step()

	depth, err := p.AcquireDepth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth.Sequence)
	assert.Len(t, depth.Depth, 4*8*6)
	assert.Len(t, depth.Confidence, 8*6)
	assert.Equal(t, capture.Resolution{Width: 8, Height: 6}, depth.Resolution)

	pose, o, err := p.AcquirePose()
	require.NoError(t, err)
	assert.True(t, pose.IsFinite())
	assert.NotEqual(t, orientation.Unknown, o)

	p.Configure(Config{DepthEnabled: false})
	_, err = p.AcquireDepth()
	assert.True(t, errors.Is(err, ErrNoDepth))
}

func TestMock_Frames(t *testing.T) {
	m := NewMock()
	assert.Equal(t, KindMock, m.Kind())

	_, err := m.AcquireImage()
	assert.ErrorIs(t, err, ErrNotStarted)
	require.NoError(t, m.Start(context.Background()))

	img, err := m.AcquireImage()
	require.NoError(t, err)
	assert.Equal(t, 0, img.Sequence)
	assert.Equal(t, capture.SyntheticImage(0), img.Data)

	m.Advance()
	depth, err := m.AcquireDepth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth.Sequence)
	assert.InDelta(t, 1.0/30, depth.Timestamp, 1e-12)

	m.Configure(Config{})
	_, err = m.AcquireDepth()
	assert.ErrorIs(t, err, ErrNoDepth)
}

func TestMock_PoseCyclesOrientations(t *testing.T) {
	m := NewMock()
	m.FramesPerQuarterTurn = 1
	require.NoError(t, m.Start(context.Background()))

	want := []orientation.ScreenOrientation{
		orientation.LandscapeLeft,
		orientation.Portrait,
		orientation.LandscapeRight,
		orientation.PortraitUpsideDown,
		orientation.LandscapeLeft,
	}
	for i, w := range want {
		_, got, err := m.AcquirePose()
		require.NoError(t, err)
		assert.Equal(t, w, got, "frame %d", i)
		m.Advance()
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "playback", KindPlayback.String())
	assert.Equal(t, "mock", KindMock.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
