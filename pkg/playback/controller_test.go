package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatelens/pkg/model"
	"climatelens/pkg/observability"
)

type utterance struct {
	text string
	tag  string
	done func(error)
}

// fakeDevice records utterances and tracks how many are live at once.
type fakeDevice struct {
	mu       sync.Mutex
	active   int
	maxLive  int
	spoken   []utterance
	cancels  int
	speakErr error
}

func (d *fakeDevice) Speak(_ context.Context, text, tag string, done func(error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.speakErr != nil {
		return d.speakErr
	}
	d.active++
	if d.active > d.maxLive {
		d.maxLive = d.active
	}
	d.spoken = append(d.spoken, utterance{text: text, tag: tag, done: done})
	return nil
}

func (d *fakeDevice) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancels++
	if d.active > 0 {
		d.active--
	}
}

// complete ends the i-th utterance naturally.
func (d *fakeDevice) complete(i int, err error) {
	d.mu.Lock()
	u := d.spoken[i]
	if d.active > 0 {
		d.active--
	}
	d.mu.Unlock()
	u.done(err)
}

func TestStart_ExclusiveUtterance(t *testing.T) {
	dev := &fakeDevice{}
	m := observability.NewMetricsForTesting()
	c := NewController(dev, m)

	a, err := c.Start(context.Background(), "story A", model.LanguageEnglish)
	require.NoError(t, err)
	b, err := c.Start(context.Background(), "story B", model.LanguageHindi)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 1, dev.active)
	assert.Equal(t, 1, dev.maxLive)
	assert.Equal(t, 1, dev.cancels)

	st := c.Status()
	assert.Equal(t, model.PlaybackPlaying, st.State)
	assert.Equal(t, "story B", st.Text)
	assert.Equal(t, "hi-IN", dev.spoken[1].tag)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlaybackStarts.WithLabelValues("hindi")))
}

func TestStop_IdleIsNoop(t *testing.T) {
	dev := &fakeDevice{}
	c := NewController(dev, nil)

	c.Stop()
	c.Stop()

	assert.Equal(t, model.PlaybackIdle, c.Status().State)
	assert.Zero(t, dev.cancels)
}

func TestStop_CancelsActive(t *testing.T) {
	dev := &fakeDevice{}
	c := NewController(dev, nil)

	_, err := c.Start(context.Background(), "story", model.LanguageNepali)
	require.NoError(t, err)
	assert.Equal(t, "ne-NP", dev.spoken[0].tag)

	c.Stop()
	assert.Equal(t, model.PlaybackIdle, c.Status().State)
	assert.Equal(t, 1, dev.cancels)
	assert.Zero(t, dev.active)
}

func TestToggle(t *testing.T) {
	dev := &fakeDevice{}
	c := NewController(dev, nil)
	ctx := context.Background()

	s, err := c.Toggle(ctx, "same", model.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, model.PlaybackPlaying, s.State)

	s, err = c.Toggle(ctx, "same", model.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, model.PlaybackIdle, s.State)
	assert.Len(t, dev.spoken, 1, "toggling the playing text must not restart it")

	_, err = c.Toggle(ctx, "same", model.LanguageEnglish)
	require.NoError(t, err)
	s, err = c.Toggle(ctx, "other", model.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, model.PlaybackPlaying, s.State)
	assert.Equal(t, "other", s.Text)
	assert.Equal(t, 1, dev.maxLive)
}

func TestCompletion(t *testing.T) {
	t.Run("natural end returns to idle", func(t *testing.T) {
		dev := &fakeDevice{}
		c := NewController(dev, nil)
		_, err := c.Start(context.Background(), "story", model.LanguageEnglish)
		require.NoError(t, err)

		dev.complete(0, nil)
		require.Eventually(t, func() bool { return c.Status().State == model.PlaybackIdle }, time.Second, 5*time.Millisecond)
		assert.NoError(t, c.LastError())
	})

	t.Run("device error returns to idle", func(t *testing.T) {
		dev := &fakeDevice{}
		m := observability.NewMetricsForTesting()
		c := NewController(dev, m)
		_, err := c.Start(context.Background(), "story", model.LanguageEnglish)
		require.NoError(t, err)

		dev.complete(0, errors.New("audio device lost"))
		require.Eventually(t, func() bool { return c.LastError() != nil }, time.Second, 5*time.Millisecond)
		assert.Equal(t, model.PlaybackIdle, c.Status().State)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PlaybackErrors))
	})

	t.Run("stale completion is ignored", func(t *testing.T) {
		dev := &fakeDevice{}
		c := NewController(dev, nil)
		_, err := c.Start(context.Background(), "A", model.LanguageEnglish)
		require.NoError(t, err)
		b, err := c.Start(context.Background(), "B", model.LanguageEnglish)
		require.NoError(t, err)

		dev.spoken[0].done(nil)
		time.Sleep(20 * time.Millisecond)

		st := c.Status()
		assert.Equal(t, b.ID, st.ID)
		assert.Equal(t, model.PlaybackPlaying, st.State)
	})
}

func TestStart_Errors(t *testing.T) {
	c := NewController(&fakeDevice{}, nil)
	_, err := c.Start(context.Background(), "", model.LanguageEnglish)
	assert.ErrorIs(t, err, ErrEmptyText)

	dev := &fakeDevice{speakErr: errors.New("no voice")}
	c = NewController(dev, nil)
	s, err := c.Start(context.Background(), "story", model.LanguageEnglish)
	require.Error(t, err)
	assert.Equal(t, model.PlaybackIdle, s.State)
	assert.Equal(t, model.PlaybackIdle, c.Status().State)
}
