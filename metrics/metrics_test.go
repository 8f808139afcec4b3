package metrics

import (
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	statsd.NoOpClient
	calls []recordedCall
}

func (f *fakeClient) Timing(name string, value time.Duration, tags []string, rate float64) error {
	f.calls = append(f.calls, recordedCall{"timing", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Count(name string, value int64, tags []string, rate float64) error {
	f.calls = append(f.calls, recordedCall{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Gauge(name string, value float64, tags []string, rate float64) error {
	f.calls = append(f.calls, recordedCall{"gauge", name, value, tags})
	return nil
}

func TestNewWithoutAddressIsNoop(t *testing.T) {
	r, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, r)
	assert.NoError(t, r.Close())
}

func TestStatsDForwards(t *testing.T) {
	client := &fakeClient{}
	r := NewWithClient(client, nil)

	r.Timing(TickDuration, 3*time.Millisecond)
	r.Count(NotesRecorded, 1, "pitch_class:A")
	r.Gauge(InputLevel, 0.25)

	require.Len(t, client.calls, 3)
	assert.Equal(t, recordedCall{"timing", TickDuration, float64(3 * time.Millisecond), nil}, client.calls[0])
	assert.Equal(t, recordedCall{"count", NotesRecorded, 1, []string{"pitch_class:A"}}, client.calls[1])
	assert.Equal(t, recordedCall{"gauge", InputLevel, 0.25, nil}, client.calls[2])
}
