package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-portal-go/pkg/tasks"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

type flakyProcessor struct {
	failures int
	calls    int
}

func (p *flakyProcessor) Process(context.Context, tasks.StorageCleanupTask) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("storage unavailable")
	}
	return nil
}

func newTestConsumer(t *testing.T, reader *fakeReader, proc TaskProcessor) (*Consumer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Consumer{reader: reader, rdb: rdb, processor: proc, backoff: time.Millisecond}, mr
}

func message(t *testing.T, offset int64, key string) kafka.Message {
	body, err := json.Marshal(tasks.StorageCleanupTask{ObjectKey: key, Reason: tasks.ReasonUploadRollback})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: body}
}

func TestConsumer_RetriesThenCommits(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{message(t, 7, "college-resources/a.pdf")}}
	proc := &flakyProcessor{failures: 1}
	c, mr := newTestConsumer(t, reader, proc)

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, 2, proc.calls)
	assert.Equal(t, []int64{7}, reader.committed)
	assert.False(t, mr.Exists(attemptsKey("college-resources/a.pdf")))
}

func TestConsumer_GivesUpAfterMaxAttempts(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{message(t, 3, "k")}}
	proc := &flakyProcessor{failures: 100}
	c, _ := newTestConsumer(t, reader, proc)

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, MaxAttempts, proc.calls)
	assert.Equal(t, []int64{3}, reader.committed)
}

func TestConsumer_SkipsUndecodableMessages(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{{Offset: 1, Value: []byte("not json")}}}
	proc := &flakyProcessor{}
	c, _ := newTestConsumer(t, reader, proc)

	require.NoError(t, c.Run(context.Background()))

	assert.Zero(t, proc.calls)
	assert.Equal(t, []int64{1}, reader.committed)
}
