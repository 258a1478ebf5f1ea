package publish

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulti_PublishesInOrder(t *testing.T) {
	a, b := &recordingSink{name: "a"}, &recordingSink{name: "b"}
	m := Multi{a, b}
	doc := testDocument()

	ctx := WithRunID(context.Background(), "run-1")
	require.NoError(t, m.Publish(ctx, doc))

	assert.Equal(t, []string{"a", "b"}, m.Names())
	require.Len(t, a.docs, 1)
	require.Len(t, b.docs, 1)
	assert.Same(t, doc, a.docs[0])
	assert.Equal(t, "run-1", a.runID[0])
	assert.Equal(t, "run-1", b.runID[0])
}

func TestMulti_StopsAtFirstFailure(t *testing.T) {
	a := &recordingSink{name: "a", err: errSink}
	b := &recordingSink{name: "b"}

	err := Multi{a, b}.Publish(context.Background(), testDocument())
	require.Error(t, err)
	assert.ErrorIs(t, err, errSink)
	assert.Contains(t, err.Error(), "sink a")
	assert.Empty(t, b.docs)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Publish(context.Background(), testDocument()))
}

func TestRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "abc")
	assert.Equal(t, "abc", RunIDFrom(ctx))

	generated := RunIDFrom(context.Background())
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.NotEqual(t, generated, RunIDFrom(context.Background()))
}
