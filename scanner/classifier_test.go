package scanner

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector captures emitted barcodes for assertions.
type collector struct {
	mu    sync.Mutex
	codes []string
}

func (c *collector) add(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = append(c.codes, code)
}

func (c *collector) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.codes...)
}

func newTestClassifier(t *testing.T, cfg Config) (*Classifier, *collector) {
	t.Helper()
	col := &collector{}
	cl, err := New(cfg, col.add)
	require.NoError(t, err)
	t.Cleanup(cl.Close)
	return cl, col
}

// feed types the characters with a fixed gap between keystrokes,
// returning the timestamp following the last one.
func feed(cl *Classifier, start time.Time, gap time.Duration, chars string) time.Time {
	at := start
	for _, r := range chars {
		cl.Key(r, at)
		at = at.Add(gap)
	}
	return at
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{MinLength: 0, MaxLength: 10}.Validate())
	assert.Error(t, Config{MinLength: -1, MaxLength: 10}.Validate())
	assert.Error(t, Config{MinLength: 8, MaxLength: 4}.Validate())
	assert.NoError(t, Config{MinLength: 8, MaxLength: 13}.Validate())
}

func TestNewRequiresCallback(t *testing.T) {
	_, err := New(Config{MinLength: 1, MaxLength: 10}, nil)
	assert.Error(t, err)
}

func TestMachineBurstEmitsOnEnter(t *testing.T) {
	cl, col := newTestClassifier(t, Config{
		MinLength:       8,
		MaxLength:       13,
		InterKeyTimeout: 50 * time.Millisecond,
	})

	start := time.Now()
	at := feed(cl, start, 10*time.Millisecond, "48001234")
	cl.Key('\r', at)

	require.Equal(t, []string{"48001234"}, col.all())
}

func TestStaleGapSplitsRun(t *testing.T) {
	cl, col := newTestClassifier(t, Config{
		MinLength:       8,
		MaxLength:       13,
		InterKeyTimeout: 50 * time.Millisecond,
	})

	// Same characters, but a 200ms pause before the final digit: the
	// head is flushed as stale and the one-character tail is too short.
	start := time.Now()
	at := feed(cl, start, 10*time.Millisecond, "4800123")
	at = at.Add(200 * time.Millisecond)
	cl.Key('4', at)
	cl.Key('\r', at.Add(10*time.Millisecond))

	assert.Empty(t, col.all())
}

func TestDiscardedHeadNeverEmits(t *testing.T) {
	cl, col := newTestClassifier(t, Config{
		MinLength:       4,
		MaxLength:       20,
		InterKeyTimeout: 50 * time.Millisecond,
	})

	// Head segment is long enough on its own, but a mid-run gap means
	// only the tail may qualify.
	start := time.Now()
	at := feed(cl, start, 10*time.Millisecond, "ABCDEF")
	at = at.Add(500 * time.Millisecond)
	at = feed(cl, at, 10*time.Millisecond, "1234")
	cl.Key('\n', at)

	require.Equal(t, []string{"1234"}, col.all())
}

func TestOnlyNumericRejectsMixedBuffer(t *testing.T) {
	cl, col := newTestClassifier(t, Config{
		MinLength:   4,
		MaxLength:   20,
		OnlyNumeric: true,
	})

	at := feed(cl, time.Now(), 5*time.Millisecond, "12A4")
	cl.Key('\r', at)

	assert.Empty(t, col.all())
}

func TestLengthBounds(t *testing.T) {
	cl, col := newTestClassifier(t, Config{MinLength: 4, MaxLength: 6})

	at := feed(cl, time.Now(), 5*time.Millisecond, "123")
	cl.Key('\r', at)
	assert.Empty(t, col.all(), "below min length")

	at = feed(cl, time.Now(), 5*time.Millisecond, "1234567")
	cl.Key('\r', at)
	assert.Empty(t, col.all(), "above max length")

	at = feed(cl, time.Now(), 5*time.Millisecond, "12345")
	cl.Key('\r', at)
	assert.Equal(t, []string{"12345"}, col.all())
}

func TestCommitTimeoutFinalizesQuietBuffer(t *testing.T) {
	cl, col := newTestClassifier(t, Config{
		MinLength:     4,
		MaxLength:     20,
		CommitTimeout: 30 * time.Millisecond,
	})

	feed(cl, time.Now(), 5*time.Millisecond, "9876543")

	assert.Eventually(t, func() bool {
		got := col.all()
		return len(got) == 1 && got[0] == "9876543"
	}, time.Second, 5*time.Millisecond)
}

func TestKeystrokeAfterCommitStartsFreshBuffer(t *testing.T) {
	cl, col := newTestClassifier(t, Config{
		MinLength:     4,
		MaxLength:     20,
		CommitTimeout: 20 * time.Millisecond,
	})

	at := feed(cl, time.Now(), 5*time.Millisecond, "1111")
	cl.Key('\r', at)
	require.Equal(t, []string{"1111"}, col.all())

	// The next burst must not inherit anything from the committed one.
	at = feed(cl, time.Now(), 5*time.Millisecond, "2222")
	cl.Key('\r', at)
	require.Equal(t, []string{"1111", "2222"}, col.all())
}

func TestTabTerminator(t *testing.T) {
	cl, col := newTestClassifier(t, Config{
		MinLength:     4,
		MaxLength:     10,
		TabTerminator: true,
	})

	at := feed(cl, time.Now(), 5*time.Millisecond, "5555")
	cl.Key('\t', at)
	assert.Equal(t, []string{"5555"}, col.all())
}

func TestTabIsOrdinaryCharacterByDefault(t *testing.T) {
	cl, col := newTestClassifier(t, Config{MinLength: 4, MaxLength: 10})

	at := feed(cl, time.Now(), 5*time.Millisecond, "55")
	cl.Key('\t', at)
	at = feed(cl, at.Add(5*time.Millisecond), 5*time.Millisecond, "55")
	cl.Key('\r', at)

	assert.Equal(t, []string{"55\t55"}, col.all())
}

func TestResetDiscardsBuffer(t *testing.T) {
	cl, col := newTestClassifier(t, Config{MinLength: 1, MaxLength: 10})

	at := feed(cl, time.Now(), 5*time.Millisecond, "1234")
	cl.Reset()
	cl.Key('\r', at)

	assert.Empty(t, col.all())
	assert.Zero(t, cl.Pending())
}

func TestEnterOnEmptyBufferIsNoop(t *testing.T) {
	cl, col := newTestClassifier(t, Config{MinLength: 1, MaxLength: 10})

	cl.Key('\r', time.Now())
	cl.Key('\n', time.Now())

	assert.Empty(t, col.all())
}

func TestCloseStopsEmission(t *testing.T) {
	cl, col := newTestClassifier(t, Config{
		MinLength:     1,
		MaxLength:     10,
		CommitTimeout: 10 * time.Millisecond,
	})

	feed(cl, time.Now(), time.Millisecond, "123")
	cl.Close()
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, col.all())
}
