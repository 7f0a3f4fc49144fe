package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drog/internal/logger"
	"drog/internal/models"
)

// failingBackend, her çağrıda hata döndürür (kota dolu, depolama kapalı vb.).
type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, ErrUnavailable
}
func (failingBackend) Set(context.Context, string, string) error { return ErrUnavailable }
func (failingBackend) Delete(context.Context, string) error      { return ErrUnavailable }

// recordingLogger counts warnings.
type recordingLogger struct {
	logger.Nop
	warns []string
}

func (r *recordingLogger) Warn(msg string, _ ...interface{}) { r.warns = append(r.warns, msg) }

func newBridge() *Bridge {
	return NewBridge(NewMemoryBackend(), time.Second, nil)
}

func sampleLines() []models.CartLine {
	return []models.CartLine{
		{ProductID: 1, Name: "Hoodie", Price: decimal.NewFromInt(450), Size: "M", Quantity: 2},
		{ProductID: 2, Name: "Cap", Price: decimal.RequireFromString("85.50"), Size: "L", Color: "black", Quantity: 1},
	}
}

func assertLinesEqual(t *testing.T, want, got []models.CartLine) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Price.Equal(got[i].Price), "price of line %d", i)
		w, g := want[i], got[i]
		w.Price, g.Price = decimal.Zero, decimal.Zero
		assert.Equal(t, w, g)
	}
}

func TestBridge_JSONRoundTrip(t *testing.T) {
	b := newBridge()

	SaveJSON(b, KeyCart, sampleLines())
	got := LoadJSON(b, KeyCart, []models.CartLine{})
	assertLinesEqual(t, sampleLines(), got)

	coupons := []models.Coupon{{Code: "DROG10", Type: models.DiscountPercent, Value: decimal.NewFromInt(10), ProductIDs: []int{3}, Active: true}}
	SaveJSON(b, KeyCoupons, coupons)
	gotCoupons := LoadJSON(b, KeyCoupons, []models.Coupon(nil))
	require.Len(t, gotCoupons, 1)
	assert.Equal(t, "DROG10", gotCoupons[0].Code)
	assert.Equal(t, []int{3}, gotCoupons[0].ProductIDs)
	assert.True(t, gotCoupons[0].Value.Equal(decimal.NewFromInt(10)))
}

func TestBridge_CorruptValueReturnsFallback(t *testing.T) {
	backend := NewMemoryBackend()
	log := &recordingLogger{}
	b := NewBridge(backend, time.Second, log)

	require.NoError(t, backend.Set(context.Background(), KeyCart, "{not json"))

	fallback := []models.CartLine{}
	got := LoadJSON(b, KeyCart, fallback)
	assert.Empty(t, got)
	assert.NotEmpty(t, log.warns)
}

func TestBridge_MissingKeyReturnsFallback(t *testing.T) {
	b := newBridge()
	assert.Equal(t, "light", b.LoadString(KeyTheme, "light"))
	assert.Equal(t, 7, LoadJSON(b, "nope", 7))
}

func TestBridge_BackendFailureNeverPanics(t *testing.T) {
	log := &recordingLogger{}
	b := NewBridge(failingBackend{}, time.Second, log)

	SaveJSON(b, KeyCart, sampleLines())
	b.SaveString(KeyToken, "abc")
	b.Remove(KeyToken, KeyUser)

	assert.Equal(t, "fallback", b.LoadString(KeyToken, "fallback"))
	assert.Nil(t, LoadJSON[[]models.CartLine](b, KeyCart, nil))
	assert.GreaterOrEqual(t, len(log.warns), 4)
}

func TestBridge_ScopeIsolatesProfiles(t *testing.T) {
	b := newBridge()
	alice := b.Scope("alice")
	bob := b.Scope("bob")

	alice.SaveString(KeyLanguage, "en")
	assert.Equal(t, "en", alice.LoadString(KeyLanguage, ""))
	assert.Equal(t, "ar", bob.LoadString(KeyLanguage, "ar"))
	assert.Equal(t, "", b.LoadString(KeyLanguage, ""))

	alice.Remove(KeyLanguage)
	assert.Equal(t, "", alice.LoadString(KeyLanguage, ""))
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ctx := context.Background()

	fb, err := NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, fb.Set(ctx, "profile:x:theme", "dark"))
	require.NoError(t, fb.Set(ctx, "gone", "1"))
	require.NoError(t, fb.Delete(ctx, "gone"))

	again, err := NewFileBackend(path)
	require.NoError(t, err)
	v, ok, err := again.Get(ctx, "profile:x:theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	_, ok, _ = again.Get(ctx, "gone")
	assert.False(t, ok)
}

func TestFileBackend_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("]]garbage"), 0o644))

	fb, err := NewFileBackend(path)
	require.NoError(t, err)
	_, ok, err := fb.Get(context.Background(), KeyCart)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fb.Set(context.Background(), KeyCart, "[]"))
	again, err := NewFileBackend(path)
	require.NoError(t, err)
	v, ok, _ := again.Get(context.Background(), KeyCart)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)
}

func TestFileBackend_WriteFailureKeepsOldValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "data.json")
	fb, err := NewFileBackend(path)
	require.NoError(t, err)

	err = fb.Set(context.Background(), "k", "v")
	assert.Error(t, err)
	_, ok, _ := fb.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestRedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rb := NewRedisBackendFromClient(client, "drog")
	b := NewBridge(rb, time.Second, nil).Scope("p1")

	SaveJSON(b, KeyCart, sampleLines())
	assert.True(t, mr.Exists("drog:profile:p1:cart"))

	got := LoadJSON(b, KeyCart, []models.CartLine{})
	assertLinesEqual(t, sampleLines(), got)

	b.Remove(KeyCart)
	assert.False(t, mr.Exists("drog:profile:p1:cart"))
}

func TestNewRedisBackend_BadURL(t *testing.T) {
	_, err := NewRedisBackend(context.Background(), "://nope", "drog")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}
