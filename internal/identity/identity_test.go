package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoback/internal/storage/cache"
	apperrors "autoback/pkg/errors"
)

const stateJSON = `{
  "active_application": {"id": "0100F2C0115B6000"},
  "last_opened_account": "00112233445566778899AABBCCDDEEFF",
  "accounts": [
    {"uid": "00112233445566778899AABBCCDDEEFF", "nickname": "Link"},
    {"uid": "FFEEDDCCBBAA99887766554433221100", "nickname": "Zelda"},
    {"uid": "not-a-uid", "nickname": "broken"}
  ],
  "titles": {"0100f2c0115b6000": "Tears of the Kingdom"}
}`

func writeState(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestStateFileResolver(t *testing.T) {
	ctx := context.Background()
	r := NewStateFileResolver(writeState(t, stateJSON))

	app, err := r.ActiveApplication(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0100F2C0115B6000), app.ID)
	assert.False(t, app.IsIdle())

	name, err := r.DisplayName(ctx, app)
	require.NoError(t, err)
	assert.Equal(t, "Tears of the Kingdom", name)

	name, err = r.DisplayName(ctx, ApplicationIdentity{ID: 0xABC})
	require.NoError(t, err)
	assert.Empty(t, name)

	acc, err := r.DrivingAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Link", acc.Nickname)
	assert.Equal(t, "00112233445566778899AABBCCDDEEFF", acc.UID.Hex())

	accounts, err := r.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Zelda", accounts[1].Nickname)
}

func TestStateFileResolver_NoProcessIsShell(t *testing.T) {
	r := NewStateFileResolver(writeState(t, `{"last_opened_account": ""}`))
	app, err := r.ActiveApplication(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ShellID, app.ID)
	assert.True(t, app.IsIdle())

	_, err = r.DrivingAccount(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStateFileResolver_MissingFile(t *testing.T) {
	r := NewStateFileResolver(filepath.Join(t.TempDir(), "absent.json"))
	_, err := r.ActiveApplication(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.True(t, apperrors.IsKind(err, apperrors.KindResolverUnavailable))
}

func TestTruncateNickname(t *testing.T) {
	assert.Equal(t, "short", TruncateNickname("short"))
	long := "abcdefghijklmnopqrstuvwxyz0123456789"
	assert.Equal(t, long[:32], TruncateNickname(long))
	// 31 个 ASCII + 一个 3 字节字符，不能切在字符中间
	multi := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" + "界"
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", TruncateNickname(multi))
}

func TestParseAccountUID(t *testing.T) {
	uid, err := ParseAccountUID("0x00000000000000010000000000000002")
	require.NoError(t, err)
	assert.Equal(t, AccountUID{1, 2}, uid)
	_, err = ParseAccountUID("1234")
	assert.Error(t, err)
	assert.True(t, AccountUID{}.IsZero())

	uid, err = ParseAccountUID(" 0X00000000000000010000000000000002 ")
	require.NoError(t, err)
	assert.Equal(t, AccountUID{1, 2}, uid)
}

func TestParseAppID_Prefix(t *testing.T) {
	for _, in := range []string{"0100F2C0115B6000", "0x0100F2C0115B6000", "0X0100f2c0115b6000"} {
		id, err := ParseAppID(in)
		require.NoError(t, err, in)
		assert.Equal(t, uint64(0x0100F2C0115B6000), id, in)
	}
	_, err := ParseAppID("0X")
	assert.Error(t, err)
}

// countingResolver 记录 DisplayName 回源次数
type countingResolver struct {
	calls int
	name  string
}

func (c *countingResolver) ActiveApplication(ctx context.Context) (ApplicationIdentity, error) {
	return ApplicationIdentity{}, errors.New("unused")
}

func (c *countingResolver) DisplayName(ctx context.Context, app ApplicationIdentity) (string, error) {
	c.calls++
	return c.name, nil
}

func (c *countingResolver) DrivingAccount(ctx context.Context) (AccountIdentity, error) {
	return AccountIdentity{}, ErrUnavailable
}

func TestCachedResolver_DisplayName(t *testing.T) {
	ctx := context.Background()
	inner := &countingResolver{name: "Metroid Dread"}
	r := NewCachedResolver(inner, cache.NewMemoryStore(), time.Minute, nil)
	app := ApplicationIdentity{ID: 0x010093801237C000}

	for i := 0; i < 3; i++ {
		name, err := r.DisplayName(ctx, app)
		require.NoError(t, err)
		assert.Equal(t, "Metroid Dread", name)
	}
	assert.Equal(t, 1, inner.calls)

	accounts, err := r.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestCachedResolver_EmptyNameNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingResolver{}
	r := NewCachedResolver(inner, cache.NewMemoryStore(), time.Minute, nil)
	app := ApplicationIdentity{ID: 1}
	_, _ = r.DisplayName(ctx, app)
	_, _ = r.DisplayName(ctx, app)
	assert.Equal(t, 2, inner.calls)
}
