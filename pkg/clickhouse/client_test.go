package clickhouse

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{
		Host:         "ch.local",
		Port:         9440,
		Database:     "synthfeed",
		User:         "feed",
		Password:     "p@ss:word",
		DialTimeout:  2 * time.Second,
		ReadTimeout:  30 * time.Second,
		MaxExecTime:  90 * time.Second,
		Compress:     true,
		AsyncInsert:  true,
		WaitForAsync: true,
	}
	u, err := url.Parse(buildDSN(cfg))
	require.NoError(t, err)

	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:9440", u.Host)
	assert.Equal(t, "/synthfeed", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss:word", pw)

	q := u.Query()
	assert.Equal(t, "2s", q.Get("dial_timeout"))
	assert.Equal(t, "30s", q.Get("read_timeout"))
	assert.Equal(t, "90", q.Get("max_execution_time"))
	assert.Equal(t, "lz4", q.Get("compress"))
	assert.Equal(t, "1", q.Get("async_insert"))
	assert.Equal(t, "1", q.Get("wait_for_async_insert"))
	assert.False(t, q.Has("write_timeout"))
}

func TestBuildDSNHTTP(t *testing.T) {
	u, err := url.Parse(buildDSN(ClientConfig{Host: "localhost", Port: 8123, User: "default", UseHTTP: true}))
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Empty(t, u.RawQuery)
}

func TestNewClientNeedsHost(t *testing.T) {
	_, err := NewClient(WithAddr("", 9000))
	assert.Error(t, err)
}
