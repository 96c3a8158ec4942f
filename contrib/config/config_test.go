package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omalloc/relay/contrib/config"
	"github.com/omalloc/relay/contrib/config/provider/file"
)

type testConf struct {
	Hostname string `json:"hostname"`
	Server   struct {
		Addr        string        `json:"addr"`
		IdleTimeout time.Duration `json:"idle_timeout"`
	} `json:"server"`
	Cache struct {
		MaxObjectSize int `json:"max_object_size"`
	} `json:"cache"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanYAMLFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
hostname: edge-1
server:
  addr: ":3128"
  idle_timeout: 45s
cache:
  max_object_size: 1024
`)

	c := config.New[testConf](config.WithSource(file.NewSource(path)))
	defer c.Close()

	var tc testConf
	require.NoError(t, c.Scan(&tc))

	assert.Equal(t, "edge-1", tc.Hostname)
	assert.Equal(t, ":3128", tc.Server.Addr)
	assert.Equal(t, 45*time.Second, tc.Server.IdleTimeout)
	assert.Equal(t, 1024, tc.Cache.MaxObjectSize)
}

func TestScanJSONFile(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"hostname": "edge-2",
		"server": {"addr": ":8080"}
	}`)

	c := config.New[testConf](config.WithSource(file.NewSource(path)))
	defer c.Close()

	var tc testConf
	require.NoError(t, c.Scan(&tc))

	assert.Equal(t, "edge-2", tc.Hostname)
	assert.Equal(t, ":8080", tc.Server.Addr)
}

func TestLaterSourceOverridesEarlier(t *testing.T) {
	base := writeFile(t, "base.yaml", `
hostname: base
server:
  addr: ":1111"
`)
	override := writeFile(t, "override.yaml", `
server:
  addr: ":2222"
`)

	c := config.New[testConf](config.WithSource(file.NewSource(base), file.NewSource(override)))
	defer c.Close()

	var tc testConf
	require.NoError(t, c.Scan(&tc))

	// untouched keys survive, overlapping keys take the later value
	assert.Equal(t, "base", tc.Hostname)
	assert.Equal(t, ":2222", tc.Server.Addr)
}

func TestScanKeepsExistingValuesForAbsentKeys(t *testing.T) {
	path := writeFile(t, "partial.yaml", `
server:
  addr: ":9999"
`)

	c := config.New[testConf](config.WithSource(file.NewSource(path)))
	defer c.Close()

	tc := testConf{Hostname: "default-host"}
	tc.Cache.MaxObjectSize = 512
	require.NoError(t, c.Scan(&tc))

	assert.Equal(t, "default-host", tc.Hostname)
	assert.Equal(t, 512, tc.Cache.MaxObjectSize)
	assert.Equal(t, ":9999", tc.Server.Addr)
}

func TestScanMissingFileFails(t *testing.T) {
	c := config.New[testConf](config.WithSource(file.NewSource("/does/not/exist.yaml")))
	defer c.Close()

	var tc testConf
	assert.Error(t, c.Scan(&tc))
}

func TestFileWatcherSeesRewrite(t *testing.T) {
	path := writeFile(t, "config.yaml", "hostname: before\n")

	src := file.NewSource(path)
	w, err := src.Watch()
	require.NoError(t, err)
	require.NotNil(t, w)
	defer func() { _ = w.Stop() }()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, []byte("hostname: after\n"), 0o644)
	}()

	done := make(chan []*config.KeyValue, 1)
	go func() {
		kvs, err := w.Next()
		if err == nil {
			done <- kvs
		}
	}()

	select {
	case kvs := <-done:
		require.Len(t, kvs, 1)
		assert.Contains(t, string(kvs[0].Value), "after")
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never reported the rewrite")
	}
}
