package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ergo", cmd.Use)
	assert.Contains(t, cmd.Long, "cluster definitions")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "expand", "signature", "diff", "run", "test", "serve"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	clustersFlag := cmd.PersistentFlags().Lookup("clusters")
	require.NotNil(t, clustersFlag)
	assert.Equal(t, "clusters", clustersFlag.DefValue)

	cacheFlag := cmd.PersistentFlags().Lookup("cache")
	require.NotNil(t, cacheFlag)
	assert.Equal(t, "memory", cacheFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"param", "context", "db"} {
		flag := runCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue)
	}
	assert.Equal(t, "p", runCmd.Flags().Lookup("param").Shorthand)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	addrFlag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, ":8080", addrFlag.DefValue)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "--clusters", testClusters, "signature", "hello_world", "1.0.0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_InvalidCache(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--cache", "memcached://x", "--clusters", testClusters, "signature", "hello_world", "1.0.0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid cache "memcached://x"`)
}

func TestParseCacheSpec(t *testing.T) {
	tests := []struct {
		spec    string
		want    cacheSpec
		wantErr bool
	}{
		{"", cacheSpec{Backend: cacheMemory}, false},
		{"memory", cacheSpec{Backend: cacheMemory}, false},
		{"none", cacheSpec{Backend: cacheNone}, false},
		{"sqlite:/tmp/sigs.db", cacheSpec{Backend: cacheSQLite, Target: "/tmp/sigs.db"}, false},
		{"redis://localhost:6379/0", cacheSpec{Backend: cacheRedis, Target: "redis://localhost:6379/0"}, false},
		{"rediss://cache:6380", cacheSpec{Backend: cacheRedis, Target: "rediss://cache:6380"}, false},
		{"sqlite:", cacheSpec{}, true},
		{"disk", cacheSpec{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseCacheSpec(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
