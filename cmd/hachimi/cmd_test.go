package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/hachimi/api"
	"github.com/Neumenon/hachimi/envconfig"
	"github.com/Neumenon/hachimi/hachimi"
	"github.com/Neumenon/hachimi/history"
	"github.com/Neumenon/hachimi/server"
	"github.com/Neumenon/hachimi/version"
)

// setupEnv points history at a temp file and reloads the environment.
func setupEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	t.Setenv("HACHIMI_HISTORY", path)
	t.Setenv("HACHIMI_NOHISTORY", "")
	t.Setenv("HACHIMI_WEIGHTS", "")
	t.Setenv("HACHIMI_DEBUG", "")
	envconfig.LoadConfig()
	t.Cleanup(envconfig.LoadConfig)

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewCLI()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func TestEncodeDecode(t *testing.T) {
	setupEnv(t)

	out, _, err := run(t, "", "encode", "你好", "世界")
	require.NoError(t, err)
	encoded := strings.TrimSuffix(out, "\n")
	require.NotEmpty(t, encoded)

	out, _, err = run(t, "", "decode", encoded)
	require.NoError(t, err)
	assert.Equal(t, "你好 世界\n", out)
}

func TestEncodeStdin(t *testing.T) {
	setupEnv(t)

	out, _, err := run(t, "line one\nline two\n", "enc")
	require.NoError(t, err)

	out, _, err = run(t, out, "dec")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", out)
}

func TestDecodeFailure(t *testing.T) {
	setupEnv(t)

	out, _, err := run(t, "", "decode", "哈基米哈基米")
	require.Error(t, err)
	assert.Equal(t, hachimi.FailureMessage, err.Error())
	assert.Empty(t, out)
}

func TestTranslateJSON(t *testing.T) {
	setupEnv(t)

	out, _, err := run(t, "", "translate", "--json", "--role", "human", "mambo")
	require.NoError(t, err)

	var resp api.TranslateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.OK)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 5, resp.Stats.PlainBytes)
	assert.NotEmpty(t, resp.HistoryID)

	out, _, err = run(t, "", "translate", "--json", "--role", "toHuman", resp.Output)
	require.NoError(t, err)
	var back api.TranslateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &back))
	assert.Equal(t, "mambo", back.Output)

	_, _, err = run(t, "", "translate", "--role", "sideways", "x")
	assert.ErrorIs(t, err, hachimi.ErrUnknownRole)
}

func TestWeightFlags(t *testing.T) {
	setupEnv(t)

	flags := []string{"--weight-onomat", "2", "--weight-symbol", "0", "--weight-kaomoji", "3"}
	out, _, err := run(t, "", append([]string{"encode"}, append(flags, "plain tokens")...)...)
	require.NoError(t, err)
	encoded := strings.TrimSuffix(out, "\n")

	out, _, err = run(t, "", append([]string{"decode"}, append(flags, encoded)...)...)
	require.NoError(t, err)
	assert.Equal(t, "plain tokens\n", out)
}

func TestFlagWeights(t *testing.T) {
	setupEnv(t)

	root := NewCLI()
	encodeCmd, _, err := root.Find([]string{"encode"})
	require.NoError(t, err)

	w, err := flagWeights(encodeCmd)
	require.NoError(t, err)
	assert.Nil(t, w)

	require.NoError(t, encodeCmd.ParseFlags([]string{"--weight-emoji", "0", "--weight-base", "2.5"}))
	w, err = flagWeights(encodeCmd)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 2.5, *w.Base)
	assert.Equal(t, 0.0, *w.Emoji)
	assert.Nil(t, w.Onomat)
	assert.Nil(t, w.Symbol)
	assert.Nil(t, w.Kaomoji)
}

func TestBatch(t *testing.T) {
	setupEnv(t)

	lines := []string{"first", "第二", "third line", "🐱"}
	out, _, err := run(t, strings.Join(lines, "\n")+"\n", "batch", "--parallel", "2")
	require.NoError(t, err)

	encoded := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, encoded, len(lines))

	out, _, err = run(t, strings.Join(encoded, "\n"), "batch", "--role", "toHuman")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(lines, "\n")+"\n", out)

	hist, err := history.Open(envconfig.HistoryPath, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, hist.Len())
}

func TestBatchFile(t *testing.T) {
	setupEnv(t)

	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\r\nb\r\n"), 0o644))

	out, _, err := run(t, "", "batch", "--json", path)
	require.NoError(t, err)

	var results []api.TranslateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.OK)
	}
}

func TestBatchFailures(t *testing.T) {
	setupEnv(t)

	out, stderr, err := run(t, "哈基米\nnonsense\n", "batch", "--role", "toHuman")
	require.EqualError(t, err, "2 of 2 lines failed")
	assert.Equal(t, "\n\n", out)
	assert.Contains(t, stderr, "line 2: "+hachimi.FailureMessage)
}

func TestHistory(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, "", "encode", "remember me")
	require.NoError(t, err)
	_, _, err = run(t, "", "encode", "--no-history", "forget me")
	require.NoError(t, err)

	out, _, err := run(t, "", "history", "--json")
	require.NoError(t, err)
	var resp api.HistoryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "remember me", resp.Entries[0].Original)
	assert.Equal(t, hachimi.ToHachimi, resp.Entries[0].Role)

	out, _, err = run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "ROLE")
	assert.Contains(t, out, "toHachimi")
	assert.Contains(t, out, "remember me")

	out, _, err = run(t, "", "history", "clear")
	require.NoError(t, err)
	assert.Equal(t, "history cleared\n", out)

	out, _, err = run(t, "", "history", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"entries":[]}`, out)
}

func TestNoHistoryEnv(t *testing.T) {
	path := setupEnv(t)
	t.Setenv("HACHIMI_NOHISTORY", "1")
	envconfig.LoadConfig()

	_, _, err := run(t, "", "encode", "secret")
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVocab(t *testing.T) {
	setupEnv(t)

	out, _, err := run(t, "", "vocab")
	require.NoError(t, err)
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "onomat")
	assert.Contains(t, out, "lead words: 哈基米 南北绿豆 曼波")
	assert.Contains(t, out, "combos per base: 57")

	out, _, err = run(t, "", "vocab", "--json")
	require.NoError(t, err)
	var resp api.VocabResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Pools, 5)
}

func TestVersion(t *testing.T) {
	setupEnv(t)

	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "hachimi version is "+version.Version+"\n", out)

	out, _, err = run(t, "", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
}

func TestRemote(t *testing.T) {
	setupEnv(t)
	gin.SetMode(gin.TestMode)

	tr, err := hachimi.New(hachimi.Options{})
	require.NoError(t, err)
	store, err := history.Open("", 10)
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(tr, store).Routes())
	t.Cleanup(srv.Close)
	t.Setenv("HACHIMI_HOST", strings.TrimPrefix(srv.URL, "http://"))

	out, _, err := run(t, "", "encode", "--remote", "over the wire")
	require.NoError(t, err)

	out, _, err = run(t, "", "decode", "--remote", strings.TrimSuffix(out, "\n"))
	require.NoError(t, err)
	assert.Equal(t, "over the wire\n", out)
	assert.Equal(t, 2, store.Len())

	out, _, err = run(t, "", "version", "--remote")
	require.NoError(t, err)
	assert.Contains(t, out, "server version is "+version.Version)
}

func TestReadInputTrimsNewline(t *testing.T) {
	setupEnv(t)

	out, _, err := run(t, "crlf\r\n", "encode")
	require.NoError(t, err)
	out, _, err = run(t, out, "decode")
	require.NoError(t, err)
	assert.Equal(t, "crlf\n", out)
}
