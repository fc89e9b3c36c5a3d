package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/markup/internal/config"
	"github.com/conneroisu/markup/internal/logging"
	"github.com/conneroisu/markup/internal/version"
	markuperrors "github.com/conneroisu/markup/pkg/errors"
	"github.com/conneroisu/markup/pkg/pipe"
	"github.com/conneroisu/markup/pkg/render"
)

// resetState clears global configuration and flag values between tests.
func resetState(t *testing.T) {
	t.Helper()
	viper.Reset()
	initErr = nil
	renderPage = &PageFlags{Kind: "auto"}
	renderOutput = ""
	renderPrioritize = false
	renderWatch = false
	checkKind = "auto"
	checkFormat = "table"
	pipesFormat = "table"
	versionFormat = "text"
	versionShort = false
	versionDetailed = false
	t.Cleanup(viper.Reset)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	return c, &buf
}

const precedenceDoc = "tag: h1\nwith: {title: stored}\nchildren: [\"{{title}}\"]\n"

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "page.yml", precedenceDoc)
	data := writeFile(t, dir, "data.json", `{"title": "caller"}`)

	tests := []struct {
		name     string
		setup    func()
		expected string
	}{
		{"caller wins by default", func() {}, "<h1>caller</h1>"},
		{"flag prioritizes stored", func() { renderPrioritize = true }, "<h1>stored</h1>"},
		{"config prioritizes stored", func() { viper.Set("render.prioritize_stored", true) }, "<h1>stored</h1>"},
		{"text kind", func() { renderPage.Kind = "text" }, "tag: h1\nwith: {title: stored}\nchildren: [\"caller\"]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetState(t)
			renderPage.Data = data
			tt.setup()

			c, buf := newTestCommand()
			require.NoError(t, runRender(c, []string{doc}))
			assert.Equal(t, tt.expected, strings.TrimSpace(buf.String()))
		})
	}
}

func TestRenderCommandOutputFile(t *testing.T) {
	resetState(t)
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "mail.txt", "Dear {{name|title}}")
	renderPage.Data = writeFile(t, dir, "user.yml", "name: ada lovelace\n")
	renderOutput = filepath.Join(dir, "mail.out")

	c, buf := newTestCommand()
	require.NoError(t, runRender(c, []string{tmpl}))
	assert.Empty(t, buf.String())

	content, err := os.ReadFile(renderOutput)
	require.NoError(t, err)
	assert.Equal(t, "Dear Ada Lovelace", string(content))
}

func TestRenderCommandConfiguredNames(t *testing.T) {
	resetState(t)
	viper.Set("render.index_name", "n")
	viper.Set("render.item_name", "row")
	dir := t.TempDir()
	doc := writeFile(t, dir, "list.yml", "kind: each\nitems: [a, b]\ntemplate: \"{{n}}{{row}} \"\n")

	c, buf := newTestCommand()
	require.NoError(t, runRender(c, []string{doc}))
	assert.Equal(t, "0a 1b ", buf.String())
}

func TestRenderCommandErrors(t *testing.T) {
	resetState(t)
	dir := t.TempDir()

	c, _ := newTestCommand()
	err := runRender(c, []string{writeFile(t, dir, "bad.txt", "{{missing}}")})
	assert.True(t, errors.Is(err, markuperrors.ErrPropertyNotFound))

	err = runRender(c, []string{writeFile(t, dir, "bad.yml", "kind: table")})
	assert.True(t, errors.Is(err, markuperrors.ErrDocument))

	viper.Set("preview.port", -1)
	err = runRender(c, []string{writeFile(t, dir, "ok.txt", "x")})
	assert.True(t, errors.Is(err, markuperrors.ErrConfigInvalid))

	viper.Reset()
	initErr = errors.New("read config: broken")
	err = runRender(c, []string{writeFile(t, dir, "ok2.txt", "x")})
	assert.ErrorContains(t, err, "broken")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchRender(t *testing.T) {
	resetState(t)
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.txt", "v1")
	page := renderPage.Page(tmpl)

	cfg := &config.Config{Preview: config.PreviewConfig{Debounce: 10 * time.Millisecond}}
	cfg.Render.IndexName, cfg.Render.ItemName = "i", "item"
	out := &lockedBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchRender(ctx, out, cfg, logging.Nop(), newRenderer(cfg, logging.Nop()), page, nil)
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(tmpl, []byte("v2"), 0o644)
		return strings.Contains(out.String(), "v2")
	}, 10*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestCheckCommand(t *testing.T) {
	resetState(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "{{name|uppercase}} {{age}}")
	bad := writeFile(t, dir, "bad.txt", "{{name|nope}}")

	c, buf := newTestCommand()
	require.NoError(t, runCheck(c, []string{good}))
	out := buf.String()
	assert.Contains(t, out, "FILE")
	assert.Contains(t, out, "{{name|uppercase}}")
	assert.Contains(t, out, "ok")

	buf.Reset()
	err := runCheck(c, []string{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pipes: "+bad+": nope")
	assert.Contains(t, buf.String(), "unknown pipe")

	buf.Reset()
	checkFormat = "json"
	require.NoError(t, runCheck(c, []string{good}))
	var reports []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "text", reports[0]["kind"])
	assert.Len(t, reports[0]["markers"], 2)

	buf.Reset()
	checkFormat = "yaml"
	require.NoError(t, runCheck(c, []string{good}))
	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, good, decoded[0]["path"])

	err = runCheck(c, []string{writeFile(t, dir, "broken.yml", "kind: table")})
	assert.True(t, errors.Is(err, markuperrors.ErrDocument))
}

func TestPipesCommand(t *testing.T) {
	resetState(t)

	c, buf := newTestCommand()
	require.NoError(t, runPipes(c, nil))
	assert.Contains(t, buf.String(), "NAME")
	assert.Contains(t, buf.String(), "uppercase")

	buf.Reset()
	pipesFormat = "json"
	require.NoError(t, runPipes(c, nil))
	var infos []PipeInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &infos))
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	assert.Contains(t, names, "lowercase")
	assert.Contains(t, names, ">=")
}

func TestListPipesAliases(t *testing.T) {
	r := pipe.New()
	require.NoError(t, r.Alias("uppercase", "shout"))

	var shout PipeInfo
	for _, info := range listPipes(r) {
		if info.Name == "shout" {
			shout = info
		}
	}
	assert.Equal(t, PipeInfo{Name: "shout", Kind: "alias", Target: "uppercase"}, shout)
}

func TestVersionCommand(t *testing.T) {
	info := version.Info{Version: "v1.0.0", GitCommit: "0123456789", GoVersion: "go1.24", Platform: "linux/amd64", Release: true}

	tests := []struct {
		name     string
		setup    func()
		contains string
	}{
		{"default", func() {}, "markup v1.0.0 (0123456)"},
		{"short", func() { versionShort = true }, "v1.0.0 (0123456)"},
		{"detailed", func() { versionDetailed = true }, "Platform: linux/amd64"},
		{"json", func() { versionFormat = "json" }, `"is_release": true`},
		{"yaml", func() { versionFormat = "yaml" }, "platform: linux/amd64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetState(t)
			tt.setup()
			var buf bytes.Buffer
			require.NoError(t, outputVersion(&buf, info))
			assert.Contains(t, buf.String(), tt.contains)
		})
	}

	resetState(t)
	versionFormat = "xml"
	assert.Error(t, outputVersion(&bytes.Buffer{}, info))

	c, buf := newTestCommand()
	versionFormat = "text"
	require.NoError(t, runVersionCommand(c, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "markup "))
}

func TestApplyPreviewFlags(t *testing.T) {
	c := &cobra.Command{}
	c.Flags().StringVar(&previewHost, "host", config.DefaultHost, "")
	c.Flags().IntVar(&previewPort, "port", config.DefaultPort, "")

	cfg := &config.Config{Preview: config.PreviewConfig{Host: "0.0.0.0", Port: 1234}}
	applyPreviewFlags(c, cfg)
	assert.Equal(t, "0.0.0.0", cfg.Preview.Host)
	assert.Equal(t, 1234, cfg.Preview.Port)

	require.NoError(t, c.Flags().Set("port", "9000"))
	applyPreviewFlags(c, cfg)
	assert.Equal(t, "0.0.0.0", cfg.Preview.Host)
	assert.Equal(t, 9000, cfg.Preview.Port)
}

func TestFlagValidation(t *testing.T) {
	c := &cobra.Command{}
	var format string
	AddFormatFlag(c, &format)

	require.NoError(t, c.Flags().Set("format", "json"))
	assert.Equal(t, "json", format)

	err := c.Flags().Set("format", "jsn")
	require.Error(t, err)
	assert.Equal(t, "json", format)

	flags := AddPageFlags(c)
	assert.Error(t, c.Flags().Set("kind", "docs"))
	assert.Error(t, c.Flags().Set("data", filepath.Join(t.TempDir(), "missing.yml")))
	require.NoError(t, c.Flags().Set("kind", "text"))
	assert.Equal(t, "text", flags.Page("x").Kind)
}

func TestValidateFormatWithSuggestion(t *testing.T) {
	assert.NoError(t, ValidateFormatWithSuggestion("JSON", outputFormats))
	assert.ErrorContains(t, ValidateFormatWithSuggestion("tab", outputFormats), `did you mean "table"`)
	assert.ErrorContains(t, ValidateFormatWithSuggestion("yamlx", outputFormats), `did you mean "yaml"`)
	assert.ErrorContains(t, ValidateFormatWithSuggestion("xml", outputFormats), "supported: table, json, yaml")
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("0"))
	assert.NoError(t, ValidatePort("8080"))
	assert.Error(t, ValidatePort("65536"))
	assert.Error(t, ValidatePort("http"))
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"render", "check", "pipes", "preview", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRenderOptionsFromConfig(t *testing.T) {
	resetState(t)
	viper.Set("render.prioritize_stored", true)
	cfg, err := loadConfig()
	require.NoError(t, err)

	out, err := render.Text("{{v}}").With(map[string]any{"v": "stored"}).Render(map[string]any{"v": "caller"}, cfg.RenderOptions()...)
	require.NoError(t, err)
	assert.Equal(t, "stored", out)
}
