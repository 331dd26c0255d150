package transcript_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = strings.Join([]string{
	`{"type":"user","uuid":"u0","sessionId":"s1","timestamp":"2026-01-02T03:04:05Z","message":{"role":"user","content":"old prompt"}}`,
	`{"type":"system","subtype":"compact_boundary","uuid":"c1","content":"Conversation compacted"}`,
	`{"type":"user","uuid":"u1","parentUuid":"c1","message":{"role":"user","content":"list the files"}}`,
	``,
	`{"type":"assistant","uuid":"a1","parentUuid":"u1","message":{"role":"assistant","model":"m","content":[{"type":"thinking","thinking":"use ls"},{"type":"text","text":"Listing."},{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}}]}}`,
	`{"type":"user","uuid":"u2","parentUuid":"a1","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"a.go\nb.go"}]}}`,
	`not json`,
	`{"type":"assistant","uuid":"a2","parentUuid":"u2","message":{"role":"assistant","content":[{"type":"tool_use","id":"t2","name":"Read","input":{"file_path":"/x"}}]}}`,
	`{"type":"user","uuid":"u3","parentUuid":"a2","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t2","is_error":true,"content":[{"type":"text","text":"no such file"}]}]}}`,
	`{"type":"file-history-snapshot","messageId":"m1"}`,
	`{"type":"system","subtype":"stop_hook_summary","uuid":"s9","parentUuid":"u3","content":"hooks ran"}`,
}, "\n")

func load(t *testing.T, body string, opts ...transcript.Option) *transcript.Transcript {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	tr, err := transcript.Load(path, opts...)
	require.NoError(t, err)
	return tr
}

func TestLoad_SplitsAtCompactBoundary(t *testing.T) {
	tr := load(t, sample)

	require.Len(t, tr.Archived(), 2)
	assert.Equal(t, "old prompt", tr.Archived()[0].Text())
	assert.Equal(t, 7, tr.Len())
	assert.Equal(t, 1, tr.Skipped)
	assert.Len(t, tr.CompactBoundaries(), 1)

	first := tr.Entries()[0]
	assert.Equal(t, "u1", first.UUID)
	assert.Equal(t, 3, first.Line)
	assert.Equal(t, 5, tr.Entries()[1].Line)
}

func TestLoad_Views(t *testing.T) {
	tr := load(t, sample)

	assert.Len(t, tr.UserMessages(), 3)
	prompts := tr.Prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t, "list the files", prompts[0].Text())

	assistant := tr.AssistantMessages()
	require.Len(t, assistant, 2)
	assert.Equal(t, "Listing.", assistant[0].Text())
	assert.Equal(t, "m", assistant[0].Message.Model)

	assert.Len(t, tr.SystemEntries(), 1)
	assert.Equal(t, "hooks ran", tr.SystemEntries()[0].Text())
	assert.Len(t, tr.FileSnapshots(), 1)
	assert.Contains(t, string(tr.FileSnapshots()[0].Raw), `"messageId":"m1"`)
}

func TestLoad_ToolIndexes(t *testing.T) {
	tr := load(t, sample)

	uses := tr.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "Bash", uses[0].Name)
	cmd, ok := uses[0].InputField("command")
	require.True(t, ok)
	assert.Equal(t, "ls", cmd)

	res := tr.FindToolResult("t1")
	require.NotNil(t, res)
	assert.Equal(t, "a.go\nb.go", res.ResultText())
	assert.Same(t, uses[1], tr.FindToolUse("t2"))
	assert.Nil(t, tr.FindToolUse("missing"))

	errs := tr.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "t2", errs[0].ToolUseID)
	assert.Equal(t, "no such file", errs[0].ResultText())
}

func TestLoad_Relations(t *testing.T) {
	tr := load(t, sample)

	a1 := tr.FindByUUID("a1")
	require.NotNil(t, a1)
	assert.Equal(t, "u1", tr.Parent(a1).UUID)

	children := tr.Children(a1)
	require.Len(t, children, 1)
	assert.Equal(t, "u2", children[0].UUID)
	assert.True(t, children[0].IsToolResult())

	assert.Equal(t, "c1", tr.Parent(tr.FindByUUID("u1")).UUID)
	assert.Nil(t, tr.Parent(tr.FindByUUID("u0")))
}

func TestLoad_Strict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	_, err := transcript.Load(path, transcript.Strict())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 7")
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	tr, err := transcript.Load(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Zero(t, tr.Len())
	assert.Empty(t, tr.ToolUses())
}

func TestLoad_LongLine(t *testing.T) {
	big := strings.Repeat("x", 2<<20)
	body := `{"type":"user","uuid":"u1","message":{"role":"user","content":"` + big + `"}}` + "\n" +
		`{"type":"assistant","uuid":"a1","message":{"role":"assistant","content":[{"type":"text","text":"ok"}]}}`
	tr := load(t, body)
	require.Equal(t, 2, tr.Len())
	assert.Len(t, tr.Entries()[0].Text(), 2<<20)
	assert.Equal(t, "ok", tr.Entries()[1].Text())
}

func TestFromInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	tr, err := transcript.FromInput(&domain.Input{TranscriptPath: path})
	require.NoError(t, err)
	assert.Equal(t, path, tr.Path)
	assert.Equal(t, 7, tr.Len())

	_, err = transcript.FromInput(&domain.Input{})
	assert.Error(t, err)
}
