package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jarvis/internal/config"
	"jarvis/internal/memory"
	"jarvis/internal/storage"
	"jarvis/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter_StreamedTurn(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)

	p.TurnAdded(pkg.Turn{Role: pkg.RoleUser, Text: "olá"})
	p.TurnAdded(pkg.Turn{ID: "1", Role: pkg.RoleModel, State: pkg.TurnPending})
	p.TurnChunk("1", "Bom ")
	p.TurnChunk("1", "dia.")
	p.TurnClosed(pkg.Turn{ID: "1", Role: pkg.RoleModel, State: pkg.TurnFinal})

	out := buf.String()
	assert.NotContains(t, out, "olá")
	assert.Contains(t, out, "JARVIS: ")
	assert.Contains(t, out, "Bom dia.")
}

func TestPrinter_ErrorTurn(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)

	p.TurnAdded(pkg.Turn{Role: pkg.RoleSystem, Text: "ERRO NO PROCESSAMENTO COGNITIVO.", IsError: true})
	p.Reasoning([]string{"A iniciar motor de inferência..."})

	assert.Contains(t, buf.String(), "ERRO NO PROCESSAMENTO COGNITIVO.")
	assert.Contains(t, buf.String(), "A iniciar motor de inferência...")
}

func TestReadMedia(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foto.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	media, err := readMedia(path)
	require.NoError(t, err)
	assert.Equal(t, pkg.MediaImage, media.Kind)
	assert.Equal(t, "image/png", media.MIMEType)
	assert.Equal(t, "iVBORw==", media.Base64)
	assert.Equal(t, path, media.URL)

	text := filepath.Join(dir, "notas.txt")
	require.NoError(t, os.WriteFile(text, []byte("x"), 0o644))
	_, err = readMedia(text)
	assert.Error(t, err)
}

func TestSaveDataURI(t *testing.T) {
	base := filepath.Join(t.TempDir(), "img")

	path, err := saveDataURI("data:image/png;base64,AQID", base)
	require.NoError(t, err)
	assert.Equal(t, base+".png", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = saveDataURI("data:image/png;base64", base)
	assert.Error(t, err)
}

func TestAnalyzerKeywords(t *testing.T) {
	k := analyzerKeywords(config.DefaultPersona().Keywords)
	assert.Contains(t, k.Urgency, "urgente")
	assert.Contains(t, k.Engineering, "servidor")
}

func TestPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	due := time.Date(2026, 10, 20, 9, 30, 0, 0, time.Local)
	printTasks(&buf, []pkg.Task{
		{ID: 2, Title: "Rever código", Status: pkg.TaskPending, DueDate: &due},
		{ID: 1, Title: "Backup", Description: "servidor principal", Status: pkg.TaskCompleted},
	})

	assert.Equal(t,
		"   2 [ ] Rever código (até 2026-10-20 09:30)\n"+
			"   1 [x] Backup\n"+
			"         servidor principal\n",
		buf.String())
}

// failingModelEnv points the app at a model endpoint that refuses
// connections while the connectivity check succeeds
func failingModelEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	reachable, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { reachable.Close() })

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	modelAddr := closed.Addr().String()
	require.NoError(t, closed.Close())

	dbPath := filepath.Join(dir, "jarvis.db")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("JARVIS_PERSONA_FILE", "")
	t.Setenv("JARVIS_LLM_PROVIDER", "ollama")
	t.Setenv("JARVIS_LLM_BASE_URL", "http://"+modelAddr)
	t.Setenv("JARVIS_LLM_TEXT_MODEL", "llama3.1")
	t.Setenv("JARVIS_STORE_SQLITE_PATH", dbPath)
	t.Setenv("JARVIS_AUDIO_BACKEND", "none")
	t.Setenv("JARVIS_ASSISTANT_VOICE", "false")
	t.Setenv("JARVIS_ASSISTANT_PROBE_ADDR", reachable.Addr().String())
	t.Setenv("JARVIS_LOG_LEVEL", "error")
	return dbPath
}

func TestAsk_FailedExchangeKeepsConsolidatedFact(t *testing.T) {
	dbPath := failingModelEnv(t)

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs([]string{"ask", "--raw", "urgente: o servidor caiu"})
	t.Cleanup(func() { RootCmd.SetArgs(nil) })

	err := RootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask:")

	ctx := context.Background()
	backend, err := storage.Open(ctx, config.StoreConfig{Backend: "sqlite", SQLitePath: dbPath})
	require.NoError(t, err)
	defer backend.Close()

	records := memory.NewStore(backend).LoadAll(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, "urgente: o servidor caiu", records[0].Content)
}

func TestTasksDone_ReturnsError(t *testing.T) {
	failingModelEnv(t)

	RootCmd.SetOut(new(bytes.Buffer))
	RootCmd.SetErr(new(bytes.Buffer))
	RootCmd.SetArgs([]string{"tasks", "done", "404"})
	t.Cleanup(func() { RootCmd.SetArgs(nil) })

	err := RootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update:")
}
