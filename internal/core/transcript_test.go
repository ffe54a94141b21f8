package core

import (
	"context"
	"net"
	"testing"
	"time"

	"jarvis/internal/config"
	"jarvis/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranscript(greeting ...pkg.Turn) *Transcript {
	return NewTranscript(NewIDSource(func() time.Time { return fixedNow }, nil), nil, greeting...)
}

func TestTranscript_StreamedTurn(t *testing.T) {
	tr := newTestTranscript()

	id := tr.Begin(pkg.RoleModel)
	require.NoError(t, tr.Extend(id, "Olá"))
	require.NoError(t, tr.Extend(id, ", mundo"))

	turn, err := tr.Finalize(id)
	require.NoError(t, err)
	assert.Equal(t, "Olá, mundo", turn.Text)
	assert.Equal(t, pkg.TurnFinal, turn.State)

	// closed turns are immutable
	assert.Error(t, tr.Extend(id, "!"))
	_, err = tr.Interrupt(id)
	assert.Error(t, err)
	assert.Equal(t, "Olá, mundo", tr.Turns()[0].Text)
}

func TestTranscript_UnknownTurn(t *testing.T) {
	tr := newTestTranscript()
	assert.Error(t, tr.Extend("missing", "x"))
}

func TestTranscript_IDsOrdered(t *testing.T) {
	tr := newTestTranscript()
	var ids []string
	for range 5 {
		ids = append(ids, tr.Append(pkg.Turn{Role: pkg.RoleUser, Text: "x"}).ID)
	}
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

func TestTranscript_History(t *testing.T) {
	tr := newTestTranscript(
		pkg.Turn{Role: pkg.RoleSystem, Text: "boot"},
		pkg.Turn{Role: pkg.RoleModel, Text: "pronto"},
	)
	tr.Append(pkg.Turn{Role: pkg.RoleUser, Text: "a"})
	tr.Append(pkg.Turn{Role: pkg.RoleSystem, Text: "erro", IsError: true})
	tr.Append(pkg.Turn{Role: pkg.RoleModel, Text: "b"})

	history := tr.History(0)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"pronto", "a", "b"}, []string{history[0].Text, history[1].Text, history[2].Text})

	last := tr.History(2)
	require.Len(t, last, 2)
	assert.Equal(t, "a", last[0].Text)
}

func TestBuildSystemInstruction(t *testing.T) {
	persona := config.DefaultPersona()

	prompt := BuildSystemInstruction(persona, pkg.ToneCasual, "- gosta de café", false)
	assert.Contains(t, prompt, "Você é JARVIS")
	assert.Contains(t, prompt, "Responda em Português (Região: Portugal).")
	assert.Contains(t, prompt, "Personalidade atual: casual, empático e amigável.")
	assert.Contains(t, prompt, "- gosta de café")
	assert.NotContains(t, prompt, strategicBlock)
	assert.NotContains(t, prompt, noMemory)

	strategic := BuildSystemInstruction(persona, pkg.Tone("unknown"), "", true)
	assert.Contains(t, strategic, strategicBlock)
	assert.Contains(t, strategic, noMemory)
	assert.Contains(t, strategic, "técnico, conciso e profissional")
}

func TestOfflineResponder(t *testing.T) {
	responder := NewOfflineResponder(config.DefaultPersona().Offline, func() time.Time { return fixedNow })

	tests := []struct {
		input string
		want  string
	}{
		{"Mostra a minha tarefa", "[MODO OFFLINE] Verifique o painel de tarefas no menu lateral para gerir a sua produtividade."},
		{"Que HORAS são?", "[MODO OFFLINE] A hora local do sistema é 14:05:09."},
		{"tarefa e horas", "[MODO OFFLINE] Verifique o painel de tarefas no menu lateral para gerir a sua produtividade."},
		{"conta uma piada", config.DefaultPersona().Offline.DefaultReply},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, responder.Respond(tt.input))
		})
	}
}

func TestDialProbe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()

	assert.True(t, DialProbe{Addr: addr, Timeout: time.Second}.Online(context.Background()))

	require.NoError(t, listener.Close())
	assert.False(t, DialProbe{Addr: addr, Timeout: time.Second}.Online(context.Background()))
	assert.False(t, StaticNetwork(false).Online(context.Background()))
}
