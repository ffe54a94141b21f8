package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"jarvis/internal/core"
	"jarvis/pkg"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	modelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	reasoningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
)

const chatHelp = `Comandos:
  /voice   grava uma mensagem de voz (Enter para parar)
  /tasks   verifica as tarefas e mostra alertas
  /memory  mostra a memória de longo prazo
  /quit    termina a sessão`

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE:  runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	observer := newPrinter(out)
	coord, err := a.newCoordinator(ctx, observer)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer coord.Close()

	for _, turn := range coord.Transcript().Turns() {
		observer.TurnAdded(turn)
	}
	if _, _, err := coord.InjectAdvisory(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Proactivity check skipped")
	}
	fmt.Fprintln(out, reasoningStyle.Render(chatHelp))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(out, promptStyle.Render("> "))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, reasoningStyle.Render(chatHelp))
			continue
		case "/memory":
			printMemory(out, a.memory.LoadAll(ctx))
			continue
		case "/tasks":
			if _, ok, err := coord.InjectAdvisory(ctx); err != nil {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
			} else if !ok {
				fmt.Fprintln(out, reasoningStyle.Render("Sem alertas."))
			}
			continue
		case "/voice":
			recordVoice(ctx, out, coord, lines)
			continue
		}

		if _, err := coord.Submit(ctx, pkg.Submission{Text: line}); err != nil {
			a.logger.Debug().Err(err).Msg("Exchange ended with error")
		}
	}
}

// recordVoice records until the next line is entered
func recordVoice(ctx context.Context, out io.Writer, coord *core.Coordinator, lines <-chan string) {
	fmt.Fprintln(out, reasoningStyle.Render("A gravar... (Enter para parar)"))

	stopRec := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(stopRec)
		select {
		case <-lines:
		case <-ctx.Done():
		case <-done:
		}
	}()

	_, err := coord.RecordVoice(ctx, stopRec)
	close(done)
	<-stopRec
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, reasoningStyle.Render(err.Error()))
	}
}

// printer renders transcript events to a terminal
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) TurnAdded(turn pkg.Turn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case turn.Role == pkg.RoleUser:
		return
	case turn.IsError:
		fmt.Fprintln(p.out, errorStyle.Render(turn.Text))
	case turn.Role == pkg.RoleSystem:
		fmt.Fprintln(p.out, systemStyle.Render(turn.Text))
	case turn.State.Open():
		fmt.Fprint(p.out, modelStyle.Render("JARVIS: "))
	default:
		fmt.Fprintln(p.out, modelStyle.Render("JARVIS: ")+turn.Text)
		if turn.ImageRef != "" {
			fmt.Fprintln(p.out, reasoningStyle.Render(fmt.Sprintf("[imagem: %d bytes em data URI]", len(turn.ImageRef))))
		}
	}
}

func (p *printer) TurnChunk(id, chunk string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, chunk)
}

func (p *printer) TurnClosed(turn pkg.Turn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if turn.State == pkg.TurnInterrupted {
		fmt.Fprint(p.out, reasoningStyle.Render(" [interrompido]"))
	}
	fmt.Fprintln(p.out)
}

func (p *printer) Reasoning(lines []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range lines {
		fmt.Fprintln(p.out, reasoningStyle.Render("  "+line))
	}
}

func (p *printer) StateChanged(core.State) {}
