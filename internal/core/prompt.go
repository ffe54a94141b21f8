package core

import (
	"fmt"
	"strings"

	"jarvis/internal/config"
	"jarvis/pkg"
)

const strategicBlock = "MODO ESTRATÉGICO ATIVADO: Forneça análises profundas, considere múltiplos cenários, avalie riscos e sugira o melhor plano de ação passo-a-passo."

const noMemory = "Nenhum dado consolidado ainda."

// BuildSystemInstruction renders the per-exchange system prompt
func BuildSystemInstruction(persona config.Persona, tone pkg.Tone, ltm string, strategic bool) string {
	phrase := persona.Tones[string(tone)]
	if phrase == "" {
		phrase = persona.Tones[string(pkg.ToneTechnical)]
	}
	if ltm == "" {
		ltm = noMemory
	}
	strategy := ""
	if strategic {
		strategy = strategicBlock
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Você é %s, um assistente de inteligência artificial autónomo e altamente avançado.\n", persona.Name)
	fmt.Fprintf(&sb, "Responda em %s (Região: %s).\n", persona.Language, persona.Region)
	fmt.Fprintf(&sb, "Personalidade atual: %s.\n", phrase)
	sb.WriteString(strategy + "\n\n")
	sb.WriteString("Memória de Longo Prazo (Fatos consolidados sobre o utilizador):\n")
	sb.WriteString(ltm + "\n\n")
	sb.WriteString("Regras Fundamentais:\n")
	sb.WriteString("1. Seja eficiente, proativo e antecipe necessidades.\n")
	sb.WriteString("2. Formate as suas respostas com Markdown claro e legível.\n")
	sb.WriteString("3. Podes pesquisar na internet se precisares de informações atualizadas.\n")
	sb.WriteString("4. Se notares algo importante na mensagem do utilizador que deva ser lembrado, menciona isso brevemente.")
	return sb.String()
}
