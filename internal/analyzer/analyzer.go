// Package analyzer scores raw user text into a tone and strategy decision.
//
// Analyze is deterministic given the command frequency counter's prior state:
// the same input can score differently once its first token has been seen
// more than three times. The counter is part of the analyzer's state on
// purpose and lives for as long as the Analyzer does.
package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"jarvis/pkg"
)

const (
	// StrategyThreshold is the score at which strategic mode is requested
	StrategyThreshold = 50

	frequentCommandLimit = 3
	frequentCommandBonus = 5

	urgencyPoints     = 50
	analyticalPoints  = 30
	socialPoints      = 10
	engineeringPoints = 40

	unknownCommand = "unknown"
)

var imageRequestPattern = regexp.MustCompile(`(?i)(gera|cria|desenha|faz|mostra).* (imagem|foto|desenho|ilustração|pintura|retrato)`)

var imagePrefixes = []string{"imagem de", "foto de"}

// Keywords are the substring lists for each scoring category
type Keywords struct {
	Urgency     []string
	Analytical  []string
	Social      []string
	Engineering []string
}

// DefaultKeywords mirrors the default persona
func DefaultKeywords() Keywords {
	return Keywords{
		Urgency:     []string{"urgente", "importante", "problema", "erro"},
		Analytical:  []string{"como", "porquê", "analisa", "explica"},
		Social:      []string{"olá", "bom dia", "tudo bem"},
		Engineering: []string{"código", "sistema", "servidor"},
	}
}

// Analyzer holds the keyword lists and the command frequency counter
type Analyzer struct {
	keywords Keywords
	// maxTracked caps the number of distinct keys kept; 0 leaves it unbounded
	maxTracked int

	mu      sync.Mutex
	history map[string]int
}

// New creates an analyzer with the given keyword lists
func New(keywords Keywords, maxTracked int) *Analyzer {
	return &Analyzer{
		keywords:   keywords,
		maxTracked: maxTracked,
		history:    make(map[string]int),
	}
}

// Analyze scores input and returns the decision with its reasoning trace.
//
// Category rules run in a fixed order and may each overwrite the tone, so
// the last matching category decides it. Scores accumulate without a cap.
func (a *Analyzer) Analyze(input string) pkg.ContextDecision {
	lower := strings.ToLower(input)
	decision := pkg.ContextDecision{
		Tone:      pkg.ToneTechnical,
		Reasoning: []string{"A iniciar motor de inferência..."},
	}

	if isImageRequest(lower) {
		decision.IsImageRequest = true
		decision.Reasoning = append(decision.Reasoning,
			"INFO: Pedido de geração de imagem detetado. Encaminhando para o módulo visual.")
	}

	key := commandKey(lower)
	if count := a.track(key); count > frequentCommandLimit {
		decision.Score += frequentCommandBonus
		decision.Reasoning = append(decision.Reasoning,
			fmt.Sprintf("INFO: Padrão de comportamento detetado (Comando frequente: %s). Otimizando cache de resposta.", key))
	}

	decision.Reasoning = append(decision.Reasoning, "A avaliar parâmetros semânticos...")

	if containsAny(lower, a.keywords.Urgency) {
		decision.Score += urgencyPoints
		decision.Reasoning = append(decision.Reasoning, "ALERTA: Contexto crítico detetado (+50 pts).")
	}
	if containsAny(lower, a.keywords.Analytical) {
		decision.Score += analyticalPoints
		decision.Reasoning = append(decision.Reasoning, "INFO: Requisição analítica complexa detetada (+30 pts).")
	}
	if containsAny(lower, a.keywords.Social) {
		decision.Tone = pkg.ToneCasual
		decision.Score += socialPoints
		decision.Reasoning = append(decision.Reasoning, "INFO: Interação social detetada. Ajustando tom para empático.")
	}
	if containsAny(lower, a.keywords.Engineering) {
		decision.Tone = pkg.ToneEngineering
		decision.Score += engineeringPoints
		decision.Reasoning = append(decision.Reasoning, "INFO: Contexto de engenharia detetado. Ajustando tom para técnico.")
	}

	decision.RequiresStrategy = decision.Score >= StrategyThreshold
	if decision.RequiresStrategy {
		decision.Reasoning = append(decision.Reasoning, "DECISÃO: Threshold de complexidade atingido. Ativando MODO ESTRATÉGICO.")
	} else {
		decision.Reasoning = append(decision.Reasoning, "DECISÃO: Processamento padrão adequado.")
	}

	return decision
}

// CommandCount returns how often key has been seen as a first token
func (a *Analyzer) CommandCount(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history[key]
}

// track increments the counter for key and returns the new count
func (a *Analyzer) track(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, seen := a.history[key]; !seen && a.maxTracked > 0 && len(a.history) >= a.maxTracked {
		a.evictLeastFrequent()
	}
	a.history[key]++
	return a.history[key]
}

// evictLeastFrequent drops the key with the lowest count. Caller holds mu.
func (a *Analyzer) evictLeastFrequent() {
	var victim string
	lowest := -1
	for key, count := range a.history {
		if lowest == -1 || count < lowest || (count == lowest && key < victim) {
			victim, lowest = key, count
		}
	}
	delete(a.history, victim)
}

func isImageRequest(lower string) bool {
	if imageRequestPattern.MatchString(lower) {
		return true
	}
	for _, prefix := range imagePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// commandKey is the first space-delimited token, or "unknown" for empty input
func commandKey(lower string) string {
	key, _, _ := strings.Cut(lower, " ")
	if key == "" {
		return unknownCommand
	}
	return key
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}
