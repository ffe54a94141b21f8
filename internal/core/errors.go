package core

import "errors"

// Common errors
var (
	ErrBusy             = errors.New("an exchange is already in progress")
	ErrEmptySubmission  = errors.New("submission has no text and no media")
	ErrGenerationFailed = errors.New("model returned no usable content")
	ErrMediaTooLarge    = errors.New("media exceeds the upload limit")
)

// MaxMediaBytes is the largest attachment accepted, measured after decoding
const MaxMediaBytes = 15 * 1024 * 1024

// Transcript texts
const (
	msgProcessingError = "ERRO NO PROCESSAMENTO COGNITIVO."
	msgQuotaExceeded   = "ALERTA: Limite de requisições excedido (Quota 429). Por favor, aguarde alguns instantes antes de enviar novos comandos ou verifique o seu plano de faturação da API."
	msgVoiceQuota      = "ALERTA: Limite de requisições excedido para o serviço de voz (Quota 429)."
	msgMicUnavailable  = "ERRO: ACESSO AO MICROFONE NEGADO OU INDISPONÍVEL."
	msgSpeakerMissing  = "ALERTA: Dispositivo de saída de áudio indisponível. As respostas seguirão apenas em texto."
	msgMediaTooLarge   = "ERRO: O arquivo excede o limite de 15MB para processamento."

	msgImageReady  = "Aqui está a imagem gerada conforme o seu pedido:"
	msgImageSpoken = "Aqui está a imagem gerada conforme o seu pedido."

	msgConsolidating = "MEMÓRIA: Consolidando dado importante na Memória de Longo Prazo."
)
