package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"potencialize/internal/models"
)

type ProposalInput struct {
	Client   string
	Products []string
	Value    int64 // centavos
	Scope    string
}

func proposalPrompt(in ProposalInput) string {
	return fmt.Sprintf(`Você é um consultor comercial sênior da Potencialize Resultados.
Escreva uma proposta comercial persuasiva e profissional para o cliente "%s".

Produtos Ofertados: %s
Valor Total: %s

Detalhes do Escopo Principal:
"%s"

Estrutura da proposta:
1. Introdução (focada em dor e solução)
2. O que será entregue (detalhes técnicos mas acessíveis)
3. Metodologia de Trabalho (Onboarding e Acompanhamento)
4. Investimento
5. Fechamento (Chamada para ação)

Tom de voz: Profissional, parceiro, focado em resultados e eficiência.`,
		in.Client, strings.Join(in.Products, ", "), models.FormatBRL(in.Value), in.Scope)
}

func offlineProposal(in ProposalInput) string {
	return fmt.Sprintf(`PROPOSTA COMERCIAL (rascunho automático)

Para: %s
Soluções: %s
Investimento: %s

Prezados,
Com base em nossa conversa, apresentamos a solução ideal para...`,
		in.Client, strings.Join(in.Products, ", "), models.FormatBRL(in.Value))
}

// Assistant builds prompts and falls back to templates when the provider is offline.
type Assistant struct {
	completer TextCompleter
}

func NewAssistant(c TextCompleter) *Assistant {
	if c == nil {
		c = Offline{}
	}
	return &Assistant{completer: c}
}

func (a *Assistant) Proposal(ctx context.Context, in ProposalInput) (string, error) {
	text, err := a.completer.Complete(ctx, proposalPrompt(in))
	if errors.Is(err, errOffline) {
		return offlineProposal(in), nil
	}
	return text, err
}

func (a *Assistant) ActionPlan(ctx context.Context, projectContext string) (string, error) {
	prompt := fmt.Sprintf(`Crie um Plano de Ação Executivo (To-Do List estratégica) para um projeto de consultoria com o seguinte contexto: "%s".
Formato: Lista de 5 a 7 itens principais, com "Ação", "Por que fazer" e "Resultado Esperado".`, projectContext)
	text, err := a.completer.Complete(ctx, prompt)
	if errors.Is(err, errOffline) {
		return "Plano de ação gerado automaticamente com base no escopo e diagnóstico do cliente.", nil
	}
	return text, err
}
