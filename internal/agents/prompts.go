package agents

import (
	"fmt"
	"strings"
)

// Phase selects which review prompt a Reviewer uses.
type Phase string

const (
	PhaseGrammar    Phase = "grammar"
	PhaseTechnical  Phase = "technical"
	PhaseStructural Phase = "structural"
)

// Phases lists the supported review phases in their canonical order.
func Phases() []Phase {
	return []Phase{PhaseGrammar, PhaseTechnical, PhaseStructural}
}

// ParsePhase resolves a config string into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch Phase(strings.ToLower(strings.TrimSpace(s))) {
	case PhaseGrammar:
		return PhaseGrammar, nil
	case PhaseTechnical:
		return PhaseTechnical, nil
	case PhaseStructural:
		return PhaseStructural, nil
	}
	return "", fmt.Errorf("unknown review phase %q (want grammar, technical or structural)", s)
}

// Prompt templates are PT-BR because the documents under review are. The
// {placeholder} slots are filled by buildPrompt.
const (
	promptGrammar = `Você é um revisor linguístico especialista em português brasileiro.
Analise o seguinte trecho de um texto estruturado e identifique TODOS
os erros gramaticais, ortográficos e de concordância.

Para cada erro encontrado, forneça:
1. Trecho original com erro
2. Correção sugerida
3. Tipo do erro (gramatical, ortografico, concordancia)
4. Justificativa técnica

Texto para revisão:
{texto}

Responda em formato JSON com a seguinte estrutura:
{
  "erros": [
    {
      "trecho_original": "...",
      "sugestao_correcao": "...",
      "tipo": "gramatical|ortografico|concordancia",
      "justificativa": "...",
      "severidade": 1-5
    }
  ],
  "texto_revisado": "texto completo com correções aplicadas"
}`

	promptTechnical = `Você é um perito criminal com vasta experiência em textos estruturados.
Analise o seguinte trecho de um texto estruturado e identifique
problemas técnicos, incluindo:

- Inconsistências lógicas ou factuais
- Terminologia técnica incorreta ou imprecisa
- Falta de fundamentação científica
- Conclusões não suportadas pelas evidências
- Referências normativas incorretas

Texto para revisão:
{texto}

Responda em formato JSON:
{
  "erros": [
    {
      "trecho_original": "...",
      "sugestao_correcao": "...",
      "tipo": "tecnico|inconsistencia|terminologia|fundamentacao",
      "justificativa": "...",
      "severidade": 1-5
    }
  ],
  "texto_revisado": "texto completo com correções"
}`

	promptStructural = `Você é um especialista em redação técnica e textos estruturados.
Analise a estrutura do seguinte trecho, verificando:

- Coesão e coerência textual
- Organização lógica dos argumentos
- Clareza e objetividade da redação
- Formatação adequada para texto estruturado
- Completude das informações necessárias

Texto para revisão:
{texto}

Responda em formato JSON:
{
  "erros": [
    {
      "trecho_original": "...",
      "sugestao_correcao": "...",
      "tipo": "estrutural|coesao|clareza|formatacao",
      "justificativa": "...",
      "severidade": 1-5
    }
  ],
  "texto_revisado": "texto completo com correções"
}`

	promptValidation = `Você é um revisor sênior de textos estruturados.
Compare o texto original com a versão revisada e avalie
se as correções propostas são adequadas.

Texto original:
{texto_original}

Texto revisado:
{texto_revisado}

Correções aplicadas:
{correcoes}

Para cada correção, indique se está:
- CORRETA: a correção melhora o texto
- INCORRETA: a correção introduz erro
- DESNECESSARIA: o texto original estava correto

Responda em formato JSON:
{
  "avaliacoes": [
    {
      "correcao": "...",
      "status": "correta|incorreta|desnecessaria",
      "justificativa": "..."
    }
  ],
  "aprovado": true/false
}`

	promptConsistency = `Você é um especialista em análise de consistência documental.
Analise as seguintes seções de um texto estruturado e identifique
inconsistências entre elas.

Verifique:
- Contradições entre seções
- Dados divergentes (datas, nomes, valores)
- Referências cruzadas incorretas
- Conclusões incompatíveis com a metodologia

Seções do texto:
{secoes}

Responda em formato JSON:
{
  "inconsistencias": [
    {
      "secao_1": "título da seção",
      "secao_2": "título da seção",
      "descricao": "...",
      "severidade": 1-5,
      "sugestao": "..."
    }
  ],
  "consistente": true/false,
  "resumo": "resumo da análise"
}`

	promptSynthesis = `Você é um redator técnico especializado em textos estruturados.
Gere um resumo executivo das revisões realizadas no texto.

Inclua:
- Total de erros por categoria
- Seções com mais problemas
- Avaliação geral da qualidade
- Recomendações prioritárias

Dados do processamento:
{dados}

Responda em texto corrido em português brasileiro,
com parágrafos claros e objetivos.`
)

func (p Phase) template() string {
	switch p {
	case PhaseTechnical:
		return promptTechnical
	case PhaseStructural:
		return promptStructural
	default:
		return promptGrammar
	}
}

// buildPrompt fills the {name} slots of a template. Pairs alternate
// name, value.
func buildPrompt(template string, pairs ...string) string {
	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}
