package triage

import (
	"fmt"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
)

const defaultLanguage = "en"

type locale struct {
	summaryIntro     string
	summaryStats     string // total, vulnerable, not vulnerable, high priority
	summaryMethods   string
	summaryAttention string // vulnerable
	summaryNone      string
	stepsVulnerable  []string
	stepsGeneral     []string
	fallbackAdvice   []string
}

var locales = map[string]locale{
	"en": {
		summaryIntro: "Vulnerability validation analysis completed.",
		summaryStats: "Analysis Results:\n" +
			"- Total vulnerabilities analyzed: %d\n" +
			"- Confirmed vulnerable: %d\n" +
			"- Not vulnerable: %d\n" +
			"- High priority issues: %d",
		summaryMethods:   "The analysis combined report interpretation, static code analysis using Semgrep and dynamic exploitation testing.",
		summaryAttention: "Critical attention required for %d confirmed vulnerabilities.",
		summaryNone:      "No confirmed vulnerabilities found in the current analysis.",
		stepsVulnerable: []string{
			"Immediately address all confirmed vulnerable findings",
			"Prioritize remediation based on risk rating and exploitability",
			"Implement security patches and code fixes",
			"Conduct verification testing after remediation",
		},
		stepsGeneral: []string{
			"Review and implement security recommendations",
			"Establish regular security testing procedures",
			"Consider implementing additional security controls",
			"Schedule follow-up security assessments",
		},
		fallbackAdvice: []string{
			"Manual review recommended due to automated triage limitations",
			"Consider additional testing for high-severity vulnerabilities",
		},
	},
	"es": {
		summaryIntro: "Análisis de validación de vulnerabilidades completado.",
		summaryStats: "Resultados del Análisis:\n" +
			"- Total de vulnerabilidades analizadas: %d\n" +
			"- Confirmadas como vulnerables: %d\n" +
			"- No vulnerables: %d\n" +
			"- Problemas de alta prioridad: %d",
		summaryMethods:   "El análisis combinó interpretación del reporte, análisis estático de código usando Semgrep y pruebas dinámicas de explotación.",
		summaryAttention: "Se requiere atención crítica para %d vulnerabilidades confirmadas.",
		summaryNone:      "No se encontraron vulnerabilidades confirmadas en el análisis actual.",
		stepsVulnerable: []string{
			"Abordar inmediatamente todos los hallazgos vulnerables confirmados",
			"Priorizar la remediación basada en la calificación de riesgo y explotabilidad",
			"Implementar parches de seguridad y correcciones de código",
			"Realizar pruebas de verificación después de la remediación",
		},
		stepsGeneral: []string{
			"Revisar e implementar las recomendaciones de seguridad",
			"Establecer procedimientos regulares de pruebas de seguridad",
			"Considerar implementar controles de seguridad adicionales",
			"Programar evaluaciones de seguridad de seguimiento",
		},
		fallbackAdvice: []string{
			"Se recomienda revisión manual debido a limitaciones del triaje automatizado",
			"Considerar pruebas adicionales para vulnerabilidades de alta severidad",
		},
	},
}

func normalizeLanguage(language string) string {
	if _, ok := locales[language]; ok {
		return language
	}
	return defaultLanguage
}

func localeFor(language string) locale {
	return locales[normalizeLanguage(language)]
}

// ExecutiveSummary рендерит сводку; все посчитанные числа всегда попадают в текст
func ExecutiveSummary(s models.TriageSummary, language string) string {
	l := localeFor(language)

	closing := l.summaryNone
	if s.Confirmed > 0 {
		closing = fmt.Sprintf(l.summaryAttention, s.Confirmed)
	}

	return l.summaryIntro + "\n\n" +
		fmt.Sprintf(l.summaryStats, s.Total, s.Confirmed, s.NotVulnerable, s.HighPriorityCount) + "\n\n" +
		l.summaryMethods + "\n\n" +
		closing
}

// NextSteps: шаги для подтверждённых уязвимостей (если есть) плюс общие
func NextSteps(confirmed int, language string) []string {
	l := localeFor(language)

	steps := make([]string, 0, len(l.stepsVulnerable)+len(l.stepsGeneral))
	if confirmed > 0 {
		steps = append(steps, l.stepsVulnerable...)
	}
	return append(steps, l.stepsGeneral...)
}

// FallbackRecommendations - рекомендации rule-based пути
func FallbackRecommendations(language string) []string {
	advice := localeFor(language).fallbackAdvice
	return append([]string(nil), advice...)
}
