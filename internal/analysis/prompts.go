package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finsight-ai/finsight/internal/models"
)

func fundamentalPrompt(ticker, context string) string {
	return fmt.Sprintf(`As a financial analyst, analyze the following information about %s and provide a summary of its financial health.
Focus on its business summary, sector, and any recent news.

Context:
%s

Analysis:`, ticker, context)
}

func technicalPrompt(ticker string, indicators map[string]any) string {
	keys := make([]string, 0, len(indicators))
	for k := range indicators {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, indicators[k])
	}

	return fmt.Sprintf(`As a technical analyst, interpret the following indicator values for %s.
Cover trend (moving averages), momentum (RSI) and volatility (Bollinger bands),
and close with a one-line outlook.

Indicators:
%s
Analysis:`, ticker, b.String())
}

func macroPrompt(ticker, profile string, price float64) string {
	quote := ""
	if price > 0 {
		quote = fmt.Sprintf("\nThe stock last traded at %.2f.\n", price)
	}

	return fmt.Sprintf(`As a macroeconomic analyst, provide an analysis of the current market trends that could impact %s,
given the following company information:

%s
%s
Consider factors like inflation, interest rates, and overall market sentiment.

Analysis:`, ticker, profile, quote)
}

// synthesisPrompt concatenates the succeeded narratives and names the failed
// stages as unavailable so the final report is auditable.
func synthesisPrompt(ticker string, results []models.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, `As Chief Investment Officer, synthesize the analyst sections below into a final
investment recommendation for %s. Weigh the available sections against each
other, state a clear rating (BUY, HOLD or SELL) with a time horizon, and note
which inputs were unavailable.

`, ticker)

	for i, r := range results {
		fmt.Fprintf(&b, "--- Section %d: %s analysis ---\n", i+1, r.Kind)
		if r.Succeeded {
			b.WriteString(r.Narrative)
		} else {
			fmt.Fprintf(&b, "This section is unavailable (%s).", r.FailureReason)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("Final Recommendation:")
	return b.String()
}
