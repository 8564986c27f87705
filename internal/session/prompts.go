package session

import (
	"fmt"
	"sort"
	"strings"
)

// formContextLine renders the intake form selections as a stable,
// human-readable line for prompt embedding.
func formContextLine(formData map[string]string) string {
	if len(formData) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(formData))
	for k := range formData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, formData[k]))
	}
	return strings.Join(parts, ", ")
}

func augmentationPrompt(formContext, description string) string {
	return fmt.Sprintf(`You are a humanitarian aid logistics expert. Use Google Search to find real-time data about this crisis.

Form Data: %s
Description: %s

Provide a concise summary with:
- Exact Location (with coordinates if possible)
- Current Situation
- Population Data
- Infrastructure Status
- Available Resources
- Sources (2-3 URLs)`, formContext, description)
}

// combinedContext is both embedded in the question prompt and sent as the
// user content of that call.
func combinedContext(formContext, description, augmented string) string {
	return fmt.Sprintf("Form: %s\n\nReport: %s\n\nAnalysis:\n%s", formContext, description, augmented)
}

func questionsPrompt(context string) string {
	return fmt.Sprintf(`Generate 5 targeted questions to gather precise data for resource distribution planning.

Context: %s

Focus on:
1. Exact GPS coordinates or addresses
2. Specific resource quantities needed
3. Transport/logistics details
4. Population numbers at specific locations
5. Available local infrastructure

Respond with ONLY a JSON array:
["Question 1?", "Question 2?", "Question 3?", "Question 4?", "Question 5?"]`, context)
}

func summaryPrompt(collected string) string {
	return fmt.Sprintf(`Analyze this crisis data and provide a structured summary:

%s

Include:
- Locations (with coordinates)
- Population estimates
- Infrastructure status
- Available resources
- Resource needs with quantities`, collected)
}

func needsPrompt(summary string) string {
	return fmt.Sprintf(`Extract structured location data from this summary.

%s

REQUIREMENTS:
- Valid lat/lon coordinates for each location
- Numeric resource needs (water, food, medical)
- Use reasonable estimates if exact data missing

Format:
{
  "locations": [
    {
      "name": "Location Name",
      "lat": 28.5355,
      "lon": 77.391,
      "needs": {"water": 1000, "food": 2000, "medical": 500}
    }
  ]
}`, summary)
}

// fallbackQuestions is the canonical question set used when the generated
// list cannot be parsed.
func fallbackQuestions() []string {
	return []string{
		"What are the exact GPS coordinates of affected areas?",
		"What specific quantities of water, food, and medical supplies are needed at each location?",
		"What is the current status of roads and transport routes?",
		"How many people are at each shelter or gathering point?",
		"Are there any operational warehouses or distribution centers?",
	}
}
