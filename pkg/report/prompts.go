package report

import (
	"fmt"
	"strings"

	"github.com/mediquest/medscan/pkg/types"
)

// AnalysisPrompt requests the exact JSON structure ParseAnalysisReport
// expects. Changing one side means changing the other.
const AnalysisPrompt = `You are a medical imaging assistant reviewing a patient's scan (X-ray, MRI, CT, ultrasound or a photographed lab report).

Respond with STRICT JSON only. No markdown fences, no commentary. Use exactly this structure:
{
  "summary": "2-4 sentence plain-language overview of what the scan shows",
  "findings": [
    {
      "label": "short name of the observation",
      "confidence": "High, Medium or Low",
      "explanation": "1-2 sentences a patient without medical training can understand",
      "box": {"yMin": 0.1, "xMin": 0.1, "yMax": 0.3, "xMax": 0.4}
    }
  ],
  "disclaimer": "one-sentence reminder that this is not a diagnosis"
}

Rules:
- box values are fractions of image height and width between 0 and 1
- omit the "box" field entirely for observations without a visible region, such as lab values
- order findings from most to least significant
- use calm, non-alarming language
- return an empty findings array rather than inventing observations`

// EnhancePrompt asks an image-generation model for a cleaned-up scan.
const EnhancePrompt = `Enhance this medical scan for readability: increase contrast, sharpen edges and reduce noise so anatomical structures are easier to distinguish. Return only the enhanced image. Do not add annotations, text, color tinting or any content that is not in the original.`

// BuildScorePrompt renders the patient's data into the scoring prompt.
// The requested JSON structure matches what ParseHealthScore expects.
func BuildScorePrompt(req types.ScoreRequest) string {
	var b strings.Builder

	b.WriteString("You are a health assessment assistant. Based on the patient data below, produce an overall wellness assessment.\n\n")

	p := req.Profile
	fmt.Fprintf(&b, "Patient profile:\n- Name: %s\n- Age: %d\n- Gender: %s\n", p.Name, p.Age, p.Gender)
	if p.HeightCm > 0 {
		fmt.Fprintf(&b, "- Height: %.0f cm\n", p.HeightCm)
	}
	if p.WeightKg > 0 {
		fmt.Fprintf(&b, "- Weight: %.1f kg\n", p.WeightKg)
	}
	if p.BloodGroup != "" {
		fmt.Fprintf(&b, "- Blood group: %s\n", p.BloodGroup)
	}
	if len(p.Conditions) > 0 {
		fmt.Fprintf(&b, "- Known conditions: %s\n", strings.Join(p.Conditions, ", "))
	}
	if len(p.Allergies) > 0 {
		fmt.Fprintf(&b, "- Allergies: %s\n", strings.Join(p.Allergies, ", "))
	}

	if len(req.Symptoms) > 0 {
		b.WriteString("\nReported symptoms (severity 1-10):\n")
		for _, s := range req.Symptoms {
			fmt.Fprintf(&b, "- %s, severity %d", s.Name, s.Severity)
			if s.Notes != "" {
				fmt.Fprintf(&b, " (%s)", s.Notes)
			}
			b.WriteString("\n")
		}
	}

	if len(req.Medications) > 0 {
		b.WriteString("\nCurrent medications:\n")
		for _, m := range req.Medications {
			fmt.Fprintf(&b, "- %s %s, %s\n", m.Name, m.Dosage, m.Frequency)
		}
	}

	if len(req.History) > 0 {
		b.WriteString("\nRecent scan findings:\n")
		for _, h := range req.History {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	b.WriteString(`
Respond with STRICT JSON only, no markdown fences, using exactly this structure:
{
  "healthScore": 75,
  "summary": "2-3 sentence plain-language assessment",
  "riskFactors": ["list of risk factors"],
  "recommendations": ["list of actionable recommendations"],
  "doctorSpecialty": "most relevant medical specialty to consult",
  "urgency": "Low, Moderate, High or Emergency"
}

healthScore is an integer from 0 (critical) to 100 (excellent).`)

	return b.String()
}
