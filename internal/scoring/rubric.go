package scoring

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rubric.yaml
var rubricYAML []byte

// RubricCategory is one scored dimension of a sales call.
type RubricCategory struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Guidance string `yaml:"guidance"`
}

// Rubric is the fixed set of categories every call is scored against.
type Rubric struct {
	Categories []RubricCategory `yaml:"categories"`
}

// LoadRubric parses the embedded rubric definition.
func LoadRubric() (Rubric, error) {
	var rubric Rubric
	if err := yaml.Unmarshal(rubricYAML, &rubric); err != nil {
		return Rubric{}, fmt.Errorf("parse rubric: %w", err)
	}
	if len(rubric.Categories) == 0 {
		return Rubric{}, fmt.Errorf("rubric defines no categories")
	}
	return rubric, nil
}

// CategoryIDs returns the rubric category ids in definition order.
func (r Rubric) CategoryIDs() []string {
	ids := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// Prompt builds the scoring prompt for one normalized transcript.
func (r Rubric) Prompt(transcriptText string) string {
	var b strings.Builder

	b.WriteString("You are an experienced sales coach reviewing a recorded sales call.\n")
	b.WriteString("Score the call against each rubric category below on a 0-10 scale and return ONLY a JSON object.\n\n")

	b.WriteString("Rubric categories:\n")
	for _, c := range r.Categories {
		b.WriteString(fmt.Sprintf("- %s (%s): %s\n", c.ID, c.Name, strings.TrimSpace(c.Guidance)))
	}

	b.WriteString("\nReturn JSON with exactly this shape:\n")
	b.WriteString(`{
  "metadata": {"rep_name": "", "prospect_company": "", "prospect_name": "", "call_type": "", "deal_stage": ""},
  "scores": {`)
	for i, c := range r.Categories {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%q: {\"score\": 0, \"details\": \"\"}", c.ID))
	}
	b.WriteString(`},
  "gut_check": "",
  "strengths": ["", "", ""],
  "areas_of_opportunity": ["", ""]
}
`)
	b.WriteString("\nRules:\n")
	b.WriteString("- Every category must appear in scores with an integer score from 0 to 10 and a short details sentence.\n")
	b.WriteString("- strengths must contain exactly 3 items; areas_of_opportunity must contain 2 to 4 items.\n")
	b.WriteString("- Fill metadata fields from the transcript; leave a field empty if it cannot be inferred.\n")
	b.WriteString("- gut_check is a one-paragraph overall impression of the call.\n")

	b.WriteString("\nTranscript:\n")
	b.WriteString(transcriptText)
	return b.String()
}
