package recognition

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// decodeOutcome parses a JSON decision, tolerating a Markdown code fence
// around it.
func decodeOutcome(text string) (Outcome, error) {
	text = stripFence(text)
	if text == "" {
		return Outcome{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var out Outcome
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v (response: %s)", ErrMalformedResponse, err, truncate(text, 200))
	}
	return normalize(out)
}

// normalize enforces the Outcome invariants: confidence in [0,1], and a match
// always names an employee.
func normalize(o Outcome) (Outcome, error) {
	switch {
	case math.IsNaN(o.Confidence) || o.Confidence < 0:
		o.Confidence = 0
	case o.Confidence > 1:
		o.Confidence = 1
	}

	o.EmployeeID = strings.TrimSpace(o.EmployeeID)
	o.EmployeeName = strings.TrimSpace(o.EmployeeName)
	if !o.Matched {
		o.EmployeeID = ""
		o.EmployeeName = ""
		return o, nil
	}
	if o.EmployeeID == "" || o.EmployeeName == "" {
		return Outcome{}, fmt.Errorf("%w: match without employee id and name", ErrMalformedResponse)
	}
	return o, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
