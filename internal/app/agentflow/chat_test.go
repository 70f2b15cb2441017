package agentflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		name      string
		message   string
		hasScript bool
		want      Intent
	}{
		{"mission verb", "Analyze flooding in Bangladesh during monsoon 2022", false, IntentNewAnalysis},
		{"first message defaults to mission", "flood extent bangladesh july 2022", false, IntentNewAnalysis},
		{"refine with script", "Change the water color to cyan instead", true, IntentRefine},
		{"refine keywords without script fall through", "change everything", false, IntentNewAnalysis},
		{"question", "Why did you pick Sentinel-1 for this?", true, IntentQuestion},
		{"bare question mark", "and the cloud cover?", true, IntentQuestion},
		{"general chit chat with script", "thanks, looks great", true, IntentGeneral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyIntent(tc.message, tc.hasScript))
		})
	}
}
