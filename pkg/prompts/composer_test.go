package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/squads"
)

func TestComposeImage_OilBottleDirectiveComesFirstAndRepeats(t *testing.T) {
	p := newProduct(map[string]string{
		"name":     "Rose Attar",
		"category": "personal_fragrance",
		"format":   "roller",
		"lighting": "soft window light",
	})
	ctx := FormatImageContext(nil, p, DefaultGlobalRules())

	got := ComposeImage(ImageInput{
		Intent:              "Hero shot on travertine.",
		Product:             p,
		Context:             ctx,
		Squad:               models.SquadScientists,
		ReferenceDirectives: "Image 1 is the product. Match it exactly.",
		AspectRatio:         "4:5",
		Resolution:          models.Resolution2K,
		NegativePrompt:      "blur",
	})

	require.True(t, strings.HasPrefix(got.Prompt, "BOTTLE SAFETY"), got.Prompt)
	assert.Less(t, strings.Index(got.Prompt, "BOTTLE SAFETY"), strings.Index(got.Prompt, "## Reference images"))
	assert.Contains(t, got.Prompt, "## Art direction\nthe minimalists.")

	trailer := got.Prompt[strings.Index(got.Prompt, "## Output"):]
	assert.Equal(t, "## Output\nAspect ratio: 4:5\nResolution: 2K\nNegative prompt: blur\n"+
		"Avoid: spray nozzle, atomizer, pump, dip tube", trailer)
}

func TestComposeImage_SprayAndUnknownBottles(t *testing.T) {
	spray := newProduct(map[string]string{"name": "Eau de Parfum Spray"})
	got := ComposeImage(ImageInput{Intent: "Hero shot.", Product: spray})
	assert.True(t, strings.HasPrefix(got.Prompt, "BOTTLE SAFETY"))
	assert.Contains(t, got.Prompt, "Avoid: dropper, pipette, roller ball")

	plain := newProduct(map[string]string{"name": "Cedar Nights"})
	got = ComposeImage(ImageInput{Intent: "Hero shot.", Product: plain})
	assert.NotContains(t, got.Prompt, "BOTTLE SAFETY")
	assert.Equal(t, "## Shot\nHero shot.", got.Prompt)
}

func TestComposeImage_AvoidIncludesVisualStandards(t *testing.T) {
	p := newProduct(map[string]string{"bottle_type": "oil", "negative_elements": "hands"})
	ctx := FormatImageContext(fullKnowledge(t), p, nil)
	got := ComposeImage(ImageInput{Product: p, Context: ctx})
	assert.Contains(t, got.Prompt, "Avoid: spray nozzle, atomizer, pump, dip tube, plastic flowers, hands")
}

func TestComposeCopy_PersonaFollowsRoleAndTaskIsLast(t *testing.T) {
	strategy := squads.Route("", "Write an urgent limited-time launch announcement", "")
	ctx := FormatCopyContext(fullKnowledge(t), nil, DefaultGlobalRules())

	got := ComposeCopy(CopyInput{
		Intent:      "Announce the launch. Be gentle about it.",
		ContentType: "email",
		Strategy:    strategy,
		Masters:     []MasterDocument{{Name: "dan_kennedy", Document: "Make one offer."}},
		Context:     ctx,
	})

	role := strings.Index(got.Prompt, "## Role")
	persona := strings.Index(got.Prompt, "## Creative approach")
	voice := strings.Index(got.Prompt, "## Brand voice")
	task := strings.Index(got.Prompt, "## Task")
	require.True(t, role >= 0 && persona >= 0 && voice >= 0 && task >= 0, got.Prompt)
	assert.Less(t, role, persona)
	assert.Less(t, persona, voice)
	assert.Less(t, voice, task)

	assert.Contains(t, got.Prompt, "### Dan Kennedy\nMake one offer.")
	assert.Contains(t, got.Prompt, "Format: email")
	assert.Contains(t, got.Prompt, "Reader awareness: solution aware.")
	// Squad-forbidden words are stripped from the task but listed in the persona.
	assert.Contains(t, got.Prompt, "Be about it.")
	assert.Contains(t, got.Prompt, "Never use these words: gentle")
	assert.Contains(t, got.Forbidden, "gentle")
	assert.Equal(t, DefaultGlobalRules().System, got.System)
}
