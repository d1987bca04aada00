package genai

import (
	"fmt"
	"strings"
)

// tryOnPrompt is the fixed instruction sent with every synthesis call. The
// wording is load-bearing: it keeps the model from inventing a new person or
// scene instead of dressing the one in the first image.
const tryOnPrompt = "You are a virtual try-on assistant. The first image is a photo of a person. " +
	"Every following image shows a product. Generate one photorealistic image of the same " +
	"person wearing or using the product. Preserve the person's face, body shape, pose, and " +
	"the photo's background and lighting. Return only the generated image."

// buildTryOnPrompt augments the fixed template with the optional product
// context and the requested fidelity mode.
func buildTryOnPrompt(req SynthesisRequest) string {
	var b strings.Builder
	b.WriteString(tryOnPrompt)
	if title := strings.TrimSpace(req.ProductTitle); title != "" {
		b.WriteString(fmt.Sprintf("\nThe product is: %s.", title))
	}
	if req.Mode == ModeAccurate {
		b.WriteString("\nPrioritize fidelity: match fabric texture, fit, and product details exactly.")
	}
	return b.String()
}
