package editor

import "fmt"

// promptTemplate is the fixed stylistic wrapper applied to every instruction.
// The raw instruction is embedded verbatim inside double quotes; nothing in
// the template depends on the model, the image, or the request.
const promptTemplate = `Using the provided photograph as the base image, apply the following edit: "%s". Preserve the original composition, subject identity and lighting of the photograph, change only what the edit requires, and return the edited image.`

// AugmentInstruction builds the augmented prompt sent to the remote service.
// It is a deterministic string template, not a learned transformation.
func AugmentInstruction(instruction string) string {
	return fmt.Sprintf(promptTemplate, instruction)
}
