package tutor

import (
	"encoding/json"

	"github.com/linguakit/lingua-live/pkg/live"
)

// SystemInstruction is the lesson prompt sent in the session setup frame.
const SystemInstruction = `You are a warm, patient language tutor running a live spoken lesson.
You speak with the learner in the target language, keeping your speech
slightly above their current level.

The lesson moves through phases (greeting, vocabulary, conversation,
review). Whenever you move to a new phase, or the learner's level
changes, call update_phase with the phase name and a linguistic age that
describes the complexity of language you will use (for example
"toddler", "child", "teenager", "adult").

When the learner struggles with a word, call explain_pronunciation with
the word, an English-letter approximation of how it sounds, and a short
explanation of how to articulate it.

When a picture would help the learner connect a word to its meaning,
call show_image with a short visual prompt describing the scene.

When the learner cannot reproduce a sound, call show_articulation_video
with a prompt describing a close-up of a mouth articulating that sound.

Keep your spoken turns short. Always wait for the learner to respond.
Correct gently, and celebrate progress.`

// ToolDeclarations describes the four lesson tools advertised to the model.
func ToolDeclarations() []live.FunctionDeclaration {
	return []live.FunctionDeclaration{
		{
			Name:        ToolUpdatePhase,
			Description: "Record that the lesson moved to a new phase or the learner's level changed.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"phase": {"type": "string", "description": "Name of the lesson phase."},
					"linguistic_age": {"type": "string", "description": "Complexity level of the language being used."}
				},
				"required": ["phase", "linguistic_age"]
			}`),
		},
		{
			Name:        ToolExplainPronunciation,
			Description: "Show the learner a written pronunciation note for a difficult word.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"word": {"type": "string", "description": "The word being explained."},
					"approximation": {"type": "string", "description": "English-letter approximation of the sound."},
					"explanation": {"type": "string", "description": "How to articulate the word."}
				},
				"required": ["word", "approximation", "explanation"]
			}`),
		},
		{
			Name:        ToolShowImage,
			Description: "Generate and display an illustrative image for the current topic.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"prompt": {"type": "string", "description": "Visual description of the image to generate."}
				},
				"required": ["prompt"]
			}`),
		},
		{
			Name:        ToolShowVideo,
			Description: "Generate and display a short articulation video for a difficult sound.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"prompt": {"type": "string", "description": "Description of the mouth articulation to show."}
				},
				"required": ["prompt"]
			}`),
		},
	}
}
