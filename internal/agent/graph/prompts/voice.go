package prompts

import "strings"

// Known voice styles.
const (
	VoiceNormal = "normal"
	VoiceSurfer = "surfer"
	VoicePirate = "pirate"
	VoiceNinja  = "ninja"
)

var voiceInstructions = map[string]string{
	VoiceNormal: "",
	VoiceSurfer: "Respond in a chill surfer tone. Use friendly casual words like 'dude', 'awesome', 'totally', 'stoked'.",
	VoicePirate: "Respond like a pirate, playful but clear, throw in an occasional 'Arr' and use pirate speak like 'matey', 'ye', 'aye'.",
	VoiceNinja:  "Respond with ninja wisdom and stealth. Use mysterious, wise language with occasional references to the way of the ninja.",
}

// VoiceInstructions returns the instruction block for a style. Unknown
// styles yield "".
func VoiceInstructions(style string) string {
	return voiceInstructions[strings.ToLower(strings.TrimSpace(style))]
}

// KnownVoiceStyle reports whether style is in the table.
func KnownVoiceStyle(style string) bool {
	_, ok := voiceInstructions[strings.ToLower(strings.TrimSpace(style))]
	return ok
}
