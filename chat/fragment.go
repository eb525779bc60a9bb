package chat

// Fragment is a span of message text, either plain text or a recognized emote.
// It mirrors the Twitch comment feed's fragment shape, modeled as a tagged
// variant so the scorer dispatches on the kind rather than a nullable field.
type Fragment struct {
	Text    string
	IsEmote bool
	// EmoteName is the emote's display/label text as it appears in the
	// category emote-name sets. Empty when IsEmote is false.
	EmoteName string
}

// TextFragment builds a plain-text fragment.
func TextFragment(text string) Fragment {
	return Fragment{Text: text}
}

// EmoteFragment builds a recognized-emote fragment.
func EmoteFragment(name string) Fragment {
	return Fragment{Text: name, IsEmote: true, EmoteName: name}
}
