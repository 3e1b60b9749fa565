package model

// Language of the sung lyrics
type Language string

const (
	LanguageEN Language = "en"
	LanguageTR Language = "tr"
	LanguageFR Language = "fr"
	LanguageES Language = "es"
	LanguageDE Language = "de"
	LanguageIT Language = "it"
	LanguagePT Language = "pt"
	LanguageJA Language = "ja"
	LanguageKO Language = "ko"
)

// Vocal arrangement
type Vocals string

const (
	VocalsMale         Vocals = "male"
	VocalsFemale       Vocals = "female"
	VocalsDuet         Vocals = "duet"
	VocalsChoir        Vocals = "choir"
	VocalsInstrumental Vocals = "instrumental"
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
