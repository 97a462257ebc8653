package speech

import "github.com/hammamikhairi/voicehooks/internal/domain"

// Default Azure neural voice, used when the configured voice name is a
// desktop voice such as "Samantha".
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const DefaultAzureVoice = "en-US-AvaNeural"

// Audio format requested from Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for Azure Speech credentials. EnvAzureSpeechVoice, when
// set, replaces DefaultAzureVoice as the fallback voice.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
	EnvAzureSpeechVoice  = "AZURE_SPEECH_VOICE"
)

// DefaultLinuxVoice is the espeak voice (language) used on Linux. espeak
// does not know desktop voice names, so VoiceName is not forwarded there.
const DefaultLinuxVoice = "en"

// baselineRate is the words-per-minute value treated as "normal speed"
// when a backend expresses rate relatively.
const baselineRate = domain.DefaultRate
