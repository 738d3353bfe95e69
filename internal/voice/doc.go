// Package voice synthesizes narration audio through a provider chain:
// ElevenLabs (premium, monthly quota) first, then a local edge-tts executable
// as the free fallback. Both providers deliver a PCM WAV whose duration is
// measured from the RIFF header, so callers never branch on which one served.
package voice
