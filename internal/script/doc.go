// Package script generates narration scripts for a topic through a
// priority-ordered provider chain. The OpenRouter chat-completions API is the
// primary provider; the keyless Pollinations text endpoint is the free
// fallback. Providers return the same beat-structured script so downstream
// stages never branch on which one succeeded.
package script
