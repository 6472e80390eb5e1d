// Package agent drives the conversation loop of the coding assistant.
//
// A Session owns one chat: it seeds the system prompt, replays persisted
// history, and alternates provider completions with tool executions until
// the model stops requesting tools or the iteration cap is reached. Every
// turn is persisted before the loop proceeds, and progress is reported
// through a typed event stream the transport layer forwards to the client.
//
// The provider behind a session is an llm.ProviderAdapter and the tools are
// a toolbox.Executor; both are injected so transports and tests can swap
// them freely.
package agent
