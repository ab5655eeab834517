// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.ragify/config.toml
//   - PromptStore: user-editable answering prompts under ~/.ragify/prompts
package file
